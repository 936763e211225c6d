package rfb

import "testing"

func TestRectangleArea(t *testing.T) {
	r := Rectangle{Width: 10, Height: 4}
	if r.Area() != 40 {
		t.Errorf("Area() = %d, want 40", r.Area())
	}
}

func TestRectangleWithin(t *testing.T) {
	cases := []struct {
		r              Rectangle
		w, h           uint16
		wantWithin     bool
	}{
		{Rectangle{X: 0, Y: 0, Width: 10, Height: 10}, 10, 10, true},
		{Rectangle{X: 5, Y: 5, Width: 10, Height: 10}, 10, 10, false},
		{Rectangle{X: 0, Y: 0, Width: 0, Height: 0}, 0, 0, true},
	}
	for _, c := range cases {
		if got := c.r.Within(c.w, c.h); got != c.wantWithin {
			t.Errorf("%v.Within(%d,%d) = %v, want %v", c.r, c.w, c.h, got, c.wantWithin)
		}
	}
}
