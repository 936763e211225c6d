package rfb

import "testing"

func TestMemSurfacePutPixelBounds(t *testing.T) {
	s := NewMemSurface(4, 4)
	s.PutPixel(1, 1, RGB{R: 10, G: 20, B: 30})
	if got := s.At(1, 1); got != (RGB{10, 20, 30}) {
		t.Errorf("At(1,1) = %v, want {10 20 30}", got)
	}
	// Out-of-bounds writes must be silently dropped, not panic.
	s.PutPixel(-1, 0, RGB{R: 1})
	s.PutPixel(100, 100, RGB{R: 1})
}

func TestMemSurfaceDrawBox(t *testing.T) {
	s := NewMemSurface(4, 4)
	s.SetForeground(RGB{R: 9})
	s.DrawBox(1, 1, 2, 2)
	for y := 1; y < 3; y++ {
		for x := 1; x < 3; x++ {
			if got := s.At(x, y); got.R != 9 {
				t.Errorf("At(%d,%d).R = %d, want 9", x, y, got.R)
			}
		}
	}
	if got := s.At(0, 0); got.R != 0 {
		t.Errorf("DrawBox painted outside its bounds: At(0,0) = %v", got)
	}
}

func TestMemSurfaceCopyBoxOverlap(t *testing.T) {
	s := NewMemSurface(5, 1)
	for x := 0; x < 5; x++ {
		s.PutPixel(x, 0, RGB{R: uint8(x)})
	}
	// Shift the whole row right by one; since source and destination
	// overlap, a naive in-place copy would duplicate pixel 0.
	s.CopyBox(0, 0, 4, 1, 1, 0)
	want := []uint8{0, 0, 1, 2, 3}
	for x, w := range want {
		if got := s.At(x, 0).R; got != w {
			t.Errorf("At(%d,0).R = %d, want %d", x, got, w)
		}
	}
}

func TestMemSurfaceSetPaletteGrows(t *testing.T) {
	s := NewMemSurface(1, 1)
	s.SetPalette(2, []RGB{{R: 1}, {R: 2}})
	if got := s.Palette(3); got.R != 2 {
		t.Errorf("Palette(3).R = %d, want 2", got.R)
	}
	if got := s.Palette(0); got != (RGB{}) {
		t.Errorf("Palette(0) = %v, want zero value", got)
	}
}

func TestMemSurfaceSetModeResets(t *testing.T) {
	s := NewMemSurface(2, 2)
	s.PutPixel(0, 0, RGB{R: 5})
	s.SetMode(3, 3, PixelFormat32bit)
	w, h := s.Bounds()
	if w != 3 || h != 3 {
		t.Errorf("Bounds() = (%d,%d), want (3,3)", w, h)
	}
	if got := s.At(0, 0); got != (RGB{}) {
		t.Errorf("SetMode should clear pixel data, At(0,0) = %v", got)
	}
}
