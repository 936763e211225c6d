package rfb

import "testing"

func TestSmallerThanFramebuffer(t *testing.T) {
	v := NewViewGeometry(800, 600)
	if v.smallerThanFramebuffer(800, 600) {
		t.Error("equal dimensions should not count as smaller")
	}
	if !v.smallerThanFramebuffer(1024, 600) {
		t.Error("narrower visible width should count as smaller")
	}
	if !v.smallerThanFramebuffer(800, 768) {
		t.Error("shorter visible height should count as smaller")
	}
}

func TestViewGeometryResizeScrollbarFlags(t *testing.T) {
	v := NewViewGeometry(800, 600)
	v.Resize(1024, 600)
	if !v.hScroll {
		t.Error("wider framebuffer should set hScroll")
	}
	if v.vScroll {
		t.Error("equal height should not set vScroll")
	}
}

func TestViewGeometryEffectiveAreaReservesScrollbar(t *testing.T) {
	v := NewViewGeometry(800, 600)
	v.Resize(1024, 768)
	w, h := v.effectiveArea()
	if w != 800-scrollbarWidth {
		t.Errorf("effectiveArea width = %d, want %d", w, 800-scrollbarWidth)
	}
	if h != 600-scrollbarWidth {
		t.Errorf("effectiveArea height = %d, want %d", h, 600-scrollbarWidth)
	}
}

func TestViewGeometrySetSlideClamps(t *testing.T) {
	v := NewViewGeometry(800, 600)
	v.Resize(1024, 600)
	v.SetSlide(-50, 0, 1024, 600)
	x, _ := v.Slide()
	if x != 0 {
		t.Errorf("slideX = %d, want clamped to 0", x)
	}

	v.SetSlide(10000, 0, 1024, 600)
	x, _ = v.Slide()
	// Only the horizontal scrollbar is shown; it reserves height, not
	// width, so the full 800-pixel width stays visible.
	maxX := 1024 - 800
	if x != maxX {
		t.Errorf("slideX = %d, want clamped to %d", x, maxX)
	}
}

func TestViewGeometryEdgeAutoScroll(t *testing.T) {
	v := NewViewGeometry(800, 600)
	v.Resize(1024, 768)
	v.SetSlide(100, 100, 1024, 768)

	v.EdgeAutoScroll(1, 1, 1024, 768)
	x, y := v.Slide()
	if x != 100-edgeAutoScrollStep {
		t.Errorf("slideX after left-edge nudge = %d, want %d", x, 100-edgeAutoScrollStep)
	}
	if y != 100-edgeAutoScrollStep {
		t.Errorf("slideY after top-edge nudge = %d, want %d", y, 100-edgeAutoScrollStep)
	}
}

func TestViewGeometryEdgeAutoScrollNoNudgeInCenter(t *testing.T) {
	v := NewViewGeometry(800, 600)
	v.Resize(1024, 768)
	v.SetSlide(50, 50, 1024, 768)
	v.EdgeAutoScroll(400, 300, 1024, 768)
	x, y := v.Slide()
	if x != 50 || y != 50 {
		t.Errorf("Slide() = (%d,%d), want unchanged (50,50)", x, y)
	}
}
