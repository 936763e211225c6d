package rfb

// scrollbarWidth is the width, in pixels, a scrollbar reserves from
// the visible area on the axis it controls (§4.8).
const scrollbarWidth = 11

// edgeAutoScrollMargin is how close the pointer must be to the visible
// edge, in pixels, before auto-scroll nudges the slide.
const edgeAutoScrollMargin = 3

// edgeAutoScrollStep is the distance, in pixels, each auto-scroll nudge
// moves the slide.
const edgeAutoScrollStep = 8

// ViewGeometry maps a local visible window onto a (possibly larger)
// remote framebuffer: the upper-left of the visible region in remote
// coordinates ("slide"), plus whether each axis needs a scrollbar.
type ViewGeometry struct {
	VisibleWidth, VisibleHeight int

	slideX, slideY int

	hScroll, vScroll bool
}

// NewViewGeometry returns a geometry for a window of the given size;
// call Resize whenever the framebuffer dimensions change.
func NewViewGeometry(visibleWidth, visibleHeight int) *ViewGeometry {
	return &ViewGeometry{VisibleWidth: visibleWidth, VisibleHeight: visibleHeight}
}

// smallerThanFramebuffer reports whether the visible window is smaller
// than the remote framebuffer on either axis, the trigger for
// allocating an intermediate wire surface (§4.5) and for reserving
// scrollbars (§4.8).
func (v *ViewGeometry) smallerThanFramebuffer(fbWidth, fbHeight uint16) bool {
	return v.VisibleWidth < int(fbWidth) || v.VisibleHeight < int(fbHeight)
}

// Resize recomputes scrollbar flags and clamps the current slide to
// the new framebuffer bounds.
func (v *ViewGeometry) Resize(fbWidth, fbHeight uint16) {
	v.hScroll = v.VisibleWidth < int(fbWidth)
	v.vScroll = v.VisibleHeight < int(fbHeight)
	v.clamp(fbWidth, fbHeight)
}

// effectiveArea returns the visible pixel area after scrollbar
// reservation: a scrollbar on one axis eats into the other axis's
// available pixels, same as any windowed scroll view.
func (v *ViewGeometry) effectiveArea() (w, h int) {
	w, h = v.VisibleWidth, v.VisibleHeight
	if v.vScroll {
		w -= scrollbarWidth
	}
	if v.hScroll {
		h -= scrollbarWidth
	}
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return w, h
}

// Slide returns the upper-left of the visible region in remote
// coordinates.
func (v *ViewGeometry) Slide() (x, y int) { return v.slideX, v.slideY }

// SetSlide moves the visible region's origin, clamped so the window
// never scrolls past the framebuffer's edge.
func (v *ViewGeometry) SetSlide(x, y int, fbWidth, fbHeight uint16) {
	v.slideX, v.slideY = x, y
	v.clamp(fbWidth, fbHeight)
}

func (v *ViewGeometry) clamp(fbWidth, fbHeight uint16) {
	w, h := v.effectiveArea()
	maxX := int(fbWidth) - w
	maxY := int(fbHeight) - h
	if maxX < 0 {
		maxX = 0
	}
	if maxY < 0 {
		maxY = 0
	}
	if v.slideX < 0 {
		v.slideX = 0
	}
	if v.slideX > maxX {
		v.slideX = maxX
	}
	if v.slideY < 0 {
		v.slideY = 0
	}
	if v.slideY > maxY {
		v.slideY = maxY
	}
}

// SetView installs the visible-window geometry, recomputing whether an
// intermediate wire surface is needed now that scrollbars may apply
// (§4.5, §4.8). Pass nil to revert to "visible area == framebuffer".
func (c *ClientConn) SetView(v *ViewGeometry) {
	c.view = v
	if v != nil {
		v.Resize(c.fbWidth, c.fbHeight)
	}
	c.recomputeSurfaceIntermediate()
}

// EdgeAutoScroll nudges the slide by edgeAutoScrollStep on any axis
// where the pointer sits within edgeAutoScrollMargin pixels of the
// visible edge, clamped to the framebuffer bounds (§4.8).
func (v *ViewGeometry) EdgeAutoScroll(pointerX, pointerY int, fbWidth, fbHeight uint16) {
	w, h := v.effectiveArea()
	if pointerX <= edgeAutoScrollMargin {
		v.slideX -= edgeAutoScrollStep
	} else if pointerX >= w-edgeAutoScrollMargin {
		v.slideX += edgeAutoScrollStep
	}
	if pointerY <= edgeAutoScrollMargin {
		v.slideY -= edgeAutoScrollStep
	} else if pointerY >= h-edgeAutoScrollMargin {
		v.slideY += edgeAutoScrollStep
	}
	v.clamp(fbWidth, fbHeight)
}
