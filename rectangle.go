package rfb

import "fmt"

// Rectangle is the {x, y, w, h} header that precedes every encoded
// region in a FramebufferUpdate (§3).
type Rectangle struct {
	X, Y, Width, Height uint16
}

// Area returns the pixel count covered by the rectangle.
func (r Rectangle) Area() int { return int(r.Width) * int(r.Height) }

// Within reports whether the rectangle fits inside a framebuffer of
// the given dimensions, per the §3 rectangle-header invariant.
func (r Rectangle) Within(width, height uint16) bool {
	return int(r.X)+int(r.Width) <= int(width) && int(r.Y)+int(r.Height) <= int(height)
}

func (r Rectangle) String() string {
	return fmt.Sprintf("Rectangle(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}
