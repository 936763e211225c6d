package rfb

// RGB is a resolved 8-bit-per-channel display colour.
type RGB struct{ R, G, B uint8 }

// Surface is the pixel-surface contract §4.5: the core never touches
// pixels except through this interface, so a host-display adapter and
// an in-memory "wire" surface are interchangeable collaborators.
type Surface interface {
	// PutPixel sets one pixel, used by per-pixel fallback paths.
	PutPixel(x, y int, c RGB)

	// PutBox decodes w*h pixels of raw wire-format data and paints
	// them starting at (x,y); used by Raw and raw Hextile/Tight tiles.
	PutBox(x, y, w, h int, pixels []byte, pf PixelFormat, cm *ColorMap)

	// SetForeground/DrawBox/DrawHLine paint a solid run in the current
	// foreground colour, used by RRE/CoRRE/Hextile subrects.
	SetForeground(c RGB)
	DrawBox(x, y, w, h int)
	DrawHLine(x, y, w int)

	// CopyBox performs an overlap-correct region copy (CopyRect).
	CopyBox(sx, sy, w, h, dx, dy int)

	// CrossBlit copies a region from src (possibly a different pixel
	// format/surface) into this surface, converting as it goes.
	CrossBlit(src Surface, sx, sy, w, h, dx, dy int)

	// SetPalette installs palette entries starting at first, for CLUT
	// pixel formats.
	SetPalette(first int, entries []RGB)

	// SetMode resizes the surface and records the pixel format it
	// should expect raw data in.
	SetMode(width, height int, pf PixelFormat)

	// Bounds reports the surface's current dimensions.
	Bounds() (width, height int)
}

// MemSurface is an in-memory Surface backed by a flat RGB array. It is
// the default "wire" surface used for format conversion and the
// surface used by tests; a real host-display adapter is a delegated
// collaborator (§1).
type MemSurface struct {
	width, height int
	pix           []RGB
	fg            RGB
	palette       []RGB
}

// NewMemSurface allocates a w x h surface.
func NewMemSurface(w, h int) *MemSurface {
	return &MemSurface{width: w, height: h, pix: make([]RGB, w*h)}
}

func (s *MemSurface) Bounds() (int, int) { return s.width, s.height }

func (s *MemSurface) index(x, y int) (int, bool) {
	if x < 0 || y < 0 || x >= s.width || y >= s.height {
		return 0, false
	}
	return y*s.width + x, true
}

func (s *MemSurface) PutPixel(x, y int, c RGB) {
	if i, ok := s.index(x, y); ok {
		s.pix[i] = c
	}
}

// At returns the colour at (x,y), or the zero colour if out of bounds.
func (s *MemSurface) At(x, y int) RGB {
	if i, ok := s.index(x, y); ok {
		return s.pix[i]
	}
	return RGB{}
}

func (s *MemSurface) PutBox(x, y, w, h int, pixels []byte, pf PixelFormat, cm *ColorMap) {
	bpp := pf.BytesPerPixel()
	if bpp == 0 {
		return
	}
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			off := (row*w + col) * bpp
			if off+bpp > len(pixels) {
				return
			}
			v, err := pf.DecodePixel(pixels[off : off+bpp])
			if err != nil {
				return
			}
			r, g, b := pf.Resolve(v, cm)
			s.PutPixel(x+col, y+row, RGB{r, g, b})
		}
	}
}

func (s *MemSurface) SetForeground(c RGB) { s.fg = c }

func (s *MemSurface) DrawBox(x, y, w, h int) {
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			s.PutPixel(x+col, y+row, s.fg)
		}
	}
}

func (s *MemSurface) DrawHLine(x, y, w int) { s.DrawBox(x, y, w, 1) }

// CopyBox buffers the source region before writing so that overlapping
// source/destination rectangles (the usual CopyRect case: scrolling)
// produce correct results regardless of copy direction.
func (s *MemSurface) CopyBox(sx, sy, w, h, dx, dy int) {
	tmp := make([]RGB, w*h)
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			tmp[row*w+col] = s.At(sx+col, sy+row)
		}
	}
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			if i, ok := s.index(dx+col, dy+row); ok {
				s.pix[i] = tmp[row*w+col]
			}
		}
	}
}

func (s *MemSurface) CrossBlit(src Surface, sx, sy, w, h, dx, dy int) {
	srcMem, ok := src.(*MemSurface)
	if !ok {
		return
	}
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			s.PutPixel(dx+col, dy+row, srcMem.At(sx+col, sy+row))
		}
	}
}

func (s *MemSurface) SetPalette(first int, entries []RGB) {
	need := first + len(entries)
	if need > len(s.palette) {
		grown := make([]RGB, need)
		copy(grown, s.palette)
		s.palette = grown
	}
	copy(s.palette[first:], entries)
}

// Palette returns the entry at index i, or the zero colour if unset.
func (s *MemSurface) Palette(i int) RGB {
	if i < 0 || i >= len(s.palette) {
		return RGB{}
	}
	return s.palette[i]
}

func (s *MemSurface) SetMode(width, height int, pf PixelFormat) {
	s.width, s.height = width, height
	s.pix = make([]RGB, width*height)
}
