package rfb

import (
	"fmt"
	"io"

	"github.com/coreframe/rfbclient/encodings"
)

// HextileEncoding iterates 16x16 tiles (the last row/column of a
// rectangle clipped to what remains), each carrying its own
// subencoding byte (§4.4 table).
type HextileEncoding struct{}

var _ Encoding = (*HextileEncoding)(nil)

func (*HextileEncoding) Type() encodings.Encoding { return encodings.Hextile }
func (*HextileEncoding) String() string           { return "HextileEncoding" }
func (*HextileEncoding) Marshal() ([]byte, error) { return nil, nil }

const hextileTile = 16

// byteSource abstracts "the next few bytes of tile data", so the
// Hextile tile decoder can run either directly off the connection
// (plain Hextile) or off an already-inflated in-memory buffer
// (ZlibHex's compressed tiles).
type byteSource interface {
	ReadByte() (byte, error)
	ReadFull(n int) ([]byte, error)
}

type connByteSource struct{ c *ClientConn }

func (s connByteSource) ReadByte() (byte, error) {
	var b uint8
	err := s.c.receive(&b)
	return b, err
}
func (s connByteSource) ReadFull(n int) ([]byte, error) { return s.c.readFull(n) }

type memByteSource struct{ r io.Reader }

func (s memByteSource) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(s.r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}
func (s memByteSource) ReadFull(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(s.r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (*HextileEncoding) Read(c *ClientConn, rect *Rectangle) (Encoding, error) {
	src := connByteSource{c}
	if err := decodeHextileRect(src, c, rect); err != nil {
		return nil, err
	}
	return &HextileEncoding{}, nil
}

// decodeHextileRect runs the full tile loop for one rectangle, reading
// tiles from src and painting them onto c's active surface.
func decodeHextileRect(src byteSource, c *ClientConn, rect *Rectangle) error {
	target := c.paintTarget()
	bpp := c.pixelFormat.BytesPerPixel()
	var bg, fg, rectFg RGB

	for ty := rect.Y; ty < rect.Y+rect.Height; ty += hextileTile {
		for tx := rect.X; tx < rect.X+rect.Width; tx += hextileTile {
			w := uint16(hextileTile)
			h := uint16(hextileTile)
			if rect.X+rect.Width-tx < hextileTile {
				w = rect.X + rect.Width - tx
			}
			if rect.Y+rect.Height-ty < hextileTile {
				h = rect.Y + rect.Height - ty
			}
			tile := &Rectangle{X: tx, Y: ty, Width: w, Height: h}
			if err := decodeHextileTileInto(src, c, target, tile, bpp, &bg, &fg, &rectFg); err != nil {
				return err
			}
		}
	}
	return nil
}

func readPixelRGBFrom(src byteSource, c *ClientConn, bpp int) (RGB, error) {
	data, err := src.ReadFull(bpp)
	if err != nil {
		return RGB{}, err
	}
	v, err := c.pixelFormat.DecodePixel(data)
	if err != nil {
		return RGB{}, err
	}
	r, g, b := c.pixelFormat.Resolve(v, &c.colorMap)
	return RGB{r, g, b}, nil
}

// readPixelRGB reads one wire pixel straight off the connection and
// resolves it to display RGB. RRE/CoRRE do not use it; readRRE decodes
// its pixels itself.
func (c *ClientConn) readPixelRGB(bpp int) (RGB, error) {
	return readPixelRGBFrom(connByteSource{c}, c, bpp)
}
