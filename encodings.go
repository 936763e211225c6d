// Encoding decoders for RFC 6143 §7.7: Raw, CopyRect, RRE and CoRRE.
// The remaining decoders (Hextile, Tight, TRLE, ZRLE, Zlib, ZlibHex)
// and the pseudo-encodings live in their own files; this one also
// carries the shared Encoding/Encodings types and the dispatch table
// session.go uses to route a rectangle header to its decoder.
package rfb

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/coreframe/rfbclient/encodings"
)

// An Encoding implements one RFC 6143 §7.7/§7.8 rectangle codec. Read
// consumes exactly the bytes belonging to one rectangle from c's
// connection and paints the result onto c's active surface.
type Encoding interface {
	fmt.Stringer
	Marshaler

	// Read decodes rect's data from c and paints it. It returns a new
	// Encoding value of the same dynamic type; pseudo-encodings use
	// the returned value to carry state (e.g. the new framebuffer size)
	// back to the session loop.
	Read(c *ClientConn, rect *Rectangle) (Encoding, error)

	// Type is the wire id session.go matches against rectangle headers
	// and SetEncodings uses to build the preference list.
	Type() encodings.Encoding
}

// Encodings is an ordered encoding preference list, most-preferred
// first; SetEncodings sends it verbatim.
type Encodings []Encoding

var _ Marshaler = (*Encodings)(nil)

// Marshal renders the list as the body of a SetEncodings message: the
// wire id of each entry, big-endian, in order.
func (e Encodings) Marshal() ([]byte, error) {
	buf := NewBuffer(nil)
	for _, enc := range e {
		if err := buf.Write(int32(enc.Type())); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// byType looks up the decoder registered for id, or nil.
func (e Encodings) byType(id encodings.Encoding) Encoding {
	for _, enc := range e {
		if enc.Type() == id {
			return enc
		}
	}
	return nil
}

// rectHeader is the 12-byte record that precedes every rectangle's
// encoded data (§3, §4.4).
type rectHeader struct {
	X, Y, Width, Height uint16
	EncType             int32
}

//-----------------------------------------------------------------------------
// Raw (0)

// RawEncoding paints w*h pixels transmitted verbatim in the current
// wire pixel format (§4.4 table).
type RawEncoding struct{}

var _ Encoding = (*RawEncoding)(nil)

func (*RawEncoding) Type() encodings.Encoding { return encodings.Raw }
func (*RawEncoding) String() string           { return "RawEncoding" }
func (*RawEncoding) Marshal() ([]byte, error) { return nil, nil }

func (*RawEncoding) Read(c *ClientConn, rect *Rectangle) (Encoding, error) {
	bpp := c.pixelFormat.BytesPerPixel()
	n := rect.Area() * bpp
	data, err := c.readFull(n)
	if err != nil {
		return nil, fmt.Errorf("raw: %w", err)
	}
	c.paintTarget().PutBox(int(rect.X), int(rect.Y), int(rect.Width), int(rect.Height), data, c.pixelFormat, &c.colorMap)
	return &RawEncoding{}, nil
}

//-----------------------------------------------------------------------------
// CopyRect (1)

// CopyRectEncoding relocates a rectangle already on the surface.
type CopyRectEncoding struct {
	SrcX, SrcY uint16
}

var _ Encoding = (*CopyRectEncoding)(nil)

func (*CopyRectEncoding) Type() encodings.Encoding { return encodings.CopyRect }
func (e *CopyRectEncoding) String() string {
	return fmt.Sprintf("CopyRectEncoding(SrcX:%d, SrcY:%d)", e.SrcX, e.SrcY)
}

func (e *CopyRectEncoding) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, e.SrcX)
	binary.Write(&buf, binary.BigEndian, e.SrcY)
	return buf.Bytes(), nil
}

func (*CopyRectEncoding) Read(c *ClientConn, rect *Rectangle) (Encoding, error) {
	var msg struct{ SrcX, SrcY uint16 }
	if err := c.receive(&msg); err != nil {
		return nil, fmt.Errorf("copyrect: %w", err)
	}
	c.paintTarget().CopyBox(int(msg.SrcX), int(msg.SrcY), int(rect.Width), int(rect.Height), int(rect.X), int(rect.Y))
	return &CopyRectEncoding{SrcX: msg.SrcX, SrcY: msg.SrcY}, nil
}

//-----------------------------------------------------------------------------
// RRE (2) / CoRRE (4)
//
// CoRRE is RRE with u8 coordinates instead of u16, so both share
// readRRE parameterised by the geometry width.

type rreSubRect struct {
	R RGB
	X, Y, W, H int
}

func readRRE(c *ClientConn, rect *Rectangle, wide bool) ([]rreSubRect, RGB, error) {
	var count uint32
	if err := c.receive(&count); err != nil {
		return nil, RGB{}, fmt.Errorf("rre: sub-rectangle count: %w", err)
	}

	bgData, err := c.readFull(c.pixelFormat.BytesPerPixel())
	if err != nil {
		return nil, RGB{}, fmt.Errorf("rre: background pixel: %w", err)
	}
	bgPixel, err := c.pixelFormat.DecodePixel(bgData)
	if err != nil {
		return nil, RGB{}, err
	}
	r, g, b := c.pixelFormat.Resolve(bgPixel, &c.colorMap)
	bg := RGB{r, g, b}

	subs := make([]rreSubRect, count)
	for i := uint32(0); i < count; i++ {
		pdata, err := c.readFull(c.pixelFormat.BytesPerPixel())
		if err != nil {
			return nil, RGB{}, fmt.Errorf("rre: sub-rect %d pixel: %w", i, err)
		}
		pixel, err := c.pixelFormat.DecodePixel(pdata)
		if err != nil {
			return nil, RGB{}, err
		}
		sr, sg, sb := c.pixelFormat.Resolve(pixel, &c.colorMap)

		var x, y, w, h int
		if wide {
			var geom struct{ X, Y, W, H uint16 }
			if err := c.receive(&geom); err != nil {
				return nil, RGB{}, fmt.Errorf("rre: sub-rect %d geometry: %w", i, err)
			}
			x, y, w, h = int(geom.X), int(geom.Y), int(geom.W), int(geom.H)
		} else {
			var geom struct{ X, Y, W, H uint8 }
			if err := c.receive(&geom); err != nil {
				return nil, RGB{}, fmt.Errorf("corre: sub-rect %d geometry: %w", i, err)
			}
			x, y, w, h = int(geom.X), int(geom.Y), int(geom.W), int(geom.H)
		}
		subs[i] = rreSubRect{R: RGB{sr, sg, sb}, X: x, Y: y, W: w, H: h}
	}
	return subs, bg, nil
}

// RREEncoding paints a background box followed by coloured sub-boxes.
type RREEncoding struct{ Count int }

var _ Encoding = (*RREEncoding)(nil)

func (*RREEncoding) Type() encodings.Encoding  { return encodings.RRE }
func (e *RREEncoding) String() string          { return fmt.Sprintf("RREEncoding(%d sub-rects)", e.Count) }
func (*RREEncoding) Marshal() ([]byte, error)  { return nil, nil }

func (*RREEncoding) Read(c *ClientConn, rect *Rectangle) (Encoding, error) {
	subs, bg, err := readRRE(c, rect, true)
	if err != nil {
		return nil, err
	}
	target := c.paintTarget()
	target.SetForeground(bg)
	target.DrawBox(int(rect.X), int(rect.Y), int(rect.Width), int(rect.Height))
	for _, s := range subs {
		target.SetForeground(s.R)
		target.DrawBox(int(rect.X)+s.X, int(rect.Y)+s.Y, s.W, s.H)
	}
	return &RREEncoding{Count: len(subs)}, nil
}

// CoRREEncoding is RRE with byte-sized sub-rectangle geometry.
type CoRREEncoding struct{ Count int }

var _ Encoding = (*CoRREEncoding)(nil)

func (*CoRREEncoding) Type() encodings.Encoding { return encodings.CoRRE }
func (e *CoRREEncoding) String() string         { return fmt.Sprintf("CoRREEncoding(%d sub-rects)", e.Count) }
func (*CoRREEncoding) Marshal() ([]byte, error) { return nil, nil }

func (*CoRREEncoding) Read(c *ClientConn, rect *Rectangle) (Encoding, error) {
	subs, bg, err := readRRE(c, rect, false)
	if err != nil {
		return nil, err
	}
	target := c.paintTarget()
	target.SetForeground(bg)
	target.DrawBox(int(rect.X), int(rect.Y), int(rect.Width), int(rect.Height))
	for _, s := range subs {
		target.SetForeground(s.R)
		target.DrawBox(int(rect.X)+s.X, int(rect.Y)+s.Y, s.W, s.H)
	}
	return &CoRREEncoding{Count: len(subs)}, nil
}

// paintTarget returns the surface decoders should paint onto: the
// intermediate wire-format surface when one was allocated for the
// current mode (§4.5), otherwise the caller's own surface.
func (c *ClientConn) paintTarget() Surface {
	if c.needsWire && c.wireSurface != nil {
		return c.wireSurface
	}
	return c.surface
}
