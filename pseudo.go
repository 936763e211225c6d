package rfb

import (
	"fmt"

	"github.com/coreframe/rfbclient/encodings"
)

// cursorEncoding transmits the remote cursor's shape; the rectangle
// header carries the hotspot (§7.8.1).
type cursorEncoding struct {
	Pixels  []byte
	Bitmask []byte
}

var _ Encoding = (*cursorEncoding)(nil)

func (*cursorEncoding) Type() encodings.Encoding { return encodings.CursorPseudo }
func (*cursorEncoding) String() string           { return "CursorPseudoEncoding" }
func (*cursorEncoding) Marshal() ([]byte, error) { return nil, nil }

func (*cursorEncoding) Read(c *ClientConn, rect *Rectangle) (Encoding, error) {
	bpp := c.pixelFormat.BytesPerPixel()
	pixelSize := rect.Area() * bpp
	maskSize := (int(rect.Width)+7)/8*int(rect.Height)

	pixels, err := c.readFull(pixelSize)
	if err != nil {
		return nil, fmt.Errorf("cursor: pixel data: %w", err)
	}
	mask, err := c.readFull(maskSize)
	if err != nil {
		return nil, fmt.Errorf("cursor: bitmask: %w", err)
	}
	return &cursorEncoding{Pixels: pixels, Bitmask: mask}, nil
}

// desktopSizeEncoding signals a framebuffer resize; the rectangle
// bounds are the new dimensions (§7.8.2).
type desktopSizeEncoding struct {
	Width, Height uint16
}

var _ Encoding = (*desktopSizeEncoding)(nil)

func (*desktopSizeEncoding) Type() encodings.Encoding { return encodings.DesktopSizePseudo }
func (*desktopSizeEncoding) String() string           { return "DesktopSizePseudoEncoding" }
func (*desktopSizeEncoding) Marshal() ([]byte, error) { return nil, nil }

func (*desktopSizeEncoding) Read(c *ClientConn, rect *Rectangle) (Encoding, error) {
	c.resizeFramebuffer(rect.Width, rect.Height)
	return &desktopSizeEncoding{Width: rect.Width, Height: rect.Height}, nil
}

// lastRectEncoding terminates the current FramebufferUpdate's
// rectangle loop early, regardless of the header's declared count.
type lastRectEncoding struct{}

var _ Encoding = (*lastRectEncoding)(nil)

func (*lastRectEncoding) Type() encodings.Encoding { return encodings.LastRectPseudo }
func (*lastRectEncoding) String() string           { return "LastRectPseudoEncoding" }
func (*lastRectEncoding) Marshal() ([]byte, error) { return nil, nil }
func (*lastRectEncoding) Read(c *ClientConn, rect *Rectangle) (Encoding, error) {
	return &lastRectEncoding{}, nil
}

// wmviEncoding carries a mid-session SetPixelFormat using the same
// 16-byte record as ServerInit.
type wmviEncoding struct {
	PixelFormat PixelFormat
}

var _ Encoding = (*wmviEncoding)(nil)

func (*wmviEncoding) Type() encodings.Encoding { return encodings.WMViPseudo }
func (*wmviEncoding) String() string           { return "WMViPseudoEncoding" }
func (*wmviEncoding) Marshal() ([]byte, error) { return nil, nil }

func (*wmviEncoding) Read(c *ClientConn, rect *Rectangle) (Encoding, error) {
	raw, err := c.readFull(16)
	if err != nil {
		return nil, fmt.Errorf("wmvi: pixel format record: %w", err)
	}
	pf, err := DecodePixelFormatWire(raw)
	if err != nil {
		return nil, fmt.Errorf("wmvi: %w", err)
	}
	c.serverPixelFormat = pf
	c.pixelFormat = pf
	c.recomputeSurfaceIntermediate()
	return &wmviEncoding{PixelFormat: pf}, nil
}

// desktopNameEncoding updates the window title mid-session.
type desktopNameEncoding struct {
	Name string
}

var _ Encoding = (*desktopNameEncoding)(nil)

func (*desktopNameEncoding) Type() encodings.Encoding { return encodings.DesktopNamePseudo }
func (*desktopNameEncoding) String() string           { return "DesktopNamePseudoEncoding" }
func (*desktopNameEncoding) Marshal() ([]byte, error) { return nil, nil }

func (*desktopNameEncoding) Read(c *ClientConn, rect *Rectangle) (Encoding, error) {
	var length uint32
	if err := c.receive(&length); err != nil {
		return nil, fmt.Errorf("desktopname: length: %w", err)
	}
	const maxNameLength = 64 * 1024
	if length > maxNameLength {
		return nil, NewVNCError(fmt.Sprintf("desktopname: length %d exceeds cap", length))
	}
	data, err := c.readFull(int(length))
	if err != nil {
		return nil, fmt.Errorf("desktopname: name bytes: %w", err)
	}
	name := string(data)
	c.SetDesktopName(name)
	return &desktopNameEncoding{Name: name}, nil
}

// GIIDevice and GIIValuator describe GII device/valuator registration
// records (ggivnc's encoding/gii.c). Nothing in this package fills them
// in or sends them: giiEncoding keeps the GII payload as raw bytes and
// no extended pointer/valuator events are forwarded.
type GIIDevice struct {
	ID       uint32
	Name     string
	NumAbs   uint32
	NumRel   uint32
	NumKeys  uint32
}

// GIIValuator describes one axis of a registered GIIDevice.
type GIIValuator struct {
	DeviceID    uint32
	Index       uint32
	LongName    string
	RangeMin    int32
	RangeMax    int32
}

// giiEncoding carries the GII registration/event sub-protocol's
// payload as uninterpreted bytes.
type giiEncoding struct {
	Payload []byte
}

var _ Encoding = (*giiEncoding)(nil)

func (*giiEncoding) Type() encodings.Encoding { return encodings.GIIPseudo }
func (*giiEncoding) String() string           { return "GIIPseudoEncoding" }
func (*giiEncoding) Marshal() ([]byte, error) { return nil, nil }

func (*giiEncoding) Read(c *ClientConn, rect *Rectangle) (Encoding, error) {
	// GII messages do not carry their length in the rectangle header;
	// ggivnc frames each registration record with its own u32 length.
	var length uint32
	if err := c.receive(&length); err != nil {
		return nil, fmt.Errorf("gii: length: %w", err)
	}
	data, err := c.readFull(int(length))
	if err != nil {
		return nil, fmt.Errorf("gii: payload: %w", err)
	}
	return &giiEncoding{Payload: data}, nil
}

// XVP operation codes (ggivnc's encoding/xvp.c).
const (
	XVPOpShutdown uint8 = 2
	XVPOpReboot   uint8 = 3
	XVPOpReset    uint8 = 4
)

// xvpEncoding is the server's XVP capability announcement. A non-zero
// support field enables (*ClientConn).XVPOperation; the requested
// operation code itself is not checked against it.
type xvpEncoding struct {
	Version uint8
	Support uint8
}

var _ Encoding = (*xvpEncoding)(nil)

func (*xvpEncoding) Type() encodings.Encoding { return encodings.XVPPseudo }
func (*xvpEncoding) String() string           { return "XVPPseudoEncoding" }
func (*xvpEncoding) Marshal() ([]byte, error) { return nil, nil }

func (*xvpEncoding) Read(c *ClientConn, rect *Rectangle) (Encoding, error) {
	var msg struct{ Version, Support uint8 }
	if err := c.receive(&msg); err != nil {
		return nil, fmt.Errorf("xvp: %w", err)
	}
	c.xvpSupported = msg.Support
	return &xvpEncoding{Version: msg.Version, Support: msg.Support}, nil
}

// XVPOperation sends a client-initiated power operation (shutdown,
// reboot or reset) over the XVP channel opened by xvpEncoding.
func (c *ClientConn) XVPOperation(op uint8) error {
	if c.xvpSupported == 0 {
		return NewVNCError("xvp: server has not advertised XVP support")
	}
	msg := struct {
		MsgType uint8
		Pad     uint8
		Version uint8
		Op      uint8
	}{MsgType: 250, Version: 1, Op: op}
	return c.send(msg)
}
