package rfb

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/coreframe/rfbclient/encodings"
	"github.com/coreframe/rfbclient/messages"
)

// A ServerMessage implements one server-to-client message body (§7.5).
// Type identifies the wire id; Read consumes the body (the message-type
// byte itself has already been read) and returns a populated value of
// the same dynamic type.
type ServerMessage interface {
	Type() messages.ServerMessage
	Read(c *ClientConn) (ServerMessage, error)
}

// FramebufferUpdate is the server's only mechanism for painting pixels:
// a padding byte, a rectangle count, then that many {header, encoded
// data} rectangles (§3, §4.4).
type FramebufferUpdate struct {
	NumRects uint16
}

var _ ServerMessage = (*FramebufferUpdate)(nil)

func (*FramebufferUpdate) Type() messages.ServerMessage { return messages.FramebufferUpdate }

func (*FramebufferUpdate) Read(c *ClientConn) (ServerMessage, error) {
	var hdr struct {
		Pad      uint8
		NumRects uint16
	}
	if err := c.receive(&hdr); err != nil {
		return nil, fmt.Errorf("framebufferupdate: header: %w", err)
	}
	c.rectsRemaining = hdr.NumRects

	for i := uint16(0); i < hdr.NumRects; i++ {
		var rh rectHeader
		if err := c.receive(&rh); err != nil {
			return nil, fmt.Errorf("framebufferupdate: rectangle %d header: %w", i, err)
		}
		rect := &Rectangle{X: rh.X, Y: rh.Y, Width: rh.Width, Height: rh.Height}

		encID := encodings.Encoding(rh.EncType)
		dec := c.encodings.byType(encID)
		if dec == nil {
			return nil, NewVNCError(fmt.Sprintf("framebufferupdate: no decoder registered for encoding %s", encID))
		}
		// DesktopSize/ExtendedDesktopSize rectangles carry the new
		// dimensions in the header itself, so they are exempt from the
		// "fits inside the current framebuffer" check.
		resizing := encID == encodings.DesktopSizePseudo || encID == encodings.ExtendedDesktopSizePseudo
		if !resizing && rect.Area() > 0 && !rect.Within(c.fbWidth, c.fbHeight) {
			return nil, NewVNCError(fmt.Sprintf("framebufferupdate: rectangle %s exceeds framebuffer %dx%d", rect, c.fbWidth, c.fbHeight))
		}

		result, err := dec.Read(c, rect)
		if err != nil {
			return nil, fmt.Errorf("framebufferupdate: rectangle %d (%s): %w", i, dec.Type(), err)
		}

		c.rectsRemaining--

		if _, last := result.(*lastRectEncoding); last {
			break
		}
	}

	return &FramebufferUpdate{NumRects: hdr.NumRects}, nil
}

// SetColourMapEntries updates palette entries for a CLUT pixel format
// connection (§7.5.3).
type SetColourMapEntries struct {
	FirstColor uint16
	Colors     []ColorMapEntry
}

var _ ServerMessage = (*SetColourMapEntries)(nil)

func (*SetColourMapEntries) Type() messages.ServerMessage { return messages.SetColourMapEntries }

func (*SetColourMapEntries) Read(c *ClientConn) (ServerMessage, error) {
	var hdr struct {
		Pad        uint8
		FirstColor uint16
		NumColors  uint16
	}
	if err := c.receive(&hdr); err != nil {
		return nil, fmt.Errorf("setcolourmapentries: header: %w", err)
	}
	colors := make([]ColorMapEntry, hdr.NumColors)
	rgbs := make([]RGB, hdr.NumColors)
	for i := range colors {
		if err := c.receive(&colors[i]); err != nil {
			return nil, fmt.Errorf("setcolourmapentries: entry %d: %w", i, err)
		}
		idx := int(hdr.FirstColor) + i
		if idx < len(c.colorMap) {
			c.colorMap[idx] = colors[i]
		}
		rgbs[i] = RGB{uint8(colors[i].R >> 8), uint8(colors[i].G >> 8), uint8(colors[i].B >> 8)}
	}
	c.surface.SetPalette(int(hdr.FirstColor), rgbs)
	return &SetColourMapEntries{FirstColor: hdr.FirstColor, Colors: colors}, nil
}

// Bell rings the client's audible bell (§7.5.4); it carries no body.
type Bell struct{}

var _ ServerMessage = (*Bell)(nil)

func (*Bell) Type() messages.ServerMessage           { return messages.Bell }
func (*Bell) Read(c *ClientConn) (ServerMessage, error) { return &Bell{}, nil }

// ServerCutText delivers the remote clipboard's contents, Latin-1
// encoded on the wire (§7.5.5); Read re-encodes it to UTF-8.
type ServerCutText struct {
	Text string
}

var _ ServerMessage = (*ServerCutText)(nil)

func (*ServerCutText) Type() messages.ServerMessage { return messages.ServerCutText }

func (*ServerCutText) Read(c *ClientConn) (ServerMessage, error) {
	var hdr struct {
		Pad    [3]byte
		Length uint32
	}
	if err := c.receive(&hdr); err != nil {
		return nil, fmt.Errorf("servercuttext: header: %w", err)
	}
	const maxCutText = 64 * 1024
	if hdr.Length > maxCutText {
		return nil, NewVNCError(fmt.Sprintf("servercuttext: length %d exceeds cap", hdr.Length))
	}
	data, err := c.readFull(int(hdr.Length))
	if err != nil {
		return nil, fmt.Errorf("servercuttext: text: %w", err)
	}
	return &ServerCutText{Text: latin1ToUTF8(data)}, nil
}

// runSessionLoop is the session FSM of §4.2/§5: issue the initial full
// FramebufferUpdateRequest, then alternate between reading one server
// message and (after each FramebufferUpdate) asking for the next one,
// incrementally unless a resize reset that flag.
func (c *ClientConn) runSessionLoop() error {
	if c.config.ServerMessages == nil {
		return NewVNCError("client config error: ServerMessages undefined")
	}
	dispatch := make(map[messages.ServerMessage]ServerMessage)
	for _, m := range c.config.ServerMessages {
		dispatch[m.Type()] = m
	}

	if err := c.FramebufferUpdateRequest(false, 0, 0, c.fbWidth, c.fbHeight); err != nil {
		return fmt.Errorf("initial framebufferupdaterequest: %w", err)
	}
	c.incrementalNext = true

	for {
		if c.connTerminated {
			break
		}

		var messageType messages.ServerMessage
		if err := c.receive(&messageType); err != nil {
			if !c.connTerminated {
				c.log.Printf("rfb: error reading from server: %v", err)
			}
			break
		}

		proto, ok := dispatch[messageType]
		if !ok {
			c.log.Printf("rfb: unsupported message type %s", messageType)
			break
		}

		before := c.metrics["bytes-received"].Value()
		msg, err := proto.Read(c)
		if err != nil {
			c.log.Printf("rfb: error parsing %s: %v", messageType, err)
			break
		}
		after := c.metrics["bytes-received"].Value()

		if fbu, ok := msg.(*FramebufferUpdate); ok {
			glog.V(2).Infof("rfb: framebufferupdate: %d rectangles, %d bytes", fbu.NumRects, after-before)
			if tierChanged := c.bandwidth.Sample(after - before); tierChanged {
				if err := c.SetEncodings(c.bandwidth.Preferred(c.encodings)); err != nil {
					c.log.Printf("rfb: error re-sending encodings after bandwidth tier change: %v", err)
				}
			}
			if err := c.FramebufferUpdateRequest(c.incrementalNext, 0, 0, c.fbWidth, c.fbHeight); err != nil {
				c.log.Printf("rfb: error requesting next update: %v", err)
				break
			}
			c.incrementalNext = true
		}

		if c.config.ServerMessageCh == nil {
			continue
		}
		c.config.ServerMessageCh <- msg
	}

	glog.V(1).Info("rfb: session loop finished")
	return nil
}

// SetPixelFormat sends the client's requested wire pixel format
// (§7.4.1) and records it for the decoders.
func (c *ClientConn) SetPixelFormat(pf PixelFormat) error {
	msg := struct {
		MsgType uint8
		Pad     [3]byte
		PF      [16]byte
	}{MsgType: uint8(messages.SetPixelFormat)}
	copy(msg.PF[:], pf.EncodeWire())
	if err := c.send(msg); err != nil {
		return WrapError(TransportError, "sending SetPixelFormat", err)
	}
	c.pixelFormat = pf
	c.recomputeSurfaceIntermediate()
	return nil
}

// SetEncodings sends the client's encoding preference list (§7.4.2)
// and records it as the active decoder table.
func (c *ClientConn) SetEncodings(encs Encodings) error {
	if err := c.send(uint8(messages.SetEncodings)); err != nil {
		return WrapError(TransportError, "sending SetEncodings type", err)
	}
	if err := c.send(uint8(0)); err != nil {
		return WrapError(TransportError, "sending SetEncodings padding", err)
	}
	if err := c.send(uint16(len(encs))); err != nil {
		return WrapError(TransportError, "sending SetEncodings count", err)
	}
	body, err := encs.Marshal()
	if err != nil {
		return err
	}
	if err := c.send(body); err != nil {
		return WrapError(TransportError, "sending SetEncodings body", err)
	}
	c.encodings = encs
	return nil
}

// FramebufferUpdateRequest asks the server for the next update (§7.5.3
// client message of the same name, §7.4.3 on the wire). incremental
// requests only the area that changed since the last update the server
// sent; the session loop always requests the full area after a resize.
func (c *ClientConn) FramebufferUpdateRequest(incremental bool, x, y, w, h uint16) error {
	var inc uint8
	if incremental {
		inc = 1
	}
	msg := struct {
		MsgType               uint8
		Incremental           uint8
		X, Y, Width, Height uint16
	}{MsgType: uint8(messages.FramebufferUpdateRequest), Incremental: inc, X: x, Y: y, Width: w, Height: h}
	if err := c.send(msg); err != nil {
		return WrapError(TransportError, "sending FramebufferUpdateRequest", err)
	}
	return nil
}

// latin1ToUTF8 widens each Latin-1 byte to its Unicode code point,
// which is Latin-1's defining property, then re-encodes as UTF-8.
func latin1ToUTF8(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}
