package rfb

import "github.com/coreframe/rfbclient/messages"

// Pointer button bitmask values (§4.6).
const (
	PointerButtonLeft     uint8 = 1
	PointerButtonMiddle   uint8 = 2
	PointerButtonRight    uint8 = 4
	PointerButtonWheelUp  uint8 = 8
	PointerButtonWheelDown uint8 = 16
)

// X11 keysym constants for the named keys the translator recognizes
// beyond plain ASCII passthrough (§4.6).
const (
	KeysymBackSpace uint32 = 0xff08
	KeysymTab       uint32 = 0xff09
	KeysymReturn    uint32 = 0xff0d
	KeysymEscape    uint32 = 0xff1b
	KeysymDelete    uint32 = 0xffff
	KeysymInsert    uint32 = 0xff63
	KeysymHome      uint32 = 0xff50
	KeysymEnd       uint32 = 0xff57
	KeysymPageUp    uint32 = 0xff55
	KeysymPageDown  uint32 = 0xff56

	KeysymLeft  uint32 = 0xff51
	KeysymUp    uint32 = 0xff52
	KeysymRight uint32 = 0xff53
	KeysymDown  uint32 = 0xff54

	KeysymF1  uint32 = 0xffbe
	KeysymF8  uint32 = 0xffc5
	KeysymF12 uint32 = 0xffc9

	KeysymShiftL   uint32 = 0xffe1
	KeysymShiftR   uint32 = 0xffe2
	KeysymControlL uint32 = 0xffe3
	KeysymControlR uint32 = 0xffe4
	KeysymAltL     uint32 = 0xffe9
	KeysymAltR     uint32 = 0xffea

	KeysymDeleteX11 uint32 = 0xffff
)

// NamedKey identifies one of the non-ASCII local keys the host program
// reports; the translator maps each to its RFB keysym.
type NamedKey int

const (
	KeyBackSpace NamedKey = iota
	KeyTab
	KeyReturn
	KeyEscape
	KeyDelete
	KeyInsert
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyLeft
	KeyUp
	KeyRight
	KeyDown
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
	KeyShiftL
	KeyShiftR
	KeyControlL
	KeyControlR
	KeyAltL
	KeyAltR
)

var namedKeysyms = map[NamedKey]uint32{
	KeyBackSpace: KeysymBackSpace,
	KeyTab:       KeysymTab,
	KeyReturn:    KeysymReturn,
	KeyEscape:    KeysymEscape,
	KeyDelete:    KeysymDelete,
	KeyInsert:    KeysymInsert,
	KeyHome:      KeysymHome,
	KeyEnd:       KeysymEnd,
	KeyPageUp:    KeysymPageUp,
	KeyPageDown:  KeysymPageDown,
	KeyLeft:      KeysymLeft,
	KeyUp:        KeysymUp,
	KeyRight:     KeysymRight,
	KeyDown:      KeysymDown,
	KeyShiftL:    KeysymShiftL,
	KeyShiftR:    KeysymShiftR,
	KeyControlL:  KeysymControlL,
	KeyControlR:  KeysymControlR,
	KeyAltL:      KeysymAltL,
	KeyAltR:      KeysymAltR,
}

func init() {
	// F1..F12 occupy a contiguous X11 keysym range.
	for i := 0; i < 12; i++ {
		namedKeysyms[KeyF1+NamedKey(i)] = KeysymF1 + uint32(i)
	}
}

// InputTranslator turns local key/pointer/clipboard events into RFB
// client messages (§4.6). The F8 menu hotkey is surfaced through
// MenuHotkey rather than transmitted, since the menu widget itself is
// delegated to the host program.
type InputTranslator struct {
	c *ClientConn

	// MenuHotkey, if set, is invoked instead of sending a KeyEvent when
	// the host reports KeyF8 going down, whether or not ViewOnly is set.
	MenuHotkey func()
}

// NewInputTranslator returns a translator bound to c. c.config.ViewOnly
// suppresses every outbound event without refusing the connection.
func NewInputTranslator(c *ClientConn) *InputTranslator {
	return &InputTranslator{c: c}
}

// SendKeyRune sends a KeyEvent for a plain ASCII/Unicode code point.
func (t *InputTranslator) SendKeyRune(r rune, down bool) error {
	return t.sendKeyEvent(uint32(r), down)
}

// SendNamedKey sends a KeyEvent for a named (non-ASCII) key, routing F8
// to MenuHotkey instead of the wire when the key is going down and a
// hotkey handler is installed.
func (t *InputTranslator) SendNamedKey(key NamedKey, down bool) error {
	if key == KeyF8 && down && t.MenuHotkey != nil {
		t.MenuHotkey()
		return nil
	}
	keysym, ok := namedKeysyms[key]
	if !ok {
		return Errorf("input: unknown named key %d", key)
	}
	return t.sendKeyEvent(keysym, down)
}

func (t *InputTranslator) sendKeyEvent(keysym uint32, down bool) error {
	if t.c.config.ViewOnly {
		return nil
	}
	var downFlag uint8
	if down {
		downFlag = 1
	}
	msg := struct {
		MsgType uint8
		Down    uint8
		Pad     uint16
		Keysym  uint32
	}{MsgType: uint8(messages.KeyEvent), Down: downFlag, Keysym: keysym}
	if err := t.c.send(msg); err != nil {
		return WrapError(TransportError, "sending KeyEvent", err)
	}
	return nil
}

// SendPointer sends a PointerEvent at (x, y) with the given button
// mask (§4.6's {1,2,4,8,16} bit assignment).
func (t *InputTranslator) SendPointer(x, y int, buttonMask uint8) error {
	if t.c.config.ViewOnly {
		return nil
	}
	msg := struct {
		MsgType uint8
		Buttons uint8
		X, Y    uint16
	}{MsgType: uint8(messages.PointerEvent), Buttons: buttonMask, X: uint16(x), Y: uint16(y)}
	if err := t.c.send(msg); err != nil {
		return WrapError(TransportError, "sending PointerEvent", err)
	}
	return nil
}

// SendWheel emits a short press/release burst for a wheel tick: the
// wheel bit set then immediately cleared at the same position, since
// RFB has no dedicated wheel message (§4.6).
func (t *InputTranslator) SendWheel(x, y int, up bool, heldButtons uint8) error {
	bit := PointerButtonWheelDown
	if up {
		bit = PointerButtonWheelUp
	}
	if err := t.SendPointer(x, y, heldButtons|bit); err != nil {
		return err
	}
	return t.SendPointer(x, y, heldButtons)
}

// SendClipboard transcodes local UTF-8 clipboard text to ISO-8859-1
// (lossy: code points above U+00FF become '?') and sends it as
// ClientCutText, capped at 64 KiB.
func (t *InputTranslator) SendClipboard(text string) error {
	if t.c.config.ViewOnly {
		return nil
	}
	const maxCutText = 64 * 1024
	latin1 := utf8ToLatin1(text)
	if len(latin1) > maxCutText {
		latin1 = latin1[:maxCutText]
	}
	hdr := struct {
		MsgType uint8
		Pad     [3]byte
		Length  uint32
	}{MsgType: uint8(messages.ClientCutText), Length: uint32(len(latin1))}
	if err := t.c.send(hdr); err != nil {
		return WrapError(TransportError, "sending ClientCutText header", err)
	}
	if err := t.c.send(latin1); err != nil {
		return WrapError(TransportError, "sending ClientCutText body", err)
	}
	return nil
}

// utf8ToLatin1 transcodes UTF-8 to ISO-8859-1, substituting '?' for any
// code point outside Latin-1's range (§4.6 "lossy").
func utf8ToLatin1(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xFF {
			out = append(out, '?')
			continue
		}
		out = append(out, byte(r))
	}
	return out
}
