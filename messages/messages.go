// Package messages provides constants for the RFB message types
// exchanged after the handshake completes.
// https://tools.ietf.org/html/rfc6143#section-7.5
package messages

import "fmt"

// ServerMessage identifies a server-to-client message type.
type ServerMessage uint8

const (
	FramebufferUpdate   ServerMessage = 0
	SetColourMapEntries ServerMessage = 1
	Bell                ServerMessage = 2
	ServerCutText       ServerMessage = 3

	// Tight file-transfer v1 occupies 130-135; v2 is a single message (252).
	TightFileTransferV1Lo ServerMessage = 130
	TightFileTransferV1Hi ServerMessage = 135
	XVP                   ServerMessage = 250
	TightFileTransferV2   ServerMessage = 252
	GII                   ServerMessage = 253
)

func (m ServerMessage) String() string {
	switch {
	case m == FramebufferUpdate:
		return "FramebufferUpdate"
	case m == SetColourMapEntries:
		return "SetColourMapEntries"
	case m == Bell:
		return "Bell"
	case m == ServerCutText:
		return "ServerCutText"
	case m == XVP:
		return "XVP"
	case m == TightFileTransferV2:
		return "TightFileTransferV2"
	case m == GII:
		return "GII"
	case m >= TightFileTransferV1Lo && m <= TightFileTransferV1Hi:
		return fmt.Sprintf("TightFileTransferV1(%d)", uint8(m))
	default:
		return fmt.Sprintf("ServerMessage(%d)", uint8(m))
	}
}

// ClientMessage identifies a client-to-server message type.
type ClientMessage uint8

const (
	SetPixelFormat           ClientMessage = 0
	SetEncodings             ClientMessage = 2
	FramebufferUpdateRequest ClientMessage = 3
	KeyEvent                 ClientMessage = 4
	PointerEvent             ClientMessage = 5
	ClientCutText            ClientMessage = 6

	XVPClient                 ClientMessage = 250
	TightFileTransferV1Client ClientMessage = 130
	GIIClient                 ClientMessage = 253
)

func (m ClientMessage) String() string {
	switch m {
	case SetPixelFormat:
		return "SetPixelFormat"
	case SetEncodings:
		return "SetEncodings"
	case FramebufferUpdateRequest:
		return "FramebufferUpdateRequest"
	case KeyEvent:
		return "KeyEvent"
	case PointerEvent:
		return "PointerEvent"
	case ClientCutText:
		return "ClientCutText"
	case XVPClient:
		return "XVP"
	case GIIClient:
		return "GII"
	default:
		return fmt.Sprintf("ClientMessage(%d)", uint8(m))
	}
}
