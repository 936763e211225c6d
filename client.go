// Package rfb implements the client half of the RFB/VNC protocol: the
// handshake state machine, the framebuffer-update session loop, the
// pluggable encoding decoders and the bandwidth governor that picks
// between them. Everything that touches a window, a keyboard/mouse
// device or a certificate-prompt dialog is a collaborator supplied by
// the caller through ClientConfig and the Surface interface.
package rfb

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"net"
	"reflect"

	"github.com/golang/glog"

	"github.com/coreframe/rfbclient/go/metrics"
)

var connBackground = context.Background()

// ClientConfig configures a ClientConn. Once passed to Dial/Listen it
// must not be modified.
type ClientConfig struct {
	// Auth is tried in order; the first entry whose SecurityType the
	// server offers is used.
	Auth []ClientAuth

	// Password is used by the default ClientAuthVNC/Plain entries
	// NewClientConfig installs. If empty, ClientAuthVNC/
	// ClientAuthVeNCryptAuth resolve one at Handshake time from
	// PasswordFile (its first 8 bytes up to newline) or, failing that,
	// by calling PasswordPrompt (§6 "Password source").
	Password     string
	PasswordFile string

	// PasswordPrompt is the delegated user-interaction hook for
	// obtaining a password when neither Password nor PasswordFile is
	// set (§6 "Password source").
	PasswordPrompt func() (string, error)

	// TLSConfig seeds the *tls.Config used for VeNCrypt TLS/X509
	// sub-types; nil gets a zero-value config (system root pool).
	TLSConfig *tls.Config

	// VerifyCertificate is the delegated user-interaction hook for
	// VeNCrypt's X509 sub-types (§1, SPEC_FULL §4). Nil means "accept
	// what crypto/tls already validated, reject anything self-signed".
	VerifyCertificate func(cert *x509.Certificate) error

	// MaxProtoVersion caps the negotiated protocol minor version
	// ("3.3", "3.7" or "3.8"); empty means no cap.
	MaxProtoVersion string

	// ForceSecurity requests the first Auth entry even if the server's
	// security list doesn't advertise it (§4.3 tie-break).
	ForceSecurity bool

	// Exclusive requests a non-shared session (ClientInit shared flag).
	Exclusive bool

	// ViewOnly suppresses outbound input events from the input
	// translator (§4.6) without refusing the connection.
	ViewOnly bool

	Logger *log.Logger

	// ServerMessageCh receives every parsed server message. If nil,
	// messages are parsed (to keep the stream framed correctly) and
	// discarded.
	ServerMessageCh chan ServerMessage

	// ServerMessages lists additional server message decoders beyond
	// the RFC-required four.
	ServerMessages []ServerMessage

	// InitialEncodings seeds the encoding preference list before the
	// bandwidth governor has a sample to act on.
	InitialEncodings Encodings
}

// NewClientConfig returns a populated ClientConfig that authenticates
// with password p against None, VNC-Auth and VeNCrypt-Plain, in that
// priority order.
func NewClientConfig(p string) *ClientConfig {
	return &ClientConfig{
		Auth: []ClientAuth{
			ClientAuthNone{},
			ClientAuthVNC{Password: p},
			ClientAuthVeNCryptAuth{Password: p},
		},
		Password: p,
		ServerMessages: []ServerMessage{
			&FramebufferUpdate{},
			&SetColourMapEntries{},
			&Bell{},
			&ServerCutText{},
		},
		InitialEncodings: Encodings{
			&RawEncoding{}, &CopyRectEncoding{}, &HextileEncoding{},
			&TRLEEncoding{}, &ZRLEEncoding{}, &TightEncoding{},
			&desktopSizeEncoding{}, &lastRectEncoding{}, &wmviEncoding{},
			&desktopNameEncoding{}, &cursorEncoding{},
		},
	}
}

// ClientConn holds one live (or recently-live) connection's state: the
// RFB connection state of §3, its two pixel formats, decoder private
// state, and the bandwidth/view-geometry governors.
type ClientConn struct {
	Conn            net.Conn
	bufr            *bufio.Reader
	config          *ClientConfig
	protocolVersion string

	connTerminated bool
	closePending   bool

	log *log.Logger

	// colorMap backs CLUT pixel formats; nil for true-colour.
	colorMap ColorMap

	desktopName string

	// tightZlibs are the four independently-resettable Tight inflate
	// streams (§3 "Zlib streams").
	tightZlibs [4]io.ReadCloser
	// zlibStream/zlibHexStreams/zrleStream are the Zlib, ZlibHex and
	// ZRLE families' own independent streams.
	zlibStream     io.ReadCloser
	zlibHexStreams [2]io.ReadCloser
	zrleStream     io.ReadCloser

	encodings Encodings

	fbHeight uint16
	fbWidth  uint16

	// pixelFormat is the wire format the client has requested.
	pixelFormat PixelFormat
	// serverPixelFormat is the server's natural format from ServerInit.
	serverPixelFormat PixelFormat

	securityTypes []uint8
	secType       uint8
	tightSecurity bool
	sharedFlag    bool

	// surface is the local display; wireSurface is the intermediate
	// allocated when the visible view is smaller than the framebuffer
	// (§4.5). A wire format the local surface can't express does not
	// allocate one.
	surface     Surface
	wireSurface Surface
	needsWire   bool

	view      *ViewGeometry
	bandwidth *BandwidthGovernor
	input     *InputTranslator

	// rectsRemaining is set to the rectangle count at the start of each
	// FramebufferUpdate and decremented after each rectangle decodes
	// successfully, so it strictly decreases across one update (§8).
	rectsRemaining  uint16
	incrementalNext bool

	// xvpSupported is the server's XVP capability bitmask from the
	// last xvpEncoding rectangle; zero means XVP hasn't been offered.
	xvpSupported uint8

	closeCause error

	metrics map[string]metrics.Metric
}

// resizeFramebuffer applies a DesktopSize/ExtendedDesktopSize change:
// the local surface and any wire intermediate are resized and the next
// FramebufferUpdateRequest must ask for the full area (§4.3 "Session
// FSM").
func (c *ClientConn) resizeFramebuffer(width, height uint16) {
	c.fbWidth, c.fbHeight = width, height
	c.surface.SetMode(int(width), int(height), c.pixelFormat)
	c.incrementalNext = false
	c.recomputeSurfaceIntermediate()
}

// recomputeSurfaceIntermediate decides, after any mode change, whether
// an intermediate wire-format surface is needed: only when the visible
// view is smaller than the framebuffer (§4.5). The wire pixel format's
// channel layout is not compared with the local surface's.
func (c *ClientConn) recomputeSurfaceIntermediate() {
	c.needsWire = c.view != nil && c.view.smallerThanFramebuffer(c.fbWidth, c.fbHeight)
	if c.needsWire && c.wireSurface == nil {
		c.wireSurface = NewMemSurface(int(c.fbWidth), int(c.fbHeight))
	}
	if c.wireSurface != nil {
		c.wireSurface.SetMode(int(c.fbWidth), int(c.fbHeight), c.pixelFormat)
	}
}

// Dial connects to addr (host:port) and runs the full handshake.
func Dial(ctx context.Context, addr string, cfg *ClientConfig) (*ClientConn, error) {
	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, WrapError(TransportError, "dialing "+addr, err)
	}
	return Connect(ctx, conn, cfg)
}

// Listen accepts a single incoming connection on addr (VNC "listen
// mode", default port 5500) and runs the handshake against it.
func Listen(ctx context.Context, addr string, cfg *ClientConfig) (*ClientConn, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, WrapError(TransportError, "listening on "+addr, err)
	}
	defer l.Close()
	conn, err := l.Accept()
	if err != nil {
		return nil, WrapError(TransportError, "accepting connection", err)
	}
	return Connect(ctx, conn, cfg)
}

// Connect negotiates a connection to a VNC server over an
// already-established net.Conn.
func Connect(ctx context.Context, c net.Conn, cfg *ClientConfig) (*ClientConn, error) {
	conn := NewClientConn(c, cfg)

	if err := conn.protocolVersionHandshake(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	if err := conn.securityHandshake(); err != nil {
		conn.Close()
		return nil, err
	}
	if err := conn.securityResultHandshake(); err != nil {
		conn.Close()
		return nil, err
	}
	if err := conn.clientInit(); err != nil {
		conn.Close()
		return nil, err
	}
	if err := conn.serverInit(); err != nil {
		conn.Close()
		return nil, err
	}

	if err := conn.SetEncodings(conn.encodings); err != nil {
		conn.Close()
		return nil, Errorf("failure calling SetEncodings; %s", err)
	}
	if err := conn.SetPixelFormat(conn.pixelFormat); err != nil {
		conn.Close()
		return nil, Errorf("failure calling SetPixelFormat; %s", err)
	}

	glog.V(1).Infof("rfb: handshake complete, protocol %s, security type %d", conn.protocolVersion, conn.secType)
	return conn, nil
}

// NewClientConn wires up a ClientConn's zero state without performing
// any I/O; Connect drives it through the handshake.
func NewClientConn(c net.Conn, cfg *ClientConfig) *ClientConn {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", log.LstdFlags)
	}
	encs := cfg.InitialEncodings
	if len(encs) == 0 {
		encs = Encodings{&RawEncoding{}}
	}
	cc := &ClientConn{
		Conn:        c,
		config:      cfg,
		log:         logger,
		encodings:   encs,
		pixelFormat: PixelFormat32bit,
		sharedFlag:  !cfg.Exclusive,
		surface:     NewMemSurface(0, 0),
		bandwidth:   NewBandwidthGovernor(),
		metrics: map[string]metrics.Metric{
			"bytes-received": &metrics.Gauge{},
			"bytes-sent":     &metrics.Gauge{},
		},
	}
	cc.input = NewInputTranslator(cc)
	cc.resetReader(c)
	return cc
}

func (c *ClientConn) resetReader(r io.Reader) {
	c.bufr = bufio.NewReaderSize(r, 4096)
}

// Close terminates the connection and releases per-encoding state
// (inflate streams) exactly once.
func (c *ClientConn) Close() error {
	if c.connTerminated {
		return nil
	}
	c.connTerminated = true
	c.closePending = true
	for i := range c.tightZlibs {
		if c.tightZlibs[i] != nil {
			c.tightZlibs[i].Close()
			c.tightZlibs[i] = nil
		}
	}
	for i := range c.zlibHexStreams {
		if c.zlibHexStreams[i] != nil {
			c.zlibHexStreams[i].Close()
			c.zlibHexStreams[i] = nil
		}
	}
	if c.zlibStream != nil {
		c.zlibStream.Close()
		c.zlibStream = nil
	}
	if c.zrleStream != nil {
		c.zrleStream.Close()
		c.zrleStream = nil
	}
	c.log.Println("VNC Client connection closed.")
	return c.Conn.Close()
}

func (c *ClientConn) GetDesktopName() string             { return c.desktopName }
func (c *ClientConn) SetDesktopName(name string)         { c.desktopName = name }
func (c *ClientConn) GetEncodings() Encodings            { return c.encodings }
func (c *ClientConn) GetFramebufferHeight() uint16       { return c.fbHeight }
func (c *ClientConn) SetFramebufferHeight(height uint16) { c.fbHeight = height }
func (c *ClientConn) GetFramebufferWidth() uint16        { return c.fbWidth }
func (c *ClientConn) SetFramebufferWidth(width uint16)   { c.fbWidth = width }
func (c *ClientConn) GetPixelFormat() PixelFormat        { return c.pixelFormat }
func (c *ClientConn) Surface() Surface                   { return c.surface }

// SetSurface installs the host-display adapter; if unset, a MemSurface
// sized to the framebuffer is used instead.
func (c *ClientConn) SetSurface(s Surface) { c.surface = s }

// ListenAndHandle runs the session FSM (C7) until the connection
// closes or a protocol violation occurs. It is the cooperative event
// loop of §4.2/§5: one goroutine drains `input`, applies decoders, and
// issues the next FramebufferUpdateRequest.
func (c *ClientConn) ListenAndHandle() error {
	return c.runSessionLoop()
}

// receive reads data (typically a pointer to a fixed-size struct or
// array) in RFB's big-endian wire order.
func (c *ClientConn) receive(data interface{}) error {
	if err := binary.Read(c.bufr, binary.BigEndian, data); err != nil {
		return err
	}
	c.metrics["bytes-received"].Adjust(int64(binary.Size(data)))
	return nil
}

// receiveN receives n elements into a slice/buffer one at a time; used
// for length-prefixed fields whose size is only known at runtime.
func (c *ClientConn) receiveN(data interface{}, n int) error {
	if n == 0 {
		return nil
	}
	switch data := data.(type) {
	case *[]uint8:
		var v uint8
		for i := 0; i < n; i++ {
			if err := binary.Read(c.bufr, binary.BigEndian, &v); err != nil {
				return err
			}
			*data = append(*data, v)
		}
	case *[]int32:
		var v int32
		for i := 0; i < n; i++ {
			if err := binary.Read(c.bufr, binary.BigEndian, &v); err != nil {
				return err
			}
			*data = append(*data, v)
		}
	case *bytes.Buffer:
		var v byte
		for i := 0; i < n; i++ {
			if err := binary.Read(c.bufr, binary.BigEndian, &v); err != nil {
				return err
			}
			data.WriteByte(v)
		}
	default:
		return NewVNCError(fmt.Sprintf("unrecognized data type %v", reflect.TypeOf(data)))
	}
	c.metrics["bytes-received"].Adjust(int64(n))
	return nil
}

// readFull reads exactly n bytes and returns them, tallying metrics.
func (c *ClientConn) readFull(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(c.bufr, buf); err != nil {
		return nil, err
	}
	c.metrics["bytes-received"].Adjust(int64(n))
	return buf, nil
}

// send writes data in RFB's big-endian wire order. This is the
// "safeWrite" of §4.2 collapsed onto Go's blocking net.Conn: a normal
// write either succeeds or fails the connection, so there is no
// separate "queued" state to model.
func (c *ClientConn) send(data interface{}) error {
	var size int
	if s, ok := data.([]byte); ok {
		size = len(s)
		if _, err := c.Conn.Write(s); err != nil {
			return err
		}
	} else {
		size = binary.Size(data)
		if err := binary.Write(c.Conn, binary.BigEndian, data); err != nil {
			return err
		}
	}
	if size > 0 {
		c.metrics["bytes-sent"].Adjust(int64(size))
	}
	return nil
}

func (c *ClientConn) DebugMetrics() {
	c.log.Println("Metrics:")
	for name, metric := range c.metrics {
		c.log.Printf("  %v: %v", name, metric.Value())
	}
}

// bufferedConnAdapter lets the TLS layer read any bytes already sitting
// in c.bufr before switching to reading straight off c.Conn, so VeNCrypt
// TLS start-up never drops bytes the plaintext handshake had already
// buffered (§4.2).
type bufferedConnAdapter struct {
	net.Conn
	c *ClientConn
}

func (a *bufferedConnAdapter) Read(p []byte) (int, error) {
	if a.c.bufr != nil && a.c.bufr.Buffered() > 0 {
		return a.c.bufr.Read(p)
	}
	return a.c.Conn.Read(p)
}

func (a *bufferedConnAdapter) Write(p []byte) (int, error) { return a.c.Conn.Write(p) }
