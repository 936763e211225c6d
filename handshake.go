package rfb

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang/glog"
)

// protocolVersionHandshake implements AwaitProtocolVersion/
// SendProtocolVersion (§4.3): read the server's 12-byte greeting,
// coerce and cap the minor version, and echo our choice back.
func (c *ClientConn) protocolVersionHandshake(ctx context.Context) error {
	raw, err := c.readFull(12)
	if err != nil {
		return WrapError(TransportError, "reading protocol version", err)
	}
	server := strings.TrimRight(string(raw), "\n")

	minor, err := coerceProtocolMinor(server)
	if err != nil {
		return WrapError(ProtocolViolation, "parsing protocol version "+server, err)
	}

	capMinor := 8
	if c.config.MaxProtoVersion != "" {
		switch c.config.MaxProtoVersion {
		case "3.3":
			capMinor = 3
		case "3.7":
			capMinor = 7
		case "3.8":
			capMinor = 8
		default:
			return Errorf("unsupported MaxProtoVersion %q", c.config.MaxProtoVersion)
		}
	}
	if minor > capMinor {
		minor = capMinor
	}

	c.protocolVersion = fmt.Sprintf("3.%d", minor)
	glog.V(1).Infof("rfb: server offered %q, negotiated protocol 3.%d", server, minor)

	out := fmt.Sprintf("RFB 003.%03d\n", minor)
	if err := c.send([]byte(out)); err != nil {
		return WrapError(TransportError, "sending protocol version", err)
	}
	return nil
}

// coerceProtocolMinor parses "RFB 003.xxx" into a minor version
// clamped to {3,7,8}. The historical Apple Remote Desktop / UltraVNC
// "003.889" and other non-standard 003.4..003.6 strings are coerced to
// 3.3 per §4.3's tie-break note.
func coerceProtocolMinor(server string) (int, error) {
	parts := strings.SplitN(server, " ", 2)
	if len(parts) != 2 || parts[0] != "RFB" {
		return 0, fmt.Errorf("malformed protocol version string %q", server)
	}
	verParts := strings.SplitN(parts[1], ".", 2)
	if len(verParts) != 2 {
		return 0, fmt.Errorf("malformed protocol version string %q", server)
	}
	minor, err := strconv.Atoi(verParts[1])
	if err != nil {
		return 0, fmt.Errorf("malformed protocol minor in %q: %w", server, err)
	}
	switch {
	case minor == 889:
		// Apple Remote Desktop's "003.889": the hijack workaround.
		return 3, nil
	case minor >= 8:
		return 8, nil
	case minor == 7:
		return 7, nil
	case minor == 3:
		return 3, nil
	default:
		// 4, 5, 6 and anything else unrecognized: the hijack
		// workaround.
		return 3, nil
	}
}

// securityHandshake implements AwaitSecurityList/HandleSecurity (§4.3):
// negotiate a security type, then dispatch to its sub-protocol.
func (c *ClientConn) securityHandshake() error {
	minor := 3
	fmt.Sscanf(c.protocolVersion, "3.%d", &minor)

	if minor < 7 {
		var chosen uint32
		if err := c.receive(&chosen); err != nil {
			return WrapError(TransportError, "reading legacy security type", err)
		}
		if chosen == 0 {
			return c.readSecurityFailureReason()
		}
		c.secType = uint8(chosen)
	} else {
		var count uint8
		if err := c.receive(&count); err != nil {
			return WrapError(TransportError, "reading security type count", err)
		}
		if count == 0 {
			return c.readSecurityFailureReason()
		}
		if err := c.receiveN(&c.securityTypes, int(count)); err != nil {
			return WrapError(TransportError, "reading security type list", err)
		}

		chosen, err := c.chooseSecurityType()
		if err != nil {
			return err
		}
		c.secType = chosen
		if err := c.send(c.secType); err != nil {
			return WrapError(TransportError, "sending chosen security type", err)
		}
	}

	return c.runSecurityType(c.secType)
}

// chooseSecurityType walks Auth in priority order and returns the
// first entry the server's offered list contains; ForceSecurity
// requests the first entry regardless (§4.3 tie-break).
func (c *ClientConn) chooseSecurityType() (uint8, error) {
	for _, a := range c.config.Auth {
		for _, offered := range c.securityTypes {
			if offered == a.SecurityType() {
				return a.SecurityType(), nil
			}
		}
	}
	if c.config.ForceSecurity && len(c.config.Auth) > 0 {
		return c.config.Auth[0].SecurityType(), nil
	}
	return 0, NewVNCError("no mutually supported security type")
}

func (c *ClientConn) authFor(secType uint8) ClientAuth {
	for _, a := range c.config.Auth {
		if a.SecurityType() == secType {
			return a
		}
	}
	return nil
}

// runSecurityType dispatches HandleSecurity's branches: VNC-Auth and
// VeNCrypt-Plain run the matching ClientAuth; security type 16 (Tight)
// first consumes the tunnel/auth capability lists, then recurses with
// security_tight=true and a guard against infinite recursion.
func (c *ClientConn) runSecurityType(secType uint8) error {
	if secType == secTypeTight && !c.tightSecurity {
		return c.negotiateTightCapabilities()
	}
	if secType == secTypeVeNCrypt {
		return c.negotiateVeNCrypt()
	}

	auth := c.authFor(secType)
	if auth == nil {
		return Errorf("no ClientAuth registered for security type %d", secType)
	}
	if err := auth.Handshake(c); err != nil {
		return WrapError(AuthFailure, fmt.Sprintf("security type %d handshake", secType), err)
	}
	return nil
}

// negotiateTightCapabilities implements TightCapabilities: the server
// sends a tunnel-capability list (we reply "no tunnel", type 0) and an
// auth-capability list we choose from, then HandleSecurity resumes
// with c.tightSecurity set so a second Tight offer isn't re-entered.
func (c *ClientConn) negotiateTightCapabilities() error {
	c.tightSecurity = true

	var nTunnels uint32
	if err := c.receive(&nTunnels); err != nil {
		return WrapError(TransportError, "reading tight tunnel count", err)
	}
	tunnels, err := readTightCapabilityList(c, int(nTunnels))
	if err != nil {
		return err
	}
	if len(tunnels) > 0 {
		if err := c.send(int32(0)); err != nil {
			return WrapError(TransportError, "selecting no-tunnel", err)
		}
	}

	var nAuth uint32
	if err := c.receive(&nAuth); err != nil {
		return WrapError(TransportError, "reading tight auth count", err)
	}
	auths, err := readTightCapabilityList(c, int(nAuth))
	if err != nil {
		return err
	}

	for _, a := range c.config.Auth {
		for _, ac := range auths {
			if uint32(a.SecurityType()) == ac.code || (a.SecurityType() == secTypeNone && ac.code == 1) || (a.SecurityType() == secTypeVNCAuth && ac.code == 2) {
				if err := c.send(int32(ac.code)); err != nil {
					return WrapError(TransportError, "selecting tight auth", err)
				}
				return c.runSecurityType(a.SecurityType())
			}
		}
	}
	return NewVNCError("no mutually supported Tight auth capability")
}

type tightCapability struct {
	code       uint32
	vendor     [4]byte
	signature  [8]byte
}

func readTightCapabilityList(c *ClientConn, n int) ([]tightCapability, error) {
	caps := make([]tightCapability, n)
	for i := range caps {
		if err := c.receive(&caps[i]); err != nil {
			return nil, WrapError(TransportError, "reading tight capability", err)
		}
	}
	return caps, nil
}

// negotiateVeNCrypt implements VeNCryptNegotiate: exchange version
// bytes, receive the sub-type list, pick one, start TLS if the
// sub-type requires it, then run plain-auth if required.
func (c *ClientConn) negotiateVeNCrypt() error {
	var serverVersion struct{ Major, Minor uint8 }
	if err := c.receive(&serverVersion); err != nil {
		return WrapError(TransportError, "reading VeNCrypt version", err)
	}
	if err := c.send(struct{ Major, Minor uint8 }{0, 2}); err != nil {
		return WrapError(TransportError, "sending VeNCrypt version", err)
	}
	var ack uint8
	if err := c.receive(&ack); err != nil {
		return WrapError(TransportError, "reading VeNCrypt version ack", err)
	}
	if ack != 0 {
		return NewVNCError("server rejected VeNCrypt version 0.2")
	}

	var count uint8
	if err := c.receive(&count); err != nil {
		return WrapError(TransportError, "reading VeNCrypt subtype count", err)
	}
	subtypes := make([]uint32, count)
	if err := c.receive(&subtypes); err != nil {
		return WrapError(TransportError, "reading VeNCrypt subtype list", err)
	}

	chosen, err := chooseVeNCryptSubtype(subtypes)
	if err != nil {
		return err
	}
	if err := c.send(chosen); err != nil {
		return WrapError(TransportError, "sending VeNCrypt subtype choice", err)
	}

	if veNCryptIsTLS(chosen) {
		if err := c.startTLS(veNCryptIsX509(chosen)); err != nil {
			return err
		}
	}
	if veNCryptNeedsVNCAuth(chosen) {
		return c.authFor(secTypeVNCAuth).Handshake(c)
	}
	if veNCryptNeedsPlainAuth(chosen) {
		return c.authFor(secTypeVeNCrypt).Handshake(c)
	}
	return nil
}

func chooseVeNCryptSubtype(offered []uint32) (uint32, error) {
	// Prefer the strongest available: X509Plain > TLSPlain > X509VNC >
	// TLSVNC > X509None > TLSNone > Plain.
	priority := []uint32{veNCryptX509Plain, veNCryptTLSPlain, veNCryptX509VNC, veNCryptTLSVNC, veNCryptX509None, veNCryptTLSNone, veNCryptPlain}
	for _, p := range priority {
		for _, o := range offered {
			if o == p {
				return p, nil
			}
		}
	}
	return 0, NewVNCError("no supported VeNCrypt sub-type offered")
}

func (c *ClientConn) readSecurityFailureReason() error {
	var length uint32
	if err := c.receive(&length); err != nil {
		return WrapError(AuthFailure, "security handshake failed (no reason available)", err)
	}
	reason, err := c.readFull(int(length))
	if err != nil {
		return WrapError(AuthFailure, "security handshake failed (reading reason)", err)
	}
	return NewVNCError("security handshake failed: " + string(reason))
}

// securityResultHandshake implements AwaitSecurityResult/
// MaybeSecurityResult (§4.3): protocol 3.8+ always sends a result;
// legacy None auth on earlier protocols does not.
func (c *ClientConn) securityResultHandshake() error {
	minor := 3
	fmt.Sscanf(c.protocolVersion, "3.%d", &minor)
	if minor < 8 && c.secType == secTypeNone {
		return nil
	}
	var status uint32
	if err := c.receive(&status); err != nil {
		return WrapError(TransportError, "reading security result", err)
	}
	if status != 0 {
		if minor >= 8 {
			return c.readSecurityFailureReason()
		}
		return NewVNCError("security handshake failed")
	}
	return nil
}

// clientInit implements ClientInit: send the shared-connection flag.
func (c *ClientConn) clientInit() error {
	var shared uint8
	if c.sharedFlag {
		shared = 1
	}
	if err := c.send(shared); err != nil {
		return WrapError(TransportError, "sending ClientInit", err)
	}
	return nil
}

// serverInit implements AwaitServerInit: 24-byte header (size, pixel
// format), name length, name bytes, and for Tight sessions the
// capability lists advertising supported server/client messages and
// encodings.
func (c *ClientConn) serverInit() error {
	var dims struct{ Width, Height uint16 }
	if err := c.receive(&dims); err != nil {
		return WrapError(TransportError, "reading ServerInit dimensions", err)
	}
	c.fbWidth, c.fbHeight = dims.Width, dims.Height

	pfBytes, err := c.readFull(16)
	if err != nil {
		return WrapError(TransportError, "reading ServerInit pixel format", err)
	}
	pf, err := DecodePixelFormatWire(pfBytes)
	if err != nil {
		return WrapError(ProtocolViolation, "ServerInit pixel format", err)
	}
	c.serverPixelFormat = pf

	var nameLength uint32
	if err := c.receive(&nameLength); err != nil {
		return WrapError(TransportError, "reading ServerInit name length", err)
	}
	name, err := c.readFull(int(nameLength))
	if err != nil {
		return WrapError(TransportError, "reading ServerInit desktop name", err)
	}
	c.desktopName = string(name)

	c.surface.SetMode(int(c.fbWidth), int(c.fbHeight), c.pixelFormat)

	if c.tightSecurity {
		return c.consumeTightServerInitCapabilities()
	}
	return nil
}

// consumeTightServerInitCapabilities reads the three Tight capability
// lists (server messages, client messages, encodings) that follow
// ServerInit's name when the session negotiated Tight security.
func (c *ClientConn) consumeTightServerInitCapabilities() error {
	var counts struct{ NumServerMsgs, NumClientMsgs, NumEncodings uint16 }
	if err := c.receive(&counts); err != nil {
		return WrapError(TransportError, "reading tight capability counts", err)
	}
	if _, err := c.readFull(2); err != nil {
		return WrapError(TransportError, "reading tight capability padding", err)
	}
	if _, err := readTightCapabilityList(c, int(counts.NumServerMsgs)); err != nil {
		return err
	}
	if _, err := readTightCapabilityList(c, int(counts.NumClientMsgs)); err != nil {
		return err
	}
	if _, err := readTightCapabilityList(c, int(counts.NumEncodings)); err != nil {
		return err
	}
	return nil
}
