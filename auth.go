package rfb

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// ClientAuth performs the sub-protocol for one security type (§4.3).
// Only the first instance in ClientConfig.Auth whose SecurityType the
// server offers is used.
type ClientAuth interface {
	// SecurityType returns the RFB security type id this implements.
	SecurityType() uint8

	// Handshake runs the type's challenge/response (or no-op) against
	// an already-selected connection.
	Handshake(c *ClientConn) error
}

// ClientAuthNone implements security type 1 (None).
type ClientAuthNone struct{}

func (ClientAuthNone) SecurityType() uint8          { return secTypeNone }
func (ClientAuthNone) Handshake(c *ClientConn) error { return nil }

// ClientAuthVNC implements security type 2 (VNC-Auth, bit-reversed
// single-DES).
type ClientAuthVNC struct {
	Password string
}

func (ClientAuthVNC) SecurityType() uint8 { return secTypeVNCAuth }

func (a ClientAuthVNC) Handshake(c *ClientConn) error {
	password, err := resolvePassword(c, a.Password)
	if err != nil {
		return err
	}
	var challenge [16]byte
	if err := c.receive(&challenge); err != nil {
		return WrapError(TransportError, "reading VNC-Auth challenge", err)
	}
	resp := vncAuthResponse(password, challenge)
	if err := c.send(resp[:]); err != nil {
		return WrapError(TransportError, "sending VNC-Auth response", err)
	}
	return nil
}

// ClientAuthVeNCryptAuth implements VeNCrypt's plain-text username
// and password sub-authentication, layered on top of whatever TLS
// state VeNCryptNegotiate has already established.
type ClientAuthVeNCryptAuth struct {
	Username string
	Password string
}

func (ClientAuthVeNCryptAuth) SecurityType() uint8 { return secTypeVeNCrypt }

func (a ClientAuthVeNCryptAuth) Handshake(c *ClientConn) error {
	password, err := resolvePassword(c, a.Password)
	if err != nil {
		return err
	}
	return writePlainAuthCredentials(c, a.Username, password)
}

// resolvePassword returns explicit if set, else falls back to the
// connection's configured PasswordFile or PasswordPrompt, per §6's
// "Password source": a file (first 8 bytes up to newline) or a
// user-interaction prompt callback.
func resolvePassword(c *ClientConn, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if c.config.PasswordFile != "" {
		return readPasswordFile(c.config.PasswordFile)
	}
	if c.config.PasswordPrompt != nil {
		return c.config.PasswordPrompt()
	}
	return "", NewVNCError("no password available: set Password, PasswordFile or PasswordPrompt")
}

// readPasswordFile reads a password file's first line, capped at 8
// bytes: VNC-Auth's DES key is always derived from at most 8 password
// bytes (right-NUL-padded by vncAuthKey if shorter).
func readPasswordFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", WrapError(TransportError, "reading password file "+path, err)
	}
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if len(line) > 8 {
		line = line[:8]
	}
	return string(line), nil
}

// writePlainAuthCredentials sends the VeNCrypt "Plain" sub-type
// credential record: u32 username length, u32 password length, then
// the raw bytes of each.
func writePlainAuthCredentials(c *ClientConn, username, password string) error {
	ub, pb := []byte(username), []byte(password)
	if err := c.send(uint32(len(ub))); err != nil {
		return WrapError(TransportError, "sending VeNCrypt username length", err)
	}
	if err := c.send(uint32(len(pb))); err != nil {
		return WrapError(TransportError, "sending VeNCrypt password length", err)
	}
	if err := c.send(ub); err != nil {
		return WrapError(TransportError, "sending VeNCrypt username", err)
	}
	if err := c.send(pb); err != nil {
		return WrapError(TransportError, "sending VeNCrypt password", err)
	}
	return nil
}

// Security type ids (§6).
const (
	secTypeNone     uint8 = 1
	secTypeVNCAuth  uint8 = 2
	secTypeTight    uint8 = 16
	secTypeVeNCrypt uint8 = 19
)

// VeNCrypt sub-types (§6).
const (
	veNCryptPlain    uint32 = 256
	veNCryptTLSNone  uint32 = 257
	veNCryptTLSVNC   uint32 = 258
	veNCryptTLSPlain uint32 = 259
	veNCryptX509None uint32 = 260
	veNCryptX509VNC  uint32 = 261
	veNCryptX509Plain uint32 = 262
)

func veNCryptIsTLS(subtype uint32) bool {
	switch subtype {
	case veNCryptTLSNone, veNCryptTLSVNC, veNCryptTLSPlain,
		veNCryptX509None, veNCryptX509VNC, veNCryptX509Plain:
		return true
	}
	return false
}

func veNCryptIsX509(subtype uint32) bool {
	switch subtype {
	case veNCryptX509None, veNCryptX509VNC, veNCryptX509Plain:
		return true
	}
	return false
}

func veNCryptNeedsPlainAuth(subtype uint32) bool {
	switch subtype {
	case veNCryptPlain, veNCryptTLSPlain, veNCryptX509Plain:
		return true
	}
	return false
}

func veNCryptNeedsVNCAuth(subtype uint32) bool {
	return subtype == veNCryptTLSVNC || subtype == veNCryptX509VNC
}

// startTLS wraps c.Conn (and the buffered reader sitting in front of
// it) in a TLS client connection, preserving any bytes already
// buffered from before negotiation started by feeding them through
// the handshake's buffered reader rather than discarding them (§4.2).
func (c *ClientConn) startTLS(x509Required bool) error {
	cfg := c.config.TLSConfig
	if cfg == nil {
		cfg = &tls.Config{}
	}
	cfg = cfg.Clone()
	if x509Required && cfg.InsecureSkipVerify {
		cfg.InsecureSkipVerify = false
	}
	if x509Required && c.config.VerifyCertificate != nil {
		hook := c.config.VerifyCertificate
		cfg.InsecureSkipVerify = true
		cfg.VerifyPeerCertificate = func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
			if len(rawCerts) == 0 {
				return fmt.Errorf("rfb: no certificate presented")
			}
			cert, err := x509.ParseCertificate(rawCerts[0])
			if err != nil {
				return err
			}
			return hook(cert)
		}
	}

	tlsConn := tls.Client(&bufferedConnAdapter{c: c}, cfg)
	if err := tlsConn.HandshakeContext(connBackground); err != nil {
		return WrapError(AuthFailure, "VeNCrypt TLS handshake failed", err)
	}
	c.Conn = tlsConn
	c.resetReader(tlsConn)
	return nil
}
