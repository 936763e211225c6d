package rfb

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/coreframe/rfbclient/messages"
)

func TestLatin1ToUTF8(t *testing.T) {
	got := latin1ToUTF8([]byte{'h', 0xE9, 'l', 'l', 'o'})
	want := "héllo"
	if got != want {
		t.Errorf("latin1ToUTF8 = %q, want %q", got, want)
	}
}

func TestFramebufferUpdateRequestWireFormat(t *testing.T) {
	c, server := newTestClientConn(t, false)
	defer server.Close()

	done := make(chan []byte)
	go func() {
		buf := make([]byte, 10)
		n, _ := server.Read(buf)
		done <- buf[:n]
	}()

	if err := c.FramebufferUpdateRequest(true, 1, 2, 800, 600); err != nil {
		t.Fatalf("FramebufferUpdateRequest: %v", err)
	}
	buf := <-done
	if len(buf) != 10 {
		t.Fatalf("wrote %d bytes, want 10", len(buf))
	}
	if buf[0] != uint8(messages.FramebufferUpdateRequest) {
		t.Errorf("MsgType = %d, want %d", buf[0], messages.FramebufferUpdateRequest)
	}
	if buf[1] != 1 {
		t.Errorf("Incremental = %d, want 1", buf[1])
	}
	if x := binary.BigEndian.Uint16(buf[2:4]); x != 1 {
		t.Errorf("X = %d, want 1", x)
	}
	if w := binary.BigEndian.Uint16(buf[6:8]); w != 800 {
		t.Errorf("Width = %d, want 800", w)
	}
}

func TestSetEncodingsWireFormat(t *testing.T) {
	c, server := newTestClientConn(t, false)
	defer server.Close()

	encs := Encodings{&RawEncoding{}, &CopyRectEncoding{}}

	done := make(chan []byte)
	go func() {
		buf := make([]byte, 12)
		n, _ := io.ReadFull(server, buf)
		done <- buf[:n]
	}()

	if err := c.SetEncodings(encs); err != nil {
		t.Fatalf("SetEncodings: %v", err)
	}
	buf := <-done
	if buf[0] != uint8(messages.SetEncodings) {
		t.Errorf("MsgType = %d, want %d", buf[0], messages.SetEncodings)
	}
	if count := binary.BigEndian.Uint16(buf[2:4]); count != 2 {
		t.Errorf("encoding count = %d, want 2", count)
	}
	if c.encodings == nil || len(c.encodings) != 2 {
		t.Error("SetEncodings should record the active encoding table")
	}
}

func TestSetPixelFormatWireFormat(t *testing.T) {
	c, server := newTestClientConn(t, false)
	defer server.Close()

	done := make(chan []byte)
	go func() {
		buf := make([]byte, 20)
		n, _ := server.Read(buf)
		done <- buf[:n]
	}()

	if err := c.SetPixelFormat(PixelFormat32bit); err != nil {
		t.Fatalf("SetPixelFormat: %v", err)
	}
	buf := <-done
	if buf[0] != uint8(messages.SetPixelFormat) {
		t.Errorf("MsgType = %d, want %d", buf[0], messages.SetPixelFormat)
	}
	if len(buf) != 20 {
		t.Fatalf("wrote %d bytes, want 20 (4-byte header + 16-byte pixel format)", len(buf))
	}
	if c.pixelFormat != PixelFormat32bit {
		t.Error("SetPixelFormat should record the requested format")
	}
}

func TestBellReadIsNoop(t *testing.T) {
	c, server := newTestClientConn(t, false)
	defer server.Close()
	msg, err := (&Bell{}).Read(c)
	if err != nil {
		t.Fatalf("Bell.Read: %v", err)
	}
	if _, ok := msg.(*Bell); !ok {
		t.Errorf("Bell.Read returned %T, want *Bell", msg)
	}
}
