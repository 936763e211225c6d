package rfb

import (
	"bufio"
	"net"
	"testing"

	"github.com/coreframe/rfbclient/go/metrics"
)

func newTestClientConn(t *testing.T, viewOnly bool) (*ClientConn, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	c := &ClientConn{
		Conn:   client,
		bufr:   bufio.NewReader(client),
		config: &ClientConfig{ViewOnly: viewOnly},
		metrics: map[string]metrics.Metric{
			"bytes-received": &metrics.Gauge{},
			"bytes-sent":     &metrics.Gauge{},
		},
	}
	t.Cleanup(func() { client.Close(); server.Close() })
	return c, server
}

func TestUtf8ToLatin1(t *testing.T) {
	got := utf8ToLatin1("héllo")
	want := []byte{'h', 0xE9, 'l', 'l', 'o'}
	if string(got) != string(want) {
		t.Errorf("utf8ToLatin1(héllo) = %v, want %v", got, want)
	}
}

func TestUtf8ToLatin1LossySubstitution(t *testing.T) {
	got := utf8ToLatin1("a€b")
	want := "a?b"
	if string(got) != want {
		t.Errorf("utf8ToLatin1 with code point above U+00FF = %q, want %q", got, want)
	}
}

func TestNamedKeysymsCoverF1ThroughF12(t *testing.T) {
	for i := 0; i < 12; i++ {
		key := KeyF1 + NamedKey(i)
		sym, ok := namedKeysyms[key]
		if !ok {
			t.Fatalf("namedKeysyms missing entry for F%d", i+1)
		}
		if sym != KeysymF1+uint32(i) {
			t.Errorf("F%d keysym = %#x, want %#x", i+1, sym, KeysymF1+uint32(i))
		}
	}
}

func TestSendNamedKeyRoutesF8ToMenuHotkey(t *testing.T) {
	c, server := newTestClientConn(t, false)
	defer server.Close()
	tr := NewInputTranslator(c)

	called := false
	tr.MenuHotkey = func() { called = true }

	if err := tr.SendNamedKey(KeyF8, true); err != nil {
		t.Fatalf("SendNamedKey: %v", err)
	}
	if !called {
		t.Error("SendNamedKey(KeyF8, true) should invoke MenuHotkey instead of sending on the wire")
	}
}

func TestSendNamedKeyUnknown(t *testing.T) {
	c, server := newTestClientConn(t, false)
	defer server.Close()
	tr := NewInputTranslator(c)
	if err := tr.SendNamedKey(NamedKey(9999), true); err == nil {
		t.Error("expected an error for an unrecognized named key")
	}
}

func TestViewOnlySuppressesPointer(t *testing.T) {
	c, server := newTestClientConn(t, true)
	defer server.Close()
	tr := NewInputTranslator(c)

	done := make(chan struct{})
	go func() {
		buf := make([]byte, 1)
		server.Read(buf)
		close(done)
	}()

	if err := tr.SendPointer(1, 1, PointerButtonLeft); err != nil {
		t.Fatalf("SendPointer: %v", err)
	}
	c.Conn.Close()
	<-done
}

func TestSendWheelBurstsPressAndRelease(t *testing.T) {
	c, server := newTestClientConn(t, false)
	defer server.Close()
	tr := NewInputTranslator(c)

	readDone := make(chan []byte, 2)
	go func() {
		for i := 0; i < 2; i++ {
			buf := make([]byte, 6)
			n, _ := server.Read(buf)
			readDone <- buf[:n]
		}
	}()

	if err := tr.SendWheel(5, 5, true, 0); err != nil {
		t.Fatalf("SendWheel: %v", err)
	}
	first := <-readDone
	second := <-readDone
	if len(first) != 6 || first[1]&PointerButtonWheelUp == 0 {
		t.Errorf("first PointerEvent should carry the wheel-up bit, got %v", first)
	}
	if len(second) != 6 || second[1] != 0 {
		t.Errorf("second PointerEvent should release all buttons, got %v", second)
	}
}
