package rfb

import (
	"encoding/binary"
	"net"
	"testing"
)

func newPaintTestConn(t *testing.T, fbW, fbH int) (*ClientConn, net.Conn) {
	t.Helper()
	c, server := newTestClientConn(t, false)
	c.pixelFormat = PixelFormat32bit
	c.fbWidth, c.fbHeight = uint16(fbW), uint16(fbH)
	c.surface = NewMemSurface(fbW, fbH)
	return c, server
}

func TestRawEncodingPaints(t *testing.T) {
	c, server := newPaintTestConn(t, 4, 4)
	rect := &Rectangle{X: 1, Y: 1, Width: 2, Height: 1}

	white := c.pixelFormat.EncodePixel(0xFFFFFF)
	black := c.pixelFormat.EncodePixel(0x000000)
	data := append(append([]byte{}, white...), black...)

	go server.Write(data)

	if _, err := (&RawEncoding{}).Read(c, rect); err != nil {
		t.Fatalf("RawEncoding.Read: %v", err)
	}
	ms := c.surface.(*MemSurface)
	if got := ms.At(1, 1); got != (RGB{255, 255, 255}) {
		t.Errorf("At(1,1) = %v, want white", got)
	}
	if got := ms.At(2, 1); got != (RGB{0, 0, 0}) {
		t.Errorf("At(2,1) = %v, want black", got)
	}
}

func TestCopyRectEncodingRelocates(t *testing.T) {
	c, server := newPaintTestConn(t, 4, 4)
	ms := c.surface.(*MemSurface)
	ms.PutPixel(0, 0, RGB{R: 42})

	msg := make([]byte, 4)
	binary.BigEndian.PutUint16(msg[0:2], 0)
	binary.BigEndian.PutUint16(msg[2:4], 0)

	go server.Write(msg)

	rect := &Rectangle{X: 2, Y: 2, Width: 1, Height: 1}
	if _, err := (&CopyRectEncoding{}).Read(c, rect); err != nil {
		t.Fatalf("CopyRectEncoding.Read: %v", err)
	}
	if got := ms.At(2, 2); got.R != 42 {
		t.Errorf("At(2,2).R = %d, want 42 (copied from (0,0))", got.R)
	}
}

func TestRREEncodingPaintsBackgroundAndSubrects(t *testing.T) {
	c, server := newPaintTestConn(t, 10, 10)
	rect := &Rectangle{X: 0, Y: 0, Width: 4, Height: 4}

	var body []byte
	appendU32 := func(v uint32) {
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, v)
		body = append(body, b...)
	}
	appendU16 := func(v uint16) {
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, v)
		body = append(body, b...)
	}

	appendU32(1) // sub-rect count
	body = append(body, c.pixelFormat.EncodePixel(0x000000)...) // background: black
	body = append(body, c.pixelFormat.EncodePixel(0xFFFFFF)...) // sub-rect colour: white
	appendU16(1) // X
	appendU16(1) // Y
	appendU16(2) // W
	appendU16(2) // H

	go server.Write(body)

	if _, err := (&RREEncoding{}).Read(c, rect); err != nil {
		t.Fatalf("RREEncoding.Read: %v", err)
	}
	ms := c.surface.(*MemSurface)
	if got := ms.At(0, 0); got != (RGB{0, 0, 0}) {
		t.Errorf("background At(0,0) = %v, want black", got)
	}
	if got := ms.At(1, 1); got != (RGB{255, 255, 255}) {
		t.Errorf("sub-rect At(1,1) = %v, want white", got)
	}
}

func TestCoRREEncodingUsesByteGeometry(t *testing.T) {
	c, server := newPaintTestConn(t, 10, 10)
	rect := &Rectangle{X: 0, Y: 0, Width: 4, Height: 4}

	var body []byte
	body = append(body, 0, 0, 0, 1) // sub-rect count (u32, as in RRE)
	body = append(body, c.pixelFormat.EncodePixel(0x000000)...)
	body = append(body, c.pixelFormat.EncodePixel(0xFFFFFF)...)
	body = append(body, 1, 1, 2, 2) // X,Y,W,H as u8

	go server.Write(body)

	if _, err := (&CoRREEncoding{}).Read(c, rect); err != nil {
		t.Fatalf("CoRREEncoding.Read: %v", err)
	}
	ms := c.surface.(*MemSurface)
	if got := ms.At(1, 1); got != (RGB{255, 255, 255}) {
		t.Errorf("sub-rect At(1,1) = %v, want white", got)
	}
}

func TestEncodingsMarshalAndByType(t *testing.T) {
	encs := Encodings{&RawEncoding{}, &CopyRectEncoding{}}
	body, err := encs.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if len(body) != 8 {
		t.Fatalf("Marshal length = %d, want 8", len(body))
	}
	if enc := encs.byType(encs[0].Type()); enc == nil {
		t.Error("byType should find a registered encoding")
	}
}
