package rfb

import "testing"

func TestParsePixelFormatRoundTrip(t *testing.T) {
	cases := []string{"r5g6b5", "p8r8g8b8", "c8"}
	for _, s := range cases {
		pf, err := ParsePixelFormat(s)
		if err != nil {
			t.Fatalf("ParsePixelFormat(%q): %v", s, err)
		}
		if got := pf.String(); got != s {
			t.Errorf("ParsePixelFormat(%q).String() = %q, want %q", s, got, s)
		}
	}
}

func TestParsePixelFormatInvalid(t *testing.T) {
	if _, err := ParsePixelFormat(""); err == nil {
		t.Error("expected error for empty descriptor")
	}
	if _, err := ParsePixelFormat("q5"); err == nil {
		t.Error("expected error for unrecognized token")
	}
}

func TestPixelFormatValidate(t *testing.T) {
	pf := PixelFormat32bit
	if err := pf.Validate(); err != nil {
		t.Errorf("PixelFormat32bit should validate: %v", err)
	}
	bad := pf
	bad.BPP = 24
	if err := bad.Validate(); err == nil {
		t.Error("expected error for size not in {8,16,32}")
	}
}

func TestPixelFormatEncodeDecodeWireRoundTrip(t *testing.T) {
	pf := PixelFormat32bit
	wire := pf.EncodeWire()
	if len(wire) != 16 {
		t.Fatalf("EncodeWire() length = %d, want 16", len(wire))
	}
	got, err := DecodePixelFormatWire(wire)
	if err != nil {
		t.Fatalf("DecodePixelFormatWire: %v", err)
	}
	if got != pf {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, pf)
	}
}

func TestPixelFormatDecodeEncodePixel(t *testing.T) {
	pf := PixelFormat32bit
	data := pf.EncodePixel(0x112233)
	v, err := pf.DecodePixel(data)
	if err != nil {
		t.Fatalf("DecodePixel: %v", err)
	}
	if v != 0x112233 {
		t.Errorf("DecodePixel(EncodePixel(x)) = %#x, want %#x", v, 0x112233)
	}
}

func TestPixelFormatResolveTrueColor(t *testing.T) {
	pf := PixelFormat32bit
	r, g, b := pf.Resolve(0xFFFFFF, nil)
	if r != 255 || g != 255 || b != 255 {
		t.Errorf("Resolve(white) = (%d,%d,%d), want (255,255,255)", r, g, b)
	}
}

func TestPixelFormatResolveCLUT(t *testing.T) {
	pf, err := ParsePixelFormat("c8")
	if err != nil {
		t.Fatal(err)
	}
	var cm ColorMap
	cm[5] = ColorMapEntry{R: 0xFFFF, G: 0x8080, B: 0x0000}
	r, g, b := pf.Resolve(5, &cm)
	if r != 0xFF || g != 0x80 || b != 0x00 {
		t.Errorf("Resolve(CLUT idx 5) = (%d,%d,%d), want (255,128,0)", r, g, b)
	}
}

func TestIsCPixelCapable(t *testing.T) {
	if !PixelFormat32bit.IsCPixelCapable() {
		t.Error("PixelFormat32bit should be CPIXEL-capable (depth 24, no high byte used)")
	}
	wide := PixelFormat32bit
	wide.RedShift = 24
	wide.RedMax = 0xFFFF
	if wide.IsCPixelCapable() {
		t.Error("a format whose channel bits reach past byte 3 must not be CPIXEL-capable")
	}
	clut, _ := ParsePixelFormat("c8")
	if clut.IsCPixelCapable() {
		t.Error("CLUT formats are never CPIXEL-capable")
	}
}
