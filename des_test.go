package rfb

import "testing"

func TestVncAuthResponseDeterministic(t *testing.T) {
	var challenge [16]byte
	for i := range challenge {
		challenge[i] = byte(i)
	}
	a := vncAuthResponse("password", challenge)
	b := vncAuthResponse("password", challenge)
	if a != b {
		t.Errorf("vncAuthResponse is not deterministic: %x != %x", a, b)
	}
}

func TestVncAuthResponseSensitiveToPassword(t *testing.T) {
	var challenge [16]byte
	a := vncAuthResponse("password", challenge)
	b := vncAuthResponse("different", challenge)
	if a == b {
		t.Error("different passwords produced the same response")
	}
}

func TestVncAuthResponseSensitiveToChallenge(t *testing.T) {
	var c1, c2 [16]byte
	c2[0] = 1
	a := vncAuthResponse("password", c1)
	b := vncAuthResponse("password", c2)
	if a == b {
		t.Error("different challenges produced the same response")
	}
}

func TestVncAuthKeyTruncatesLongPasswords(t *testing.T) {
	short := vncAuthKey("12345678")
	long := vncAuthKey("123456789999999")
	if short != long {
		t.Error("vncAuthKey should truncate passwords beyond 8 bytes")
	}
}

func TestReverseBits(t *testing.T) {
	cases := map[byte]byte{
		0x00: 0x00,
		0xFF: 0xFF,
		0x01: 0x80,
		0x80: 0x01,
		0x0F: 0xF0,
	}
	for in, want := range cases {
		if got := reverseBits(in); got != want {
			t.Errorf("reverseBits(%#x) = %#x, want %#x", in, got, want)
		}
	}
}
