package rfb

import "testing"

func TestCoerceProtocolMinor(t *testing.T) {
	cases := map[string]int{
		"RFB 003.008": 8,
		"RFB 003.007": 7,
		"RFB 003.003": 3,
		"RFB 003.004": 3,
		"RFB 003.005": 3,
		"RFB 003.006": 3,
		"RFB 003.889": 3,
	}
	for in, want := range cases {
		got, err := coerceProtocolMinor(in)
		if err != nil {
			t.Errorf("coerceProtocolMinor(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("coerceProtocolMinor(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestCoerceProtocolMinorMalformed(t *testing.T) {
	cases := []string{"", "RFB", "XYZ 003.008", "RFB 003"}
	for _, in := range cases {
		if _, err := coerceProtocolMinor(in); err == nil {
			t.Errorf("coerceProtocolMinor(%q) expected an error, got nil", in)
		}
	}
}

func TestChooseVeNCryptSubtypePrefersStrongest(t *testing.T) {
	offered := []uint32{veNCryptPlain, veNCryptTLSVNC, veNCryptX509Plain}
	got, err := chooseVeNCryptSubtype(offered)
	if err != nil {
		t.Fatalf("chooseVeNCryptSubtype: %v", err)
	}
	if got != veNCryptX509Plain {
		t.Errorf("chooseVeNCryptSubtype(%v) = %d, want X509Plain (%d)", offered, got, veNCryptX509Plain)
	}
}

func TestChooseVeNCryptSubtypeNoneOffered(t *testing.T) {
	if _, err := chooseVeNCryptSubtype([]uint32{9999}); err == nil {
		t.Error("expected an error when no supported sub-type is offered")
	}
}

func TestChooseSecurityTypePriorityOrder(t *testing.T) {
	c := &ClientConn{
		config:        &ClientConfig{Auth: []ClientAuth{ClientAuthVNC{}, ClientAuthNone{}}},
		securityTypes: []uint8{secTypeNone, secTypeVNCAuth},
	}
	got, err := c.chooseSecurityType()
	if err != nil {
		t.Fatalf("chooseSecurityType: %v", err)
	}
	if got != secTypeVNCAuth {
		t.Errorf("chooseSecurityType() = %d, want secTypeVNCAuth (VNC-Auth takes priority since it's listed first)", got)
	}
}

func TestChooseSecurityTypeNoMatch(t *testing.T) {
	c := &ClientConn{
		config:        &ClientConfig{Auth: []ClientAuth{ClientAuthVNC{}}},
		securityTypes: []uint8{secTypeTight},
	}
	if _, err := c.chooseSecurityType(); err == nil {
		t.Error("expected an error when no mutually supported security type exists")
	}
}

func TestChooseSecurityTypeForceSecurity(t *testing.T) {
	c := &ClientConn{
		config:        &ClientConfig{Auth: []ClientAuth{ClientAuthNone{}}, ForceSecurity: true},
		securityTypes: []uint8{secTypeVNCAuth},
	}
	got, err := c.chooseSecurityType()
	if err != nil {
		t.Fatalf("chooseSecurityType: %v", err)
	}
	if got != secTypeNone {
		t.Errorf("chooseSecurityType() = %d, want secTypeNone (ForceSecurity should request our first entry anyway)", got)
	}
}
