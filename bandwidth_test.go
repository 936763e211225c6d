package rfb

import (
	"testing"

	"github.com/coreframe/rfbclient/encodings"
)

func TestBandwidthGovernorStartsLow(t *testing.T) {
	b := NewBandwidthGovernor()
	if b.tier != bandwidthLow {
		t.Errorf("initial tier = %v, want bandwidthLow", b.tier)
	}
}

func TestBandwidthGovernorTierCrossings(t *testing.T) {
	b := NewBandwidthGovernor()
	if changed := b.Sample(500); changed {
		t.Error("staying within the low tier should not report a change")
	}
	changes := 0
	for i := 0; i < bandwidthRingSize; i++ {
		if b.Sample(50000) {
			changes++
		}
	}
	if b.tier != bandwidthMid {
		t.Errorf("tier after sustained mid-range samples = %v, want bandwidthMid", b.tier)
	}
	if changes != 1 {
		t.Errorf("sustained mid-range samples reported %d tier changes, want exactly 1 (low->mid)", changes)
	}

	changes = 0
	for i := 0; i < bandwidthRingSize; i++ {
		if b.Sample(500000) {
			changes++
		}
	}
	if b.tier != bandwidthHigh {
		t.Errorf("tier after sustained high-range samples = %v, want bandwidthHigh", b.tier)
	}
	if changes != 1 {
		t.Errorf("sustained high-range samples reported %d tier changes, want exactly 1 (mid->high)", changes)
	}
}

func TestBandwidthGovernorSampleClampsNegative(t *testing.T) {
	b := NewBandwidthGovernor()
	b.Sample(-100)
	if b.ring[0] != 0 {
		t.Errorf("negative sample stored as %d, want clamped to 0", b.ring[0])
	}
}

func TestBandwidthGovernorPreferredDropsNothing(t *testing.T) {
	available := Encodings{&RawEncoding{}, &CopyRectEncoding{}}
	b := NewBandwidthGovernor()
	out := b.Preferred(available)
	if len(out) != len(available) {
		t.Fatalf("Preferred returned %d encodings, want %d", len(out), len(available))
	}
	seen := make(map[encodings.Encoding]bool)
	for _, e := range out {
		seen[e.Type()] = true
	}
	for _, e := range available {
		if !seen[e.Type()] {
			t.Errorf("Preferred dropped encoding %v", e.Type())
		}
	}
}

func TestBandwidthGovernorPreferredOrdersByTier(t *testing.T) {
	available := Encodings{&RawEncoding{}, &CopyRectEncoding{}}
	b := NewBandwidthGovernor()
	b.tier = bandwidthHigh
	out := b.Preferred(available)
	if out[0].Type() != encodings.CopyRect {
		t.Errorf("high tier should prefer CopyRect first, got %v", out[0].Type())
	}
}
