package rfb

import "github.com/coreframe/rfbclient/encodings"

// bandwidthRingSize is the number of recent FramebufferUpdate byte
// counts the governor averages over before considering a tier change.
const bandwidthRingSize = 16

// Bandwidth tiers, in bytes/update averaged over the ring (§4 "C10
// Bandwidth governor").
const (
	bandwidthLowThreshold = 10000
	bandwidthMidThreshold = 100000
)

type bandwidthTier int

const (
	bandwidthLow bandwidthTier = iota
	bandwidthMid
	bandwidthHigh
)

// BandwidthGovernor tracks a connection's recent FramebufferUpdate
// sizes and recommends an encoding preference order suited to the
// current tier: small, richly-compressed tiles on a slow link, raw
// pixels on a fast one where CPU is the scarcer resource.
type BandwidthGovernor struct {
	ring   [bandwidthRingSize]int64
	filled int
	next   int
	tier   bandwidthTier
}

// NewBandwidthGovernor returns a governor that starts in the low tier,
// the conservative default until the first sample arrives.
func NewBandwidthGovernor() *BandwidthGovernor {
	return &BandwidthGovernor{tier: bandwidthLow}
}

// Sample records one FramebufferUpdate's byte count and reports
// whether the running average crossed into a new tier.
func (b *BandwidthGovernor) Sample(bytes int64) bool {
	if bytes < 0 {
		bytes = 0
	}
	b.ring[b.next] = bytes
	b.next = (b.next + 1) % bandwidthRingSize
	if b.filled < bandwidthRingSize {
		b.filled++
	}

	var sum int64
	for i := 0; i < b.filled; i++ {
		sum += b.ring[i]
	}
	avg := sum / int64(b.filled)

	newTier := bandwidthHigh
	switch {
	case avg <= bandwidthLowThreshold:
		newTier = bandwidthLow
	case avg <= bandwidthMidThreshold:
		newTier = bandwidthMid
	}
	if newTier != b.tier {
		b.tier = newTier
		return true
	}
	return false
}

// Preferred reorders available into the tier-appropriate preference
// order, dropping nothing: anything not named in the tier's vector
// keeps its relative position appended at the end.
func (b *BandwidthGovernor) Preferred(available Encodings) Encodings {
	order := tierOrder(b.tier)
	out := make(Encodings, 0, len(available))
	used := make(map[encodings.Encoding]bool, len(available))

	for _, id := range order {
		if enc := available.byType(id); enc != nil && !used[id] {
			out = append(out, enc)
			used[id] = true
		}
	}
	for _, enc := range available {
		if !used[enc.Type()] {
			out = append(out, enc)
			used[enc.Type()] = true
		}
	}
	return out
}

// tierOrder returns the encoding ids in preference order for a tier.
// Low bandwidth favours the most aggressively compressed codecs
// first; high bandwidth favours Raw/CopyRect/Hextile, which cost
// almost nothing to decode and avoid the zlib CPU tax entirely.
func tierOrder(tier bandwidthTier) []encodings.Encoding {
	switch tier {
	case bandwidthLow:
		return []encodings.Encoding{
			encodings.Tight, encodings.ZRLE, encodings.TRLE, encodings.ZlibHex,
			encodings.Zlib, encodings.Hextile, encodings.CoRRE, encodings.RRE,
			encodings.CopyRect, encodings.Raw,
		}
	case bandwidthMid:
		return []encodings.Encoding{
			encodings.ZRLE, encodings.Tight, encodings.Hextile, encodings.TRLE,
			encodings.CoRRE, encodings.RRE, encodings.CopyRect, encodings.Zlib,
			encodings.ZlibHex, encodings.Raw,
		}
	default:
		return []encodings.Encoding{
			encodings.CopyRect, encodings.Hextile, encodings.Raw,
			encodings.RRE, encodings.CoRRE, encodings.ZRLE, encodings.Tight,
			encodings.TRLE, encodings.Zlib, encodings.ZlibHex,
		}
	}
}
