package rfb

import (
	"bytes"
	"fmt"

	"github.com/coreframe/rfbclient/encodings"
)

// ZRLEEncoding inflates one length-prefixed block through the
// connection's single ZRLE stream, then decodes the result as TRLE
// tiled 64x64, without the "reuse palette" subencodings and with
// CPIXEL compaction for qualifying 32-bit formats (§4.4 table).
type ZRLEEncoding struct{}

var _ Encoding = (*ZRLEEncoding)(nil)

func (*ZRLEEncoding) Type() encodings.Encoding { return encodings.ZRLE }
func (*ZRLEEncoding) String() string           { return "ZRLEEncoding" }
func (*ZRLEEncoding) Marshal() ([]byte, error) { return nil, nil }

const zrleTile = 64

func (*ZRLEEncoding) Read(c *ClientConn, rect *Rectangle) (Encoding, error) {
	var length uint32
	if err := c.receive(&length); err != nil {
		return nil, fmt.Errorf("zrle: length: %w", err)
	}
	compressed, err := c.readFull(int(length))
	if err != nil {
		return nil, fmt.Errorf("zrle: compressed data: %w", err)
	}
	decompressed, err := c.inflateStream(&c.zrleStream, compressed)
	if err != nil {
		return nil, fmt.Errorf("zrle: %w", err)
	}

	src := memByteSource{r: bytes.NewReader(decompressed)}
	cpixel := c.pixelFormat.IsCPixelCapable()
	if err := decodeRLERect(src, c, rect, zrleTile, cpixel, false); err != nil {
		return nil, fmt.Errorf("zrle: %w", err)
	}
	return &ZRLEEncoding{}, nil
}
