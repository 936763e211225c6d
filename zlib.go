package rfb

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"

	"github.com/coreframe/rfbclient/encodings"
)

// ZlibEncoding decompresses one rectangle's worth of raw pixel data
// through a single persistent inflate stream, then paints it exactly
// like Raw (§4.4 table).
type ZlibEncoding struct{}

var _ Encoding = (*ZlibEncoding)(nil)

func (*ZlibEncoding) Type() encodings.Encoding { return encodings.Zlib }
func (*ZlibEncoding) String() string           { return "ZlibEncoding" }
func (*ZlibEncoding) Marshal() ([]byte, error) { return nil, nil }

func (*ZlibEncoding) Read(c *ClientConn, rect *Rectangle) (Encoding, error) {
	var length uint32
	if err := c.receive(&length); err != nil {
		return nil, fmt.Errorf("zlib: length: %w", err)
	}
	compressed, err := c.readFull(int(length))
	if err != nil {
		return nil, fmt.Errorf("zlib: compressed data: %w", err)
	}
	decompressed, err := c.inflateStream(&c.zlibStream, compressed)
	if err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}

	bpp := c.pixelFormat.BytesPerPixel()
	want := rect.Area() * bpp
	if len(decompressed) != want {
		return nil, fmt.Errorf("zlib: decompressed size mismatch (got %d, want %d)", len(decompressed), want)
	}
	c.paintTarget().PutBox(int(rect.X), int(rect.Y), int(rect.Width), int(rect.Height), decompressed, c.pixelFormat, &c.colorMap)
	return &ZlibEncoding{}, nil
}

// inflateStream feeds compressed through the persistent stream at
// *slot, creating it on first use and resetting it on each subsequent
// call (Tight/Zlib/ZlibHex/ZRLE all use independently-resettable zlib
// streams per §3's "Zlib streams").
func (c *ClientConn) inflateStream(slot *io.ReadCloser, compressed []byte) ([]byte, error) {
	if *slot == nil {
		r, err := zlib.NewReader(bytes.NewReader(compressed))
		if err != nil {
			return nil, err
		}
		*slot = r
	} else {
		if err := (*slot).(zlib.Resetter).Reset(bytes.NewReader(compressed), nil); err != nil {
			return nil, err
		}
	}
	data, err := io.ReadAll(*slot)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return data, nil
}
