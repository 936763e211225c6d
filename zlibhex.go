package rfb

import (
	"bytes"
	"fmt"

	"github.com/coreframe/rfbclient/encodings"
)

// ZlibHexEncoding is a tile stream where each tile's own header byte
// chooses whether the tile is a plain Hextile tile or a zlib-deflated
// one, using one of two independently-resettable inflate streams
// (§4.4 table).
type ZlibHexEncoding struct{}

var _ Encoding = (*ZlibHexEncoding)(nil)

func (*ZlibHexEncoding) Type() encodings.Encoding { return encodings.ZlibHex }
func (*ZlibHexEncoding) String() string           { return "ZlibHexEncoding" }
func (*ZlibHexEncoding) Marshal() ([]byte, error) { return nil, nil }

// Read walks the rectangle's tiles; each tile's method byte selects its
// transport: 0 is uncompressed, 1 and 2 select one of the two
// independent inflate streams.
func (*ZlibHexEncoding) Read(c *ClientConn, rect *Rectangle) (Encoding, error) {
	target := c.paintTarget()
	bpp := c.pixelFormat.BytesPerPixel()
	var bg, fg, rectFg RGB

	for ty := rect.Y; ty < rect.Y+rect.Height; ty += hextileTile {
		for tx := rect.X; tx < rect.X+rect.Width; tx += hextileTile {
			w := uint16(hextileTile)
			h := uint16(hextileTile)
			if rect.X+rect.Width-tx < hextileTile {
				w = rect.X + rect.Width - tx
			}
			if rect.Y+rect.Height-ty < hextileTile {
				h = rect.Y + rect.Height - ty
			}

			var method uint8
			if err := c.receive(&method); err != nil {
				return nil, fmt.Errorf("zlibhex: tile method: %w", err)
			}

			var src byteSource = connByteSource{c}
			tileRect := &Rectangle{X: tx, Y: ty, Width: w, Height: h}

			if method != 0 {
				if method > 2 {
					return nil, fmt.Errorf("zlibhex: unsupported tile method %d", method)
				}
				var length uint16
				if err := c.receive(&length); err != nil {
					return nil, fmt.Errorf("zlibhex: compressed length: %w", err)
				}
				compressed, err := c.readFull(int(length))
				if err != nil {
					return nil, fmt.Errorf("zlibhex: compressed tile data: %w", err)
				}
				decompressed, err := c.inflateStream(&c.zlibHexStreams[method-1], compressed)
				if err != nil {
					return nil, fmt.Errorf("zlibhex: %w", err)
				}
				src = memByteSource{r: bytes.NewReader(decompressed)}
			}

			if err := decodeHextileTileInto(src, c, target, tileRect, bpp, &bg, &fg, &rectFg); err != nil {
				return nil, err
			}
		}
	}
	return &ZlibHexEncoding{}, nil
}

// decodeHextileTileInto decodes exactly one tile (not a whole
// rectangle) from src, carrying bg/fg state across calls; both
// decodeHextileRect and ZlibHexEncoding.Read call it once per tile.
func decodeHextileTileInto(src byteSource, c *ClientConn, target Surface, t *Rectangle, bpp int, bg, fg, rectFg *RGB) error {
	mask, err := src.ReadByte()
	if err != nil {
		return fmt.Errorf("hextile: subencoding mask: %w", err)
	}

	if mask&0x01 != 0 {
		data, err := src.ReadFull(int(t.Width) * int(t.Height) * bpp)
		if err != nil {
			return fmt.Errorf("hextile: raw tile: %w", err)
		}
		target.PutBox(int(t.X), int(t.Y), int(t.Width), int(t.Height), data, c.pixelFormat, &c.colorMap)
		*fg = *rectFg
		return nil
	}

	if mask&0x02 != 0 {
		pix, err := readPixelRGBFrom(src, c, bpp)
		if err != nil {
			return fmt.Errorf("hextile: background pixel: %w", err)
		}
		*bg = pix
	}
	if mask&0x04 != 0 {
		pix, err := readPixelRGBFrom(src, c, bpp)
		if err != nil {
			return fmt.Errorf("hextile: foreground pixel: %w", err)
		}
		*fg = pix
		*rectFg = pix
	}

	target.SetForeground(*bg)
	target.DrawBox(int(t.X), int(t.Y), int(t.Width), int(t.Height))

	if mask&0x08 != 0 {
		nb, err := src.ReadByte()
		if err != nil {
			return fmt.Errorf("hextile: sub-rect count: %w", err)
		}
		colored := mask&0x10 != 0
		for i := 0; i < int(nb); i++ {
			sub := *fg
			if colored {
				pix, err := readPixelRGBFrom(src, c, bpp)
				if err != nil {
					return fmt.Errorf("hextile: sub-rect %d pixel: %w", i, err)
				}
				sub = pix
			}
			xy, err := src.ReadByte()
			if err != nil {
				return fmt.Errorf("hextile: sub-rect %d xy: %w", i, err)
			}
			wh, err := src.ReadByte()
			if err != nil {
				return fmt.Errorf("hextile: sub-rect %d wh: %w", i, err)
			}
			sx := (xy >> 4) & 0x0F
			sy := xy & 0x0F
			sw := ((wh >> 4) & 0x0F) + 1
			sh := (wh & 0x0F) + 1
			target.SetForeground(sub)
			target.DrawBox(int(t.X)+int(sx), int(t.Y)+int(sy), int(sw), int(sh))
		}
	}

	*fg = *rectFg
	return nil
}
