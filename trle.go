package rfb

import (
	"fmt"

	"github.com/coreframe/rfbclient/encodings"
)

// TRLEEncoding iterates 16x16 tiles, each independently choosing a
// run-length subencoding (§4.4 table). ZRLE reuses the tile decoder
// with a 64x64 tile size, no subencoding 127/129 "reuse palette", and
// CPIXEL-compacted pixels for qualifying 32-bit formats.
type TRLEEncoding struct{}

var _ Encoding = (*TRLEEncoding)(nil)

func (*TRLEEncoding) Type() encodings.Encoding { return encodings.TRLE }
func (*TRLEEncoding) String() string           { return "TRLEEncoding" }
func (*TRLEEncoding) Marshal() ([]byte, error) { return nil, nil }

const trleTile = 16

func (*TRLEEncoding) Read(c *ClientConn, rect *Rectangle) (Encoding, error) {
	cpixel := c.pixelFormat.IsCPixelCapable()
	if err := decodeRLERect(connByteSource{c}, c, rect, trleTile, cpixel, true); err != nil {
		return nil, fmt.Errorf("trle: %w", err)
	}
	return &TRLEEncoding{}, nil
}

// readCPixelRGB reads one pixel, compacted to 3 bytes when cpixel is
// set (GLOSSARY "CPIXEL"), and resolves it to display RGB.
func readCPixelRGB(src byteSource, c *ClientConn, cpixel bool) (RGB, error) {
	n := c.pixelFormat.BytesPerPixel()
	if cpixel {
		n = 3
	}
	data, err := src.ReadFull(n)
	if err != nil {
		return RGB{}, err
	}
	var full [4]byte
	if cpixel {
		// The omitted byte is always the all-zero high-order byte for a
		// qualifying format, wherever the three significant bytes sit
		// in the 32-bit word's little/big-endian layout.
		if c.pixelFormat.BigEndian {
			copy(full[1:], data)
		} else {
			copy(full[:3], data)
		}
		data = full[:4]
	}
	v, err := c.pixelFormat.DecodePixel(data)
	if err != nil {
		return RGB{}, err
	}
	r, g, b := c.pixelFormat.Resolve(v, &c.colorMap)
	return RGB{r, g, b}, nil
}

// readRunLength reads a run-length value coded as zero or more 0xFF
// bytes followed by a final byte; the run length is the sum plus one
// (§4.4 table).
func readRunLength(src byteSource) (int, error) {
	total := 0
	for {
		b, err := src.ReadByte()
		if err != nil {
			return 0, err
		}
		total += int(b)
		if b != 0xFF {
			return total + 1, nil
		}
	}
}

// decodeRLERect runs the TRLE/ZRLE tile loop over rect, with tileSize
// 16 for TRLE and 64 for ZRLE. allowReuse enables subencodings 127
// (reuse-palette packed) and 129 (palette RLE using the reused
// palette); ZRLE disables both per §4.4.
func decodeRLERect(src byteSource, c *ClientConn, rect *Rectangle, tileSize int, cpixel, allowReuse bool) error {
	target := c.paintTarget()
	var palette [128]RGB
	paletteSize := 0

	for ty := rect.Y; ty < rect.Y+rect.Height; ty += uint16(tileSize) {
		for tx := rect.X; tx < rect.X+rect.Width; tx += uint16(tileSize) {
			w := uint16(tileSize)
			h := uint16(tileSize)
			if rect.X+rect.Width-tx < uint16(tileSize) {
				w = rect.X + rect.Width - tx
			}
			if rect.Y+rect.Height-ty < uint16(tileSize) {
				h = rect.Y + rect.Height - ty
			}

			sub, err := src.ReadByte()
			if err != nil {
				return fmt.Errorf("subencoding byte: %w", err)
			}

			switch {
			case sub == 0: // raw
				for y := uint16(0); y < h; y++ {
					for x := uint16(0); x < w; x++ {
						px, err := readCPixelRGB(src, c, cpixel)
						if err != nil {
							return fmt.Errorf("raw pixel: %w", err)
						}
						target.PutPixel(int(tx+x), int(ty+y), px)
					}
				}

			case sub == 1: // solid
				px, err := readCPixelRGB(src, c, cpixel)
				if err != nil {
					return fmt.Errorf("solid pixel: %w", err)
				}
				target.SetForeground(px)
				target.DrawBox(int(tx), int(ty), int(w), int(h))

			case sub >= 2 && sub <= 16: // packed palette
				size := int(sub)
				for i := 0; i < size; i++ {
					px, err := readCPixelRGB(src, c, cpixel)
					if err != nil {
						return fmt.Errorf("palette entry %d: %w", i, err)
					}
					palette[i] = px
				}
				paletteSize = size
				if err := decodePackedPalette(src, target, tx, ty, w, h, palette[:size]); err != nil {
					return err
				}

			case allowReuse && sub == 127: // reuse-palette packed
				if err := decodePackedPalette(src, target, tx, ty, w, h, palette[:paletteSize]); err != nil {
					return err
				}

			case sub == 128: // plain RLE
				painted := 0
				total := int(w) * int(h)
				for painted < total {
					px, err := readCPixelRGB(src, c, cpixel)
					if err != nil {
						return fmt.Errorf("rle pixel: %w", err)
					}
					n, err := readRunLength(src)
					if err != nil {
						return fmt.Errorf("rle run length: %w", err)
					}
					painted = paintRun(target, tx, ty, w, painted, n, px)
				}

			case allowReuse && sub == 129: // palette RLE, reused palette
				if err := decodePaletteRLE(src, target, tx, ty, w, h, palette[:paletteSize]); err != nil {
					return err
				}

			case sub >= 130: // palette RLE, size = sub-128
				size := int(sub) - 128
				for i := 0; i < size; i++ {
					px, err := readCPixelRGB(src, c, cpixel)
					if err != nil {
						return fmt.Errorf("palette entry %d: %w", i, err)
					}
					palette[i] = px
				}
				paletteSize = size
				if err := decodePaletteRLE(src, target, tx, ty, w, h, palette[:size]); err != nil {
					return err
				}

			default:
				return fmt.Errorf("unsupported subencoding %d", sub)
			}
		}
	}
	return nil
}

// bitsForPalette returns the packed-palette bit width RFC 6143 assigns
// to a palette of the given size (1, 2 or 4 bits per index).
func bitsForPalette(size int) int {
	switch {
	case size <= 2:
		return 1
	case size <= 4:
		return 2
	default:
		return 4
	}
}

func decodePackedPalette(src byteSource, target Surface, tx, ty, w, h uint16, palette []RGB) error {
	bits := bitsForPalette(len(palette))
	rowBytes := (int(w)*bits + 7) / 8
	for y := uint16(0); y < h; y++ {
		row, err := src.ReadFull(rowBytes)
		if err != nil {
			return fmt.Errorf("packed palette row: %w", err)
		}
		bitPos := 0
		for x := uint16(0); x < w; x++ {
			byteIdx := bitPos / 8
			shift := 8 - bits - (bitPos % 8)
			idx := (row[byteIdx] >> uint(shift)) & ((1 << uint(bits)) - 1)
			if int(idx) < len(palette) {
				target.PutPixel(int(tx+x), int(ty+y), palette[idx])
			}
			bitPos += bits
		}
	}
	return nil
}

func decodePaletteRLE(src byteSource, target Surface, tx, ty, w, h uint16, palette []RGB) error {
	painted := 0
	total := int(w) * int(h)
	for painted < total {
		idxByte, err := src.ReadByte()
		if err != nil {
			return fmt.Errorf("palette rle index: %w", err)
		}
		n := 1
		if idxByte&0x80 != 0 {
			n, err = readRunLength(src)
			if err != nil {
				return fmt.Errorf("palette rle run length: %w", err)
			}
		}
		idx := idxByte &^ 0x80
		if int(idx) >= len(palette) {
			return fmt.Errorf("palette index %d out of range", idx)
		}
		painted = paintRun(target, tx, ty, w, painted, n, palette[idx])
	}
	return nil
}

// paintRun paints n consecutive pixels in raster order starting at
// tile-relative offset `painted`, wrapping rows at width w, and
// returns the new painted count.
func paintRun(target Surface, tx, ty, w uint16, painted, n int, px RGB) int {
	for i := 0; i < n; i++ {
		pos := painted + i
		x := int(tx) + pos%int(w)
		y := int(ty) + pos/int(w)
		target.PutPixel(x, y, px)
	}
	return painted + n
}
