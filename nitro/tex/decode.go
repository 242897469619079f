package tex

import (
	"encoding/binary"
	"image"

	"github.com/pkg/errors"

	"github.com/scurest/apicula/nitro"
	"github.com/scurest/apicula/utils"
)

// Decode expands a texture/palette combo into an RGBA raster. An
// out-of-range palette index decodes to transparent black; real files
// rely on the hardware's permissiveness here, so it isn't an error.
func Decode(t *Texture, pal *Palette) (*image.NRGBA, error) {
	format := t.Params.Format()
	if format.Desc().RequiresPalette && pal == nil {
		return nil, errors.Errorf("texture %s (%s) requires a palette",
			t.Name, format.Desc().Name)
	}

	w, h := t.Params.Width(), t.Params.Height()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))

	var lookup paletteLookup
	if pal != nil {
		lookup = paletteLookup{block: pal.data.paletteData, off: int(pal.Off)}
	}

	off := int(t.Params.Offset())
	byteLen := format.ByteLen(w, h)
	data := t.data.textureData
	if format == FormatCompressed {
		data = t.data.compressedData1
	}
	if off+byteLen > len(data) {
		return nil, errors.Errorf("texture %s: %d texel bytes at 0x%x exceed the data block (0x%x bytes)",
			t.Name, byteLen, off, len(data))
	}
	texels := data[off : off+byteLen]

	switch format {
	case FormatA3I5:
		decodeA3I5(img, texels, lookup)
	case FormatPalette4:
		decodePaletted(img, texels, lookup, 2, t.Params.IsColor0Transparent())
	case FormatPalette16:
		decodePaletted(img, texels, lookup, 4, t.Params.IsColor0Transparent())
	case FormatPalette256:
		decodePaletted(img, texels, lookup, 8, t.Params.IsColor0Transparent())
	case FormatCompressed:
		extraOff := off / 2
		extraLen := byteLen / 2
		extra := t.data.compressedData2
		if extraOff+extraLen > len(extra) {
			return nil, errors.Errorf("texture %s: compressed extra data out of bounds", t.Name)
		}
		decodeCompressed(img, texels, extra[extraOff:extraOff+extraLen], lookup, w, h)
	case FormatA5I3:
		decodeA5I3(img, texels, lookup)
	case FormatDirect:
		decodeDirect(img, texels)
	default:
		return nil, &nitro.ErrUnsupportedFormat{What: "texture format", Value: uint32(format)}
	}

	return img, nil
}

type paletteLookup struct {
	block []byte
	off   int
}

// color returns the RGBA pixel for palette index n with the given
// 5-bit alpha, or transparent black if n runs past the palette block.
func (p paletteLookup) color(n int, a5 uint8) [4]uint8 {
	at := p.off + 2*n
	if at < 0 || at+2 > len(p.block) {
		return [4]uint8{0, 0, 0, 0}
	}
	rgb := binary.LittleEndian.Uint16(p.block[at:])
	return rgb555a5(rgb, a5)
}

func putPixel(img *image.NRGBA, n int, px [4]uint8) {
	copy(img.Pix[4*n:4*n+4], px[:])
}

func decodeA3I5(img *image.NRGBA, texels []byte, pal paletteLookup) {
	for n, x := range texels {
		idx := int(x & 0x1f)
		a := a3ToA5(x >> 5)
		putPixel(img, n, pal.color(idx, a))
	}
}

func decodeA5I3(img *image.NRGBA, texels []byte, pal paletteLookup) {
	for n, x := range texels {
		idx := int(x & 7)
		a := x >> 3
		putPixel(img, n, pal.color(idx, a))
	}
}

func decodePaletted(img *image.NRGBA, texels []byte, pal paletteLookup, bpp uint, color0Transparent bool) {
	n := 0
	for _, x := range texels {
		for shift := uint(0); shift < 8; shift += bpp {
			u := int(x>>shift) & ((1 << bpp) - 1)
			px := pal.color(u, 31)
			if u == 0 && color0Transparent {
				px = [4]uint8{0, 0, 0, 0}
			}
			putPixel(img, n, px)
			n++
		}
	}
}

func decodeDirect(img *image.NRGBA, texels []byte) {
	for n := 0; n+2 <= len(texels); n += 2 {
		texel := binary.LittleEndian.Uint16(texels[n:])
		var a uint8
		if texel&0x8000 != 0 {
			a = 31
		}
		putPixel(img, n/2, rgb555a5(texel, a))
	}
}

// decodeCompressed handles the 4x4 block format. Each block is a u32
// of 2-bit texel codes plus a u16 of extra bits: a palette address in
// the low 14 bits and a mode in the top 2. Depending on the mode the
// four codes select palette colors, a transparent pixel, or a blend of
// the two endpoint colors.
func decodeCompressed(img *image.NRGBA, data1, data2 []byte, pal paletteLookup, w, h int) {
	numBlocksX := w / 4

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			blockIdx := numBlocksX*(y/4) + x/4
			block := binary.LittleEndian.Uint32(data1[4*blockIdx:])
			extra := binary.LittleEndian.Uint16(data2[2*blockIdx:])

			texelOff := uint(2 * (4*(y%4) + x%4))
			texel := utils.Bits(block, texelOff, texelOff+2)

			mode := utils.Bits16(extra, 14, 16)
			palAddr := int(utils.Bits16(extra, 0, 14)) << 1

			color := func(n int) [4]uint8 {
				return pal.color(palAddr+n, 31)
			}

			var px [4]uint8
			switch {
			case mode == 0 && texel == 3:
				px = [4]uint8{0, 0, 0, 0}
			case mode == 1 && texel == 2:
				px = avg(color(0), color(1))
			case mode == 1 && texel == 3:
				px = [4]uint8{0, 0, 0, 0}
			case mode == 3 && texel == 2:
				px = avg358(color(1), color(0))
			case mode == 3 && texel == 3:
				px = avg358(color(0), color(1))
			default:
				px = color(int(texel))
			}

			putPixel(img, y*w+x, px)
		}
	}
}

func rgb555a5(rgb555 uint16, a5 uint8) [4]uint8 {
	r5 := uint8(rgb555 & 0x1f)
	g5 := uint8((rgb555 >> 5) & 0x1f)
	b5 := uint8((rgb555 >> 10) & 0x1f)
	return [4]uint8{
		extend5To8(r5),
		extend5To8(g5),
		extend5To8(b5),
		extend5To8(a5),
	}
}

func a3ToA5(x uint8) uint8 {
	return (x << 2) | (x >> 1)
}

func extend5To8(x uint8) uint8 {
	return (x << 3) | (x >> 2)
}

// (c1 + c2) / 2
func avg(c1, c2 [4]uint8) [4]uint8 {
	var out [4]uint8
	for i := range out {
		out[i] = uint8((uint32(c1[i]) + uint32(c2[i])) / 2)
	}
	return out
}

// (3*c1 + 5*c2) / 8
func avg358(c1, c2 [4]uint8) [4]uint8 {
	var out [4]uint8
	for i := range out {
		out[i] = uint8((3*uint32(c1[i]) + 5*uint32(c2[i])) / 8)
	}
	return out
}
