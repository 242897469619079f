package tex

import (
	"image"
	"testing"

	"github.com/scurest/apicula/nitro"
)

// An 8x8 texture is the smallest the parameter word can express.
const testW, testH = 8, 8

// Red, green, blue, white at full 5-bit intensity.
var testPalette = []byte{
	0x1f, 0x00,
	0xe0, 0x03,
	0x00, 0x7c,
	0xff, 0x7f,
}

func makeParams(format Format, color0Transparent bool) Params {
	p := uint32(format) << 26
	if color0Transparent {
		p |= 1 << 29
	}
	return Params(p) // width and height bits zero = 8x8
}

func makeTexture(format Format, color0Transparent bool, b *blocks) (*Texture, *Palette) {
	t := &Texture{
		Name:   nitro.NameFromString("tex"),
		Params: makeParams(format, color0Transparent),
		data:   b,
	}
	pal := &Palette{
		Name: nitro.NameFromString("pal"),
		Off:  0,
		data: b,
	}
	return t, pal
}

func px(img *image.NRGBA, x, y int) [4]uint8 {
	n := 4 * (y*testW + x)
	return [4]uint8{img.Pix[n], img.Pix[n+1], img.Pix[n+2], img.Pix[n+3]}
}

func TestDecodePaletted(t *testing.T) {
	// 4bpp, color 0 transparent. First byte holds pixels (0,0)=0 and
	// (1,0)=1.
	texels := make([]byte, testW*testH/2)
	texels[0] = 0x10
	tex, pal := makeTexture(FormatPalette16, true, &blocks{
		textureData: texels,
		paletteData: testPalette,
	})

	img, err := Decode(tex, pal)
	if err != nil {
		t.Fatal(err)
	}
	if got := px(img, 0, 0); got != [4]uint8{0, 0, 0, 0} {
		t.Errorf("(0,0) = %v; expected transparent (color 0)", got)
	}
	if got := px(img, 1, 0); got != [4]uint8{0, 255, 0, 255} {
		t.Errorf("(1,0) = %v; expected green", got)
	}
}

func TestDecodePalettedOutOfRange(t *testing.T) {
	// Indices past the end of the palette block decode to transparent
	// black; the hardware doesn't care and neither do real files.
	texels := make([]byte, testW*testH)
	texels[0] = 200
	texels[1] = 1
	tex, pal := makeTexture(FormatPalette256, false, &blocks{
		textureData: texels,
		paletteData: testPalette,
	})

	img, err := Decode(tex, pal)
	if err != nil {
		t.Fatal(err)
	}
	if got := px(img, 0, 0); got != [4]uint8{0, 0, 0, 0} {
		t.Errorf("(0,0) = %v; expected transparent black", got)
	}
	if got := px(img, 1, 0); got != [4]uint8{0, 255, 0, 255} {
		t.Errorf("(1,0) = %v; expected green", got)
	}
}

func TestDecodeA3I5(t *testing.T) {
	texels := make([]byte, testW*testH)
	texels[0] = 7<<5 | 1 // full alpha, green
	texels[1] = 2<<5 | 0 // a3=2 -> a5=9, red
	tex, pal := makeTexture(FormatA3I5, false, &blocks{
		textureData: texels,
		paletteData: testPalette,
	})

	img, err := Decode(tex, pal)
	if err != nil {
		t.Fatal(err)
	}
	if got := px(img, 0, 0); got != [4]uint8{0, 255, 0, 255} {
		t.Errorf("(0,0) = %v; expected opaque green", got)
	}
	if got := px(img, 1, 0); got != [4]uint8{255, 0, 0, 74} {
		t.Errorf("(1,0) = %v; expected red with alpha 74", got)
	}
}

func TestDecodeA5I3(t *testing.T) {
	texels := make([]byte, testW*testH)
	texels[0] = 16<<3 | 2 // half alpha, blue
	tex, pal := makeTexture(FormatA5I3, false, &blocks{
		textureData: texels,
		paletteData: testPalette,
	})

	img, err := Decode(tex, pal)
	if err != nil {
		t.Fatal(err)
	}
	if got := px(img, 0, 0); got != [4]uint8{0, 0, 255, 132} {
		t.Errorf("(0,0) = %v; expected blue with alpha 132", got)
	}
}

func TestDecodeDirect(t *testing.T) {
	texels := make([]byte, testW*testH*2)
	texels[0], texels[1] = 0x1f, 0x80 // red, alpha bit set
	texels[2], texels[3] = 0x1f, 0x00 // red, alpha bit clear
	tex, _ := makeTexture(FormatDirect, false, &blocks{
		textureData: texels,
	})

	img, err := Decode(tex, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := px(img, 0, 0); got != [4]uint8{255, 0, 0, 255} {
		t.Errorf("(0,0) = %v; expected opaque red", got)
	}
	if got := px(img, 1, 0); got != [4]uint8{255, 0, 0, 0} {
		t.Errorf("(1,0) = %v; expected transparent red", got)
	}
}

func TestDecodeCompressed(t *testing.T) {
	// Four 4x4 blocks exercising every mode. Texel codes are 2 bits at
	// offset 2*(4*y + x) within the block word.
	data1 := make([]byte, 16)
	data1[0] = 3 << 2 // block 0: (0,0) code 0, (1,0) code 3
	data1[4] = 2      // block 1: (0,0) code 2
	data1[8] = 2 | 3<<2
	data1[12] = 1 // block 3: (0,0) code 1

	data2 := []byte{
		0x00, 0x00, // mode 0
		0x00, 0x40, // mode 1
		0x00, 0xc0, // mode 3
		0x00, 0x80, // mode 2
	}

	tex, pal := makeTexture(FormatCompressed, false, &blocks{
		compressedData1: data1,
		compressedData2: data2,
		paletteData:     testPalette,
	})

	img, err := Decode(tex, pal)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		x, y int
		want [4]uint8
		desc string
	}{
		{0, 0, [4]uint8{255, 0, 0, 255}, "mode 0 code 0: palette color"},
		{1, 0, [4]uint8{0, 0, 0, 0}, "mode 0 code 3: transparent"},
		{4, 0, [4]uint8{127, 127, 0, 255}, "mode 1 code 2: average"},
		{0, 4, [4]uint8{159, 95, 0, 255}, "mode 3 code 2: 3:5 blend"},
		{1, 4, [4]uint8{95, 159, 0, 255}, "mode 3 code 3: 5:3 blend"},
		{4, 4, [4]uint8{0, 255, 0, 255}, "mode 2 code 1: palette color"},
	}
	for _, test := range tests {
		if got := px(img, test.x, test.y); got != test.want {
			t.Errorf("(%d,%d) = %v; expected %v (%s)", test.x, test.y, got, test.want, test.desc)
		}
	}
}

func TestDecodeMissingPalette(t *testing.T) {
	tex, _ := makeTexture(FormatPalette16, false, &blocks{
		textureData: make([]byte, testW*testH/2),
	})
	if _, err := Decode(tex, nil); err == nil {
		t.Error("paletted texture decoded without a palette")
	}
}
