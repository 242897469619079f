package tex

import "github.com/scurest/apicula/utils"

// Texture format codes stored in the params word.
const (
	FormatNone       = 0
	FormatA3I5       = 1
	FormatPalette4   = 2
	FormatPalette16  = 3
	FormatPalette256 = 4
	FormatCompressed = 5
	FormatA5I3       = 6
	FormatDirect     = 7
)

type Format uint8

type FormatDesc struct {
	Name            string
	RequiresPalette bool
	BitsPerTexel    int
}

var formatDescs = [8]FormatDesc{
	{"None", false, 0},
	{"A3I5 Translucent Texture", true, 8},
	{"4-Color Palette Texture", true, 2},
	{"16-Color Palette Texture", true, 4},
	{"256-Color Palette Texture", true, 8},
	{"Block-Compressed Texture", true, 2},
	{"A5I3 Translucent Texture", true, 8},
	{"Direct RGBA Texture", false, 16},
}

func (f Format) Desc() FormatDesc {
	return formatDescs[f&7]
}

// ByteLen is how many bytes a w x h texture occupies in this format.
func (f Format) ByteLen(w, h int) int {
	return w * h * f.Desc().BitsPerTexel / 8
}

// Params is the texture parameter word. One is stored with the texture
// itself (innate properties like format and size) and one with each
// material (ephemeral properties like repeat and mirror); at bind time
// they are combined.
type Params uint32

func (p Params) Offset() uint32 {
	return utils.Bits(uint32(p), 0, 16) << 3
}

func (p Params) RepeatS() bool { return utils.Bits(uint32(p), 16, 17) != 0 }
func (p Params) RepeatT() bool { return utils.Bits(uint32(p), 17, 18) != 0 }
func (p Params) MirrorS() bool { return utils.Bits(uint32(p), 18, 19) != 0 }
func (p Params) MirrorT() bool { return utils.Bits(uint32(p), 19, 20) != 0 }

func (p Params) Width() int {
	return 8 << utils.Bits(uint32(p), 20, 23)
}

func (p Params) Height() int {
	return 8 << utils.Bits(uint32(p), 23, 26)
}

func (p Params) Format() Format {
	return Format(utils.Bits(uint32(p), 26, 29))
}

func (p Params) IsColor0Transparent() bool {
	return utils.Bits(uint32(p), 29, 30) != 0
}

func (p Params) TexcoordTransformMode() uint8 {
	return uint8(utils.Bits(uint32(p), 30, 32))
}
