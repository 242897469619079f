package tex

import (
	"github.com/pkg/errors"

	"github.com/scurest/apicula/nitro"
	"github.com/scurest/apicula/utils"
)

// Texture is a named texel block plus its innate parameter word. The
// texel bytes live in the shared per-section data blocks; a texture
// only remembers its offset into them.
type Texture struct {
	Name   nitro.Name
	Params Params

	data *blocks
}

// Palette is a named offset into the section's palette block. Its
// length isn't stored anywhere; color lookups are bounds checked
// against the end of the block instead.
type Palette struct {
	Name nitro.Name
	Off  uint32

	data *blocks
}

type blocks struct {
	textureData     []byte
	paletteData     []byte
	compressedData1 []byte
	compressedData2 []byte
}

// ReadTEX0 reads all textures and palettes out of a TEX0 section.
func ReadTEX0(section *nitro.Section) ([]*Texture, []*Palette, error) {
	bs := section.Cur()

	bs.Skip(4) // stamp
	bs.Skip(4) // section size
	bs.Skip(4)
	textureDataSize := int(bs.ReadU16()) << 3
	textureOff := int(bs.ReadU16())
	bs.Skip(4)
	textureDataOff := int(bs.ReadU32())
	bs.Skip(4)
	compressedData1Size := int(bs.ReadU16()) << 3
	compressedInfoOff := int(bs.ReadU16())
	_ = compressedInfoOff
	bs.Skip(4)
	compressedData1Off := int(bs.ReadU32())
	compressedData2Off := int(bs.ReadU32())
	bs.Skip(4)
	paletteDataSize := int(bs.ReadU16()) << 3
	bs.Skip(2)
	paletteOff := int(bs.ReadU32())
	paletteDataOff := int(bs.ReadU32())
	if err := bs.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "truncated TEX0 header")
	}

	sub := func(kind string, off, size int) *utils.BufStack {
		return bs.SubBuf(kind, off).SetSize(size)
	}
	data := &blocks{
		textureData:     sub("texture data", textureDataOff, textureDataSize).Raw(),
		paletteData:     sub("palette data", paletteDataOff, paletteDataSize).Raw(),
		compressedData1: sub("compressed data", compressedData1Off, compressedData1Size).Raw(),
		compressedData2: sub("compressed extra", compressedData2Off, compressedData1Size/2).Raw(),
	}
	if err := bs.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "TEX0 data blocks out of bounds")
	}

	textureRecords, err := nitro.ReadInfoBlock(bs.SubBuf("textures", textureOff), 8)
	if err != nil {
		return nil, nil, errors.Wrap(err, "TEX0 texture list")
	}
	textures := make([]*Texture, 0, len(textureRecords))
	for _, rec := range textureRecords {
		textures = append(textures, &Texture{
			Name:   rec.Name,
			Params: Params(rec.U32()),
			data:   data,
		})
	}

	paletteRecords, err := nitro.ReadInfoBlock(bs.SubBuf("palettes", paletteOff), 4)
	if err != nil {
		return nil, nil, errors.Wrap(err, "TEX0 palette list")
	}
	palettes := make([]*Palette, 0, len(paletteRecords))
	for _, rec := range paletteRecords {
		palettes = append(palettes, &Palette{
			Name: rec.Name,
			Off:  uint32(rec.U16()) << 3,
			data: data,
		})
	}

	return textures, palettes, nil
}
