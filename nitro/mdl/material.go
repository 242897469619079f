package mdl

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/scurest/apicula/nitro"
	"github.com/scurest/apicula/nitro/tex"
	"github.com/scurest/apicula/utils"
)

// Material holds drawing state: colors, alpha, culling, and the name
// of the texture/palette pair it wants. The names are resolved against
// whatever TEX0s are supplied alongside the model.
type Material struct {
	Name nitro.Name

	TextureName *nitro.Name
	PaletteName *nitro.Name
	Params      tex.Params
	Width       uint16
	Height      uint16

	Diffuse                     [3]float32
	DiffuseIsDefaultVertexColor bool
	Ambient                     [3]float32
	Specular                    [3]float32
	EnableShininessTable        bool
	Emission                    [3]float32
	Alpha                       float32

	CullBackface  bool
	CullFrontface bool

	TextureMat mgl32.Mat4
}

func readMaterials(bs *utils.BufStack) ([]Material, error) {
	texturePairingOff := int(bs.ReadU16())
	palettePairingOff := int(bs.ReadU16())
	if err := bs.Err(); err != nil {
		return nil, errors.Wrap(err, "truncated material section")
	}

	records, err := nitro.ReadInfoBlock(bs.SubBuf("material list", bs.Pos()), 4)
	if err != nil {
		return nil, errors.Wrap(err, "material list")
	}

	materials := make([]Material, 0, len(records))
	for _, rec := range records {
		material, err := readMaterial(bs.SubBuf("material", int(rec.U32())), rec.Name)
		if err != nil {
			return nil, errors.Wrapf(err, "material %s", rec.Name)
		}
		materials = append(materials, material)
	}

	// Texture and palette names are not stored on the material itself.
	// Instead each texture name lists the ids of the materials that use
	// it, and likewise for palettes.
	pair := func(off int, assign func(m *Material, name nitro.Name)) error {
		pairings, err := nitro.ReadInfoBlock(bs.SubBuf("pairings", off), 4)
		if err != nil {
			return err
		}
		for _, rec := range pairings {
			idsOff := int(rec.Data.U16(0))
			num := int(rec.Data.Byte(2))
			ids := bs.SubBuf("material ids", idsOff).Read(num)
			if err := bs.Err(); err != nil {
				return err
			}
			for _, matID := range ids {
				if int(matID) >= len(materials) {
					return errors.Errorf("pairing for %s names material %d of %d", rec.Name, matID, len(materials))
				}
				assign(&materials[matID], rec.Name)
			}
		}
		return nil
	}

	err = pair(texturePairingOff, func(m *Material, name nitro.Name) {
		n := name
		m.TextureName = &n
	})
	if err != nil {
		return nil, errors.Wrap(err, "texture pairings")
	}
	err = pair(palettePairingOff, func(m *Material, name nitro.Name) {
		n := name
		m.PaletteName = &n
	})
	if err != nil {
		return nil, errors.Wrap(err, "palette pairings")
	}

	return materials, nil
}

func readMaterial(bs *utils.BufStack, name nitro.Name) (Material, error) {
	bs.Skip(2) // dummy
	bs.Skip(2) // size
	difAmb := bs.ReadU32()
	speEmi := bs.ReadU32()
	polygonAttr := bs.ReadU32()
	polygonAttrMask := bs.ReadU32()
	teximageParam := bs.ReadU32()
	bs.Skip(4) // seems to be a boolean flag
	bs.Skip(2) // palette base
	misc := bs.ReadU16()
	width := bs.ReadU16()
	height := bs.ReadU16()
	bs.Skip(8) // two fixed-point values, usually 1.0
	if err := bs.Err(); err != nil {
		return Material{}, errors.Wrap(err, "truncated material")
	}

	rgb := func(x uint32) [3]float32 {
		return [3]float32{
			float32(utils.Bits(x, 0, 5)) / 31.0,
			float32(utils.Bits(x, 5, 10)) / 31.0,
			float32(utils.Bits(x, 10, 15)) / 31.0,
		}
	}

	m := Material{
		Name:                        name,
		Params:                      tex.Params(teximageParam & polygonAttrMask),
		Width:                       width,
		Height:                      height,
		Diffuse:                     rgb(utils.Bits(difAmb, 0, 15)),
		DiffuseIsDefaultVertexColor: utils.Bits(difAmb, 15, 16) != 0,
		Ambient:                     rgb(utils.Bits(difAmb, 16, 31)),
		Specular:                    rgb(utils.Bits(speEmi, 0, 15)),
		EnableShininessTable:        utils.Bits(speEmi, 15, 16) != 0,
		Emission:                    rgb(utils.Bits(speEmi, 16, 31)),
		Alpha:                       float32(utils.Bits(polygonAttr, 16, 21)) / 31.0,
		CullBackface:                utils.Bits(polygonAttr, 6, 7) == 0,
		CullFrontface:               utils.Bits(polygonAttr, 7, 8) == 0,
		TextureMat:                  mgl32.Ident4(),
	}

	// Optional texture matrix. Only the pure-scale form is understood.
	if misc&1 != 0 {
		haveX := utils.Bits16(misc, 1, 2) == 0
		haveY := utils.Bits16(misc, 2, 3) == 0
		haveZ := utils.Bits16(misc, 3, 4) == 0

		if haveX && !haveY && !haveZ {
			sx := utils.Fix32(bs.ReadU32(), true, 19, 12)
			sy := utils.Fix32(bs.ReadU32(), true, 19, 12)
			if err := bs.Err(); err != nil {
				return Material{}, errors.Wrap(err, "truncated texture matrix")
			}
			m.TextureMat = mgl32.Scale3D(sx, sy, 1)
		}
	}

	return m, nil
}
