package anm

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/scurest/apicula/nitro"
	"github.com/scurest/apicula/utils"
)

// Animation from a JNT0 section: one set of TRS curves per object of
// the model it targets.
type Animation struct {
	Name         nitro.Name
	NumFrames    uint16
	ObjectCurves []TRSCurves
}

type TRSCurves struct {
	Trans    [3]FloatCurve
	Rotation MatCurve
	Scale    [3]FloatCurve
}

// SampleMatrix evaluates the TRS transform at a frame. Undefined
// channels fall back to the identity transform's values.
func (c *TRSCurves) SampleMatrix(frame uint16) mgl32.Mat4 {
	tx := c.Trans[0].Sample(0, frame)
	ty := c.Trans[1].Sample(0, frame)
	tz := c.Trans[2].Sample(0, frame)
	rot := c.Rotation.Sample(mgl32.Ident3(), frame)
	sx := c.Scale[0].Sample(1, frame)
	sy := c.Scale[1].Sample(1, frame)
	sz := c.Scale[2].Sample(1, frame)

	return mgl32.Translate3D(tx, ty, tz).
		Mul4(rot.Mat4()).
		Mul4(mgl32.Scale3D(sx, sy, sz))
}

// ReadJNT0 reads every animation in a JNT0 section.
func ReadJNT0(section *nitro.Section) ([]*Animation, error) {
	bs := section.Cur()
	bs.Skip(8) // stamp, section size

	records, err := nitro.ReadInfoBlock(bs.SubBuf("animations", bs.Pos()), 4)
	if err != nil {
		return nil, errors.Wrap(err, "JNT0 animation list")
	}

	anims := make([]*Animation, 0, len(records))
	for _, rec := range records {
		anim, err := readAnimation(bs.SubBuf("animation", int(rec.U32())), rec.Name)
		if err != nil {
			return nil, errors.Wrapf(err, "animation %s", rec.Name)
		}
		anims = append(anims, anim)
	}
	return anims, nil
}

func readAnimation(bs *utils.BufStack, name nitro.Name) (*Animation, error) {
	stamp := string(bs.Read(4))
	numFrames := bs.ReadU16()
	numObjects := int(bs.ReadU16())
	bs.Skip(4)
	pivotDataOff := int(bs.ReadU32())
	basisDataOff := int(bs.ReadU32())
	objectOffs := make([]int, numObjects)
	for i := range objectOffs {
		objectOffs[i] = int(bs.ReadU16())
	}
	if err := bs.Err(); err != nil {
		return nil, errors.Wrap(err, "truncated animation header")
	}
	if stamp != "J\x00AC" {
		return nil, errors.Errorf("animation stamp is %q, want \"J\\x00AC\"", stamp)
	}
	if numFrames == 0 {
		return nil, errors.New("animation has 0 frames")
	}

	// Rotation curves don't store matrices inline; they index into
	// these two shared tables.
	pivotData := bs.SubBuf("pivot data", pivotDataOff)
	basisData := bs.SubBuf("basis data", basisDataOff)

	anim := &Animation{
		Name:         name,
		NumFrames:    numFrames,
		ObjectCurves: make([]TRSCurves, numObjects),
	}
	for i, off := range objectOffs {
		curves, err := readObjectCurves(bs, bs.SubBuf("object curves", off), pivotData, basisData)
		if err != nil {
			return nil, errors.Wrapf(err, "object %d", i)
		}
		anim.ObjectCurves[i] = curves
	}
	return anim, nil
}

func readObjectCurves(base, bs, pivotData, basisData *utils.BufStack) (TRSCurves, error) {
	var out TRSCurves

	flags := bs.ReadU16()
	bs.Skip(1) // dummy
	bs.Skip(1) // object index
	if err := bs.Err(); err != nil {
		return out, errors.Wrap(err, "truncated curve flags")
	}

	animated := utils.Bits16(flags, 0, 1) == 0
	transAnimated := utils.Bits16(flags, 1, 3) == 0
	transConst := [3]bool{
		utils.Bits16(flags, 3, 4) != 0,
		utils.Bits16(flags, 4, 5) != 0,
		utils.Bits16(flags, 5, 6) != 0,
	}
	rotAnimated := utils.Bits16(flags, 6, 8) == 0
	rotConst := utils.Bits16(flags, 8, 9) != 0
	scaleAnimated := utils.Bits16(flags, 9, 11) == 0
	scaleConst := [3]bool{
		utils.Bits16(flags, 11, 12) != 0,
		utils.Bits16(flags, 12, 13) != 0,
		utils.Bits16(flags, 13, 14) != 0,
	}

	if !animated {
		return out, nil
	}

	if transAnimated {
		for i := 0; i < 3; i++ {
			if transConst[i] {
				out.Trans[i] = FloatCurve{
					Kind:     CurveConstant,
					Constant: utils.Fix32(bs.ReadU32(), true, 19, 12),
				}
				continue
			}

			info, ok := curveInfoFromU32(bs.ReadU32())
			off := int(bs.ReadU32())
			if err := bs.Err(); err != nil {
				return out, errors.Wrap(err, "truncated translation curve")
			}
			if !ok {
				return out, errors.New("translation curve has an empty frame range")
			}

			values := make([]float32, info.NumSamples())
			data := base.SubBuf("translation samples", off)
			for j := range values {
				if info.DataWidth == 0 {
					values[j] = utils.Fix32(data.ReadU32(), true, 19, 12)
				} else {
					values[j] = utils.Fix16(data.ReadU16(), true, 3, 12)
				}
			}
			if err := data.Err(); err != nil {
				return out, errors.Wrap(err, "translation samples out of bounds")
			}

			out.Trans[i] = FloatCurve{
				Kind:       CurveSampled,
				StartFrame: info.StartFrame,
				EndFrame:   info.EndFrame,
				Values:     values,
			}
		}
	}

	if rotAnimated {
		if rotConst {
			v := bs.ReadU16()
			bs.Skip(2) // padding
			mat, err := fetchRotation(v, pivotData, basisData)
			if err != nil {
				return out, err
			}
			out.Rotation = MatCurve{Kind: CurveConstant, Constant: mat}
		} else {
			info, ok := curveInfoFromU32(bs.ReadU32())
			off := int(bs.ReadU32())
			if err := bs.Err(); err != nil {
				return out, errors.Wrap(err, "truncated rotation curve")
			}
			if !ok {
				return out, errors.New("rotation curve has an empty frame range")
			}

			values := make([]mgl32.Mat3, info.NumSamples())
			data := base.SubBuf("rotation samples", off)
			for j := range values {
				mat, err := fetchRotation(data.ReadU16(), pivotData, basisData)
				if err != nil {
					return out, err
				}
				values[j] = mat
			}
			if err := data.Err(); err != nil {
				return out, errors.Wrap(err, "rotation samples out of bounds")
			}

			out.Rotation = MatCurve{
				Kind:       CurveSampled,
				StartFrame: info.StartFrame,
				EndFrame:   info.EndFrame,
				Values:     values,
			}
		}
	}

	if scaleAnimated {
		// Like translation but with two values per sample; the second
		// one's meaning is unknown and skipped.
		for i := 0; i < 3; i++ {
			if scaleConst[i] {
				out.Scale[i] = FloatCurve{
					Kind:     CurveConstant,
					Constant: utils.Fix32(bs.ReadU32(), true, 19, 12),
				}
				bs.Skip(4)
				continue
			}

			info, ok := curveInfoFromU32(bs.ReadU32())
			off := int(bs.ReadU32())
			if err := bs.Err(); err != nil {
				return out, errors.Wrap(err, "truncated scale curve")
			}
			if !ok {
				return out, errors.New("scale curve has an empty frame range")
			}

			values := make([]float32, info.NumSamples())
			data := base.SubBuf("scale samples", off)
			for j := range values {
				if info.DataWidth == 0 {
					values[j] = utils.Fix32(data.ReadU32(), true, 19, 12)
					data.Skip(4)
				} else {
					values[j] = utils.Fix16(data.ReadU16(), true, 3, 12)
					data.Skip(2)
				}
			}
			if err := data.Err(); err != nil {
				return out, errors.Wrap(err, "scale samples out of bounds")
			}

			out.Scale[i] = FloatCurve{
				Kind:       CurveSampled,
				StartFrame: info.StartFrame,
				EndFrame:   info.EndFrame,
				Values:     values,
			}
		}
	}

	return out, nil
}

// fetchRotation resolves one rotation reference. The top bit selects
// the table: pivot records are (selneg, a, b) like in the model files,
// basis records are five packed words.
func fetchRotation(x uint16, pivotData, basisData *utils.BufStack) (mgl32.Mat3, error) {
	mode := x >> 15
	idx := int(x & 0x7fff)

	if mode == 1 {
		selneg := pivotData.U16(6 * idx)
		a := utils.Fix16(pivotData.U16(6*idx+2), true, 3, 12)
		b := utils.Fix16(pivotData.U16(6*idx+4), true, 3, 12)
		if err := pivotData.Err(); err != nil {
			return mgl32.Ident3(), errors.Wrap(err, "pivot record out of bounds")
		}
		return nitro.PivotMat(utils.Bits16(selneg, 0, 4), utils.Bits16(selneg, 4, 8), a, b)
	}

	var in [5]uint16
	for i := range in {
		in[i] = basisData.U16(10*idx + 2*i)
	}
	if err := basisData.Err(); err != nil {
		return mgl32.Ident3(), errors.Wrap(err, "basis record out of bounds")
	}
	return nitro.BasisMat(in), nil
}
