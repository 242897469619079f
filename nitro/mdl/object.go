package mdl

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/scurest/apicula/nitro"
	"github.com/scurest/apicula/utils"
)

// Object is basically a matrix, typically one bone of a skeleton. The
// value stored in the file is the rest pose; animations replace it
// frame by frame.
type Object struct {
	Name nitro.Name

	Trans *mgl32.Vec3
	Rot   *mgl32.Mat3
	Scale *mgl32.Vec3

	// TRS matrix for the above.
	Matrix mgl32.Mat4
}

func readObjects(bs *utils.BufStack) ([]Object, error) {
	records, err := nitro.ReadInfoBlock(bs.SubBuf("object list", 0), 4)
	if err != nil {
		return nil, errors.Wrap(err, "object list")
	}

	objects := make([]Object, 0, len(records))
	for _, rec := range records {
		object, err := readObject(bs.SubBuf("object", int(rec.U32())), rec.Name)
		if err != nil {
			return nil, errors.Wrapf(err, "object %s", rec.Name)
		}
		objects = append(objects, object)
	}
	return objects, nil
}

func readObject(bs *utils.BufStack, name nitro.Name) (Object, error) {
	fx16 := func(x uint16) float32 { return utils.Fix16(x, true, 3, 12) }
	fx32 := func(x uint32) float32 { return utils.Fix32(x, true, 19, 12) }

	flags := bs.ReadU16()
	// First entry of the rotation matrix; stored up here, away from
	// the rest of the rotation data.
	m0 := bs.ReadU16()

	t := utils.Bits16(flags, 0, 1)
	r := utils.Bits16(flags, 1, 2)
	s := utils.Bits16(flags, 2, 3)
	p := utils.Bits16(flags, 3, 4)

	obj := Object{Name: name}

	if t == 0 {
		trans := mgl32.Vec3{fx32(bs.ReadU32()), fx32(bs.ReadU32()), fx32(bs.ReadU32())}
		obj.Trans = &trans
	}

	if p == 1 {
		a := fx16(bs.ReadU16())
		b := fx16(bs.ReadU16())
		sel := utils.Bits16(flags, 4, 8)
		neg := utils.Bits16(flags, 8, 12)
		rot, err := nitro.PivotMat(sel, neg, a, b)
		if err != nil {
			return Object{}, err
		}
		obj.Rot = &rot
	} else if r == 0 {
		var m [8]uint16
		for i := range m {
			m[i] = bs.ReadU16()
		}
		rot := mgl32.Mat3FromCols(
			mgl32.Vec3{fx16(m0), fx16(m[0]), fx16(m[1])},
			mgl32.Vec3{fx16(m[2]), fx16(m[3]), fx16(m[4])},
			mgl32.Vec3{fx16(m[5]), fx16(m[6]), fx16(m[7])},
		)
		obj.Rot = &rot
	}

	if s == 0 {
		scale := mgl32.Vec3{fx32(bs.ReadU32()), fx32(bs.ReadU32()), fx32(bs.ReadU32())}
		obj.Scale = &scale
	}

	if err := bs.Err(); err != nil {
		return Object{}, errors.Wrap(err, "truncated object")
	}

	obj.Matrix = mgl32.Ident4()
	if obj.Scale != nil {
		obj.Matrix = mgl32.Scale3D(obj.Scale.X(), obj.Scale.Y(), obj.Scale.Z())
	}
	if obj.Rot != nil {
		obj.Matrix = obj.Rot.Mat4().Mul4(obj.Matrix)
	}
	if obj.Trans != nil {
		obj.Matrix = mgl32.Translate3D(obj.Trans.X(), obj.Trans.Y(), obj.Trans.Z()).Mul4(obj.Matrix)
	}

	return obj, nil
}
