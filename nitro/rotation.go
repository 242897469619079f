package nitro

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/scurest/apicula/utils"
)

// PivotMat decodes the compact rotation form used for axis-aligned
// rotations. The matrix has one row and one column that hold only a
// single +-1 (the pivot); select picks where the pivot goes and the
// remaining four entries come from a and b with signs from neg.
func PivotMat(sel, neg uint16, a, b float32) (mgl32.Mat3, error) {
	if sel > 9 {
		return mgl32.Ident3(), &ErrUnsupportedFormat{What: "pivot select", Value: uint32(sel)}
	}

	if sel == 9 {
		return mgl32.Mat3{
			-a, 0, 0,
			0, 0, 0,
			0, 0, 0,
		}, nil
	}

	o := float32(1)
	if neg&1 != 0 {
		o = -1
	}
	c := b
	if utils.Bits16(neg, 1, 2) != 0 {
		c = -b
	}
	d := a
	if utils.Bits16(neg, 2, 3) != 0 {
		d = -a
	}

	// Base result for sel == 0; other selects permute its rows and
	// columns.
	m := [3][3]float32{
		{o, 0, 0},
		{0, a, c},
		{0, b, d},
	}

	perms := [3][3]int{
		{0, 1, 2},
		{1, 0, 2},
		{1, 2, 0},
	}
	rowMap := perms[sel%3]
	colMap := perms[sel/3]

	var out [3][3]float32
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = m[rowMap[i]][colMap[j]]
		}
	}
	return mgl32.Mat3FromRows(
		mgl32.Vec3{out[0][0], out[0][1], out[0][2]},
		mgl32.Vec3{out[1][0], out[1][1], out[1][2]},
		mgl32.Vec3{out[2][0], out[2][1], out[2][2]},
	), nil
}

// BasisMat decodes a rotation given as an orthonormal right-handed
// basis packed into five u16s: five 13-bit 1.0.12 components in the
// high bits, and a sixth component assembled from the low three bits
// of each word. The third basis vector is the cross product.
func BasisMat(in [5]uint16) mgl32.Mat3 {
	input := [5]uint16{in[4], in[0], in[1], in[2], in[3]}
	var out [6]uint16
	for i := 0; i < 5; i++ {
		out[i] = utils.Bits16(input[i], 3, 16)
		out[5] = (out[5] << 3) | utils.Bits16(input[i], 0, 3)
	}

	f := func(x uint16) float32 { return utils.Fix16(x, true, 0, 12) }
	a := mgl32.Vec3{f(out[1]), f(out[2]), f(out[3])}
	b := mgl32.Vec3{f(out[4]), f(out[0]), f(out[5])}
	c := a.Cross(b)

	return mgl32.Mat3FromCols(a, b, c)
}
