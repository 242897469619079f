package gltf

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	qgltf "github.com/qmuntal/gltf"
)

// The modeler package covers mesh attributes, but inverse bind
// matrices and animation samplers need raw accessors.

func putF32(buf []byte, vals ...float32) []byte {
	for _, v := range vals {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
		buf = append(buf, b[:]...)
	}
	return buf
}

func writeFloats(doc *qgltf.Document, typ qgltf.AccessorType, data []byte, count int) uint32 {
	if len(doc.Buffers) == 0 {
		doc.Buffers = append(doc.Buffers, &qgltf.Buffer{})
	}
	buf := doc.Buffers[0]
	for len(buf.Data)%4 != 0 {
		buf.Data = append(buf.Data, 0)
	}
	offset := uint32(len(buf.Data))
	buf.Data = append(buf.Data, data...)
	buf.ByteLength = uint32(len(buf.Data))

	bv := uint32(len(doc.BufferViews))
	doc.BufferViews = append(doc.BufferViews, &qgltf.BufferView{
		Buffer:     0,
		ByteOffset: offset,
		ByteLength: uint32(len(data)),
	})

	acc := uint32(len(doc.Accessors))
	doc.Accessors = append(doc.Accessors, &qgltf.Accessor{
		BufferView:    qgltf.Index(bv),
		ComponentType: qgltf.ComponentFloat,
		Count:         uint32(count),
		Type:          typ,
	})
	return acc
}

func writeMat4s(doc *qgltf.Document, mats []mgl32.Mat4) uint32 {
	var data []byte
	for _, m := range mats {
		data = putF32(data, m[:]...)
	}
	return writeFloats(doc, qgltf.AccessorMat4, data, len(mats))
}

func writeVec3s(doc *qgltf.Document, vecs []mgl32.Vec3) uint32 {
	var data []byte
	for _, v := range vecs {
		data = putF32(data, v[0], v[1], v[2])
	}
	return writeFloats(doc, qgltf.AccessorVec3, data, len(vecs))
}

func writeQuats(doc *qgltf.Document, quats []mgl32.Quat) uint32 {
	var data []byte
	for _, q := range quats {
		data = putF32(data, q.X(), q.Y(), q.Z(), q.W)
	}
	return writeFloats(doc, qgltf.AccessorVec4, data, len(quats))
}

// writeTimes also sets min/max, which the format requires on animation
// inputs.
func writeTimes(doc *qgltf.Document, times []float32) uint32 {
	var data []byte
	data = putF32(data, times...)
	acc := writeFloats(doc, qgltf.AccessorScalar, data, len(times))
	if len(times) > 0 {
		doc.Accessors[acc].Min = []float32{times[0]}
		doc.Accessors[acc].Max = []float32{times[len(times)-1]}
	}
	return acc
}
