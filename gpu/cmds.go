package gpu

// Decoding of the DS GPU's geometry command stream. A mesh is just a
// blob of these commands; drawing it means replaying them. Commands
// are packed four at a time: one word holding four opcode bytes, then
// the parameter words for each of the four in order.
//
// See the GBATEK documentation on the DS 3D video hardware for the
// command encodings.

import (
	"encoding/binary"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/scurest/apicula/utils"
)

const (
	// Slots in the hardware matrix stack. The last slot is reserved
	// and not usable by push/pop.
	StackSize = 32
)

// Vertex list primitive types.
const (
	PrimTriangles = iota
	PrimQuads
	PrimTriangleStrip
	PrimQuadStrip
)

type Cmd interface {
	isCmd()
}

type Nop struct{}

// PushMatrix pushes the current matrix onto the stack.
type PushMatrix struct{}

// PopMatrix pops Count matrices (possibly negative, which pushes).
type PopMatrix struct{ Count int }

// StoreMatrix writes the current matrix to a stack slot without
// moving the stack pointer.
type StoreMatrix struct{ Slot uint8 }

// RestoreMatrix loads a stack slot into the current matrix.
type RestoreMatrix struct{ Slot uint8 }

// LoadIdentity sets the current matrix to the identity.
type LoadIdentity struct{}

// Scale multiplies the current matrix by a scale matrix.
type Scale struct{ Factors mgl32.Vec3 }

// Translate multiplies the current matrix by a translation matrix.
type Translate struct{ Delta mgl32.Vec3 }

// Begin opens a vertex list of the given primitive type.
type Begin struct{ PrimType uint32 }

// End closes the open vertex list.
type End struct{}

// Vertex emits a vertex at the given untransformed position. The
// position must still be multiplied by the current matrix.
type Vertex struct{ Position mgl32.Vec3 }

// TexCoord sets the texcoord for subsequent vertices, in texels with
// (0,0) the top-left corner of the image.
type TexCoord struct{ Texcoord mgl32.Vec2 }

// Color sets the vertex color for subsequent vertices.
type Color struct{ Color mgl32.Vec3 }

// Normal sets the normal vector for subsequent vertices.
type Normal struct{ Normal mgl32.Vec3 }

func (Nop) isCmd()           {}
func (PushMatrix) isCmd()    {}
func (PopMatrix) isCmd()     {}
func (StoreMatrix) isCmd()   {}
func (RestoreMatrix) isCmd() {}
func (LoadIdentity) isCmd()  {}
func (Scale) isCmd()         {}
func (Translate) isCmd()     {}
func (Begin) isCmd()         {}
func (End) isCmd()           {}
func (Vertex) isCmd()        {}
func (TexCoord) isCmd()      {}
func (Color) isCmd()         {}
func (Normal) isCmd()        {}

// Number of parameter words each opcode takes; -1 for unknown opcodes.
var paramCounts = [66]int8{
	0, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1,
	1, 0, 1, 1, 1, 0, 16, 12, 16, 12, 9, 3, 3, -1, -1, -1,
	1, 1, 1, 2, 1, 1, 1, 1, 1, 1, 1, 1, -1, -1, -1, -1,
	1, 1, 1, 1, 1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1,
	1, 0,
}

// Decode parses a command blob into a list of commands, strictly in
// stream order. Any unknown opcode or truncated parameter list faults;
// no partial result is returned.
func Decode(blob []byte) ([]Cmd, error) {
	var cmds []Cmd

	// The "previous vertex" register; VTX_XY et al. reuse components
	// from it and VTX_DIFF displaces it.
	var prev mgl32.Vec3

	var fifo []byte
	buf := blob
	for {
		if len(fifo) == 0 {
			if len(buf) == 0 {
				return cmds, nil
			}
			if len(buf) < 4 {
				return nil, &Fault{Reason: "too few bytes for an opcode word"}
			}
			fifo, buf = buf[0:4], buf[4:]
		}

		opcode := fifo[0]
		fifo = fifo[1:]

		numParams := -1
		if int(opcode) < len(paramCounts) {
			numParams = int(paramCounts[opcode])
		}
		if numParams < 0 {
			return nil, &Fault{Opcode: opcode, Reason: "unknown opcode"}
		}
		if len(buf) < 4*numParams {
			return nil, &Fault{Opcode: opcode, Reason: "truncated parameters"}
		}
		params := make([]uint32, numParams)
		for i := range params {
			params[i] = binary.LittleEndian.Uint32(buf[4*i:])
		}
		buf = buf[4*numParams:]

		cmd, err := decodeOne(opcode, params, &prev)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)
	}
}

func decodeOne(opcode byte, params []uint32, prev *mgl32.Vec3) (Cmd, error) {
	fx16 := func(x uint32) float32 { return utils.Fix16(uint16(x), true, 3, 12) }

	switch opcode {
	case 0x00:
		return Nop{}, nil

	// MTX_PUSH
	case 0x11:
		return PushMatrix{}, nil

	// MTX_POP - the count is a signed 6-bit number
	case 0x12:
		count := int(int8(uint8(params[0]&0x3f)<<2)) >> 2
		return PopMatrix{Count: count}, nil

	// MTX_STORE
	case 0x13:
		return StoreMatrix{Slot: uint8(params[0] & 31)}, nil

	// MTX_RESTORE
	case 0x14:
		return RestoreMatrix{Slot: uint8(params[0] & 31)}, nil

	// MTX_IDENTITY
	case 0x15:
		return LoadIdentity{}, nil

	// MTX_SCALE
	case 0x1b:
		return Scale{Factors: mgl32.Vec3{
			utils.Fix32(params[0], true, 19, 12),
			utils.Fix32(params[1], true, 19, 12),
			utils.Fix32(params[2], true, 19, 12),
		}}, nil

	// MTX_TRANS
	case 0x1c:
		return Translate{Delta: mgl32.Vec3{
			utils.Fix32(params[0], true, 19, 12),
			utils.Fix32(params[1], true, 19, 12),
			utils.Fix32(params[2], true, 19, 12),
		}}, nil

	// COLOR
	case 0x20:
		p := params[0]
		return Color{Color: mgl32.Vec3{
			float32(utils.Bits(p, 0, 5)) / 31.0,
			float32(utils.Bits(p, 5, 10)) / 31.0,
			float32(utils.Bits(p, 10, 15)) / 31.0,
		}}, nil

	// NORMAL
	case 0x21:
		p := params[0]
		return Normal{Normal: mgl32.Vec3{
			utils.Fix32(utils.Bits(p, 0, 10), true, 0, 9),
			utils.Fix32(utils.Bits(p, 10, 20), true, 0, 9),
			utils.Fix32(utils.Bits(p, 20, 30), true, 0, 9),
		}}, nil

	// TEXCOORD
	case 0x22:
		p := params[0]
		return TexCoord{Texcoord: mgl32.Vec2{
			utils.Fix16(uint16(p), true, 11, 4),
			utils.Fix16(uint16(p>>16), true, 11, 4),
		}}, nil

	// VTX_16
	case 0x23:
		*prev = mgl32.Vec3{
			fx16(params[0] & 0xffff),
			fx16(params[0] >> 16),
			fx16(params[1] & 0xffff),
		}
		return Vertex{Position: *prev}, nil

	// VTX_10
	case 0x24:
		p := params[0]
		*prev = mgl32.Vec3{
			utils.Fix16(uint16(utils.Bits(p, 0, 10)), true, 3, 6),
			utils.Fix16(uint16(utils.Bits(p, 10, 20)), true, 3, 6),
			utils.Fix16(uint16(utils.Bits(p, 20, 30)), true, 3, 6),
		}
		return Vertex{Position: *prev}, nil

	// VTX_XY
	case 0x25:
		p := params[0]
		*prev = mgl32.Vec3{fx16(p & 0xffff), fx16(p >> 16), prev.Z()}
		return Vertex{Position: *prev}, nil

	// VTX_XZ
	case 0x26:
		p := params[0]
		*prev = mgl32.Vec3{fx16(p & 0xffff), prev.Y(), fx16(p >> 16)}
		return Vertex{Position: *prev}, nil

	// VTX_YZ
	case 0x27:
		p := params[0]
		*prev = mgl32.Vec3{prev.X(), fx16(p & 0xffff), fx16(p >> 16)}
		return Vertex{Position: *prev}, nil

	// VTX_DIFF - displacements are 1.0.9 numbers scaled by 1/8 to put
	// them in the same units as the other vertex commands
	case 0x28:
		p := params[0]
		const scale = 1.0 / 8.0
		*prev = prev.Add(mgl32.Vec3{
			scale * utils.Fix32(utils.Bits(p, 0, 10), true, 0, 9),
			scale * utils.Fix32(utils.Bits(p, 10, 20), true, 0, 9),
			scale * utils.Fix32(utils.Bits(p, 20, 30), true, 0, 9),
		})
		return Vertex{Position: *prev}, nil

	// BEGIN_VTXS
	case 0x40:
		return Begin{PrimType: params[0] & 3}, nil

	// END_VTXS
	case 0x41:
		return End{}, nil

	default:
		// Sized but irrelevant here (matrix mode, matrix loads,
		// material and lighting state). Parameters are already
		// consumed; skip the command.
		return Nop{}, nil
	}
}
