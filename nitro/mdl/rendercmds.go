package mdl

import (
	"github.com/scurest/apicula/gpu"
	"github.com/scurest/apicula/utils"
)

// A render command is analyzed into zero or more render ops, think
// micro-ops to a CPU instruction. Executing them drives the matrix
// stack and issues the draw calls.

type RenderOp interface {
	isRenderOp()
}

// OpLoadMatrix: cur_matrix = matrix_stack[StackPos]
type OpLoadMatrix struct{ StackPos uint8 }

// OpStoreMatrix: matrix_stack[StackPos] = cur_matrix
type OpStoreMatrix struct{ StackPos uint8 }

// OpMulObject: cur_matrix = cur_matrix * object_matrices[ObjectIdx]
type OpMulObject struct{ ObjectIdx uint8 }

// OpSkin: cur_matrix = sum over terms of
// weight * matrix_stack[stack_pos] * inv_binds[inv_bind_idx],
// the skinning equation.
type OpSkin struct{ Terms []SkinTerm }

// OpScaleUp: cur_matrix = cur_matrix * scale(model.up_scale)
type OpScaleUp struct{}

// OpScaleDown: cur_matrix = cur_matrix * scale(model.down_scale)
type OpScaleDown struct{}

// OpBindMaterial binds a material for subsequent draws.
type OpBindMaterial struct{ MaterialIdx uint8 }

// OpDraw draws a mesh.
type OpDraw struct{ MeshIdx uint8 }

type SkinTerm struct {
	Weight     float32
	StackPos   uint8
	InvBindIdx uint8
}

func (OpLoadMatrix) isRenderOp()   {}
func (OpStoreMatrix) isRenderOp()  {}
func (OpMulObject) isRenderOp()    {}
func (OpSkin) isRenderOp()         {}
func (OpScaleUp) isRenderOp()      {}
func (OpScaleDown) isRenderOp()    {}
func (OpBindMaterial) isRenderOp() {}
func (OpDraw) isRenderOp()         {}

func parseRenderCmds(bs *utils.BufStack) ([]RenderOp, error) {
	var ops []RenderOp

	for {
		opcode, params, err := nextRenderCmd(bs)
		if err != nil {
			return nil, err
		}

		switch opcode {
		case 0x00:
			// NOP

		case 0x01:
			// End of the command list.
			return ops, nil

		case 0x02:
			// Always present once before the matrix/draw sequences.
			// Toggling its second parameter stops the model from being
			// drawn, so it is probably visibility; emits no GPU
			// commands either way.

		case 0x03:
			ops = append(ops, OpLoadMatrix{StackPos: params[0]})

		case 0x04, 0x24, 0x44:
			ops = append(ops, OpBindMaterial{MaterialIdx: params[0]})

		case 0x05:
			ops = append(ops, OpDraw{MeshIdx: params[0]})

		case 0x06, 0x26, 0x46, 0x66:
			// Multiply by an object matrix, possibly loading a stack
			// slot first and storing to one after. params[1] is the
			// parent object id and params[2] is unknown.
			objectIdx := params[0]

			switch opcode {
			case 0x26:
				ops = append(ops,
					OpMulObject{ObjectIdx: objectIdx},
					OpStoreMatrix{StackPos: params[3]})
			case 0x46:
				ops = append(ops,
					OpLoadMatrix{StackPos: params[3]},
					OpMulObject{ObjectIdx: objectIdx})
			case 0x66:
				ops = append(ops,
					OpLoadMatrix{StackPos: params[4]},
					OpMulObject{ObjectIdx: objectIdx},
					OpStoreMatrix{StackPos: params[3]})
			default:
				ops = append(ops, OpMulObject{ObjectIdx: objectIdx})
			}

		case 0x09:
			// Compute the skinning equation and store the result to a
			// stack slot. Skinned vertices are given in model space;
			// the inverse binds bring them into the local space of
			// each influencing object.
			storePos := params[0]
			numTerms := int(params[1])

			terms := make([]SkinTerm, numTerms)
			for i := range terms {
				terms[i] = SkinTerm{
					StackPos:   params[2+3*i],
					InvBindIdx: params[2+3*i+1],
					Weight:     float32(params[2+3*i+2]) / 256.0,
				}
			}
			ops = append(ops, OpSkin{Terms: terms}, OpStoreMatrix{StackPos: storePos})

		case 0x0b:
			ops = append(ops, OpScaleUp{})

		case 0x2b:
			ops = append(ops, OpScaleDown{})

		default:
			// Sized but meaningless for geometry recovery.
		}
	}
}

// Parameter byte counts for the fixed-length render commands.
var renderCmdSizes = map[uint8]int{
	0x00: 0, 0x01: 0, 0x02: 2, 0x03: 1, 0x04: 1, 0x05: 1,
	0x06: 3, 0x07: 1, 0x08: 1, 0x0b: 0, 0x0c: 2, 0x0d: 2,
	0x24: 1, 0x26: 4, 0x2b: 0, 0x40: 0, 0x44: 1, 0x46: 4,
	0x47: 2, 0x66: 5, 0x80: 0,
}

func nextRenderCmd(bs *utils.BufStack) (uint8, []byte, error) {
	opcode := bs.ReadByte()
	if err := bs.Err(); err != nil {
		return 0, nil, &gpu.Fault{Reason: "render commands ran past the end of the model"}
	}

	// The only variable-length command: a store slot, a term count,
	// then three bytes per term.
	if opcode == 0x09 {
		count := int(bs.Byte(bs.Pos() + 1))
		params := bs.Read(1 + 1 + 3*count)
		if err := bs.Err(); err != nil {
			return 0, nil, &gpu.Fault{Opcode: opcode, Reason: "truncated skinning command"}
		}
		return opcode, params, nil
	}

	size, ok := renderCmdSizes[opcode]
	if !ok {
		return 0, nil, &gpu.Fault{Opcode: opcode, Reason: "unknown render command"}
	}
	params := bs.Read(size)
	if err := bs.Err(); err != nil {
		return 0, nil, &gpu.Fault{Opcode: opcode, Reason: "truncated render command"}
	}
	return opcode, params, nil
}
