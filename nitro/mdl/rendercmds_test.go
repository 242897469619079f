package mdl

import (
	"reflect"
	"testing"

	"github.com/scurest/apicula/gpu"
	"github.com/scurest/apicula/utils"
)

func TestParseRenderCmds(t *testing.T) {
	data := []byte{
		0x02, 0x00, 0x01, // visibility, no ops
		0x46, 1, 0, 0, 5, // load slot 5, mul object 1
		0x26, 2, 0, 0, 6, // mul object 2, store slot 6
		0x66, 3, 0, 0, 7, 8, // load slot 8, mul object 3, store slot 7
		0x0b,    // scale up
		0x2b,    // scale down
		0x24, 4, // bind material 4
		0x05, 0, // draw mesh 0
		0x09, 9, 2, // skin, store slot 9, 2 terms
		0, 1, 128, // stack 0, inv bind 1, weight 0.5
		2, 3, 64, // stack 2, inv bind 3, weight 0.25
		0x01, // end
	}

	ops, err := parseRenderCmds(utils.NewBufStack("render commands", data))
	if err != nil {
		t.Fatal(err)
	}

	expected := []RenderOp{
		OpLoadMatrix{StackPos: 5},
		OpMulObject{ObjectIdx: 1},
		OpMulObject{ObjectIdx: 2},
		OpStoreMatrix{StackPos: 6},
		OpLoadMatrix{StackPos: 8},
		OpMulObject{ObjectIdx: 3},
		OpStoreMatrix{StackPos: 7},
		OpScaleUp{},
		OpScaleDown{},
		OpBindMaterial{MaterialIdx: 4},
		OpDraw{MeshIdx: 0},
		OpSkin{Terms: []SkinTerm{
			{Weight: 0.5, StackPos: 0, InvBindIdx: 1},
			{Weight: 0.25, StackPos: 2, InvBindIdx: 3},
		}},
		OpStoreMatrix{StackPos: 9},
	}
	if !reflect.DeepEqual(ops, expected) {
		t.Errorf("parsed ops\n%#v\nexpected\n%#v", ops, expected)
	}
}

func TestParseRenderCmdsFaults(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"unknown opcode", []byte{0xaa, 0x01}},
		{"truncated params", []byte{0x66, 1, 0}},
		{"missing terminator", []byte{0x00, 0x00}},
		{"truncated skin terms", []byte{0x09, 0, 5, 1, 2, 3}},
	}
	for _, test := range tests {
		_, err := parseRenderCmds(utils.NewBufStack("render commands", test.data))
		if err == nil {
			t.Errorf("%s: parse succeeded; expected a fault", test.name)
			continue
		}
		if _, ok := err.(*gpu.Fault); !ok {
			t.Errorf("%s: error is %T; expected *gpu.Fault", test.name, err)
		}
	}
}
