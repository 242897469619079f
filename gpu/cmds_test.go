package gpu

import (
	"encoding/binary"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

// stream packs opcodes four at a time followed by their parameter
// words, the way the hardware FIFO expects them.
func stream(opcodes [4]byte, params ...uint32) []byte {
	b := append([]byte{}, opcodes[:]...)
	for _, p := range params {
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], p)
		b = append(b, tmp[:]...)
	}
	return b
}

func TestDecodeTriangle(t *testing.T) {
	// begin triangles; vertex (1, 2, 0.5); end; nop
	blob := stream([4]byte{0x40, 0x23, 0x41, 0x00},
		uint32(PrimTriangles),
		0x2000_1000, 0x0000_0800,
	)

	cmds, err := Decode(blob)
	if err != nil {
		t.Fatal(err)
	}
	if len(cmds) != 4 {
		t.Fatalf("%d commands; expected 4", len(cmds))
	}
	if begin, ok := cmds[0].(Begin); !ok || begin.PrimType != PrimTriangles {
		t.Errorf("cmds[0] = %#v; expected Begin{PrimTriangles}", cmds[0])
	}
	vtx, ok := cmds[1].(Vertex)
	if !ok {
		t.Fatalf("cmds[1] = %#v; expected Vertex", cmds[1])
	}
	want := mgl32.Vec3{1, 2, 0.5}
	if vtx.Position != want {
		t.Errorf("position = %v; expected %v", vtx.Position, want)
	}
	if _, ok := cmds[2].(End); !ok {
		t.Errorf("cmds[2] = %#v; expected End", cmds[2])
	}
	if _, ok := cmds[3].(Nop); !ok {
		t.Errorf("cmds[3] = %#v; expected Nop", cmds[3])
	}
}

func TestDecodePartialVertices(t *testing.T) {
	// A full vertex, then VTX_XY, VTX_XZ, VTX_YZ each replacing two
	// components and keeping the third from the previous vertex.
	blob := stream([4]byte{0x23, 0x25, 0x26, 0x27},
		0x2000_1000, 0x0000_3000, // (1, 2, 3)
		0x5000_4000, // xy: (4, 5, 3)
		0x7000_6000, // xz: (6, 5, 7)
		0x1000_2000, // yz: (6, 2, 1)
	)

	cmds, err := Decode(blob)
	if err != nil {
		t.Fatal(err)
	}
	want := []mgl32.Vec3{
		{1, 2, 3},
		{4, 5, 3},
		{6, 5, 7},
		{6, 2, 1},
	}
	for i, w := range want {
		vtx, ok := cmds[i].(Vertex)
		if !ok {
			t.Fatalf("cmds[%d] = %#v; expected Vertex", i, cmds[i])
		}
		if vtx.Position != w {
			t.Errorf("cmds[%d] position = %v; expected %v", i, vtx.Position, w)
		}
	}
}

func TestDecodeVertexDiff(t *testing.T) {
	// VTX_16 then two VTX_DIFFs. Each component is signed 1.0.9 fixed
	// scaled by 1/8, so 0x200 is the sign bit.
	blob := stream([4]byte{0x23, 0x28, 0x28, 0x00},
		0x0000_1000, 0x0000_0000, // (1, 0, 0)
		0x0000_0100, // dx = +0.5 * 1/8
		0x0000_0200, // dx = -1.0 * 1/8
	)

	cmds, err := Decode(blob)
	if err != nil {
		t.Fatal(err)
	}
	pos := cmds[1].(Vertex).Position
	if want := (mgl32.Vec3{1.0625, 0, 0}); pos != want {
		t.Errorf("position after +dx = %v; expected %v", pos, want)
	}
	pos = cmds[2].(Vertex).Position
	if want := (mgl32.Vec3{0.9375, 0, 0}); pos != want {
		t.Errorf("position after -dx = %v; expected %v", pos, want)
	}
}

func TestDecodePopCount(t *testing.T) {
	// The pop count is a signed 6-bit field.
	blob := stream([4]byte{0x12, 0x12, 0x00, 0x00},
		1,
		0x3f, // -1
	)
	cmds, err := Decode(blob)
	if err != nil {
		t.Fatal(err)
	}
	if pop := cmds[0].(PopMatrix); pop.Count != 1 {
		t.Errorf("count = %d; expected 1", pop.Count)
	}
	if pop := cmds[1].(PopMatrix); pop.Count != -1 {
		t.Errorf("count = %d; expected -1", pop.Count)
	}
}

func TestDecodeSkipsStateCommands(t *testing.T) {
	// Matrix and material commands carry a known parameter count but
	// produce no geometry; they decode as no-ops without derailing
	// the rest of the stream.
	params := []uint32{0} // DIF_AMB
	for i := 0; i < 16; i++ {
		params = append(params, 0x1000) // MTX_LOAD_4x4
	}
	params = append(params, uint32(PrimTriangles))
	blob := stream([4]byte{0x30, 0x16, 0x40, 0x41}, params...)

	cmds, err := Decode(blob)
	if err != nil {
		t.Fatal(err)
	}
	if len(cmds) != 4 {
		t.Fatalf("%d commands; expected 4", len(cmds))
	}
	for _, i := range []int{0, 1} {
		if _, ok := cmds[i].(Nop); !ok {
			t.Errorf("cmds[%d] = %T; expected Nop", i, cmds[i])
		}
	}
	if _, ok := cmds[2].(Begin); !ok {
		t.Errorf("cmds[2] = %T; expected Begin", cmds[2])
	}
	if _, ok := cmds[3].(End); !ok {
		t.Errorf("cmds[3] = %T; expected End", cmds[3])
	}
}

func TestDecodeFaults(t *testing.T) {
	tests := []struct {
		name string
		blob []byte
	}{
		{"unknown opcode", stream([4]byte{0x7f, 0x00, 0x00, 0x00})},
		{"truncated params", stream([4]byte{0x23, 0x00, 0x00, 0x00}, 0x1000)},
		{"short opcode word", []byte{0x40, 0x00}},
	}
	for _, test := range tests {
		if _, err := Decode(test.blob); err == nil {
			t.Errorf("%s: decoded without error", test.name)
		} else if _, ok := err.(*Fault); !ok {
			t.Errorf("%s: error %T; expected *Fault", test.name, err)
		}
	}
}

func TestDecodeEmpty(t *testing.T) {
	cmds, err := Decode(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(cmds) != 0 {
		t.Errorf("%d commands from an empty blob", len(cmds))
	}
}
