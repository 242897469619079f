package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/scurest/apicula/gpu"
	"github.com/scurest/apicula/nitro"
	"github.com/scurest/apicula/nitro/mdl"
)

// gpuStream packs an opcode word and its parameter words the way they
// sit in a mesh's command blob.
func gpuStream(opcodes [4]byte, params ...uint32) []byte {
	out := append([]byte{}, opcodes[:]...)
	for _, p := range params {
		out = append(out, byte(p), byte(p>>8), byte(p>>16), byte(p>>24))
	}
	return out
}

// triangleMesh emits one triangle with corners at (0,0,0), (1,0,0),
// (0,1,0).
func triangleMesh() mdl.Mesh {
	cmds := gpuStream([4]byte{0x40, 0x23, 0x23, 0x23},
		0, // triangles
		0x0000_0000, 0x0000_0000,
		0x0000_1000, 0x0000_0000,
		0x1000_0000, 0x0000_0000)
	cmds = append(cmds, gpuStream([4]byte{0x41, 0x00, 0x00, 0x00})...)
	return mdl.Mesh{Name: nitro.NameFromString("tri"), GPUCommands: cmds}
}

func testModel(ops ...mdl.RenderOp) *mdl.Model {
	return &mdl.Model{
		Name: nitro.NameFromString("m"),
		Objects: []mdl.Object{
			{Name: nitro.NameFromString("bone0"), Matrix: mgl32.Translate3D(1, 2, 3)},
			{Name: nitro.NameFromString("bone1"), Matrix: mgl32.Translate3D(0, 0, 1)},
			{Name: nitro.NameFromString("bone2"), Matrix: mgl32.Translate3D(2, 0, 0)},
		},
		InvBinds:  []mgl32.Mat4{mgl32.Translate3D(1, 2, 3).Inv()},
		Materials: []mdl.Material{{Width: 8, Height: 8, TextureMat: mgl32.Ident4()}},
		Meshes:    []mdl.Mesh{triangleMesh()},
		UpScale:   1,
		DownScale: 1,
		RenderOps: ops,
	}
}

func build(t *testing.T, src *mdl.Model) *Model {
	t.Helper()
	out := &Model{Name: "m"}
	if err := newBuilder(src, out).run(); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestBuilderJointChain(t *testing.T) {
	m := build(t, testModel(
		mdl.OpMulObject{ObjectIdx: 0},
		mdl.OpMulObject{ObjectIdx: 1},
		mdl.OpMulObject{ObjectIdx: 2},
		mdl.OpBindMaterial{MaterialIdx: 0},
		mdl.OpDraw{MeshIdx: 0},
	))

	if len(m.Joints) != 3 {
		t.Fatalf("%d joints; expected 3", len(m.Joints))
	}
	wantJoints := []struct {
		name              string
		parent, objectIdx int
		bind              mgl32.Mat4
	}{
		{"bone0", -1, 0, mgl32.Translate3D(1, 2, 3)},
		{"bone1", 0, 1, mgl32.Translate3D(1, 2, 4)},
		{"bone2", 1, 2, mgl32.Translate3D(3, 2, 4)},
	}
	for i, want := range wantJoints {
		j := m.Joints[i]
		if j.Name != want.name || j.Parent != want.parent || j.ObjectIdx != want.objectIdx {
			t.Errorf("joint %d = %q parent %d object %d; expected %q, %d, %d",
				i, j.Name, j.Parent, j.ObjectIdx, want.name, want.parent, want.objectIdx)
		}
		if j.Bind != want.bind {
			t.Errorf("joint %d bind = %v; expected %v", i, j.Bind, want.bind)
		}
	}
	if len(m.RootJoints) != 1 || m.RootJoints[0] != 0 {
		t.Errorf("root joints = %v; expected [0]", m.RootJoints)
	}

	if len(m.Vertices) != 3 {
		t.Fatalf("%d vertices; expected 3", len(m.Vertices))
	}
	wantPos := []mgl32.Vec3{{3, 2, 4}, {4, 2, 4}, {3, 3, 4}}
	for i, v := range m.Vertices {
		if v.Position != wantPos[i] {
			t.Errorf("vertex %d at %v; expected %v", i, v.Position, wantPos[i])
		}
		if v.JointIdx != 2 {
			t.Errorf("vertex %d bound to joint %d; expected 2", i, v.JointIdx)
		}
	}

	if len(m.Indices) != 3 || m.Indices[0] != 0 || m.Indices[1] != 1 || m.Indices[2] != 2 {
		t.Errorf("indices = %v; expected [0 1 2]", m.Indices)
	}
	if len(m.DrawCalls) != 1 {
		t.Fatalf("%d draw calls; expected 1", len(m.DrawCalls))
	}
	dc := m.DrawCalls[0]
	if dc.VertexStart != 0 || dc.VertexEnd != 3 || dc.IndexStart != 0 || dc.IndexEnd != 3 {
		t.Errorf("draw call ranges = %+v; expected vertices [0,3) indices [0,3)", dc)
	}
}

func TestBuilderLazyRootJoint(t *testing.T) {
	m := build(t, testModel(
		mdl.OpBindMaterial{MaterialIdx: 0},
		mdl.OpDraw{MeshIdx: 0},
	))

	if len(m.Joints) != 1 || m.Joints[0].Name != "root" {
		t.Fatalf("joints = %+v; expected a single root joint", m.Joints)
	}
	if m.Joints[0].Local != mgl32.Ident4() {
		t.Errorf("root local = %v; expected identity", m.Joints[0].Local)
	}
	for i, v := range m.Vertices {
		if v.JointIdx != 0 {
			t.Errorf("vertex %d bound to joint %d; expected 0", i, v.JointIdx)
		}
	}
}

func TestBuilderExternalSlot(t *testing.T) {
	m := build(t, testModel(
		mdl.OpLoadMatrix{StackPos: 3},
		mdl.OpBindMaterial{MaterialIdx: 0},
		mdl.OpDraw{MeshIdx: 0},
	))

	if len(m.Joints) != 1 || m.Joints[0].Name != "slot3" {
		t.Fatalf("joints = %+v; expected a single external joint slot3", m.Joints)
	}
	if m.Vertices[0].JointIdx != 0 {
		t.Errorf("vertex bound to joint %d; expected 0", m.Vertices[0].JointIdx)
	}
}

func TestBuilderJointInterning(t *testing.T) {
	// Revisiting the same transform chain reuses its joints.
	m := build(t, testModel(
		mdl.OpLoadMatrix{StackPos: 2},
		mdl.OpMulObject{ObjectIdx: 0},
		mdl.OpLoadMatrix{StackPos: 2},
		mdl.OpMulObject{ObjectIdx: 0},
		mdl.OpBindMaterial{MaterialIdx: 0},
		mdl.OpDraw{MeshIdx: 0},
	))
	if len(m.Joints) != 2 {
		t.Errorf("%d joints; expected 2 (slot2 and bone0)", len(m.Joints))
	}
}

func TestBuilderSkinBindPose(t *testing.T) {
	// Blending bind matrices against their inverse binds at full weight
	// is a no-op on positions.
	m := build(t, testModel(
		mdl.OpMulObject{ObjectIdx: 0},
		mdl.OpStoreMatrix{StackPos: 0},
		mdl.OpSkin{Terms: []mdl.SkinTerm{{Weight: 1, StackPos: 0, InvBindIdx: 0}}},
		mdl.OpBindMaterial{MaterialIdx: 0},
		mdl.OpDraw{MeshIdx: 0},
	))

	wantPos := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	for i, v := range m.Vertices {
		if !v.Position.ApproxEqualThreshold(wantPos[i], 1e-5) {
			t.Errorf("vertex %d at %v; expected %v", i, v.Position, wantPos[i])
		}
		if v.JointIdx != 0 {
			t.Errorf("vertex %d bound to joint %d; expected 0", i, v.JointIdx)
		}
	}
}

func TestBuilderStackOverflow(t *testing.T) {
	// 32 pushes walk one past the last usable slot.
	var cmds []byte
	for i := 0; i < 8; i++ {
		cmds = append(cmds, gpuStream([4]byte{0x11, 0x11, 0x11, 0x11})...)
	}
	src := testModel(mdl.OpDraw{MeshIdx: 0})
	src.Meshes[0].GPUCommands = cmds

	err := newBuilder(src, &Model{}).run()
	if err == nil {
		t.Fatal("deep push sequence succeeded; expected a fault")
	}
	if _, ok := err.(*gpu.Fault); !ok {
		t.Errorf("error is %T; expected *gpu.Fault", err)
	}
}

func TestBuilderFaults(t *testing.T) {
	tests := []struct {
		name string
		ops  []mdl.RenderOp
	}{
		{"reserved load slot", []mdl.RenderOp{mdl.OpLoadMatrix{StackPos: 31}}},
		{"reserved store slot", []mdl.RenderOp{mdl.OpStoreMatrix{StackPos: 31}}},
		{"blend from unset slot", []mdl.RenderOp{
			mdl.OpSkin{Terms: []mdl.SkinTerm{{Weight: 1, StackPos: 7, InvBindIdx: 0}}},
		}},
		{"blend with no terms", []mdl.RenderOp{mdl.OpSkin{}}},
	}
	for _, test := range tests {
		err := newBuilder(testModel(test.ops...), &Model{}).run()
		if err == nil {
			t.Errorf("%s: build succeeded; expected a fault", test.name)
			continue
		}
		if _, ok := err.(*gpu.Fault); !ok {
			t.Errorf("%s: error is %T; expected *gpu.Fault", test.name, err)
		}
	}
}
