package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/scurest/apicula/gpu"
	"github.com/scurest/apicula/nitro/mdl"
)

// Joint keys: what transform a joint represents, relative to its
// parent. External slots are stack positions a model reads without
// ever writing; the engine would have filled them at runtime.
const (
	jointObject = iota
	jointRoot
	jointExternal
)

type jointKey struct {
	parent int
	kind   int8
	idx    uint8
}

type stackEntry struct {
	mat   mgl32.Mat4
	joint int
	set   bool
}

// builder runs a model's render command program, interpreting each
// drawn mesh's GPU stream, and accumulates the results into a Model.
type builder struct {
	src *mdl.Model
	out *Model

	cur      mgl32.Mat4
	curJoint int
	stack    [gpu.StackSize]stackEntry
	sp       int

	joints map[jointKey]int
	ib     *gpu.IndexBuilder

	curMaterial uint8
	texWidth    float32
	texHeight   float32
	texMat      mgl32.Mat4

	vtxColor    mgl32.Vec3
	vtxNormal   mgl32.Vec3
	vtxTexcoord mgl32.Vec2
}

func newBuilder(src *mdl.Model, out *Model) *builder {
	return &builder{
		src:      src,
		out:      out,
		cur:      mgl32.Ident4(),
		curJoint: -1,
		joints:   make(map[jointKey]int),
		ib:       gpu.NewIndexBuilder(),
		texMat:   mgl32.Ident4(),
	}
}

// run executes the whole render command program. Any fault aborts with
// no partial geometry surviving into out.
func (b *builder) run() error {
	for _, op := range b.src.RenderOps {
		if err := b.runOp(op); err != nil {
			return err
		}
	}
	b.ib.End()
	b.out.Indices = b.ib.Indices
	return nil
}

func (b *builder) runOp(op mdl.RenderOp) error {
	switch op := op.(type) {
	case mdl.OpLoadMatrix:
		return b.loadSlot(op.StackPos)

	case mdl.OpStoreMatrix:
		return b.storeSlot(op.StackPos)

	case mdl.OpMulObject:
		if int(op.ObjectIdx) >= len(b.src.Objects) {
			return &gpu.Fault{Reason: fmt.Sprintf("object %d out of range", op.ObjectIdx)}
		}
		obj := &b.src.Objects[op.ObjectIdx]
		b.cur = b.cur.Mul4(obj.Matrix)
		b.curJoint = b.findOrAddJoint(jointKey{b.curJoint, jointObject, op.ObjectIdx}, obj.Matrix)
		return nil

	case mdl.OpSkin:
		return b.skin(op.Terms)

	case mdl.OpScaleUp:
		b.cur = b.cur.Mul4(mgl32.Scale3D(b.src.UpScale, b.src.UpScale, b.src.UpScale))
		return nil

	case mdl.OpScaleDown:
		b.cur = b.cur.Mul4(mgl32.Scale3D(b.src.DownScale, b.src.DownScale, b.src.DownScale))
		return nil

	case mdl.OpBindMaterial:
		return b.bindMaterial(op.MaterialIdx)

	case mdl.OpDraw:
		return b.draw(op.MeshIdx)
	}
	return nil
}

// skin blends stack matrices against inverse binds. The blended matrix
// is used verbatim for the emitted positions; for skinning purposes
// the result binds to the joint of the heaviest term.
func (b *builder) skin(terms []mdl.SkinTerm) error {
	var sum mgl32.Mat4 // zero
	best := -1
	bestWeight := float32(-1)
	for _, t := range terms {
		if int(t.StackPos) >= len(b.stack) || !b.stack[t.StackPos].set {
			return &gpu.Fault{Reason: fmt.Sprintf("blend from unset stack slot %d", t.StackPos)}
		}
		if int(t.InvBindIdx) >= len(b.src.InvBinds) {
			return &gpu.Fault{Reason: fmt.Sprintf("inverse bind %d out of range", t.InvBindIdx)}
		}
		term := b.stack[t.StackPos].mat.Mul4(b.src.InvBinds[t.InvBindIdx]).Mul(t.Weight)
		sum = sum.Add(term)
		if t.Weight > bestWeight {
			bestWeight = t.Weight
			best = int(t.StackPos)
		}
	}
	if best < 0 {
		return &gpu.Fault{Reason: "blend with no terms"}
	}
	b.cur = sum
	b.curJoint = b.stack[best].joint
	return nil
}

func (b *builder) bindMaterial(idx uint8) error {
	if int(idx) >= len(b.src.Materials) {
		return &gpu.Fault{Reason: fmt.Sprintf("material %d out of range", idx)}
	}
	mat := &b.src.Materials[idx]
	b.curMaterial = idx
	b.texWidth = float32(mat.Width)
	b.texHeight = float32(mat.Height)
	if b.texWidth == 0 {
		b.texWidth = 1
	}
	if b.texHeight == 0 {
		b.texHeight = 1
	}
	b.texMat = mat.TextureMat
	return nil
}

func (b *builder) draw(meshIdx uint8) error {
	if int(meshIdx) >= len(b.src.Meshes) {
		return &gpu.Fault{Reason: fmt.Sprintf("mesh %d out of range", meshIdx)}
	}
	cmds, err := gpu.Decode(b.src.Meshes[meshIdx].GPUCommands)
	if err != nil {
		return err
	}

	vtxStart := len(b.out.Vertices)
	idxStart := len(b.ib.Indices)
	for _, cmd := range cmds {
		if err := b.runGPUCmd(cmd); err != nil {
			return err
		}
	}
	b.ib.End()

	b.out.DrawCalls = append(b.out.DrawCalls, DrawCall{
		VertexStart: vtxStart,
		VertexEnd:   len(b.out.Vertices),
		IndexStart:  idxStart,
		IndexEnd:    len(b.ib.Indices),
		MaterialIdx: b.curMaterial,
		MeshIdx:     meshIdx,
	})
	return nil
}

func (b *builder) runGPUCmd(cmd gpu.Cmd) error {
	switch cmd := cmd.(type) {
	case gpu.Nop:
		return nil

	case gpu.PushMatrix:
		if b.sp >= gpu.StackSize-1 {
			return &gpu.Fault{Opcode: 0x11, Reason: "matrix stack overflow"}
		}
		b.stack[b.sp] = stackEntry{mat: b.cur, joint: b.curJoint, set: true}
		b.sp++
		return nil

	case gpu.PopMatrix:
		sp := b.sp - cmd.Count
		if sp < 0 || sp >= gpu.StackSize-1 {
			return &gpu.Fault{Opcode: 0x12, Reason: "matrix stack underflow"}
		}
		b.sp = sp
		b.cur = b.stack[sp].mat
		b.curJoint = b.stack[sp].joint
		return nil

	case gpu.StoreMatrix:
		return b.storeSlot(cmd.Slot)

	case gpu.RestoreMatrix:
		return b.loadSlot(cmd.Slot)

	case gpu.LoadIdentity:
		b.cur = mgl32.Ident4()
		b.curJoint = -1
		return nil

	case gpu.Scale:
		b.cur = b.cur.Mul4(mgl32.Scale3D(cmd.Factors[0], cmd.Factors[1], cmd.Factors[2]))
		return nil

	case gpu.Translate:
		b.cur = b.cur.Mul4(mgl32.Translate3D(cmd.Delta[0], cmd.Delta[1], cmd.Delta[2]))
		return nil

	case gpu.Color:
		b.vtxColor = cmd.Color
		return nil

	case gpu.Normal:
		b.vtxNormal = cmd.Normal
		b.out.HasNormals = true
		return nil

	case gpu.TexCoord:
		tc := mgl32.Vec2{
			cmd.Texcoord[0] / b.texWidth,
			1 - cmd.Texcoord[1]/b.texHeight,
		}
		v := b.texMat.Mul4x1(mgl32.Vec4{tc[0], tc[1], 0, 1})
		b.vtxTexcoord = mgl32.Vec2{v[0], v[1]}
		return nil

	case gpu.Begin:
		b.ib.Begin(cmd.PrimType)
		return nil

	case gpu.End:
		b.ib.End()
		return nil

	case gpu.Vertex:
		b.emitVertex(cmd.Position)
		return nil
	}
	return nil
}

func (b *builder) emitVertex(pos mgl32.Vec3) {
	p := b.cur.Mul4x1(mgl32.Vec4{pos[0], pos[1], pos[2], 1})
	n := b.cur.Mat3().Mul3x1(b.vtxNormal)

	joint := b.curJoint
	if joint < 0 {
		joint = b.findOrAddJoint(jointKey{-1, jointRoot, 0}, mgl32.Ident4())
	}

	b.out.Vertices = append(b.out.Vertices, Vertex{
		Position: mgl32.Vec3{p[0], p[1], p[2]},
		Normal:   n,
		Texcoord: b.vtxTexcoord,
		Color:    b.vtxColor,
		JointIdx: joint,
	})
	b.ib.Vertex()
}

func (b *builder) storeSlot(slot uint8) error {
	if slot >= gpu.StackSize-1 {
		return &gpu.Fault{Opcode: 0x13, Reason: fmt.Sprintf("store to reserved slot %d", slot)}
	}
	b.stack[slot] = stackEntry{mat: b.cur, joint: b.curJoint, set: true}
	return nil
}

// loadSlot makes a slot's matrix current. A slot this model never
// wrote holds whatever the engine left there; it reads as identity
// under its own external joint so animations can still retarget it.
func (b *builder) loadSlot(slot uint8) error {
	if slot >= gpu.StackSize-1 {
		return &gpu.Fault{Opcode: 0x14, Reason: fmt.Sprintf("restore from reserved slot %d", slot)}
	}
	if !b.stack[slot].set {
		joint := b.findOrAddJoint(jointKey{-1, jointExternal, slot}, mgl32.Ident4())
		b.stack[slot] = stackEntry{mat: mgl32.Ident4(), joint: joint, set: true}
	}
	b.cur = b.stack[slot].mat
	b.curJoint = b.stack[slot].joint
	return nil
}

// findOrAddJoint interns a joint: reusing an existing child when the
// same transform is hung off the same parent again, so repeated matrix
// ops don't balloon the forest.
func (b *builder) findOrAddJoint(key jointKey, local mgl32.Mat4) int {
	if id, ok := b.joints[key]; ok {
		return id
	}

	j := Joint{
		Parent:    key.parent,
		ObjectIdx: -1,
		Local:     local,
	}
	switch key.kind {
	case jointObject:
		j.ObjectIdx = int(key.idx)
		j.Name = b.src.Objects[key.idx].Name.SafeString()
	case jointRoot:
		j.Name = "root"
	case jointExternal:
		j.Name = fmt.Sprintf("slot%d", key.idx)
	}

	if key.parent >= 0 {
		j.Bind = b.out.Joints[key.parent].Bind.Mul4(local)
	} else {
		j.Bind = local
	}
	j.InvBind = j.Bind.Inv()

	id := len(b.out.Joints)
	b.out.Joints = append(b.out.Joints, j)
	b.joints[key] = id
	if key.parent < 0 {
		b.out.RootJoints = append(b.out.RootJoints, id)
	}
	return id
}
