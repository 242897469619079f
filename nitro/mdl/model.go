package mdl

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/scurest/apicula/nitro"
	"github.com/scurest/apicula/utils"
)

// Model from an MDL0 section: meshes, materials, objects (bones), and
// the render command program that draws them. Drawing a model means
// executing the render commands.
type Model struct {
	Name      nitro.Name
	Materials []Material
	Meshes    []Mesh
	Objects   []Object
	InvBinds  []mgl32.Mat4
	RenderOps []RenderOp

	UpScale   float32
	DownScale float32

	BoundingBoxMin mgl32.Vec3
	BoundingBoxMax mgl32.Vec3
}

// Mesh is a "piece" of a model: a blob of GPU commands that emit its
// polygons. Decoding the blob is the gpu package's job.
type Mesh struct {
	Name        nitro.Name
	GPUCommands []byte
}

// ReadMDL0 reads every model in an MDL0 section.
func ReadMDL0(section *nitro.Section) ([]*Model, error) {
	bs := section.Cur()
	bs.Skip(8) // stamp, section size

	records, err := nitro.ReadInfoBlock(bs.SubBuf("models", bs.Pos()), 4)
	if err != nil {
		return nil, errors.Wrap(err, "MDL0 model list")
	}

	models := make([]*Model, 0, len(records))
	for _, rec := range records {
		model, err := readModel(bs.SubBuf("model", int(rec.U32())), rec.Name)
		if err != nil {
			return nil, errors.Wrapf(err, "model %s", rec.Name)
		}
		models = append(models, model)
	}
	return models, nil
}

func readModel(bs *utils.BufStack, name nitro.Name) (*Model, error) {
	bs.Skip(4) // section size
	renderCmdsOff := int(bs.ReadU32())
	materialsOff := int(bs.ReadU32())
	meshOff := int(bs.ReadU32())
	invBindsOff := int(bs.ReadU32())
	bs.Skip(3)
	numObjects := int(bs.ReadByte())
	bs.Skip(2) // material and mesh counts, implied by their info blocks
	bs.Skip(2)
	upScale := utils.Fix32(bs.ReadU32(), true, 19, 12)
	downScale := utils.Fix32(bs.ReadU32(), true, 19, 12)
	bs.Skip(8) // vert/surf/tri/quad counts
	bbMin := mgl32.Vec3{
		utils.Fix16(bs.ReadU16(), true, 3, 12),
		utils.Fix16(bs.ReadU16(), true, 3, 12),
		utils.Fix16(bs.ReadU16(), true, 3, 12),
	}
	bbMax := mgl32.Vec3{
		utils.Fix16(bs.ReadU16(), true, 3, 12),
		utils.Fix16(bs.ReadU16(), true, 3, 12),
		utils.Fix16(bs.ReadU16(), true, 3, 12),
	}
	bs.Skip(8)
	objectsOff := bs.Pos()
	if err := bs.Err(); err != nil {
		return nil, errors.Wrap(err, "truncated model header")
	}

	renderOps, err := parseRenderCmds(bs.SubBuf("render cmds", renderCmdsOff))
	if err != nil {
		return nil, err
	}

	meshes, err := readMeshes(bs.SubBuf("meshes", meshOff))
	if err != nil {
		return nil, err
	}
	materials, err := readMaterials(bs.SubBuf("materials", materialsOff))
	if err != nil {
		return nil, err
	}
	objects, err := readObjects(bs.SubBuf("objects", objectsOff))
	if err != nil {
		return nil, err
	}
	invBinds := readInvBinds(bs.SubBuf("inv binds", invBindsOff), numObjects)

	model := &Model{
		Name:           name,
		Materials:      materials,
		Meshes:         meshes,
		Objects:        objects,
		InvBinds:       invBinds,
		RenderOps:      renderOps,
		UpScale:        upScale,
		DownScale:      downScale,
		BoundingBoxMin: bbMin,
		BoundingBoxMax: bbMax,
	}

	if err := validateRenderOps(model); err != nil {
		return nil, err
	}
	return model, nil
}

// validateRenderOps checks that every index in the render program is
// in bounds, so execution never has to.
func validateRenderOps(model *Model) error {
	for _, op := range model.RenderOps {
		good := true
		switch op := op.(type) {
		case OpMulObject:
			good = int(op.ObjectIdx) < len(model.Objects)
		case OpBindMaterial:
			good = int(op.MaterialIdx) < len(model.Materials)
		case OpDraw:
			good = int(op.MeshIdx) < len(model.Meshes)
		case OpSkin:
			for _, term := range op.Terms {
				if int(term.InvBindIdx) >= len(model.InvBinds) {
					good = false
				}
			}
		}
		if !good {
			return errors.Errorf("model %s has an out-of-bounds index in its render commands", model.Name)
		}
	}
	return nil
}

func readMeshes(bs *utils.BufStack) ([]Mesh, error) {
	records, err := nitro.ReadInfoBlock(bs.SubBuf("mesh list", 0), 4)
	if err != nil {
		return nil, errors.Wrap(err, "mesh list")
	}

	meshes := make([]Mesh, 0, len(records))
	for _, rec := range records {
		mesh, err := readMesh(bs.SubBuf("mesh", int(rec.U32())), rec.Name)
		if err != nil {
			return nil, errors.Wrapf(err, "mesh %s", rec.Name)
		}
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}

func readMesh(bs *utils.BufStack, name nitro.Name) (Mesh, error) {
	bs.Skip(2) // dummy
	sectionSize := bs.ReadU16()
	bs.Skip(4)
	cmdsOff := int(bs.ReadU32())
	cmdsLen := int(bs.ReadU32())
	if err := bs.Err(); err != nil {
		return Mesh{}, errors.Wrap(err, "truncated mesh header")
	}
	if sectionSize != 16 {
		return Mesh{}, errors.Errorf("mesh header size is %d, want 16", sectionSize)
	}
	if cmdsLen%4 != 0 {
		return Mesh{}, errors.Errorf("mesh command blob length %d is not a multiple of 4", cmdsLen)
	}

	cmds := bs.SubBuf("gpu cmds", cmdsOff).SetSize(cmdsLen)
	if err := cmds.Err(); err != nil {
		return Mesh{}, errors.Wrap(err, "mesh command blob out of bounds")
	}
	return Mesh{Name: name, GPUCommands: cmds.Raw()}, nil
}

// readInvBinds reads up to numObjects inverse bind matrices. Each
// record is a 4x3 local-to-world inverse followed by a 3x3 matrix
// (presumably for normals) that we skip. Models without skinning often
// omit some or all of these, so we take as many as are present.
func readInvBinds(bs *utils.BufStack, numObjects int) []mgl32.Mat4 {
	const elemSize = (4*3 + 3*3) * 4

	invBinds := make([]mgl32.Mat4, 0, numObjects)
	for i := 0; i < numObjects; i++ {
		if bs.Remaining() < elemSize {
			break
		}
		var m [12]float32
		for j := range m {
			m[j] = utils.Fix32(bs.ReadU32(), true, 19, 12)
		}
		bs.Skip(3 * 3 * 4)

		invBinds = append(invBinds, mgl32.Mat4FromCols(
			mgl32.Vec4{m[0], m[1], m[2], 0},
			mgl32.Vec4{m[3], m[4], m[5], 0},
			mgl32.Vec4{m[6], m[7], m[8], 0},
			mgl32.Vec4{m[9], m[10], m[11], 1},
		))
	}
	return invBinds
}
