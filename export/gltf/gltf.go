// Package gltf writes assembled models as glTF 2.0, either binary
// (.glb) or JSON with an embedded buffer.
package gltf

import (
	"bytes"
	"fmt"
	"image/png"
	"io"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	qgltf "github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/scurest/apicula/config"
	"github.com/scurest/apicula/scene"
)

// Seconds per animation frame. The DS runs its animations at 60 fps.
const frameLength = 1.0 / 60.0

// Export writes m to w. When texture embedding is off the images are
// returned as sibling files for the caller to place next to the scene.
func Export(m *scene.Model, w io.Writer) (map[string][]byte, error) {
	doc := qgltf.NewDocument()
	extra := make(map[string][]byte)

	imageIdx, err := exportImages(doc, m, extra)
	if err != nil {
		return nil, err
	}
	exportMaterials(doc, m, imageIdx)

	jointNodes := exportJoints(doc, m)
	meshNode := exportMesh(doc, m, jointNodes)

	for _, root := range m.RootJoints {
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, jointNodes[root])
	}
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, meshNode)

	exportAnimations(doc, m, jointNodes)

	enc := qgltf.NewEncoder(w)
	enc.AsBinary = config.GetGLTFBinary()
	if err := enc.Encode(doc); err != nil {
		return nil, errors.Wrapf(err, "encoding %s", m.Name)
	}
	return extra, nil
}

func exportImages(doc *qgltf.Document, m *scene.Model, extra map[string][]byte) ([]uint32, error) {
	imageIdx := make([]uint32, len(m.Images))
	for i, img := range m.Images {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img.Pixels); err != nil {
			return nil, errors.Wrapf(err, "encoding texture %s", img.Name)
		}

		if config.GetEmbedTextures() {
			idx, err := modeler.WriteImage(doc, img.Name, "image/png", bytes.NewReader(buf.Bytes()))
			if err != nil {
				return nil, errors.Wrapf(err, "embedding texture %s", img.Name)
			}
			imageIdx[i] = idx
		} else {
			fileName := fmt.Sprintf("%s.png", img.Name)
			extra[fileName] = buf.Bytes()
			imageIdx[i] = uint32(len(doc.Images))
			doc.Images = append(doc.Images, &qgltf.Image{
				Name: img.Name,
				URI:  fileName,
			})
		}
	}
	return imageIdx, nil
}

func wrapMode(repeat, mirror bool) qgltf.WrappingMode {
	switch {
	case mirror:
		return qgltf.WrapMirroredRepeat
	case repeat:
		return qgltf.WrapRepeat
	default:
		return qgltf.WrapClampToEdge
	}
}

func exportMaterials(doc *qgltf.Document, m *scene.Model, imageIdx []uint32) {
	for _, mat := range m.Materials {
		color := new([4]float32)
		*color = [4]float32{mat.Diffuse[0], mat.Diffuse[1], mat.Diffuse[2], mat.Alpha}

		gm := &qgltf.Material{
			Name:        mat.Name,
			DoubleSided: !mat.CullBackface && !mat.CullFrontface,
			PBRMetallicRoughness: &qgltf.PBRMetallicRoughness{
				BaseColorFactor: color,
			},
		}

		if mat.ImageIdx >= 0 {
			sampler := &qgltf.Sampler{
				MagFilter: qgltf.MagNearest,
				MinFilter: qgltf.MinNearest,
				WrapS:     wrapMode(mat.RepeatS, mat.MirrorS),
				WrapT:     wrapMode(mat.RepeatT, mat.MirrorT),
			}
			samplerIdx := uint32(len(doc.Samplers))
			doc.Samplers = append(doc.Samplers, sampler)

			texIdx := uint32(len(doc.Textures))
			doc.Textures = append(doc.Textures, &qgltf.Texture{
				Name:    mat.Name,
				Sampler: qgltf.Index(samplerIdx),
				Source:  qgltf.Index(imageIdx[mat.ImageIdx]),
			})

			gm.PBRMetallicRoughness.BaseColorTexture = &qgltf.TextureInfo{Index: texIdx}
		}

		doc.Materials = append(doc.Materials, gm)
	}
}

// exportJoints emits one node per joint. Locals are decomposed to TRS
// so animation channels can target them.
func exportJoints(doc *qgltf.Document, m *scene.Model) []uint32 {
	nodes := make([]uint32, len(m.Joints))
	for i, j := range m.Joints {
		t, r, s := decompose(j.Local)
		nodes[i] = uint32(len(doc.Nodes))
		doc.Nodes = append(doc.Nodes, &qgltf.Node{
			Name:        j.Name,
			Translation: [3]float32(t),
			Rotation:    [4]float32{r.X(), r.Y(), r.Z(), r.W},
			Scale:       [3]float32(s),
		})
	}
	for i, j := range m.Joints {
		if j.Parent >= 0 {
			parent := doc.Nodes[nodes[j.Parent]]
			parent.Children = append(parent.Children, nodes[i])
		}
	}
	return nodes
}

func exportMesh(doc *qgltf.Document, m *scene.Model, jointNodes []uint32) uint32 {
	n := len(m.Vertices)
	positions := make([][3]float32, n)
	texcoords := make([][2]float32, n)
	colors := make([][4]uint8, n)
	joints := make([][4]uint16, n)
	weights := make([][4]float32, n)
	var normals [][3]float32
	if m.HasNormals {
		normals = make([][3]float32, n)
	}

	for i, v := range m.Vertices {
		positions[i] = [3]float32(v.Position)
		texcoords[i] = [2]float32(v.Texcoord)
		colors[i] = [4]uint8{
			uint8(v.Color[0] * 255),
			uint8(v.Color[1] * 255),
			uint8(v.Color[2] * 255),
			255,
		}
		joints[i] = [4]uint16{uint16(v.JointIdx), 0, 0, 0}
		weights[i] = [4]float32{1, 0, 0, 0}
		if m.HasNormals {
			nm := v.Normal
			if nm.Len() > 0.5 {
				nm = nm.Normalize()
			}
			normals[i] = [3]float32(nm)
		}
	}

	attributes := map[string]uint32{
		"POSITION":   modeler.WritePosition(doc, positions),
		"TEXCOORD_0": modeler.WriteTextureCoord(doc, texcoords),
		"COLOR_0":    modeler.WriteColor(doc, colors),
		"JOINTS_0":   modeler.WriteJoints(doc, joints),
		"WEIGHTS_0":  modeler.WriteWeights(doc, weights),
	}
	if m.HasNormals {
		attributes["NORMAL"] = modeler.WriteNormal(doc, normals)
	}

	mesh := &qgltf.Mesh{Name: m.Name}
	for _, dc := range m.DrawCalls {
		indices := make([]uint32, 0, dc.IndexEnd-dc.IndexStart)
		for _, idx := range m.Indices[dc.IndexStart:dc.IndexEnd] {
			indices = append(indices, uint32(idx))
		}
		if len(indices) == 0 {
			continue
		}
		indicesAccessor := modeler.WriteIndices(doc, indices)
		mesh.Primitives = append(mesh.Primitives, &qgltf.Primitive{
			Indices:    qgltf.Index(indicesAccessor),
			Attributes: attributes,
			Material:   qgltf.Index(uint32(dc.MaterialIdx)),
		})
	}
	meshIdx := uint32(len(doc.Meshes))
	doc.Meshes = append(doc.Meshes, mesh)

	ibms := make([]mgl32.Mat4, len(m.Joints))
	for i, j := range m.Joints {
		ibms[i] = j.InvBind
	}
	skinIdx := uint32(len(doc.Skins))
	doc.Skins = append(doc.Skins, &qgltf.Skin{
		Name:                m.Name + "_skin",
		InverseBindMatrices: qgltf.Index(writeMat4s(doc, ibms)),
		Joints:              jointNodes,
	})

	nodeIdx := uint32(len(doc.Nodes))
	doc.Nodes = append(doc.Nodes, &qgltf.Node{
		Name: m.Name,
		Mesh: qgltf.Index(meshIdx),
		Skin: qgltf.Index(skinIdx),
	})
	return nodeIdx
}

// exportAnimations bakes joint tracks as one sample per frame.
func exportAnimations(doc *qgltf.Document, m *scene.Model, jointNodes []uint32) {
	for ti := range m.Tracks {
		track := &m.Tracks[ti]
		if track.Kind != scene.TrackJoints || track.NumFrames == 0 {
			continue
		}

		numFrames := int(track.NumFrames)
		times := make([]float32, numFrames)
		for f := 0; f < numFrames; f++ {
			times[f] = float32(f) * frameLength
		}

		trans := make([][]mgl32.Vec3, len(m.Joints))
		rots := make([][]mgl32.Quat, len(m.Joints))
		scales := make([][]mgl32.Vec3, len(m.Joints))
		for f := 0; f < numFrames; f++ {
			locals := track.JointLocals(m, f)
			for j, local := range locals {
				t, r, s := decompose(local)
				trans[j] = append(trans[j], t)
				rots[j] = append(rots[j], r)
				scales[j] = append(scales[j], s)
			}
		}

		anim := &qgltf.Animation{Name: track.Name}
		timesAccessor := writeTimes(doc, times)
		for j := range m.Joints {
			addChannel(doc, anim, timesAccessor, jointNodes[j], qgltf.TRSTranslation, writeVec3s(doc, trans[j]))
			addChannel(doc, anim, timesAccessor, jointNodes[j], qgltf.TRSRotation, writeQuats(doc, rots[j]))
			addChannel(doc, anim, timesAccessor, jointNodes[j], qgltf.TRSScale, writeVec3s(doc, scales[j]))
		}
		doc.Animations = append(doc.Animations, anim)
	}
}

func addChannel(doc *qgltf.Document, anim *qgltf.Animation, input, node uint32, path qgltf.TRSProperty, output uint32) {
	samplerIdx := uint32(len(anim.Samplers))
	anim.Samplers = append(anim.Samplers, &qgltf.AnimationSampler{
		Input:         qgltf.Index(input),
		Output:        qgltf.Index(output),
		Interpolation: qgltf.InterpolationLinear,
	})
	anim.Channels = append(anim.Channels, &qgltf.Channel{
		Sampler: qgltf.Index(samplerIdx),
		Target: qgltf.ChannelTarget{
			Node: qgltf.Index(node),
			Path: path,
		},
	})
}

// decompose splits a TRS matrix back into its parts.
func decompose(m mgl32.Mat4) (t mgl32.Vec3, r mgl32.Quat, s mgl32.Vec3) {
	t = m.Col(3).Vec3()
	c0 := m.Col(0).Vec3()
	c1 := m.Col(1).Vec3()
	c2 := m.Col(2).Vec3()
	s = mgl32.Vec3{c0.Len(), c1.Len(), c2.Len()}

	rot := mgl32.Ident4()
	if s[0] != 0 && s[1] != 0 && s[2] != 0 {
		rot = mgl32.Mat4FromCols(
			c0.Mul(1/s[0]).Vec4(0),
			c1.Mul(1/s[1]).Vec4(0),
			c2.Mul(1/s[2]).Vec4(0),
			mgl32.Vec4{0, 0, 0, 1},
		)
	}
	r = mgl32.Mat4ToQuat(rot).Normalize()
	return t, r, s
}
