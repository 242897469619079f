// Package collada writes assembled models as COLLADA 1.4.1 .dae
// documents.
package collada

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"image/png"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/scurest/apicula/config"
	"github.com/scurest/apicula/scene"
)

const frameLength = 1.0 / 60.0

type exporter struct {
	m     *scene.Model
	doc   *Document
	extra map[string][]byte
}

// Export writes m to w. When texture embedding is off the images are
// returned as sibling .png files.
func Export(m *scene.Model, w io.Writer) (map[string][]byte, error) {
	upAxis := "Y_UP"
	if config.GetUpAxis() == config.UpAxisZ {
		upAxis = "Z_UP"
	}
	now := time.Now().UTC().Format("2006-01-02T15:04:05Z")

	e := &exporter{
		m: m,
		doc: &Document{
			XMLNS:   "http://www.collada.org/2005/11/COLLADASchema",
			Version: "1.4.1",
			Asset:   Asset{Created: now, Modified: now, UpAxis: upAxis},
			Scene: Scene{
				InstanceVisualScene: InstanceVisualScene{URL: "#scene0"},
			},
		},
		extra: make(map[string][]byte),
	}

	if err := e.images(); err != nil {
		return nil, err
	}
	e.materials()
	e.geometry()
	e.controller()
	e.animations()
	e.visualScene()

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return nil, err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(e.doc); err != nil {
		return nil, errors.Wrapf(err, "encoding %s", m.Name)
	}
	return e.extra, nil
}

func (e *exporter) images() error {
	if len(e.m.Images) == 0 {
		return nil
	}
	lib := &LibImages{}
	for i, img := range e.m.Images {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img.Pixels); err != nil {
			return errors.Wrapf(err, "encoding texture %s", img.Name)
		}

		var initFrom string
		if config.GetEmbedTextures() {
			initFrom = "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
		} else {
			initFrom = img.Name + ".png"
			e.extra[initFrom] = buf.Bytes()
		}
		lib.Images = append(lib.Images, Image{
			ID:       e.imageID(i),
			Name:     img.Name,
			InitFrom: initFrom,
		})
	}
	e.doc.Images = lib
	return nil
}

func wrapName(repeat, mirror bool) string {
	switch {
	case mirror:
		return "MIRROR"
	case repeat:
		return "WRAP"
	default:
		return "CLAMP"
	}
}

func (e *exporter) materials() {
	effects := &LibEffects{}
	materials := &LibMaterials{}

	for i, mat := range e.m.Materials {
		effectID := fmt.Sprintf("%s_effect%d", e.m.Name, i)

		diffuse := ColorOrTexture{
			Color: floatString(mat.Diffuse[0], mat.Diffuse[1], mat.Diffuse[2], mat.Alpha),
		}
		var params []NewParam
		if mat.ImageIdx >= 0 {
			surfaceSID := effectID + "_surface"
			samplerSID := effectID + "_sampler"
			params = []NewParam{
				{
					SID:     surfaceSID,
					Surface: &Surface{Type: "2D", InitFrom: e.imageID(mat.ImageIdx)},
				},
				{
					SID: samplerSID,
					Sampler2D: &Sampler2D{
						Source: surfaceSID,
						WrapS:  wrapName(mat.RepeatS, mat.MirrorS),
						WrapT:  wrapName(mat.RepeatT, mat.MirrorT),
					},
				},
			}
			diffuse = ColorOrTexture{
				Texture: &Texture{Texture: samplerSID, Texcoord: "tc"},
			}
		}

		effects.Effects = append(effects.Effects, Effect{
			ID: effectID,
			ProfileCommon: ProfileCommon{
				NewParams: params,
				Technique: EffectTechnique{
					SID: "common",
					Phong: Phong{
						Diffuse:      diffuse,
						Transparency: mat.Alpha,
					},
				},
			},
		})
		materials.Materials = append(materials.Materials, Material{
			ID:             e.materialID(i),
			Name:           mat.Name,
			InstanceEffect: InstanceEffect{URL: "#" + effectID},
		})
	}

	e.doc.Effects = effects
	e.doc.Materials = materials
}

func (e *exporter) geometry() {
	m := e.m
	geomID := m.Name + "_geom"

	var positions, normals, texcoords, colors []float32
	for _, v := range m.Vertices {
		positions = append(positions, v.Position[0], v.Position[1], v.Position[2])
		normals = append(normals, v.Normal[0], v.Normal[1], v.Normal[2])
		texcoords = append(texcoords, v.Texcoord[0], v.Texcoord[1])
		colors = append(colors, v.Color[0], v.Color[1], v.Color[2])
	}

	mesh := Mesh{
		Sources: []Source{
			floatSource(geomID+"_positions", positions, 3, "X", "Y", "Z"),
			floatSource(geomID+"_texcoords", texcoords, 2, "S", "T"),
			floatSource(geomID+"_colors", colors, 3, "R", "G", "B"),
		},
		Vertices: Vertices{
			ID: geomID + "_vertices",
			Inputs: []Input{
				{Semantic: "POSITION", Source: "#" + geomID + "_positions"},
			},
		},
	}
	if m.HasNormals {
		mesh.Sources = append(mesh.Sources, floatSource(geomID+"_normals", normals, 3, "X", "Y", "Z"))
	}

	zero := 0
	for _, dc := range m.DrawCalls {
		if dc.IndexStart == dc.IndexEnd {
			continue
		}
		inputs := []Input{
			{Semantic: "VERTEX", Source: "#" + geomID + "_vertices", Offset: &zero},
			{Semantic: "TEXCOORD", Source: "#" + geomID + "_texcoords", Offset: &zero},
			{Semantic: "COLOR", Source: "#" + geomID + "_colors", Offset: &zero},
		}
		if m.HasNormals {
			inputs = append(inputs, Input{Semantic: "NORMAL", Source: "#" + geomID + "_normals", Offset: &zero})
		}

		var p strings.Builder
		for _, idx := range m.Indices[dc.IndexStart:dc.IndexEnd] {
			if p.Len() > 0 {
				p.WriteByte(' ')
			}
			p.WriteString(strconv.Itoa(int(idx)))
		}
		mesh.Triangles = append(mesh.Triangles, Triangles{
			Count:    (dc.IndexEnd - dc.IndexStart) / 3,
			Material: e.materialSymbol(int(dc.MaterialIdx)),
			Inputs:   inputs,
			P:        p.String(),
		})
	}

	e.doc.Geometries = &LibGeometries{
		Geometries: []Geometry{{ID: geomID, Name: m.Name, Mesh: mesh}},
	}
}

// controller emits the skin: every vertex has exactly one influence at
// full weight.
func (e *exporter) controller() {
	m := e.m
	ctrlID := m.Name + "_skin"

	var jointNames strings.Builder
	var ibms []float32
	for i, j := range m.Joints {
		if jointNames.Len() > 0 {
			jointNames.WriteByte(' ')
		}
		jointNames.WriteString(e.jointSID(i))
		ibms = appendMat(ibms, j.InvBind)
	}

	jointsSource := Source{
		ID: ctrlID + "_joints",
		NameArray: &NameArray{
			ID:    ctrlID + "_joints_array",
			Count: len(m.Joints),
			Text:  jointNames.String(),
		},
		Technique: SourceTechnique{
			Accessor: Accessor{
				Source: "#" + ctrlID + "_joints_array",
				Count:  len(m.Joints),
				Stride: 1,
				Params: []Param{{Name: "JOINT", Type: "name"}},
			},
		},
	}
	bindsSource := matrixSource(ctrlID+"_binds", ibms)
	weightsSource := floatSource(ctrlID+"_weights", []float32{1}, 1, "WEIGHT")

	var vcount, v strings.Builder
	for i, vert := range m.Vertices {
		if i > 0 {
			vcount.WriteByte(' ')
			v.WriteByte(' ')
		}
		vcount.WriteByte('1')
		fmt.Fprintf(&v, "%d 0", vert.JointIdx)
	}

	zero, one := 0, 1
	e.doc.Controllers = &LibControllers{
		Controllers: []Controller{{
			ID: ctrlID,
			Skin: Skin{
				Source:       "#" + m.Name + "_geom",
				BindShapeMat: identityMatrixText,
				Sources:      []Source{jointsSource, bindsSource, weightsSource},
				Joints: Joints{
					Inputs: []Input{
						{Semantic: "JOINT", Source: "#" + ctrlID + "_joints"},
						{Semantic: "INV_BIND_MATRIX", Source: "#" + ctrlID + "_binds"},
					},
				},
				VertexWeights: VertexWeights{
					Count: len(m.Vertices),
					Inputs: []Input{
						{Semantic: "JOINT", Source: "#" + ctrlID + "_joints", Offset: &zero},
						{Semantic: "WEIGHT", Source: "#" + ctrlID + "_weights", Offset: &one},
					},
					VCount: vcount.String(),
					V:      v.String(),
				},
			},
		}},
	}
}

// animations bakes joint tracks as a matrix channel per joint, one
// sample per frame.
func (e *exporter) animations() {
	m := e.m
	lib := &LibAnimations{}

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

		mats := make([][]float32, len(m.Joints))
		for f := 0; f < numFrames; f++ {
			locals := track.JointLocals(m, f)
			for j, local := range locals {
				mats[j] = appendMat(mats[j], local)
			}
		}

		anim := Animation{ID: fmt.Sprintf("anim%d_%s", ti, track.Name)}
		var interp strings.Builder
		for f := 0; f < numFrames; f++ {
			if f > 0 {
				interp.WriteByte(' ')
			}
			interp.WriteString("LINEAR")
		}

		for j := range m.Joints {
			base := fmt.Sprintf("anim%d_joint%d", ti, j)
			child := Animation{
				Sources: []Source{
					floatSource(base+"_times", times, 1, "TIME"),
					matrixSource(base+"_mats", mats[j]),
					{
						ID: base + "_interp",
						NameArray: &NameArray{
							ID:    base + "_interp_array",
							Count: numFrames,
							Text:  interp.String(),
						},
						Technique: SourceTechnique{
							Accessor: Accessor{
								Source: "#" + base + "_interp_array",
								Count:  numFrames,
								Stride: 1,
								Params: []Param{{Name: "INTERPOLATION", Type: "name"}},
							},
						},
					},
				},
				Samplers: []Sampler{{
					ID: base + "_sampler",
					Inputs: []Input{
						{Semantic: "INPUT", Source: "#" + base + "_times"},
						{Semantic: "OUTPUT", Source: "#" + base + "_mats"},
						{Semantic: "INTERPOLATION", Source: "#" + base + "_interp"},
					},
				}},
				Channels: []Channel{{
					Source: "#" + base + "_sampler",
					Target: e.jointNodeID(j) + "/transform",
				}},
			}
			anim.Children = append(anim.Children, child)
		}
		lib.Animations = append(lib.Animations, anim)
	}

	if len(lib.Animations) > 0 {
		e.doc.Animations = lib
	}
}

func (e *exporter) visualScene() {
	m := e.m

	children := make(map[int][]int)
	for i, j := range m.Joints {
		if j.Parent >= 0 {
			children[j.Parent] = append(children[j.Parent], i)
		}
	}

	var buildNode func(i int) Node
	buildNode = func(i int) Node {
		n := Node{
			ID:     e.jointNodeID(i),
			SID:    e.jointSID(i),
			Name:   m.Joints[i].Name,
			Type:   "JOINT",
			Matrix: &Matrix{SID: "transform", Text: matrixText(m.Joints[i].Local)},
		}
		for _, c := range children[i] {
			n.Children = append(n.Children, buildNode(c))
		}
		return n
	}

	var nodes []Node
	var skeletons []string
	for _, root := range m.RootJoints {
		nodes = append(nodes, buildNode(root))
		skeletons = append(skeletons, "#"+e.jointNodeID(root))
	}

	var instMats []InstanceMaterial
	for i := range m.Materials {
		instMats = append(instMats, InstanceMaterial{
			Symbol: e.materialSymbol(i),
			Target: "#" + e.materialID(i),
			Bind: []BindVertexInput{
				{Semantic: "tc", InputSemantic: "TEXCOORD", InputSet: 0},
			},
		})
	}

	nodes = append(nodes, Node{
		ID:   m.Name + "_node",
		Name: m.Name,
		InstanceController: &InstanceController{
			URL:       "#" + m.Name + "_skin",
			Skeletons: skeletons,
			BindMat:   &BindMaterial{Materials: instMats},
		},
	})

	e.doc.VisualScenes = &LibVisualScenes{
		Scenes: []VisualScene{{ID: "scene0", Name: m.Name, Nodes: nodes}},
	}
}

func (e *exporter) imageID(i int) string {
	return fmt.Sprintf("%s_image%d", e.m.Name, i)
}

func (e *exporter) materialID(i int) string {
	return fmt.Sprintf("%s_material%d", e.m.Name, i)
}

// materialSymbol is the bind symbol for material i. The index keeps
// symbols distinct when two materials share a name.
func (e *exporter) materialSymbol(i int) string {
	return fmt.Sprintf("%s_%d", e.m.Materials[i].Name, i)
}

func (e *exporter) jointNodeID(i int) string {
	return fmt.Sprintf("%s_joint%d", e.m.Name, i)
}

func (e *exporter) jointSID(i int) string {
	return fmt.Sprintf("j%d", i)
}

const identityMatrixText = "1 0 0 0 0 1 0 0 0 0 1 0 0 0 0 1"

func floatString(vals ...float32) string {
	var b strings.Builder
	for i, v := range vals {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
	}
	return b.String()
}

func floatSource(id string, vals []float32, stride int, paramNames ...string) Source {
	params := make([]Param, len(paramNames))
	for i, n := range paramNames {
		params[i] = Param{Name: n, Type: "float"}
	}
	return Source{
		ID: id,
		FloatArray: &FloatArray{
			ID:    id + "_array",
			Count: len(vals),
			Text:  floatString(vals...),
		},
		Technique: SourceTechnique{
			Accessor: Accessor{
				Source: "#" + id + "_array",
				Count:  len(vals) / stride,
				Stride: stride,
				Params: params,
			},
		},
	}
}

func matrixSource(id string, vals []float32) Source {
	return Source{
		ID: id,
		FloatArray: &FloatArray{
			ID:    id + "_array",
			Count: len(vals),
			Text:  floatString(vals...),
		},
		Technique: SourceTechnique{
			Accessor: Accessor{
				Source: "#" + id + "_array",
				Count:  len(vals) / 16,
				Stride: 16,
				Params: []Param{{Name: "TRANSFORM", Type: "float4x4"}},
			},
		},
	}
}

// appendMat appends a matrix in row-major order, which is what COLLADA
// stores.
func appendMat(out []float32, m mgl32.Mat4) []float32 {
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			out = append(out, m.At(row, col))
		}
	}
	return out
}

func matrixText(m mgl32.Mat4) string {
	return floatString(appendMat(nil, m)...)
}
