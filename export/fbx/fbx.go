// Package fbx writes assembled models as binary FBX 7.4 scenes.
// Geometry, the joint hierarchy, materials and textures are covered;
// animation is the glTF and COLLADA exporters' territory.
package fbx

import (
	"bytes"
	"fmt"
	"image/png"
	"io"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/mogaika/fbx"
	"github.com/mogaika/fbx/builders/bfbx73"
	"github.com/pkg/errors"

	"github.com/scurest/apicula/config"
	"github.com/scurest/apicula/scene"
)

// Export writes m to w. FBX has no sanctioned way to inline PNGs, so
// textures always come back as sibling files.
func Export(m *scene.Model, w io.Writer) (map[string][]byte, error) {
	upAxis := int32(1)
	if config.GetUpAxis() == config.UpAxisZ {
		upAxis = 2
	}
	b := newBuilder(m.Name+".fbx", upAxis)

	textureIDs, err := exportTextures(b, m)
	if err != nil {
		return nil, err
	}
	materialIDs := exportMaterials(b, m, textureIDs)
	exportJoints(b, m)
	exportDrawCalls(b, m, materialIDs)

	if err := b.write(w); err != nil {
		return nil, errors.Wrapf(err, "serializing %s", m.Name)
	}
	return b.files, nil
}

func exportTextures(b *builder, m *scene.Model) ([]int64, error) {
	ids := make([]int64, len(m.Images))
	for i, img := range m.Images {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img.Pixels); err != nil {
			return nil, errors.Wrapf(err, "encoding texture %s", img.Name)
		}
		fileName := fmt.Sprintf("%s.png", img.Name)
		b.addExportFile(fileName, buf.Bytes())

		videoID := b.generateID()
		video := bfbx73.Video(videoID, img.Name+"\x00\x01Video", "Clip").AddNodes(
			bfbx73.Type("Clip"),
			bfbx73.Properties70().AddNodes(
				bfbx73.P("Path", "KString", "XRefUrl", "", fileName),
			),
			bfbx73.Filename(fileName),
			bfbx73.RelativeFilename(fileName),
		)

		textureID := b.generateID()
		texture := bfbx73.Texture(textureID, img.Name+"\x00\x01Texture", "").AddNodes(
			bfbx73.Type("TextureVideoClip"),
			bfbx73.Version(202),
			bfbx73.TextureName(img.Name+"\x00\x01Texture"),
			bfbx73.Properties70().AddNodes(
				bfbx73.P("UseMaterial", "bool", "", "", int32(1)),
				bfbx73.P("CurrentTextureBlendMode", "enum", "", "", int32(0)),
			),
			fbx.NewNode("FileName", fileName),
			bfbx73.RelativeFilename(fileName),
		)

		b.addObjects(video, texture)
		b.addConnections(bfbx73.C("OO", videoID, textureID))
		ids[i] = textureID
	}
	return ids, nil
}

func exportMaterials(b *builder, m *scene.Model, textureIDs []int64) []int64 {
	ids := make([]int64, len(m.Materials))
	for i, mat := range m.Materials {
		id := b.generateID()
		node := bfbx73.Material(id, mat.Name+"\x00\x01Material", "").AddNodes(
			bfbx73.Version(102),
			bfbx73.ShadingModel("lambert"),
			bfbx73.MultiLayer(0),
			bfbx73.Properties70().AddNodes(
				bfbx73.P("AmbientColor", "Color", "", "A",
					float64(mat.Ambient[0]), float64(mat.Ambient[1]), float64(mat.Ambient[2])),
				bfbx73.P("DiffuseColor", "Color", "", "A",
					float64(mat.Diffuse[0]), float64(mat.Diffuse[1]), float64(mat.Diffuse[2])),
				bfbx73.P("Emissive", "Vector3D", "Vector", "",
					float64(mat.Emission[0]), float64(mat.Emission[1]), float64(mat.Emission[2])),
				bfbx73.P("Diffuse", "Vector3D", "Vector", "",
					float64(mat.Diffuse[0]), float64(mat.Diffuse[1]), float64(mat.Diffuse[2])),
				bfbx73.P("Opacity", "double", "Number", "", float64(mat.Alpha)),
			),
		)
		b.addObjects(node)
		if mat.ImageIdx >= 0 {
			b.addConnections(bfbx73.C("OP", textureIDs[mat.ImageIdx], id, "DiffuseColor"))
		}
		ids[i] = id
	}
	return ids
}

// exportJoints emits the skeleton forest as Null models so importers
// show the same hierarchy the interpreter built.
func exportJoints(b *builder, m *scene.Model) []int64 {
	ids := make([]int64, len(m.Joints))
	for i, j := range m.Joints {
		t, r, s := decompose(j.Local)
		rot := quatToEuler(r).Mul(180.0 / math.Pi)

		id := b.generateID()
		model := bfbx73.Model(id, j.Name+"\x00\x01Model", "Null").AddNodes(
			bfbx73.Version(232),
			bfbx73.Properties70().AddNodes(
				bfbx73.P("InheritType", "enum", "", "", int32(1)),
				bfbx73.P("Lcl Translation", "Lcl Translation", "", "A",
					float64(t[0]), float64(t[1]), float64(t[2])),
				bfbx73.P("Lcl Rotation", "Lcl Rotation", "", "A",
					float64(rot[0]), float64(rot[1]), float64(rot[2])),
				bfbx73.P("Lcl Scaling", "Lcl Scaling", "", "A",
					float64(s[0]), float64(s[1]), float64(s[2])),
			),
			bfbx73.Shading(true),
			bfbx73.Culling("CullingOff"),
		)

		nodeAttribute := bfbx73.NodeAttribute(
			b.generateID(), j.Name+"\x00\x01NodeAttribute", "Null").AddNodes(
			bfbx73.TypeFlags("Null"),
		)

		b.addObjects(model, nodeAttribute)
		b.addConnections(bfbx73.C("OO", nodeAttribute.Properties[0].(int64), id))
		ids[i] = id
	}

	for i, j := range m.Joints {
		if j.Parent >= 0 {
			b.addConnections(bfbx73.C("OO", ids[i], ids[j.Parent]))
		} else {
			b.addConnections(bfbx73.C("OO", ids[i], 0))
		}
	}
	return ids
}

func exportDrawCalls(b *builder, m *scene.Model, materialIDs []int64) {
	for dci, dc := range m.DrawCalls {
		if dc.IndexStart == dc.IndexEnd {
			continue
		}

		vertices := make([]float64, 0, (dc.VertexEnd-dc.VertexStart)*3)
		normals := make([]float64, 0)
		colors := make([]float64, 0)
		uv := make([]float64, 0)
		for _, v := range m.Vertices[dc.VertexStart:dc.VertexEnd] {
			vertices = append(vertices,
				float64(v.Position[0]), float64(v.Position[1]), float64(v.Position[2]))
			colors = append(colors,
				float64(v.Color[0]), float64(v.Color[1]), float64(v.Color[2]), float64(1))
			uv = append(uv, float64(v.Texcoord[0]), float64(v.Texcoord[1]))
			if m.HasNormals {
				normals = append(normals,
					float64(v.Normal[0]), float64(v.Normal[1]), float64(v.Normal[2]))
			}
		}

		indexes := make([]int32, 0, dc.IndexEnd-dc.IndexStart)
		uvindexes := make([]int32, 0, dc.IndexEnd-dc.IndexStart)
		tri := m.Indices[dc.IndexStart:dc.IndexEnd]
		for t := 0; t+2 < len(tri); t += 3 {
			a := int32(tri[t]) - int32(dc.VertexStart)
			bb := int32(tri[t+1]) - int32(dc.VertexStart)
			c := int32(tri[t+2]) - int32(dc.VertexStart)
			indexes = append(indexes, a, bb, -c-1)
			uvindexes = append(uvindexes, a, bb, c)
		}

		name := fmt.Sprintf("%s_dc%d", m.Name, dci)

		geometryID := b.generateID()
		geometryLayer := bfbx73.Layer(0).AddNodes(
			bfbx73.Version(100),
		)
		geometry := bfbx73.Geometry(geometryID, "\x00\x01Geometry", "Mesh").AddNodes(
			bfbx73.Properties70().AddNodes(
				bfbx73.P("Color", "ColorRGB", "Color", "", float64(1), float64(1), float64(1)),
			),
			bfbx73.GeometryVersion(124),
			bfbx73.Vertices(vertices),
			bfbx73.PolygonVertexIndex(indexes),
			geometryLayer,
		)

		if m.HasNormals {
			geometry.AddNode(
				bfbx73.LayerElementNormal(0).AddNodes(
					bfbx73.Version(101),
					bfbx73.Name(""),
					bfbx73.MappingInformationType("ByVertice"),
					bfbx73.ReferenceInformationType("Direct"),
					bfbx73.Normals(normals),
				),
			)
			geometryLayer.AddNode(
				bfbx73.LayerElement().AddNodes(
					bfbx73.Type("LayerElementNormal"),
					bfbx73.TypedIndex(0),
				),
			)
		}

		geometry.AddNode(
			bfbx73.LayerElementColor(0).AddNodes(
				bfbx73.Version(101),
				bfbx73.Name(""),
				bfbx73.MappingInformationType("ByVertice"),
				bfbx73.ReferenceInformationType("Direct"),
				bfbx73.Colors(colors),
			),
		)
		geometryLayer.AddNode(
			bfbx73.LayerElement().AddNodes(
				bfbx73.Type("LayerElementColor"),
				bfbx73.TypedIndex(0),
			),
		)

		geometry.AddNode(
			bfbx73.LayerElementUV(0).AddNodes(
				bfbx73.Version(101),
				bfbx73.Name(""),
				bfbx73.MappingInformationType("ByPolygonVertex"),
				bfbx73.ReferenceInformationType("IndexToDirect"),
				bfbx73.UV(uv),
				bfbx73.UVIndex(uvindexes),
			),
		)
		geometryLayer.AddNode(
			bfbx73.LayerElement().AddNodes(
				bfbx73.Type("LayerElementUV"),
				bfbx73.TypedIndex(0),
			),
		)

		geometry.AddNode(
			bfbx73.LayerElementMaterial(0).AddNodes(
				bfbx73.Version(101),
				bfbx73.Name(""),
				bfbx73.MappingInformationType("AllSame"),
				bfbx73.ReferenceInformationType("IndexToDirect"),
				bfbx73.Materials([]int32{0}),
			),
		)
		geometryLayer.AddNode(
			bfbx73.LayerElement().AddNodes(
				bfbx73.Type("LayerElementMaterial"),
				bfbx73.TypedIndex(0),
			),
		)

		modelID := b.generateID()
		model := bfbx73.Model(modelID, name+"\x00\x01Model", "Mesh").AddNodes(
			bfbx73.Version(232),
			bfbx73.Properties70().AddNodes(
				bfbx73.P("InheritType", "enum", "", "", int32(1)),
				bfbx73.P("DefaultAttributeIndex", "int", "Integer", "", int32(0)),
				bfbx73.P("Lcl Translation", "Lcl Translation", "", "A", float64(0), float64(0), float64(0)),
				bfbx73.P("Lcl Rotation", "Lcl Rotation", "", "A", float64(0), float64(0), float64(0)),
				bfbx73.P("Lcl Scaling", "Lcl Scaling", "", "A", float64(1), float64(1), float64(1)),
			),
			bfbx73.Shading(true),
			bfbx73.Culling("CullingOff"),
		)

		b.addObjects(model, geometry)
		b.addConnections(
			bfbx73.C("OO", geometryID, modelID),
			bfbx73.C("OO", materialIDs[dc.MaterialIdx], modelID),
			bfbx73.C("OO", modelID, 0),
		)
	}
}

func quatToEuler(q mgl32.Quat) (e mgl32.Vec3) {
	sinrCosp := float64(2 * (q.W*q.X() + q.Y()*q.Z()))
	cosrCosp := float64(1 - 2*(q.X()*q.X()+q.Y()*q.Y()))
	e[0] = float32(math.Atan2(sinrCosp, cosrCosp))

	sinp := float64(2 * (q.W*q.Y() - q.Z()*q.X()))
	if math.Abs(sinp) >= 1 {
		e[1] = math.Pi / 2
		if sinp < 0 {
			e[1] *= -1
		}
	} else {
		e[1] = float32(math.Asin(sinp))
	}

	sinyCosp := float64(2 * (q.W*q.Z() + q.X()*q.Y()))
	cosyCosp := float64(1 - 2*(q.Y()*q.Y()+q.Z()*q.Z()))
	e[2] = float32(math.Atan2(sinyCosp, cosyCosp))

	return e
}

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
