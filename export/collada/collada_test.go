package collada_test

import (
	"bytes"
	"encoding/xml"
	"image"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/scurest/apicula/config"
	"github.com/scurest/apicula/export/collada"
	"github.com/scurest/apicula/scene"
)

func smokeModel() *scene.Model {
	return &scene.Model{
		Name: "box",
		Joints: []scene.Joint{{
			Name:      "root",
			Parent:    -1,
			ObjectIdx: -1,
			Local:     mgl32.Ident4(),
			Bind:      mgl32.Ident4(),
			InvBind:   mgl32.Ident4(),
		}},
		RootJoints: []int{0},
		Vertices: []scene.Vertex{
			{Position: mgl32.Vec3{0, 0, 0}},
			{Position: mgl32.Vec3{1, 0, 0}},
			{Position: mgl32.Vec3{0, 1, 0}},
		},
		Indices: []uint16{0, 1, 2},
		DrawCalls: []scene.DrawCall{
			{VertexStart: 0, VertexEnd: 3, IndexStart: 0, IndexEnd: 3, MaterialIdx: 0},
		},
		Materials: []scene.Material{
			{Name: "skin", ImageIdx: 0, Alpha: 1, RepeatS: true, RepeatT: true},
		},
		Images: []scene.Image{
			{Name: "checker", Pixels: image.NewNRGBA(image.Rect(0, 0, 8, 8))},
		},
	}
}

func TestExport(t *testing.T) {
	config.SetEmbedTextures(true)
	config.SetUpAxis(config.UpAxisY)

	var buf bytes.Buffer
	extra, err := collada.Export(smokeModel(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(extra) != 0 {
		t.Errorf("embedded export returned %d extra files; expected none", len(extra))
	}

	out := buf.String()
	if !strings.Contains(out, "<COLLADA") {
		t.Fatal("output has no COLLADA root element")
	}
	var doc struct {
		XMLName xml.Name `xml:"COLLADA"`
	}
	if err := xml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Errorf("output is not well-formed XML: %v", err)
	}
}

func TestExportDuplicateMaterialNames(t *testing.T) {
	config.SetEmbedTextures(true)

	// Two materials named "skin" must still bind under distinct symbols.
	m := smokeModel()
	m.Materials = append(m.Materials, scene.Material{Name: "skin", ImageIdx: -1, Alpha: 1})
	m.DrawCalls = append(m.DrawCalls, scene.DrawCall{
		VertexStart: 0, VertexEnd: 3, IndexStart: 0, IndexEnd: 3, MaterialIdx: 1,
	})

	var buf bytes.Buffer
	if _, err := collada.Export(m, &buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, sym := range []string{"skin_0", "skin_1"} {
		if !strings.Contains(out, `symbol="`+sym+`"`) {
			t.Errorf("no instance_material with symbol %q", sym)
		}
		if !strings.Contains(out, `material="`+sym+`"`) {
			t.Errorf("no triangles bound to material %q", sym)
		}
	}
}

func TestExportSiblingTextures(t *testing.T) {
	config.SetEmbedTextures(false)
	defer config.SetEmbedTextures(true)

	var buf bytes.Buffer
	extra, err := collada.Export(smokeModel(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := extra["checker.png"]; !ok || len(extra) != 1 {
		t.Errorf("extra files = %v; expected just checker.png", keys(extra))
	}
}

func keys(m map[string][]byte) []string {
	var out []string
	for k := range m {
		out = append(out, k)
	}
	return out
}
