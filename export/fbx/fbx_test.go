package fbx_test

import (
	"bytes"
	"image"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/scurest/apicula/config"
	exportfbx "github.com/scurest/apicula/export/fbx"
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
			{Name: "skin", ImageIdx: 0, Alpha: 1},
		},
		Images: []scene.Image{
			{Name: "checker", Pixels: image.NewNRGBA(image.Rect(0, 0, 8, 8))},
		},
	}
}

func TestExport(t *testing.T) {
	config.SetUpAxis(config.UpAxisY)

	var buf bytes.Buffer
	extra, err := exportfbx.Export(smokeModel(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	if buf.Len() == 0 {
		t.Fatal("export wrote nothing")
	}
	if _, ok := extra["checker.png"]; !ok || len(extra) != 1 {
		t.Errorf("%d extra files; expected just checker.png", len(extra))
	}
}
