package scene

import (
	"reflect"
	"testing"

	"github.com/scurest/apicula/nitro"
	"github.com/scurest/apicula/nitro/mdl"
)

func assembleDatabase() *Database {
	src := testModel(
		mdl.OpMulObject{ObjectIdx: 0},
		mdl.OpBindMaterial{MaterialIdx: 0},
		mdl.OpDraw{MeshIdx: 0},
	)
	missing := nitro.NameFromString("missing")
	src.Materials[0].Name = nitro.NameFromString("skin")
	src.Materials[0].TextureName = &missing

	db := &Database{
		texturesByName: make(map[nitro.Name][]int),
		palettesByName: make(map[nitro.Name][]int),
	}
	db.merge("a.nsbmd", &fileContents{models: []*mdl.Model{src}})
	return db
}

func TestAssembleUnresolvedTexture(t *testing.T) {
	db := assembleDatabase()

	m, err := db.Assemble(0, AssembleOptions{})
	if err != nil {
		t.Fatal(err)
	}

	if len(m.Materials) != 1 || m.Materials[0].ImageIdx != -1 {
		t.Fatalf("materials = %+v; expected one with no image", m.Materials)
	}
	if len(m.Diagnostics) != 1 {
		t.Fatalf("%d diagnostics; expected 1", len(m.Diagnostics))
	}
	d := m.Diagnostics[0]
	if d.Kind != "texture" || d.From != "skin" || d.Name != "missing" {
		t.Errorf("diagnostic = %+v; expected unresolved texture missing from skin", d)
	}
}

func TestAssembleDeterministic(t *testing.T) {
	db := assembleDatabase()

	m1, err := db.Assemble(0, AssembleOptions{})
	if err != nil {
		t.Fatal(err)
	}
	m2, err := db.Assemble(0, AssembleOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(m1, m2) {
		t.Error("assembling the same model twice gave different results")
	}
}

func TestAssembleBadID(t *testing.T) {
	db := assembleDatabase()
	if _, err := db.Assemble(5, AssembleOptions{}); err == nil {
		t.Error("out-of-range model id accepted")
	}
}
