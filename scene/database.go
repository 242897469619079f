package scene

import (
	"log"
	"sync"

	"github.com/pkg/errors"

	"github.com/scurest/apicula/nitro"
	"github.com/scurest/apicula/nitro/anm"
	"github.com/scurest/apicula/nitro/mdl"
	"github.com/scurest/apicula/nitro/pat"
	"github.com/scurest/apicula/nitro/srt"
	"github.com/scurest/apicula/nitro/tex"
)

// InputFile is one file handed to the database. Kind, when non-empty,
// is the container stamp the caller claims the file is (say, from its
// extension); a mismatched stamp inside the file is an error.
type InputFile struct {
	Name string
	Data []byte
	Kind string
}

// Database pools every resource decoded from a batch of files so that
// cross-file references (a model in one file using textures from
// another) can be resolved by name.
type Database struct {
	FileNames []string

	Models     []*mdl.Model
	Textures   []*tex.Texture
	Palettes   []*tex.Palette
	Animations []*anm.Animation
	Patterns   []*pat.Pattern
	MatAnims   []*srt.MaterialAnimation

	// Which input file each resource came from, parallel to the slices
	// above. Resolution prefers resources from the same file.
	ModelFile     []int
	TextureFile   []int
	PaletteFile   []int
	AnimationFile []int
	PatternFile   []int
	MatAnimFile   []int

	texturesByName map[nitro.Name][]int
	palettesByName map[nitro.Name][]int
}

// fileContents is everything decoded from a single file.
type fileContents struct {
	models     []*mdl.Model
	textures   []*tex.Texture
	palettes   []*tex.Palette
	animations []*anm.Animation
	patterns   []*pat.Pattern
	matAnims   []*srt.MaterialAnimation
}

// BuildDatabase decodes every file and merges the results. Files are
// independent, so they decode concurrently; the merge is ordered by
// input position, so the database is deterministic. A file that fails
// to decode is skipped with a log line rather than sinking the batch.
func BuildDatabase(files []InputFile) *Database {
	contents := make([]*fileContents, len(files))
	errs := make([]error, len(files))

	var wg sync.WaitGroup
	for i := range files {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			contents[i], errs[i] = decodeFile(&files[i])
		}(i)
	}
	wg.Wait()

	db := &Database{
		texturesByName: make(map[nitro.Name][]int),
		palettesByName: make(map[nitro.Name][]int),
	}
	for i := range files {
		if errs[i] != nil {
			log.Printf("skipping %s: %v", files[i].Name, errs[i])
			continue
		}
		db.merge(files[i].Name, contents[i])
	}
	return db
}

func (db *Database) merge(fileName string, c *fileContents) {
	fileID := len(db.FileNames)
	db.FileNames = append(db.FileNames, fileName)

	for _, m := range c.models {
		db.Models = append(db.Models, m)
		db.ModelFile = append(db.ModelFile, fileID)
	}
	for _, t := range c.textures {
		id := len(db.Textures)
		db.Textures = append(db.Textures, t)
		db.TextureFile = append(db.TextureFile, fileID)
		db.texturesByName[t.Name] = append(db.texturesByName[t.Name], id)
	}
	for _, p := range c.palettes {
		id := len(db.Palettes)
		db.Palettes = append(db.Palettes, p)
		db.PaletteFile = append(db.PaletteFile, fileID)
		db.palettesByName[p.Name] = append(db.palettesByName[p.Name], id)
	}
	for _, a := range c.animations {
		db.Animations = append(db.Animations, a)
		db.AnimationFile = append(db.AnimationFile, fileID)
	}
	for _, p := range c.patterns {
		db.Patterns = append(db.Patterns, p)
		db.PatternFile = append(db.PatternFile, fileID)
	}
	for _, ma := range c.matAnims {
		db.MatAnims = append(db.MatAnims, ma)
		db.MatAnimFile = append(db.MatAnimFile, fileID)
	}
}

func decodeFile(f *InputFile) (*fileContents, error) {
	cont, err := nitro.NewFromData(f.Data)
	if err != nil {
		return nil, err
	}
	if f.Kind != "" {
		if err := cont.CheckKind(f.Kind); err != nil {
			return nil, err
		}
	}

	c := &fileContents{}
	for _, section := range cont.Sections {
		switch section.Stamp {
		case nitro.StampMDL0:
			c.models, err = mdl.ReadMDL0(section)
		case nitro.StampTEX0:
			c.textures, c.palettes, err = tex.ReadTEX0(section)
		case nitro.StampJNT0:
			c.animations, err = anm.ReadJNT0(section)
		case nitro.StampPAT0:
			c.patterns, err = pat.ReadPAT0(section)
		case nitro.StampSRT0:
			c.matAnims, err = srt.ReadSRT0(section)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "section %s", section.Stamp)
		}
	}
	return c, nil
}

// Match is a resolved reference: the resource id plus whether it was
// the only candidate. Ambiguous matches still resolve (to the best
// guess) so assembly can proceed.
type Match struct {
	ID   int
	Best bool
}

// ResolveTexture finds the texture a material names. Candidates must
// agree with the material on whether a palette is involved; ties break
// toward the model's own file.
func (db *Database) ResolveTexture(name nitro.Name, hasPalette bool, modelFileID int) (Match, bool) {
	var cands []int
	for _, id := range db.texturesByName[name] {
		requiresPal := db.Textures[id].Params.Format().Desc().RequiresPalette
		if requiresPal == hasPalette {
			cands = append(cands, id)
		}
	}
	return pickCandidate(cands, db.TextureFile, modelFileID)
}

// ResolvePalette finds the palette a material names, preferring the
// file the chosen texture came from.
func (db *Database) ResolvePalette(name nitro.Name, textureFileID int) (Match, bool) {
	cands := db.palettesByName[name]
	return pickCandidate(cands, db.PaletteFile, textureFileID)
}

func pickCandidate(cands []int, fileOf []int, preferFileID int) (Match, bool) {
	switch len(cands) {
	case 0:
		return Match{}, false
	case 1:
		return Match{ID: cands[0], Best: true}, true
	}
	for _, id := range cands {
		if fileOf[id] == preferFileID {
			return Match{ID: id}, true
		}
	}
	return Match{ID: cands[0]}, true
}

// AnimationApplies reports whether a joint animation can drive a
// model. The only signal the format offers is the object count.
func AnimationApplies(a *anm.Animation, m *mdl.Model) bool {
	return len(a.ObjectCurves) == len(m.Objects)
}
