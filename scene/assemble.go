package scene

import (
	"log"

	"github.com/pkg/errors"

	"github.com/scurest/apicula/nitro"
	"github.com/scurest/apicula/nitro/mdl"
	"github.com/scurest/apicula/nitro/tex"
)

// AssembleOptions tune how a model is put together.
type AssembleOptions struct {
	// Loop makes tracks wrap past their last frame instead of holding.
	Loop bool
	// AllAnimations attaches every joint animation regardless of the
	// object-count check.
	AllAnimations bool
}

// Assemble builds the scene for one model in the database. Geometry
// faults are fatal; unresolved cross-file names are not, they are
// reported on the model's Diagnostics. Assembly is a pure function of
// the database: calling it twice gives equal models.
func (db *Database) Assemble(modelID int, opts AssembleOptions) (*Model, error) {
	if modelID < 0 || modelID >= len(db.Models) {
		return nil, errors.Errorf("no model with id %d", modelID)
	}
	src := db.Models[modelID]

	out := &Model{Name: src.Name.SafeString()}
	if err := newBuilder(src, out).run(); err != nil {
		return nil, errors.Wrapf(err, "model %s", src.Name)
	}

	db.resolveMaterials(src, db.ModelFile[modelID], out)
	db.attachTracks(src, out, opts)
	return out, nil
}

// imageKey identifies a decoded raster by its source pair.
type imageKey struct {
	texID, palID int
}

// resolveMaterials turns the model's material records into Materials
// with decoded Images, deduping rasters by texture/palette pair.
func (db *Database) resolveMaterials(src *mdl.Model, fileID int, out *Model) {
	imageOf := make(map[imageKey]int)

	for i := range src.Materials {
		m := &src.Materials[i]
		om := Material{
			Name:          m.Name.SafeString(),
			ImageIdx:      -1,
			Diffuse:       m.Diffuse,
			Ambient:       m.Ambient,
			Specular:      m.Specular,
			Emission:      m.Emission,
			Alpha:         m.Alpha,
			CullBackface:  m.CullBackface,
			CullFrontface: m.CullFrontface,
			RepeatS:       m.Params.RepeatS(),
			RepeatT:       m.Params.RepeatT(),
			MirrorS:       m.Params.MirrorS(),
			MirrorT:       m.Params.MirrorT(),
		}

		if m.TextureName != nil {
			texID, palID, ok := db.resolvePair(*m.TextureName, m.PaletteName, fileID, om.Name, out)
			if ok {
				om.ImageIdx = db.internImage(imageKey{texID, palID}, imageOf, out)
			}
		}

		out.Materials = append(out.Materials, om)
	}
}

// resolvePair resolves a texture name, and its palette name when the
// format needs one, to database ids. Failures are diagnosed on out.
func (db *Database) resolvePair(texName nitro.Name, palName *nitro.Name, fileID int, from string, out *Model) (texID, palID int, ok bool) {
	texMatch, found := db.ResolveTexture(texName, palName != nil, fileID)
	if !found {
		out.Diagnostics = append(out.Diagnostics, UnresolvedReference{
			Kind: "texture", From: from, Name: texName.SafeString(),
		})
		return 0, 0, false
	}

	palID = -1
	if palName != nil {
		palMatch, found := db.ResolvePalette(*palName, db.TextureFile[texMatch.ID])
		if !found {
			out.Diagnostics = append(out.Diagnostics, UnresolvedReference{
				Kind: "palette", From: from, Name: palName.SafeString(),
			})
			return 0, 0, false
		}
		palID = palMatch.ID
	}
	return texMatch.ID, palID, true
}

// internImage decodes the texture/palette pair once and returns its
// index in out.Images. A pair that fails to decode interns as -1.
func (db *Database) internImage(key imageKey, imageOf map[imageKey]int, out *Model) int {
	if id, ok := imageOf[key]; ok {
		return id
	}

	t := db.Textures[key.texID]
	var pal *tex.Palette
	if key.palID >= 0 {
		pal = db.Palettes[key.palID]
	}

	id := -1
	img, err := tex.Decode(t, pal)
	if err != nil {
		log.Printf("texture %s: %v", t.Name, err)
	} else {
		id = len(out.Images)
		out.Images = append(out.Images, Image{
			Name:   t.Name.SafeString(),
			Pixels: img,
			Format: t.Params.Format(),
		})
	}
	imageOf[key] = id
	return id
}

// attachTracks hangs every applicable animation off the model: joint
// animations gated by the object-count check, pattern and material
// animations resolved by name.
func (db *Database) attachTracks(src *mdl.Model, out *Model, opts AssembleOptions) {
	for _, a := range db.Animations {
		if !opts.AllAnimations && !AnimationApplies(a, src) {
			continue
		}
		out.Tracks = append(out.Tracks, Track{
			Name:      a.Name.SafeString(),
			Kind:      TrackJoints,
			NumFrames: a.NumFrames,
			Loop:      opts.Loop,
			Joints:    a,
		})
	}

	for pi, p := range db.Patterns {
		pt := &PatternTrack{Pattern: p}
		for _, name := range p.TextureNames {
			id := -1
			texMatch, found := db.ResolveTexture(name, true, db.PatternFile[pi])
			if found {
				id = texMatch.ID
			} else {
				out.Diagnostics = append(out.Diagnostics, UnresolvedReference{
					Kind: "texture", From: p.Name.SafeString(), Name: name.SafeString(),
				})
			}
			pt.TextureIDs = append(pt.TextureIDs, id)
		}
		for _, name := range p.PaletteNames {
			id := -1
			palMatch, found := db.ResolvePalette(name, db.PatternFile[pi])
			if found {
				id = palMatch.ID
			} else {
				out.Diagnostics = append(out.Diagnostics, UnresolvedReference{
					Kind: "palette", From: p.Name.SafeString(), Name: name.SafeString(),
				})
			}
			pt.PaletteIDs = append(pt.PaletteIDs, id)
		}
		out.Tracks = append(out.Tracks, Track{
			Name:      p.Name.SafeString(),
			Kind:      TrackPattern,
			NumFrames: p.NumFrames,
			Loop:      opts.Loop,
			Pattern:   pt,
		})
	}

	for _, ma := range db.MatAnims {
		out.Tracks = append(out.Tracks, Track{
			Name:      ma.Name.SafeString(),
			Kind:      TrackMaterialUVs,
			NumFrames: ma.NumFrames,
			Loop:      opts.Loop,
			MatAnim:   ma,
		})
	}
}
