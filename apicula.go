package main

import (
	"bytes"
	"flag"
	"fmt"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/scurest/apicula/config"
	"github.com/scurest/apicula/export/collada"
	exportfbx "github.com/scurest/apicula/export/fbx"
	exportgltf "github.com/scurest/apicula/export/gltf"
	"github.com/scurest/apicula/nitro"
	"github.com/scurest/apicula/nitro/tex"
	"github.com/scurest/apicula/scene"
	"github.com/scurest/apicula/utils"
)

// Container stamps by conventional file extension. Files with other
// extensions are sniffed by their stamp instead.
var extensionStamps = map[string]string{
	".nsbmd": nitro.StampBMD0,
	".nsbtx": nitro.StampBTX0,
	".nsbca": nitro.StampBCA0,
	".nsbtp": nitro.StampBTP0,
	".nsbta": nitro.StampBTA0,
}

func main() {
	var format, outDir, up, encoding string
	var embed, loop, allAnims, dump bool
	flag.StringVar(&format, "fmt", "glb", "Output format: collada, gltf, glb, fbx or png")
	flag.StringVar(&outDir, "o", ".", "Output directory")
	flag.StringVar(&up, "up", "y", "Up axis of exported scenes: y or z")
	flag.StringVar(&encoding, "encoding", "windows-1252", "Charset of resource names; list to print all")
	flag.BoolVar(&embed, "embed", true, "Embed textures in the exported scene instead of sibling .png files")
	flag.BoolVar(&loop, "loop", false, "Loop animations past their last frame instead of holding it")
	flag.BoolVar(&allAnims, "allanims", false, "Attach every animation to every model, skipping applicability checks")
	flag.BoolVar(&dump, "dump", false, "Dump everything that was decoded and exit")
	flag.Parse()

	if encoding == "list" {
		for _, name := range config.ListEncodings() {
			fmt.Println(name)
		}
		return
	}
	if err := config.SetEncoding(encoding); err != nil {
		log.Fatal(err)
	}

	switch up {
	case "y":
		config.SetUpAxis(config.UpAxisY)
	case "z":
		config.SetUpAxis(config.UpAxisZ)
	default:
		log.Fatalf("unknown up axis %q", up)
	}
	config.SetEmbedTextures(embed)
	config.SetGLTFBinary(format == "glb")

	if flag.NArg() == 0 {
		flag.PrintDefaults()
		return
	}

	var files []scene.InputFile
	for _, path := range flag.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatal(err)
		}
		files = append(files, scene.InputFile{
			Name: path,
			Data: data,
			Kind: extensionStamps[strings.ToLower(filepath.Ext(path))],
		})
	}

	db := scene.BuildDatabase(files)

	if dump {
		utils.Dump(db)
		return
	}

	if err := os.MkdirAll(outDir, 0777); err != nil {
		log.Fatal(err)
	}

	if format == "png" {
		dumpTextures(db, outDir)
		return
	}

	opts := scene.AssembleOptions{Loop: loop, AllAnimations: allAnims}
	for id := range db.Models {
		model, err := db.Assemble(id, opts)
		if err != nil {
			log.Printf("skipping model: %v", err)
			continue
		}
		for _, diag := range model.Diagnostics {
			log.Printf("%s: %s", model.Name, diag)
		}
		if err := exportModel(model, format, outDir); err != nil {
			log.Fatal(err)
		}
	}
}

func exportModel(model *scene.Model, format, outDir string) error {
	var ext string
	var export func(*scene.Model, io.Writer) (map[string][]byte, error)
	switch format {
	case "collada":
		ext, export = ".dae", collada.Export
	case "gltf":
		ext, export = ".gltf", exportgltf.Export
	case "glb":
		ext, export = ".glb", exportgltf.Export
	case "fbx":
		ext, export = ".fbx", exportfbx.Export
	default:
		log.Fatalf("unknown format %q", format)
	}

	outPath := filepath.Join(outDir, model.Name+ext)
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	extra, err := export(model, f)
	if err != nil {
		return err
	}
	for name, data := range extra {
		if err := os.WriteFile(filepath.Join(outDir, name), data, 0666); err != nil {
			return err
		}
	}

	log.Printf("wrote %s", outPath)
	return nil
}

// dumpTextures decodes every texture in the database and writes it as
// a .png. Palettes are found by the usual name conventions: same name
// as the texture, the texture's name plus "_pl", or failing those any
// palette from the texture's own file.
func dumpTextures(db *scene.Database, outDir string) {
	for i, t := range db.Textures {
		pal := findPalette(db, i)
		if pal == nil && t.Params.Format().Desc().RequiresPalette {
			log.Printf("texture %s: no palette found", t.Name)
			continue
		}

		img, err := tex.Decode(t, pal)
		if err != nil {
			log.Printf("texture %s: %v", t.Name, err)
			continue
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			log.Printf("texture %s: %v", t.Name, err)
			continue
		}
		outPath := filepath.Join(outDir, t.Name.SafeString()+".png")
		if err := os.WriteFile(outPath, buf.Bytes(), 0666); err != nil {
			log.Fatal(err)
		}
		log.Printf("wrote %s", outPath)
	}
}

func findPalette(db *scene.Database, texID int) *tex.Palette {
	t := db.Textures[texID]
	fileID := db.TextureFile[texID]

	if m, ok := db.ResolvePalette(t.Name, fileID); ok {
		return db.Palettes[m.ID]
	}
	plName := nitro.NameFromString(t.Name.String() + "_pl")
	if m, ok := db.ResolvePalette(plName, fileID); ok {
		return db.Palettes[m.ID]
	}
	for i, p := range db.Palettes {
		if db.PaletteFile[i] == fileID {
			return p
		}
	}
	return nil
}
