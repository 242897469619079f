package fbx

import (
	"io"
	"os"
	"path/filepath"

	"github.com/mogaika/fbx"
	"github.com/mogaika/fbx/builders/bfbx73"
	"github.com/pkg/errors"
)

const fbxCreator = "FBX SDK/FBX Plugins version 2013.3 build=20121223"
const fbxApplicationVendor = "apicula"
const fbxApplicationName = "apicula"
const fbxApplicationVersion = "1.0"
const fbxDateTimeGMT = "01/01/1970 00:00:00.000"
const fbxCreationTime = "1970-01-01 10:00:00:000"

var fbxFileID = []byte{
	0x28, 0xb3, 0x2a, 0xeb, 0xb6, 0x24, 0xcc, 0xc2,
	0xbf, 0xc8, 0xb0, 0x2a, 0xa9, 0x2b, 0xfc, 0xf1}

// builder accumulates objects and connections under a ready-made
// FBX 7.4 document skeleton, then serializes the whole tree.
type builder struct {
	f      *fbx.FBX
	lastID int64
	files  map[string][]byte

	objects     *fbx.Node
	connections *fbx.Node
}

func newBuilder(filename string, upAxis int32) *builder {
	b := &builder{
		files:       make(map[string][]byte),
		lastID:      1000000,
		f:           fbx.NewFBX(7400),
		objects:     bfbx73.Objects(),
		connections: bfbx73.Connections(),
	}
	b.createHeaders(filename, upAxis)
	return b
}

func (b *builder) createHeaders(filename string, upAxis int32) {
	b.root().AddNodes(
		bfbx73.FBXHeaderExtension().AddNodes(
			bfbx73.FBXHeaderVersion(1003),
			bfbx73.FBXVersion(7400),
			bfbx73.EncryptionType(0),
			bfbx73.CreationTimeStamp().AddNodes(
				bfbx73.Version(1000),
				bfbx73.Year(1970),
				bfbx73.Month(1),
				bfbx73.Day(1),
				bfbx73.Hour(10),
				bfbx73.Minute(0),
				bfbx73.Second(0),
				bfbx73.Millisecond(0),
			),
			bfbx73.Creator(fbxCreator),
			bfbx73.SceneInfo("GlobalInfo\x00\x01SceneInfo", "UserData").AddNodes(
				bfbx73.Type("UserData"),
				bfbx73.Version(100),
				bfbx73.MetaData().AddNodes(
					bfbx73.Version(100),
					bfbx73.Title(""),
					bfbx73.Subject(""),
					bfbx73.Author(""),
					bfbx73.Keywords(""),
					bfbx73.Revision(""),
					bfbx73.Comment(""),
				),
				bfbx73.Properties70().AddNodes(
					bfbx73.P("DocumentUrl", "KString", "Url", "", filename),
					bfbx73.P("SrcDocumentUrl", "KString", "Url", "", filename),
					bfbx73.P("Original", "Compound", "", ""),
					bfbx73.P("Original|ApplicationVendor", "KString", "", "", fbxApplicationVendor),
					bfbx73.P("Original|ApplicationName", "KString", "", "", fbxApplicationName),
					bfbx73.P("Original|ApplicationVersion", "KString", "", "", fbxApplicationVersion),
					bfbx73.P("Original|DateTime_GMT", "DateTime", "", "", fbxDateTimeGMT),
					bfbx73.P("Original|FileName", "KString", "", "", filepath.Base(filename)),
					bfbx73.P("LastSaved", "Compound", "", ""),
					bfbx73.P("LastSaved|ApplicationVendor", "KString", "", "", fbxApplicationVendor),
					bfbx73.P("LastSaved|ApplicationName", "KString", "", "", fbxApplicationName),
					bfbx73.P("LastSaved|ApplicationVersion", "KString", "", "", fbxApplicationVersion),
					bfbx73.P("LastSaved|DateTime_GMT", "DateTime", "", "", fbxDateTimeGMT),
				),
			),
		),
		bfbx73.FileId(fbxFileID),
		bfbx73.CreationTime(fbxCreationTime),
		bfbx73.Creator(fbxCreator),
		bfbx73.GlobalSettings().AddNodes(
			bfbx73.Version(1000),
			bfbx73.Properties70().AddNodes(
				bfbx73.P("UpAxis", "int", "Integer", "", upAxis),
				bfbx73.P("UpAxisSign", "int", "Integer", "", int32(1)),
				bfbx73.P("FrontAxis", "int", "Integer", "", int32(2)),
				bfbx73.P("FrontAxisSign", "int", "Integer", "", int32(1)),
				bfbx73.P("CoordAxis", "int", "Integer", "", int32(0)),
				bfbx73.P("CoordAxisSign", "int", "Integer", "", int32(1)),
				bfbx73.P("OriginalUpAxis", "int", "Integer", "", upAxis),
				bfbx73.P("OriginalUpAxisSign", "int", "Integer", "", int32(1)),
				bfbx73.P("UnitScaleFactor", "double", "Number", "", float64(1)),
				bfbx73.P("OriginalUnitScaleFactor", "double", "Number", "", float64(1)),
				bfbx73.P("AmbientColor", "ColorRGB", "Color", "", float64(0), float64(0), float64(0)),
			),
		),
		bfbx73.Documents().AddNodes(
			bfbx73.Count(1),
			bfbx73.Document(b.generateID(), "Scene", "Scene").AddNodes(
				bfbx73.Properties70().AddNodes(
					bfbx73.P("SourceObject", "object", "", ""),
					bfbx73.P("ActiveAnimStackName", "KString", "", "", ""),
				),
				bfbx73.RootNode(0),
			),
		),
		bfbx73.References(),
		bfbx73.Definitions().AddNodes(
			bfbx73.Version(100),
			bfbx73.Count(1),
			bfbx73.ObjectType("GlobalSettings").AddNodes(
				bfbx73.Count(1),
			),
			bfbx73.ObjectType("Model").AddNodes(
				bfbx73.Count(0),
				bfbx73.PropertyTemplate("FbxNode").AddNodes(
					bfbx73.Properties70().AddNodes(
						bfbx73.P("QuaternionInterpolate", "enum", "", "", int32(0)),
						bfbx73.P("Show", "bool", "", "", int32(1)),
						bfbx73.P("Lcl Translation", "Lcl Translation", "", "A", float64(0), float64(0), float64(0)),
						bfbx73.P("Lcl Rotation", "Lcl Rotation", "", "A", float64(0), float64(0), float64(0)),
						bfbx73.P("Lcl Scaling", "Lcl Scaling", "", "A", float64(1), float64(1), float64(1)),
						bfbx73.P("Visibility", "Visibility", "", "A", float64(1)),
						bfbx73.P("Visibility Inheritance", "Visibility Inheritance", "", "", int32(1)),
					),
				),
			),
			bfbx73.ObjectType("Material").AddNodes(
				bfbx73.Count(0),
				bfbx73.PropertyTemplate("FbxSurfaceLambert").AddNodes(
					bfbx73.Properties70().AddNodes(
						bfbx73.P("ShadingModel", "KString", "", "", "Lambert"),
						bfbx73.P("MultiLayer", "bool", "", "", int32(0)),
						bfbx73.P("EmissiveColor", "Color", "", "A", float64(0), float64(0), float64(0)),
						bfbx73.P("EmissiveFactor", "Number", "", "A", float64(1)),
						bfbx73.P("AmbientColor", "Color", "", "A", float64(0.2), float64(0.2), float64(0.2)),
						bfbx73.P("AmbientFactor", "Number", "", "A", float64(1)),
						bfbx73.P("DiffuseColor", "Color", "", "A", float64(1), float64(1), float64(1)),
						bfbx73.P("DiffuseFactor", "Number", "", "A", float64(1)),
					),
				),
			),
			bfbx73.ObjectType("Texture").AddNodes(
				bfbx73.Count(0),
				bfbx73.PropertyTemplate("FbxFileTexture").AddNodes(
					bfbx73.Properties70().AddNodes(
						bfbx73.P("TextureTypeUse", "enum", "", "", int32(0)),
						bfbx73.P("Texture alpha", "Number", "", "A", float64(1)),
						bfbx73.P("CurrentMappingType", "enum", "", "", int32(0)),
						bfbx73.P("WrapModeU", "enum", "", "", int32(0)),
						bfbx73.P("WrapModeV", "enum", "", "", int32(0)),
						bfbx73.P("UVSwap", "bool", "", "", int32(0)),
						bfbx73.P("PremultiplyAlpha", "bool", "", "", int32(1)),
						bfbx73.P("UseMaterial", "bool", "", "", int32(0)),
						bfbx73.P("UseMipMap", "bool", "", "", int32(0)),
					),
				),
			),
			bfbx73.ObjectType("Video").AddNodes(
				bfbx73.Count(0),
				bfbx73.PropertyTemplate("FbxVideo").AddNodes(
					bfbx73.Properties70().AddNodes(
						bfbx73.P("ImageSequence", "bool", "", "", int32(0)),
						bfbx73.P("Width", "int", "Integer", "", int32(0)),
						bfbx73.P("Height", "int", "Integer", "", int32(0)),
						bfbx73.P("Path", "KString", "XRefUrl", "", ""),
					),
				),
			),
			bfbx73.ObjectType("Geometry").AddNodes(
				bfbx73.Count(0),
				bfbx73.PropertyTemplate("FbxMesh").AddNodes(
					bfbx73.Properties70().AddNodes(
						bfbx73.P("Color", "ColorRGB", "Color", "", float64(1), float64(1), float64(1)),
						bfbx73.P("Primary Visibility", "bool", "", "", int32(1)),
						bfbx73.P("Casts Shadows", "bool", "", "", int32(1)),
						bfbx73.P("Receive Shadows", "bool", "", "", int32(1)),
					),
				),
			),
			bfbx73.ObjectType("NodeAttribute").AddNodes(
				bfbx73.Count(0),
				bfbx73.PropertyTemplate("FbxNull").AddNodes(
					bfbx73.Properties70().AddNodes(
						bfbx73.P("Size", "double", "Number", "", float64(100)),
						bfbx73.P("Look", "enum", "", "", int32(1)),
					),
				),
			),
		),
		b.objects,
		b.connections,
		bfbx73.Takes().AddNodes(
			bfbx73.Current(""),
		),
	)
}

// countDefinitions fixes up the Count fields under Definitions to
// match the objects actually added.
func (b *builder) countDefinitions() {
	counts := make(map[string]int32)
	for _, object := range b.objects.Nodes {
		counts[object.Name]++
	}

	definitions := b.root().GetNode("Definitions")
	totalCount := int32(1) // GlobalSettings

	for name, count := range counts {
		totalCount += count

		var objectType *fbx.Node
		for _, ot := range definitions.GetNodes("ObjectType") {
			if ot.Properties[0].(string) == name {
				objectType = ot
			}
		}
		if objectType == nil {
			objectType = bfbx73.ObjectType(name)
			definitions.AddNode(objectType)
		}

		objectType.GetOrAddNode(bfbx73.Count(0)).Properties[0] = count
	}

	definitions.GetOrAddNode(bfbx73.Count(0)).Properties[0] = totalCount
}

func (b *builder) root() *fbx.Node {
	return &b.f.Root
}

func (b *builder) generateID() int64 {
	b.lastID++
	return b.lastID
}

// The fbx writer wants a seekable target, so serialize through a temp
// file before copying out.
func (b *builder) write(w io.Writer) error {
	b.countDefinitions()

	tempFile, err := os.CreateTemp("", "fbxexport.*.fbx")
	if err != nil {
		return err
	}
	defer tempFile.Close()
	defer os.Remove(tempFile.Name())

	if err := fbx.Write(tempFile, b.f); err != nil {
		return err
	}

	if _, err := tempFile.Seek(0, io.SeekStart); err != nil {
		return errors.Wrapf(err, "unable to seek")
	}
	_, err = io.Copy(w, tempFile)
	return err
}

func (b *builder) addExportFile(name string, data []byte) {
	b.files[name] = data
}

func (b *builder) addObjects(nodes ...*fbx.Node)     { b.objects.AddNodes(nodes...) }
func (b *builder) addConnections(nodes ...*fbx.Node) { b.connections.AddNodes(nodes...) }
