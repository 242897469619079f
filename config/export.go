package config

// Up axis written into exported scenes. The DS pipeline itself has no
// preference; Y up matches what most importers assume.
const (
	UpAxisY = iota
	UpAxisZ
)

type UpAxis int

var upAxis UpAxis = UpAxisY

func GetUpAxis() UpAxis     { return upAxis }
func SetUpAxis(axis UpAxis) { upAxis = axis }

// Texture embedding: inline as data URIs / GLB buffers, or written as
// sibling .png files next to the exported scene.
var embedTextures bool = true

func GetEmbedTextures() bool   { return embedTextures }
func SetEmbedTextures(em bool) { embedTextures = em }

// Binary glTF (single .glb) versus .gltf JSON with an embedded buffer.
var gltfBinary bool = true

func GetGLTFBinary() bool   { return gltfBinary }
func SetGLTFBinary(gb bool) { gltfBinary = gb }
