package scene

import (
	"fmt"
	"image"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/scurest/apicula/nitro/tex"
)

// Model is the assembled, immutable scene for one MDL0 model: joint
// forest, flat vertex/index buffers, resolved materials and images,
// and the animation tracks that apply. Exporters only read it.
type Model struct {
	Name string

	Joints     []Joint
	RootJoints []int

	Vertices   []Vertex
	Indices    []uint16
	DrawCalls  []DrawCall
	HasNormals bool

	Materials []Material
	Images    []Image

	Tracks []Track

	// Non-fatal cross-reference gaps found during assembly.
	Diagnostics []UnresolvedReference
}

// Joint is one node of the skeleton forest. Parent is an index into
// Model.Joints, or -1 for roots.
type Joint struct {
	Name      string
	Parent    int
	ObjectIdx int // -1 for joints not backed by an object matrix

	// Local is the rest-pose local-to-parent transform; Bind composes
	// Local from the root down and InvBind is its inverse.
	Local   mgl32.Mat4
	Bind    mgl32.Mat4
	InvBind mgl32.Mat4
}

// Vertex in world (model) space. JointIdx is the joint whose matrix
// was current when the vertex was emitted; the skin binds the vertex
// rigidly to it.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	Texcoord mgl32.Vec2
	Color    mgl32.Vec3
	JointIdx int
}

// DrawCall is the run of vertices and indices produced by drawing one
// mesh with one material bound.
type DrawCall struct {
	VertexStart int
	VertexEnd   int
	IndexStart  int
	IndexEnd    int
	MaterialIdx uint8
	MeshIdx     uint8
}

// Material with its texture reference resolved to an image index, or
// -1 when untextured (which is valid) or unresolved (diagnosed).
type Material struct {
	Name     string
	ImageIdx int

	Diffuse  [3]float32
	Ambient  [3]float32
	Specular [3]float32
	Emission [3]float32
	Alpha    float32

	CullBackface  bool
	CullFrontface bool

	RepeatS bool
	RepeatT bool
	MirrorS bool
	MirrorT bool
}

// Image is a decoded texture/palette pair.
type Image struct {
	Name   string
	Pixels *image.NRGBA
	Format tex.Format
}

// UnresolvedReference records a cross-file linkage gap: a name one
// resource uses that nothing supplied defines. Assembly carries on;
// an incomplete model beats none.
type UnresolvedReference struct {
	Kind string // "texture", "palette" or "material"
	From string
	Name string
}

func (u UnresolvedReference) String() string {
	return fmt.Sprintf("%s references %s %q which is not present", u.From, u.Kind, u.Name)
}
