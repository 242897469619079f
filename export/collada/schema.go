package collada

import "encoding/xml"

// Just enough of the COLLADA 1.4.1 schema to express skinned,
// textured, animated models. Marshaled with encoding/xml.

type Document struct {
	XMLName xml.Name `xml:"COLLADA"`
	XMLNS   string   `xml:"xmlns,attr"`
	Version string   `xml:"version,attr"`

	Asset        Asset            `xml:"asset"`
	Images       *LibImages       `xml:"library_images,omitempty"`
	Effects      *LibEffects      `xml:"library_effects,omitempty"`
	Materials    *LibMaterials    `xml:"library_materials,omitempty"`
	Geometries   *LibGeometries   `xml:"library_geometries,omitempty"`
	Controllers  *LibControllers  `xml:"library_controllers,omitempty"`
	Animations   *LibAnimations   `xml:"library_animations,omitempty"`
	VisualScenes *LibVisualScenes `xml:"library_visual_scenes,omitempty"`
	Scene        Scene            `xml:"scene"`
}

type Asset struct {
	Created  string `xml:"created"`
	Modified string `xml:"modified"`
	UpAxis   string `xml:"up_axis"`
}

type LibImages struct {
	Images []Image `xml:"image"`
}

type Image struct {
	ID       string `xml:"id,attr"`
	Name     string `xml:"name,attr,omitempty"`
	InitFrom string `xml:"init_from"`
}

type LibEffects struct {
	Effects []Effect `xml:"effect"`
}

type Effect struct {
	ID            string        `xml:"id,attr"`
	ProfileCommon ProfileCommon `xml:"profile_COMMON"`
}

type ProfileCommon struct {
	NewParams []NewParam      `xml:"newparam"`
	Technique EffectTechnique `xml:"technique"`
}

type NewParam struct {
	SID       string     `xml:"sid,attr"`
	Surface   *Surface   `xml:"surface,omitempty"`
	Sampler2D *Sampler2D `xml:"sampler2D,omitempty"`
}

type Surface struct {
	Type     string `xml:"type,attr"`
	InitFrom string `xml:"init_from"`
}

type Sampler2D struct {
	Source string `xml:"source"`
	WrapS  string `xml:"wrap_s,omitempty"`
	WrapT  string `xml:"wrap_t,omitempty"`
}

type EffectTechnique struct {
	SID   string `xml:"sid,attr"`
	Phong Phong  `xml:"phong"`
}

type Phong struct {
	Diffuse      ColorOrTexture `xml:"diffuse"`
	Transparency float32        `xml:"transparency>float"`
}

type ColorOrTexture struct {
	Color   string   `xml:"color,omitempty"`
	Texture *Texture `xml:"texture,omitempty"`
}

type Texture struct {
	Texture  string `xml:"texture,attr"`
	Texcoord string `xml:"texcoord,attr"`
}

type LibMaterials struct {
	Materials []Material `xml:"material"`
}

type Material struct {
	ID             string         `xml:"id,attr"`
	Name           string         `xml:"name,attr,omitempty"`
	InstanceEffect InstanceEffect `xml:"instance_effect"`
}

type InstanceEffect struct {
	URL string `xml:"url,attr"`
}

type LibGeometries struct {
	Geometries []Geometry `xml:"geometry"`
}

type Geometry struct {
	ID   string `xml:"id,attr"`
	Name string `xml:"name,attr,omitempty"`
	Mesh Mesh   `xml:"mesh"`
}

type Mesh struct {
	Sources   []Source    `xml:"source"`
	Vertices  Vertices    `xml:"vertices"`
	Triangles []Triangles `xml:"triangles"`
}

type Source struct {
	ID         string          `xml:"id,attr"`
	FloatArray *FloatArray     `xml:"float_array,omitempty"`
	NameArray  *NameArray      `xml:"Name_array,omitempty"`
	Technique  SourceTechnique `xml:"technique_common"`
}

type FloatArray struct {
	ID    string `xml:"id,attr"`
	Count int    `xml:"count,attr"`
	Text  string `xml:",chardata"`
}

type NameArray struct {
	ID    string `xml:"id,attr"`
	Count int    `xml:"count,attr"`
	Text  string `xml:",chardata"`
}

type SourceTechnique struct {
	Accessor Accessor `xml:"accessor"`
}

type Accessor struct {
	Source string  `xml:"source,attr"`
	Count  int     `xml:"count,attr"`
	Stride int     `xml:"stride,attr"`
	Params []Param `xml:"param"`
}

type Param struct {
	Name string `xml:"name,attr,omitempty"`
	Type string `xml:"type,attr"`
}

type Vertices struct {
	ID     string  `xml:"id,attr"`
	Inputs []Input `xml:"input"`
}

type Input struct {
	Semantic string `xml:"semantic,attr"`
	Source   string `xml:"source,attr"`
	Offset   *int   `xml:"offset,attr,omitempty"`
	Set      *int   `xml:"set,attr,omitempty"`
}

type Triangles struct {
	Count    int     `xml:"count,attr"`
	Material string  `xml:"material,attr,omitempty"`
	Inputs   []Input `xml:"input"`
	P        string  `xml:"p"`
}

type LibControllers struct {
	Controllers []Controller `xml:"controller"`
}

type Controller struct {
	ID   string `xml:"id,attr"`
	Skin Skin   `xml:"skin"`
}

type Skin struct {
	Source        string        `xml:"source,attr"`
	BindShapeMat  string        `xml:"bind_shape_matrix"`
	Sources       []Source      `xml:"source"`
	Joints        Joints        `xml:"joints"`
	VertexWeights VertexWeights `xml:"vertex_weights"`
}

type Joints struct {
	Inputs []Input `xml:"input"`
}

type VertexWeights struct {
	Count  int     `xml:"count,attr"`
	Inputs []Input `xml:"input"`
	VCount string  `xml:"vcount"`
	V      string  `xml:"v"`
}

type LibAnimations struct {
	Animations []Animation `xml:"animation"`
}

type Animation struct {
	ID       string      `xml:"id,attr,omitempty"`
	Children []Animation `xml:"animation,omitempty"`
	Sources  []Source    `xml:"source,omitempty"`
	Samplers []Sampler   `xml:"sampler,omitempty"`
	Channels []Channel   `xml:"channel,omitempty"`
}

type Sampler struct {
	ID     string  `xml:"id,attr"`
	Inputs []Input `xml:"input"`
}

type Channel struct {
	Source string `xml:"source,attr"`
	Target string `xml:"target,attr"`
}

type LibVisualScenes struct {
	Scenes []VisualScene `xml:"visual_scene"`
}

type VisualScene struct {
	ID    string `xml:"id,attr"`
	Name  string `xml:"name,attr,omitempty"`
	Nodes []Node `xml:"node"`
}

type Node struct {
	ID       string  `xml:"id,attr"`
	SID      string  `xml:"sid,attr,omitempty"`
	Name     string  `xml:"name,attr,omitempty"`
	Type     string  `xml:"type,attr,omitempty"`
	Matrix   *Matrix `xml:"matrix,omitempty"`
	Children []Node  `xml:"node,omitempty"`

	InstanceController *InstanceController `xml:"instance_controller,omitempty"`
}

type Matrix struct {
	SID  string `xml:"sid,attr,omitempty"`
	Text string `xml:",chardata"`
}

type InstanceController struct {
	URL       string        `xml:"url,attr"`
	Skeletons []string      `xml:"skeleton"`
	BindMat   *BindMaterial `xml:"bind_material,omitempty"`
}

type BindMaterial struct {
	Materials []InstanceMaterial `xml:"technique_common>instance_material"`
}

type InstanceMaterial struct {
	Symbol string            `xml:"symbol,attr"`
	Target string            `xml:"target,attr"`
	Bind   []BindVertexInput `xml:"bind_vertex_input"`
}

type BindVertexInput struct {
	Semantic      string `xml:"semantic,attr"`
	InputSemantic string `xml:"input_semantic,attr"`
	InputSet      int    `xml:"input_set,attr"`
}

type Scene struct {
	InstanceVisualScene InstanceVisualScene `xml:"instance_visual_scene"`
}

type InstanceVisualScene struct {
	URL string `xml:"url,attr"`
}
