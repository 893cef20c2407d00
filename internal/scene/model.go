package scene

// DocumentVersion tags every exported scene file.
const DocumentVersion = "1.0"

const (
	DefaultLayerID    = "default"
	DefaultEffectType = "particle"
	DefaultColor      = "#ffffff"

	DefaultElementCount = 8
	DefaultRadius       = 1.0
	DefaultLineLength   = 2.0
)

// Document is the persisted state layout of a scene.
type Document struct {
	Version    string   `json:"version"`
	ExportedAt string   `json:"exportedAt"`
	Vertices   []Vertex `json:"vertices"`
	Shapes     []Shape  `json:"shapes"`
	Layers     []Layer  `json:"layers"`
	Camera     Camera   `json:"camera"`
	Scene      Settings `json:"scene"`
}

type Vertex struct {
	ID         string `json:"id"`
	Position   Vec3   `json:"position"`
	EffectType string `json:"effectType"`
	Layer      string `json:"layer"`
	Color      string `json:"color"`
	Visible    bool   `json:"visible"`
	Selected   bool   `json:"selected"`
	GroupID    string `json:"groupId,omitempty"`
}

type ShapeType string

const (
	ShapeCube     ShapeType = "cube"
	ShapeSphere   ShapeType = "sphere"
	ShapeCircle   ShapeType = "circle"
	ShapeLine     ShapeType = "line"
	ShapeImported ShapeType = "imported"
)

// Valid reports whether t is one of the known shape types.
func (t ShapeType) Valid() bool {
	switch t {
	case ShapeCube, ShapeSphere, ShapeCircle, ShapeLine, ShapeImported:
		return true
	}
	return false
}

// Parametric reports whether vertices of this type are produced by the generator.
func (t ShapeType) Parametric() bool {
	return t.Valid() && t != ShapeImported
}

type Shape struct {
	ID           string    `json:"id"`
	Type         ShapeType `json:"type"`
	Position     Vec3      `json:"position"`
	Rotation     Vec3      `json:"rotation"`
	Scale        Vec3      `json:"scale"`
	Vertices     []string  `json:"vertices"`
	ElementCount int       `json:"elementCount,omitempty"`
	Radius       float64   `json:"radius,omitempty"`
	LineLength   float64   `json:"lineLength,omitempty"`
	Visible      bool      `json:"visible"`
	Selected     bool      `json:"selected"`
	Name         string    `json:"name,omitempty"`
	Color        string    `json:"color,omitempty"`
	Particle     string    `json:"particle,omitempty"`
}

// EffectiveElementCount returns ElementCount, or the default when unset.
func (s Shape) EffectiveElementCount() int {
	if s.ElementCount == 0 {
		return DefaultElementCount
	}
	return s.ElementCount
}

func (s Shape) EffectiveRadius() float64 {
	if s.Radius == 0 {
		return DefaultRadius
	}
	return s.Radius
}

func (s Shape) EffectiveLineLength() float64 {
	if s.LineLength == 0 {
		return DefaultLineLength
	}
	return s.LineLength
}

// Layer groups vertices under shared export parameters.
type Layer struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Color     string         `json:"color"`
	Particle  string         `json:"particle"`
	StartTime float64        `json:"startTime"`
	EndTime   float64        `json:"endTime"`
	Repeat    int            `json:"repeat"`
	Alpha     float64        `json:"alpha"`
	Target    string         `json:"target"`
	Visible   bool           `json:"visible"`
	Elements  []LayerElement `json:"elements"`
}

// LayerElement mirrors the position of one vertex assigned to a layer.
type LayerElement struct {
	ID       string `json:"id"`
	Position Vec3   `json:"position"`
}

type Camera struct {
	Position Vec3    `json:"position"`
	Target   Vec3    `json:"target"`
	Zoom     float64 `json:"zoom"`
}

type Settings struct {
	Background      string `json:"background"`
	GridVisible     bool   `json:"gridVisible"`
	PerformanceMode bool   `json:"performanceMode"`
}

// NewDefaultLayer returns the layer every scene starts with.
func NewDefaultLayer() Layer {
	return Layer{
		ID:       DefaultLayerID,
		Name:     "Default",
		Color:    DefaultColor,
		Particle: DefaultEffectType,
		EndTime:  20,
		Repeat:   1,
		Alpha:    1,
		Visible:  true,
		Elements: []LayerElement{},
	}
}

func DefaultCamera() Camera {
	return Camera{
		Position: Vec3{X: 5, Y: 5, Z: 5},
		Zoom:     1,
	}
}

func DefaultSettings() Settings {
	return Settings{
		Background:  "#1a1a2e",
		GridVisible: true,
	}
}

// ClearSelection drops the selected flags. Selection belongs to an editing
// session, not to the shared scene.
func (d *Document) ClearSelection() {
	for i := range d.Vertices {
		d.Vertices[i].Selected = false
	}
	for i := range d.Shapes {
		d.Shapes[i].Selected = false
	}
}

// NewEmptyDocument creates the document of a freshly created scene.
func NewEmptyDocument() *Document {
	return &Document{
		Version:  DocumentVersion,
		Vertices: []Vertex{},
		Shapes:   []Shape{},
		Layers:   []Layer{NewDefaultLayer()},
		Camera:   DefaultCamera(),
		Scene:    DefaultSettings(),
	}
}
