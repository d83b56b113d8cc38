package mesh

import (
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

// entry mirrors one row of a mesh vertex file: link, position and
// normal in world frame, the same shape as site.Entry but for the
// reference closest-point skin rather than the candidate catalog.
type entry struct {
	Link     string     `yaml:"link"`
	Position [3]float64 `yaml:"position"`
	Normal   [3]float64 `yaml:"normal"`
}

type fileFormat struct {
	Vertices []entry `yaml:"vertices"`
}

// LoadYAML reads a vertex-list file (YAML: vertices:[{link,position,normal}])
// and builds a k-d tree Locator over it, the mesh package's analogue of
// site.Load.
func LoadYAML(path string) (*Locator, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mesh: opening vertex file: %w", err)
	}
	defer f.Close()

	var ff fileFormat
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&ff); err != nil {
		return nil, fmt.Errorf("mesh: decoding vertex file: %w", err)
	}

	verts := make([]Vertex, len(ff.Vertices))
	for i, e := range ff.Vertices {
		verts[i] = Vertex{
			Link:     e.Link,
			Position: mgl64.Vec3{e.Position[0], e.Position[1], e.Position[2]},
			Normal:   mgl64.Vec3{e.Normal[0], e.Normal[1], e.Normal[2]},
		}
	}
	return New(verts)
}
