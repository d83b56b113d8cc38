/*
Package mesh is the reference closest-point implementation behind
locator.Service: a k-d tree over a triangulated mesh's vertex set,
returning the nearest vertex's position, normal and owning link for a
world-space query point. It stands in for the real closest-point
surface locator external collaborator named in spec.md section 1(b).
*/
package mesh

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mathrgo/cpf/locator"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// Vertex is one sample point of the robot's triangulated skin.
type Vertex struct {
	Link     string
	Position mgl64.Vec3
	Normal   mgl64.Vec3
}

// vertexComparable adapts a Vertex into kdtree.Comparable.
type vertexComparable struct {
	v   *Vertex
	idx int
}

func (c *vertexComparable) at(d kdtree.Dim) float64 { return c.v.Position[d] }

func (c *vertexComparable) Compare(o kdtree.Comparable, d kdtree.Dim) float64 {
	return c.at(d) - o.(*vertexComparable).at(d)
}

func (c *vertexComparable) Dims() int { return 3 }

func (c *vertexComparable) Distance(o kdtree.Comparable) float64 {
	diff := c.v.Position.Sub(o.(*vertexComparable).v.Position)
	return diff.Dot(diff)
}

// vertexList implements kdtree.Interface over a slice of vertexComparable.
type vertexList []*vertexComparable

func (l vertexList) Index(i int) kdtree.Comparable { return l[i] }
func (l vertexList) Len() int                       { return len(l) }
func (l vertexList) Slice(start, end int) kdtree.Interface { return l[start:end] }

func (l vertexList) Pivot(d kdtree.Dim) int {
	sort.Sort(&byDim{l, d})
	return len(l) / 2
}

type byDim struct {
	l vertexList
	d kdtree.Dim
}

func (s *byDim) Len() int           { return len(s.l) }
func (s *byDim) Less(i, j int) bool { return s.l[i].at(s.d) < s.l[j].at(s.d) }
func (s *byDim) Swap(i, j int)      { s.l[i], s.l[j] = s.l[j], s.l[i] }

// Locator answers nearest-point queries over a fixed vertex set.
type Locator struct {
	tree *kdtree.Tree
}

// New builds a Locator over the given vertex set.
func New(vertices []Vertex) (*Locator, error) {
	if len(vertices) == 0 {
		return nil, fmt.Errorf("mesh: empty vertex set")
	}
	list := make(vertexList, len(vertices))
	for i := range vertices {
		v := vertices[i]
		list[i] = &vertexComparable{v: &v, idx: i}
	}
	return &Locator{tree: kdtree.New(list, true)}, nil
}

// Nearest implements locator.Service.
func (l *Locator) Nearest(p mgl64.Vec3) (locator.Hit, error) {
	query := &vertexComparable{v: &Vertex{Position: p}}
	comp, _ := l.tree.Nearest(query)
	if comp == nil {
		return locator.Hit{}, fmt.Errorf("mesh: empty tree")
	}
	nearest := comp.(*vertexComparable).v
	return locator.Hit{
		Point:  nearest.Position,
		Normal: nearest.Normal,
		Link:   nearest.Link,
	}, nil
}
