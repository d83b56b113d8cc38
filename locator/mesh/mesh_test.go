package mesh

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func testVertices() []Vertex {
	return []Vertex{
		{Link: "l_uarm", Position: mgl64.Vec3{0.1, 0, 0}, Normal: mgl64.Vec3{1, 0, 0}},
		{Link: "l_uarm", Position: mgl64.Vec3{10, 0, 0}, Normal: mgl64.Vec3{1, 0, 0}},
		{Link: "l_larm", Position: mgl64.Vec3{0, 0.1, 0}, Normal: mgl64.Vec3{0, 1, 0}},
	}
}

func TestNewRejectsEmptyVertexSet(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatalf("expected an error for an empty vertex set")
	}
}

func TestNearestReturnsClosestVertex(t *testing.T) {
	loc, err := New(testVertices())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	hit, err := loc.Nearest(mgl64.Vec3{0.11, 0, 0})
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	if hit.Link != "l_uarm" {
		t.Fatalf("Nearest matched link %q, want l_uarm", hit.Link)
	}
	if diff := hit.Point.Sub(mgl64.Vec3{0.1, 0, 0}).Len(); diff > 1e-9 {
		t.Errorf("Nearest point = %v, want (0.1,0,0)", hit.Point)
	}
}

func TestNearestDistinguishesFarVertexOnSameLink(t *testing.T) {
	loc, err := New(testVertices())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	hit, err := loc.Nearest(mgl64.Vec3{9.9, 0, 0})
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	if diff := hit.Point.Sub(mgl64.Vec3{10, 0, 0}).Len(); diff > 1e-9 {
		t.Errorf("Nearest point = %v, want (10,0,0)", hit.Point)
	}
}
