package site

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"
)

// ConeEdges is K, the number of edges in the linearized friction cone.
// It is fixed process-wide, per spec.
const ConeEdges = 4

// DefaultMu is the default coefficient of friction used to build the
// cone edges when a site file does not specify one.
const DefaultMu = 0.4

// CandidateSite is the immutable record describing one discretized
// location on the robot's surface where a contact could occur.
type CandidateSite struct {
	// ID is a stable integer identity issued at catalog load, used as
	// the key for solution-record sharing during a measurement pass
	// (see spec.md design note 9).
	ID int
	// Link is the owning link's name.
	Link string
	// Position is the contact point in the link frame.
	Position mgl64.Vec3
	// Normal is the unit inward normal in the link frame.
	Normal mgl64.Vec3
	// cone holds the K rotated friction-cone edge directions, link frame.
	cone [ConeEdges]mgl64.Vec3
	// wrenchBasis is the 6x3 force-moment transform: given a pure force
	// in link frame, WrenchBasis*force yields the 6-D wrench (force
	// stacked on moment) in link frame.
	wrenchBasis *mat.Dense
	// cone3xK is the 3xK matrix of rotated cone-edge directions, reused
	// by H_alpha construction every step.
	cone3xK *mat.Dense
}

// New builds a CandidateSite at the given link-frame position with
// inward unit normal, rotating the K canonical cone edges (built with
// coefficient of friction mu) so the cone axis aligns with normal.
func New(id int, link string, position, normal mgl64.Vec3, mu float64) (*CandidateSite, error) {
	n := normal.Len()
	if n < 1e-12 {
		return nil, fmt.Errorf("site: zero-norm normal for link %q", link)
	}
	unitNormal := normal.Mul(1.0 / n)

	cs := &CandidateSite{
		ID:       id,
		Link:     link,
		Position: position,
		Normal:   unitNormal,
	}

	rot := rotationToNormal(unitNormal)
	cone3xK := mat.NewDense(3, ConeEdges, nil)
	for k := 0; k < ConeEdges; k++ {
		theta := 2 * math.Pi * float64(k) / float64(ConeEdges)
		// base edge has unit z-component prior to rotation, per invariant.
		base := mgl64.Vec3{mu * math.Cos(theta), mu * math.Sin(theta), 1}
		edge := rot.Mul3x1(base)
		cs.cone[k] = edge
		cone3xK.Set(0, k, edge[0])
		cone3xK.Set(1, k, edge[1])
		cone3xK.Set(2, k, edge[2])
	}
	cs.cone3xK = cone3xK

	wb := mat.NewDense(6, 3, nil)
	wb.Set(0, 0, 1)
	wb.Set(1, 1, 1)
	wb.Set(2, 2, 1)
	skew := skewSymmetric(position)
	wb.SetRow(3, []float64{skew.At(0, 0), skew.At(0, 1), skew.At(0, 2)})
	wb.SetRow(4, []float64{skew.At(1, 0), skew.At(1, 1), skew.At(1, 2)})
	wb.SetRow(5, []float64{skew.At(2, 0), skew.At(2, 1), skew.At(2, 2)})
	cs.wrenchBasis = wb

	return cs, nil
}

// Cone returns the k-th rotated friction-cone edge direction, link frame.
func (cs *CandidateSite) Cone(k int) mgl64.Vec3 { return cs.cone[k] }

// Cone3xK returns the 3xK matrix whose columns are the rotated cone-edge
// directions in link frame.
func (cs *CandidateSite) Cone3xK() *mat.Dense { return cs.cone3xK }

// WrenchBasis returns the 6x3 force-moment transform in link frame.
func (cs *CandidateSite) WrenchBasis() *mat.Dense { return cs.wrenchBasis }

// Halpha computes H_alpha = J^T * WrenchBasis[:, :3]-slice * Cone3xK,
// an n x ConeEdges matrix, given the geometric Jacobian J (6 x n) of
// this site's link at the current configuration.
func (cs *CandidateSite) Halpha(J *mat.Dense) *mat.Dense {
	_, n := J.Dims()
	var jtWb mat.Dense
	jtWb.Mul(J.T(), cs.wrenchBasis) // n x 3
	h := mat.NewDense(n, ConeEdges, nil)
	h.Mul(&jtWb, cs.cone3xK)
	return h
}

// Force reconstructs the link-frame reaction force for cone coefficients
// alpha (length ConeEdges): f = Cone*alpha.
func (cs *CandidateSite) Force(alpha []float64) mgl64.Vec3 {
	var f mgl64.Vec3
	for k := 0; k < ConeEdges; k++ {
		f = f.Add(cs.cone[k].Mul(alpha[k]))
	}
	return f
}

// rotationToNormal builds an orthonormal rotation whose third column is n.
func rotationToNormal(n mgl64.Vec3) mgl64.Mat3 {
	var up mgl64.Vec3
	if math.Abs(n[2]) < 0.9 {
		up = mgl64.Vec3{0, 0, 1}
	} else {
		up = mgl64.Vec3{1, 0, 0}
	}
	x := up.Cross(n)
	if x.Len() < 1e-9 {
		x = mgl64.Vec3{1, 0, 0}
	}
	x = x.Normalize()
	y := n.Cross(x).Normalize()
	// Mat3 is stored column-major, so this literal has columns x, y, n:
	// R*(0,0,1) = n, i.e. the cone axis (local z) maps onto the normal.
	return mgl64.Mat3{
		x[0], x[1], x[2],
		y[0], y[1], y[2],
		n[0], n[1], n[2],
	}
}

func skewSymmetric(v mgl64.Vec3) *mat.Dense {
	m := mat.NewDense(3, 3, nil)
	m.Set(0, 1, -v[2])
	m.Set(0, 2, v[1])
	m.Set(1, 0, v[2])
	m.Set(1, 2, -v[0])
	m.Set(2, 0, -v[1])
	m.Set(2, 1, v[0])
	return m
}
