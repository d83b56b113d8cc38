package locator

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mathrgo/cpf/kinematics"
	"github.com/mathrgo/cpf/site"
)

// Hit is what the external closest-point service returns for a query
// point: the closest surface point, its outward... here inward unit
// normal, and the owning link, all in world frame.
type Hit struct {
	Point  mgl64.Vec3
	Normal mgl64.Vec3
	Link   string
}

// Service is the external collaborator (b) of spec.md section 1: the
// closest-point surface locator on the robot's triangulated skin.
type Service interface {
	Nearest(p mgl64.Vec3) (Hit, error)
}

// Adapter wraps a Service and turns its result into a fully-formed
// CandidateSite, expressed in the owning link's current frame.
type Adapter struct {
	Service    Service
	Kinematics kinematics.Model
	Mu         float64
	nextID     int
}

// New builds an Adapter. mu is the coefficient of friction used to
// build the cone edges of every site it produces.
func New(svc Service, model kinematics.Model, mu float64) *Adapter {
	return &Adapter{Service: svc, Kinematics: model, Mu: mu}
}

// Locate queries the service for the closest point to worldPoint and
// builds a CandidateSite for it in the owning link's current frame. A
// zero-norm normal is treated as a degenerate hit and reported as an
// error; callers drop the particle and replace it with a motion-model
// draw (spec.md 7(vii)).
func (a *Adapter) Locate(worldPoint mgl64.Vec3) (*site.CandidateSite, error) {
	hit, err := a.Service.Nearest(worldPoint)
	if err != nil {
		return nil, fmt.Errorf("locator: nearest query: %w", err)
	}
	if hit.Normal.Len() < 1e-9 {
		return nil, fmt.Errorf("locator: degenerate zero-norm normal at link %q", hit.Link)
	}

	frame, err := a.Kinematics.LinkFrame(hit.Link)
	if err != nil {
		return nil, fmt.Errorf("locator: link frame: %w", err)
	}
	linkPos := worldToLink(frame, hit.Point)
	linkNormal := worldToLinkDirection(frame, hit.Normal)

	cs, err := site.New(a.nextID, hit.Link, linkPos, linkNormal, a.Mu)
	if err != nil {
		return nil, fmt.Errorf("locator: building candidate site: %w", err)
	}
	a.nextID++
	return cs, nil
}

// WorldPosition returns cs's contact point transformed into world
// coordinates using the link's current frame, used by the proposal
// model's world-space Gaussian steps.
func WorldPosition(model kinematics.Model, cs *site.CandidateSite) (mgl64.Vec3, error) {
	frame, err := model.LinkFrame(cs.Link)
	if err != nil {
		return mgl64.Vec3{}, err
	}
	p4 := frame.Mul4x1(mgl64.Vec4{cs.Position[0], cs.Position[1], cs.Position[2], 1})
	return mgl64.Vec3{p4[0], p4[1], p4[2]}, nil
}

func worldToLink(frame mgl64.Mat4, p mgl64.Vec3) mgl64.Vec3 {
	inv := frame.Inv()
	p4 := inv.Mul4x1(mgl64.Vec4{p[0], p[1], p[2], 1})
	return mgl64.Vec3{p4[0], p4[1], p4[2]}
}

func worldToLinkDirection(frame mgl64.Mat4, d mgl64.Vec3) mgl64.Vec3 {
	rt := frame.Mat3().Transpose()
	return rt.Mul3x1(d)
}
