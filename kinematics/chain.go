package kinematics

import (
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

// Model is the small interface the filter engine depends on for
// collaborator (a) of spec.md section 1: joint positions, link-to-world
// frames and geometric Jacobians at a queried configuration.
type Model interface {
	// JointNames returns the model's joint ordering, used to reorder an
	// incoming residual that names joints independently (spec.md 7(iv)).
	JointNames() []string
	// SetJointPositions sets the current configuration; q must have one
	// entry per JointNames().
	SetJointPositions(q []float64) error
	// LinkFrame returns the link-to-world transform at the current
	// configuration.
	LinkFrame(link string) (mgl64.Mat4, error)
	// Jacobian returns the 6 x n geometric Jacobian (linear stacked on
	// angular, rows 0-2/3-5) of the named link expressed in that link's
	// own frame, at the current configuration.
	Jacobian(link string) (*mat.Dense, error)
	// Links returns every link name in the chain.
	Links() []string
}

// JointSpec is one joint's static description: its name, the link it
// produces, a translation offset from the parent joint's frame origin
// and a revolute rotation axis expressed in the parent frame.
type JointSpec struct {
	Name   string     `yaml:"name"`
	Link   string     `yaml:"link"`
	Offset [3]float64 `yaml:"offset"`
	Axis   [3]float64 `yaml:"axis"`
}

type chainFile struct {
	Joints []JointSpec `yaml:"joints"`
}

// Chain is a minimal serial revolute-chain forward-kinematics model,
// standing in for a real URDF-driven rigid-body model (spec.md's
// `robot.urdf` configuration key). Each joint produces exactly one link.
type Chain struct {
	joints []JointSpec
	q      []float64

	// cached per-configuration state
	frames []mgl64.Mat4 // link i's world frame
	origin []mgl64.Vec3 // joint i's world-frame origin
	axis   []mgl64.Vec3 // joint i's world-frame rotation axis
}

// Load reads a joint-chain description from a YAML file.
func Load(path string) (*Chain, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("kinematics: opening chain file: %w", err)
	}
	defer f.Close()
	var cf chainFile
	if err := yaml.NewDecoder(f).Decode(&cf); err != nil {
		return nil, fmt.Errorf("kinematics: decoding chain file: %w", err)
	}
	return New(cf.Joints), nil
}

// New builds a Chain directly from joint specs.
func New(joints []JointSpec) *Chain {
	c := &Chain{joints: joints}
	c.q = make([]float64, len(joints))
	c.frames = make([]mgl64.Mat4, len(joints))
	c.origin = make([]mgl64.Vec3, len(joints))
	c.axis = make([]mgl64.Vec3, len(joints))
	c.recompute()
	return c
}

func (c *Chain) JointNames() []string {
	names := make([]string, len(c.joints))
	for i, j := range c.joints {
		names[i] = j.Name
	}
	return names
}

func (c *Chain) Links() []string {
	names := make([]string, len(c.joints))
	for i, j := range c.joints {
		names[i] = j.Link
	}
	return names
}

func (c *Chain) SetJointPositions(q []float64) error {
	if len(q) != len(c.joints) {
		return fmt.Errorf("kinematics: expected %d joint positions, got %d", len(c.joints), len(q))
	}
	copy(c.q, q)
	c.recompute()
	return nil
}

func (c *Chain) recompute() {
	parent := mgl64.Ident4()
	for i, j := range c.joints {
		offset := mgl64.Vec3{j.Offset[0], j.Offset[1], j.Offset[2]}
		translate := mgl64.Translate3D(offset[0], offset[1], offset[2])
		jointOrigin := parent.Mul4(translate)

		axisLocal := mgl64.Vec3{j.Axis[0], j.Axis[1], j.Axis[2]}
		if axisLocal.Len() < 1e-12 {
			axisLocal = mgl64.Vec3{0, 0, 1}
		}
		axisLocal = axisLocal.Normalize()
		quat := mgl64.QuatRotate(c.q[i], axisLocal)
		frame := jointOrigin.Mul4(quat.Mat4())

		c.frames[i] = frame
		c.origin[i] = jointOrigin.Col(3).Vec3()
		// world-frame axis direction: rotate the local axis by the
		// parent's accumulated rotation (jointOrigin has no added
		// rotation of its own beyond the parents', since the joint's
		// own rotation is applied after the origin translation).
		c.axis[i] = mat4RotatePoint(jointOrigin, axisLocal)

		parent = frame
	}
}

func mat4RotatePoint(m mgl64.Mat4, v mgl64.Vec3) mgl64.Vec3 {
	r := m.Mat3()
	return r.Mul3x1(v)
}

func (c *Chain) linkIndex(link string) (int, error) {
	for i, j := range c.joints {
		if j.Link == link {
			return i, nil
		}
	}
	return -1, fmt.Errorf("kinematics: unknown link %q", link)
}

func (c *Chain) LinkFrame(link string) (mgl64.Mat4, error) {
	i, err := c.linkIndex(link)
	if err != nil {
		return mgl64.Mat4{}, err
	}
	return c.frames[i], nil
}

// Jacobian returns the 6 x n geometric Jacobian of link, expressed in
// the link's own frame: rows 0-2 are the linear-velocity part, rows 3-5
// the angular-velocity part, matching the row convention of
// site.CandidateSite's force-moment transform (force stacked on
// moment), so that J^T * wrench yields the generalized force directly.
func (c *Chain) Jacobian(link string) (*mat.Dense, error) {
	li, err := c.linkIndex(link)
	if err != nil {
		return nil, err
	}
	n := len(c.joints)
	J := mat.NewDense(6, n, nil)

	linkFrame := c.frames[li]
	linkPos := linkFrame.Col(3).Vec3()
	rt := linkFrame.Mat3().Transpose()

	for j := 0; j <= li; j++ {
		axisWorld := c.axis[j]
		originWorld := c.origin[j]
		linearWorld := axisWorld.Cross(linkPos.Sub(originWorld))
		linearLocal := rt.Mul3x1(linearWorld)
		angularLocal := rt.Mul3x1(axisWorld)
		J.Set(0, j, linearLocal[0])
		J.Set(1, j, linearLocal[1])
		J.Set(2, j, linearLocal[2])
		J.Set(3, j, angularLocal[0])
		J.Set(4, j, angularLocal[1])
		J.Set(5, j, angularLocal[2])
	}
	return J, nil
}
