/*
Package kinematics stands in for external collaborator (a) of spec.md
section 1: a rigid-body model providing joint positions, link-to-world
frames and geometric Jacobians at a queried joint configuration.

The filter engine itself only depends on the small Model interface;
this package supplies a minimal revolute-chain implementation (loaded
from a YAML link/joint description, playing the role spec.md's
`robot.urdf` key names) so the repository is runnable without wrapping
an external dynamics engine, which is out of scope per spec.md 1(a).
*/
package kinematics
