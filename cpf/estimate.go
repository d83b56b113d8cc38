package cpf

import "github.com/go-gl/mathgl/mgl64"

// SingleContact describes one estimated active contact, in both the
// owning link's frame and world frame (spec.md 6).
type SingleContact struct {
	LinkName        string     `json:"link_name"`
	ContactForce    mgl64.Vec3 `json:"contact_force"`
	ContactNormal   mgl64.Vec3 `json:"contact_normal"`
	ContactPosition mgl64.Vec3 `json:"contact_position"`
	WorldForce      mgl64.Vec3 `json:"world_force"`
	WorldNormal     mgl64.Vec3 `json:"world_normal"`
	WorldPosition   mgl64.Vec3 `json:"world_position"`
}

// Estimate is the published output stream's payload (spec.md 6): one
// contact per active particle set.
type Estimate struct {
	Utime            uint64          `json:"utime"`
	NumContactPoints int             `json:"num_contact_points"`
	NumVelocities    int             `json:"num_velocities"`
	LogLikelihood    float64         `json:"log_likelihood"`
	VelocityNames    []string        `json:"velocity_names"`
	ImpliedResidual  []float64       `json:"implied_residual"`
	Contacts         []SingleContact `json:"list_of_single_contact"`
}

// EmptyEstimate builds the empty-estimate message published when no
// hypothesis exists (spec.md 6): num_contact_points = 0, log_likelihood
// = residual^T W residual via the evaluator's no-contact baseline.
func EmptyEstimate(utime uint64, velocityNames []string, noContactSquaredError float64) Estimate {
	return Estimate{
		Utime:         utime,
		VelocityNames: velocityNames,
		LogLikelihood: noContactSquaredError,
	}
}
