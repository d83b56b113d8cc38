package cpf

// ResidualMessage is the subscribed residual stream's payload (spec.md
// 6): a generalized-force residual with joint names matched by name to
// the rigid-body model's ordering. JointPositions is an implementation
// supplement — the robot model is otherwise assumed to already be at
// the current configuration (spec.md 4.2's caller responsibility) —
// and, if non-nil, is pushed into the kinematics model before the step
// runs, which is convenient for offline replay and tests.
type ResidualMessage struct {
	Utime          uint64    `json:"utime"`
	JointNames     []string  `json:"joint_names"`
	Residual       []float64 `json:"residual"`
	JointPositions []float64 `json:"joint_positions,omitempty"`
}

// reorderResidual matches r's (name, value) pairs against modelJoints'
// ordering, zero-filling any joint the residual does not name (spec.md
// 7(iv)).
func reorderResidual(r ResidualMessage, modelJoints []string) []float64 {
	byName := make(map[string]float64, len(r.JointNames))
	for i, name := range r.JointNames {
		if i < len(r.Residual) {
			byName[name] = r.Residual[i]
		}
	}
	out := make([]float64, len(modelJoints))
	for i, name := range modelJoints {
		out[i] = byName[name]
	}
	return out
}
