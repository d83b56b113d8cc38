package cpf

// FilterState is the small piece of per-driver state spec.md 3
// describes outside the hypothesis list itself: the current simulated
// time and the externally-supplied list of links currently expected to
// carry contact, used to gate the full-sweep likelihood mode (spec.md
// 6, 12).
type FilterState struct {
	Time                 float64
	LastResidual         []float64
	ExpectedContactLinks []string
}
