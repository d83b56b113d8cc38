package cpf

import "github.com/mathrgo/cpf/particle"

// Particle is re-exported from the particle package, which holds the
// type so that both this package and proposal can depend on it without
// an import cycle (cpf depends on proposal for C4; proposal must not
// depend on cpf).
type Particle = particle.Particle
