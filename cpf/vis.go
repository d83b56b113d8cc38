package cpf

import "github.com/google/uuid"

// VisParticle is one particle's contribution to the visualization
// payload: just enough to place a marker on the robot surface.
type VisParticle struct {
	Link     string     `json:"link"`
	Position [3]float64 `json:"position"`
}

// VisSet is one particle set's visualization payload (spec.md 6): its
// full particle list, current and historical most-likely, and display
// color, for offline rendering.
type VisSet struct {
	ID         uuid.UUID     `json:"id"`
	Color      [3]float64    `json:"color"`
	Particles  []VisParticle `json:"particles"`
	Current    *VisParticle  `json:"current,omitempty"`
	Historical *VisParticle  `json:"historical,omitempty"`
}

// VisPayload is the published visualization stream's payload: one
// VisSet per active hypothesis.
type VisPayload struct {
	Utime uint64   `json:"utime"`
	Sets  []VisSet `json:"sets"`
}

// BuildVisPayload snapshots the manager's current hypothesis list into
// a VisPayload, for publication over the visualization stream.
func (d *Driver) BuildVisPayload(utime uint64) VisPayload {
	payload := VisPayload{Utime: utime}
	for _, s := range d.Manager.Sets {
		vs := VisSet{ID: s.ID, Color: s.Color}
		for _, p := range s.Particles {
			vs.Particles = append(vs.Particles, VisParticle{
				Link:     p.Site.Link,
				Position: [3]float64{p.Site.Position[0], p.Site.Position[1], p.Site.Position[2]},
			})
		}
		if s.Current != nil {
			cs := s.Current.Sites[0]
			vs.Current = &VisParticle{Link: cs.Link, Position: [3]float64{cs.Position[0], cs.Position[1], cs.Position[2]}}
		}
		if s.Historical != nil {
			cs := s.Historical.Sites[0]
			vs.Historical = &VisParticle{Link: cs.Link, Position: [3]float64{cs.Position[0], cs.Position[1], cs.Position[2]}}
		}
		payload.Sets = append(payload.Sets, vs)
	}
	return payload
}
