package run

import (
	"fmt"
	"log"
	"sort"

	"github.com/mathrgo/cpf/cpf"
)

// SelectSource primes man to use the named ResidualSource for
// subsequent runs, the analogue of psokit.ManPso.SelectFun.
func (man *ManCPF) SelectSource(name string) error {
	if man.sourced[name] == "" && man.addedSrc[name] == nil {
		if name != "zero" {
			return fmt.Errorf("run: residual source %s could not be found", name)
		}
	}
	man.sourceCase = name
	return nil
}

// ZeroSource is the built-in "zero" residual source: N consecutive
// zero residuals at a fixed sample period, used for end-to-end
// scenario 1 of spec.md 8 (idle: no hypothesis ever born).
type ZeroSource struct {
	N          int
	NumJoints  int
	JointNames []string
	PeriodUs   uint64

	i     int
	utime uint64
}

// Next implements ResidualSource.
func (z *ZeroSource) Next() (cpf.ResidualMessage, bool) {
	if z.i >= z.N {
		return cpf.ResidualMessage{}, false
	}
	msg := cpf.ResidualMessage{
		Utime:      z.utime,
		JointNames: z.JointNames,
		Residual:   make([]float64, z.NumJoints),
	}
	z.i++
	z.utime += z.PeriodUs
	return msg, true
}

// FixedSource replays a fixed, in-memory slice of residual messages in
// order, used by example/replay and by tests for deterministic
// scenario playback (spec.md P8).
type FixedSource struct {
	Messages []cpf.ResidualMessage
	i        int
}

// NewFixedSource builds a FixedSource over msgs.
func NewFixedSource(msgs []cpf.ResidualMessage) *FixedSource {
	return &FixedSource{Messages: msgs}
}

// Next implements ResidualSource.
func (f *FixedSource) Next() (cpf.ResidualMessage, bool) {
	if f.i >= len(f.Messages) {
		return cpf.ResidualMessage{}, false
	}
	m := f.Messages[f.i]
	f.i++
	return m, true
}

// CreateSource builds the named residual source instance, passing a
// registered creator the seed sd0 + sd1*RunID() from SourceSeed() (the
// built-in "zero" source takes no seed). It is called by Run at the
// start of each run.
func (man *ManCPF) CreateSource(name string) ResidualSource {
	sd := man.srcSeed1*int64(man.runid) + man.srcSeed0
	var src ResidualSource
	switch name {
	case "zero":
		src = &ZeroSource{N: 100, NumJoints: len(man.model.JointNames()), JointNames: man.model.JointNames(), PeriodUs: 1000}
	default:
		c := man.addedSrc[name]
		if c == nil {
			log.Printf("run: residual source %s not found", name)
			return nil
		}
		src = c.Create(sd)
	}
	man.source = src
	man.sourceCase = name
	return src
}

// AddSource registers a named residual source creator, the analogue of
// psokit.ManPso.AddFun.
func (man *ManCPF) AddSource(name, desc string, c CreateSource) error {
	if man.sourced[name] != "" {
		return fmt.Errorf("run: residual source %s already exists", name)
	}
	man.sourced[name] = desc
	man.addedSrc[name] = c
	return nil
}

func (man *ManCPF) loadSourceDescription() {
	man.sourced = map[string]string{
		"zero": "100 consecutive zero residuals at a 1ms period; no hypothesis is ever born (spec.md scenario 1)",
	}
}

// SourceDescription describes every available residual source by name.
func (man *ManCPF) SourceDescription() string {
	keys := make([]string, 0, len(man.sourced))
	for k := range man.sourced {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s := fmt.Sprintln("Residual source descriptions:")
	for _, k := range keys {
		s += fmt.Sprintf("%s :\n  %s\n", k, man.sourced[k])
	}
	return s
}
