/*
Package run is a high-level runner for the filter, adapted in place
from the teacher's psokit run-management layer: ManCPF is the
structural analogue of psokit.ManPso with the cost-function/SPSO pair
replaced by a residual Source/Driver pair, and the same named,
pluggable Action slots (Init/RunInit/Step/DataUpdate/Result/Summary)
used to print progress, plot squared error and accept command-line
configuration.

It exists to drive replay runs the same way ManPso.Run() drove PSO
runs: cmd/cpf and example/replay both configure a ManCPF and call Run.
*/
package run
