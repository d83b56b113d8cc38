/*
Package qp is the C2 QP back-end: solving the bounded, non-negative
least-squares problem

	minimize ||r - H*alpha||^2_W   subject to alpha >= 0

that the likelihood evaluator reduces every candidate-site tuple to.
Solver is a small interface (spec.md design note 9) so multiple
concrete back-ends can coexist and be selected by configuration.
*/
package qp
