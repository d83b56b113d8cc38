/*
Package proposal implements C4, the motion/proposal model: at each
step every particle in a set is advanced by one of three disjoint
groups (a surface-local Gaussian motion step, a historical-anchor
Gaussian importance proposal, and a uniform catalog reseed when error is
high), plus a fixed number of exact duplicates of the historical
most-likely particle. See spec.md section 4.4 and design note 9 for the
two coexisting, independently-configurable policies this package keeps.
*/
package proposal
