/*
Package likelihood implements C2, the measurement-likelihood evaluator:
given a residual and a tuple of candidate sites, it forms the per-site
H_alpha regressors, delegates the bounded non-negative least squares to
a qp.Solver, and reconstructs the implied residual, squared error and
Gaussian likelihood of the fit.
*/
package likelihood
