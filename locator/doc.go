/*
Package locator implements C5, the surface locator adapter: a thin
wrapper over an external closest-point service that turns a world-space
query point into a fully-formed site.CandidateSite (recomputing the cone
rotation and force-moment transform in the owning link's current frame;
never cached, since frames change every step).

The Service interface stands in for external collaborator (b) of
spec.md section 1. Package locator/mesh supplies a reference
implementation over a triangulated vertex set using a k-d tree, so the
repository is runnable without wrapping a real closest-point engine.
*/
package locator
