/*
Package site implements the surface catalog (C1): the enumeration of
candidate contact sites on a robot's body, each carrying a precomputed
friction cone and force-moment transform in its owning link's frame.

Candidate sites are loaded once at startup from a YAML description and
never mutated afterwards; the catalog offers lookup by link, flat
iteration and uniform-random draws used to seed new hypotheses.
*/
package site
