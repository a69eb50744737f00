// Package adf implements online Bayesian logistic regression by Assumed
// Density Filtering.
//
// The posterior over the regression weights is kept as independent
// per-coordinate Gaussians. Each observation (φ, y) is absorbed by projecting
// the diagonal Gaussian onto the scalar linear predictor η = φ·w, computing
// the first two moments of the tilted density
//
//	p(η) ∝ σ(η)^y (1-σ(η))^(1-y) N(η; m, s²)
//
// by fixed-rule quadrature over a bounded interval, and spreading the
// change in mean and variance back over the weights through the diagonal
// gain a = φ ⊙ τ / v.
//
// The filter is a strict left-to-right fold: Filter.Run processes rows in
// index order and keeps every intermediate State. Nothing in this package
// is safe for concurrent mutation; Rules and Options are immutable values.
package adf
