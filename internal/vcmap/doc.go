// Package vcmap owns the statistical mapping engine.
//
// Responsibilities: frame-by-frame MMSE mapping of source feature
// vectors to the target domain (GMMMap), maximum-likelihood trajectory
// mapping over whole sequences with static/delta consistency
// (TrajectoryGMMMap), and the global-variance post-filter that
// counteracts over-smoothing of the solved trajectory.
//
// The trajectory mapper couples per-frame estimates through a banded
// window operator and solves the resulting normal equations with a
// banded Cholesky factorization, so cost stays linear in sequence
// length.
//
// Dependency rule: vcmap depends on internal/mixture only. No I/O.
package vcmap
