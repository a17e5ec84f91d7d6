// Package mixture owns the fitted-model side of the mapping pipeline.
//
// Responsibilities: the read-only Model capability consumed from an
// external trainer, validation of fitted parameters, splitting a joint
// source/target mixture into per-component parameter blocks, and the
// source-marginal posterior machinery (responsibilities and MAP
// component assignment).
// Key types: Model, StaticModel, JointParams.
//
// Dependency rule: mixture never mutates a supplied Model and performs
// no I/O; loading fitted parameters from disk lives in internal/modelio.
package mixture
