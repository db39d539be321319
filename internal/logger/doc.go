// Package logger wraps zap with a global sugared logger, context helpers
// (ToContext/FromContext/WithName/WithKV) and level-aware convenience
// functions (Infof, ErrorKV, ...).
//
// Every package in this module logs through a context so that a run can be
// tagged once (for example with its run id) and all subsequent messages carry
// the tag.
package logger
