// Package metrics defines the sinks that record the stages of a SCED run:
// how long each stage took, the size of the linear program and the solve
// outcome. Sinks are built from configuration through a factory registry
// and can be combined with NewMultiSink.
package metrics
