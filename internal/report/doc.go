// Package report defines the immutable report structure tree walked by the
// layout engine: containers (report, section, group, group section, detail)
// and content leaves (embedded objects, formula fields).
//
// Nodes are built once through the New* constructors and never change
// afterwards; every accessor that exposes a slice returns a copy.
package report
