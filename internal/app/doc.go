// Package app contains the core application logic. It wires the run
// configuration, the data source and the layout engine together and drives a
// report run to completion, decoupled from any specific entrypoint like a CLI.
package app
