// Package target provides diagnostic layout.Target implementations: an
// in-memory Recorder and a YAML event stream writer. Document renderers are
// separate consumers of the same event stream.
package target
