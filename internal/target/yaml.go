package target

import (
	"fmt"
	"io"

	"github.com/vk/reportflow/internal/attrs"
	"github.com/vk/reportflow/internal/layout"
	"gopkg.in/yaml.v3"
)

// YAMLWriter writes every event as its own YAML document.
type YAMLWriter struct {
	enc *yaml.Encoder
	seq int
}

var _ layout.Target = (*YAMLWriter)(nil)

// NewYAMLWriter creates a writer encoding to w. Close flushes the stream.
func NewYAMLWriter(w io.Writer) *YAMLWriter {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	return &YAMLWriter{enc: enc}
}

type yamlAttribute struct {
	Namespace string `yaml:"namespace,omitempty"`
	Name      string `yaml:"name"`
	Value     any    `yaml:"value"`
}

type yamlEvent struct {
	Seq        int             `yaml:"seq"`
	Event      string          `yaml:"event"`
	Attributes []yamlAttribute `yaml:"attributes"`
}

func (y *YAMLWriter) StartElement(a attrs.ReadOnly) error { return y.write(Start, a) }
func (y *YAMLWriter) EndElement(a attrs.ReadOnly) error   { return y.write(End, a) }

func (y *YAMLWriter) write(kind EventKind, a attrs.ReadOnly) error {
	ev := yamlEvent{Seq: y.seq, Event: kind.String()}
	a.Each(func(k attrs.Key, v any) {
		ev.Attributes = append(ev.Attributes, yamlAttribute{Namespace: k.Namespace, Name: k.Name, Value: Native(v)})
	})
	if err := y.enc.Encode(ev); err != nil {
		return fmt.Errorf("encoding event %d: %w", y.seq, err)
	}
	y.seq++
	return nil
}

// Close flushes the encoder.
func (y *YAMLWriter) Close() error {
	return y.enc.Close()
}
