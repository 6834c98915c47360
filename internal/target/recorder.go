package target

import (
	"fmt"
	"sync"

	"github.com/vk/reportflow/internal/attrs"
	"github.com/vk/reportflow/internal/layout"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// EventKind distinguishes start and end events.
type EventKind int

const (
	Start EventKind = iota
	End
)

func (k EventKind) String() string {
	if k == End {
		return "end"
	}
	return "start"
}

// Event is one recorded call on a Target.
type Event struct {
	Kind  EventKind
	Attrs attrs.ReadOnly
}

// Label renders the event compactly, e.g. "<group-section:header>" or
// "</text:total=10>".
func (e Event) Label() string {
	label := e.Attrs.Type()
	if name, ok := e.Attrs.Get(attrs.ReportNamespace, attrs.Name); ok && name != "" {
		label += ":" + fmt.Sprint(name)
	}
	if v, ok := e.Attrs.Get(attrs.ReportNamespace, attrs.Value); ok {
		label += "=" + fmt.Sprint(v)
	}
	if _, ok := e.Attrs.Get(attrs.ReportNamespace, attrs.RepeatedSection); ok {
		label += "*"
	}
	if e.Kind == End {
		return "</" + label + ">"
	}
	return "<" + label + ">"
}

// Recorder keeps every event in memory, in order.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

var _ layout.Target = (*Recorder)(nil)

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) StartElement(a attrs.ReadOnly) error {
	r.append(Event{Kind: Start, Attrs: a})
	return nil
}

func (r *Recorder) EndElement(a attrs.ReadOnly) error {
	r.append(Event{Kind: End, Attrs: a})
	return nil
}

func (r *Recorder) append(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Labels returns the Label of every recorded event.
func (r *Recorder) Labels() []string {
	events := r.Events()
	labels := make([]string, len(events))
	for i, e := range events {
		labels[i] = e.Label()
	}
	return labels
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Native converts attribute values into plain Go values: cty values become
// strings, numbers or bools, and slices are converted element-wise.
func Native(v any) any {
	switch t := v.(type) {
	case cty.Value:
		return nativeCty(t)
	case []cty.Value:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = nativeCty(e)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out
	default:
		return v
	}
}

func nativeCty(v cty.Value) any {
	if v.IsNull() || !v.IsKnown() {
		return nil
	}
	switch v.Type() {
	case cty.Bool:
		return v.True()
	case cty.Number:
		if i, acc := v.AsBigFloat().Int64(); acc == 0 {
			return i
		}
		f, _ := v.AsBigFloat().Float64()
		return f
	case cty.String:
		return v.AsString()
	}
	if s, err := convert.Convert(v, cty.String); err == nil && s.IsKnown() && !s.IsNull() {
		return s.AsString()
	}
	return v.GoString()
}
