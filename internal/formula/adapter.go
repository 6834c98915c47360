package formula

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// Adapter wraps a backend Context. Everything is forwarded unchanged except
// the configuration, which is the one supplied at construction.
type Adapter struct {
	backend Context
	config  Configuration
}

var _ Context = (*Adapter)(nil)

// NewAdapter wraps backend, substituting config for the backend's own configuration.
func NewAdapter(backend Context, config Configuration) *Adapter {
	return &Adapter{backend: backend, config: config}
}

// Backend returns the wrapped context.
func (a *Adapter) Backend() Context { return a.backend }

func (a *Adapter) LocalizationContext() LocalizationContext {
	return a.backend.LocalizationContext()
}

// Configuration returns the run's configuration, never the backend's.
func (a *Adapter) Configuration() Configuration {
	return a.config
}

func (a *Adapter) FunctionRegistry() FunctionRegistry {
	return a.backend.FunctionRegistry()
}

func (a *Adapter) TypeRegistry() TypeRegistry {
	return a.backend.TypeRegistry()
}

func (a *Adapter) OperatorFactory() OperatorFactory {
	return a.backend.OperatorFactory()
}

func (a *Adapter) ResolveReferenceType(name any) (cty.Type, error) {
	return a.backend.ResolveReferenceType(name)
}

// ResolveReference forwards to the backend. A nil name is rejected before the
// backend is consulted.
func (a *Adapter) ResolveReference(name any) (cty.Value, error) {
	if name == nil {
		return cty.NilVal, fmt.Errorf("resolve reference: %w: name is nil", ErrInvalidArgument)
	}
	return a.backend.ResolveReference(name)
}

func (a *Adapter) IsReferenceDirty(name any) (bool, error) {
	return a.backend.IsReferenceDirty(name)
}
