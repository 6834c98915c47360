// Package flow holds the data cursor the layout engine walks with. A
// Controller is an immutable value: advancing produces a new Controller and
// leaves every holder of the old one untouched.
package flow

import (
	"errors"
	"fmt"

	"github.com/vk/reportflow/internal/datarow"
	"github.com/vk/reportflow/internal/formula"
)

// ErrNoMoreRows is returned by Advance on the last row.
var ErrNoMoreRows = errors.New("no more rows")

// Controller is a position in a table plus the run-wide evaluation settings.
type Controller struct {
	table       *datarow.Table
	pos         int
	config      formula.Configuration
	loc         formula.LocalizationContext
	backendOpts []formula.BackendOption
}

// Option customizes a Controller.
type Option func(*Controller)

// WithConfiguration sets the run configuration handed to formula contexts.
func WithConfiguration(c formula.Configuration) Option {
	return func(fc *Controller) { fc.config = c }
}

// WithLocalization sets the localization used by row backends.
func WithLocalization(l formula.LocalizationContext) Option {
	return func(fc *Controller) { fc.loc = l }
}

// WithBackendOptions passes options to every row backend the controller builds.
func WithBackendOptions(opts ...formula.BackendOption) Option {
	return func(fc *Controller) { fc.backendOpts = append(fc.backendOpts, opts...) }
}

// New positions a controller on the first row of table. A nil table is treated as empty.
func New(table *datarow.Table, opts ...Option) *Controller {
	if table == nil {
		table, _ = datarow.NewTable(nil, nil)
	}
	fc := &Controller{
		table:  table,
		config: formula.MapConfiguration{},
		loc:    formula.DefaultLocalization(),
	}
	for _, opt := range opts {
		opt(fc)
	}
	return fc
}

// Position is the index of the active row.
func (c *Controller) Position() int { return c.pos }

// HasRow reports whether the cursor points at a row.
func (c *Controller) HasRow() bool { return c.pos < c.table.Len() }

// HasNext reports whether Advance would succeed.
func (c *Controller) HasNext() bool { return c.pos+1 < c.table.Len() }

// Advance returns a controller on the next row.
func (c *Controller) Advance() (*Controller, error) {
	if !c.HasNext() {
		return nil, fmt.Errorf("advance from row %d: %w", c.pos, ErrNoMoreRows)
	}
	next := *c
	next.pos++
	return &next, nil
}

// GlobalView is the data row view of the active row.
func (c *Controller) GlobalView() datarow.DataRow {
	return c.table.View(c.pos)
}

// KeyChangesAtNext reports whether any of fields differs between the active
// row and the next one. Without a next row it reports true.
func (c *Controller) KeyChangesAtNext(fields []string) (bool, error) {
	if !c.HasNext() {
		return true, nil
	}
	for _, f := range fields {
		cur, err := c.table.Value(c.pos, f)
		if err != nil {
			return false, err
		}
		next, err := c.table.Value(c.pos+1, f)
		if err != nil {
			return false, err
		}
		if !cur.RawEquals(next) {
			return true, nil
		}
	}
	return false, nil
}

// Configuration is the run configuration.
func (c *Controller) Configuration() formula.Configuration { return c.config }

// FormulaContext builds the evaluation context for the active row: a row
// backend wrapped so that it reports the run configuration.
func (c *Controller) FormulaContext() formula.Context {
	backend := formula.NewRowBackend(c.GlobalView(), c.loc, c.backendOpts...)
	return formula.NewAdapter(backend, c.config)
}
