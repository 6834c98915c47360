package config

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/reportflow/internal/ctxlog"
	"github.com/vk/reportflow/internal/formula"
	"github.com/vk/reportflow/internal/fsutil"
	"github.com/vk/reportflow/internal/layout"
)

// ErrInvalidConfig is returned for run files that decode but hold invalid values.
var ErrInvalidConfig = errors.New("invalid run configuration")

// hclRunFile is the top-level structure of a run file for decoding.
type hclRunFile struct {
	Run *hclRunBlock `hcl:"run,block"`
}

type hclRunBlock struct {
	Locale               *string           `hcl:"locale,optional"`
	Timezone             *string           `hcl:"timezone,optional"`
	RepeatHeaderInterval *int              `hcl:"repeat_header_interval,optional"`
	Properties           map[string]string `hcl:"properties,optional"`
}

// Run is the configuration of one report run.
type Run struct {
	Locale               string
	Timezone             string
	RepeatHeaderInterval int
	Properties           map[string]string
}

// Default returns the configuration used when no run file is given.
func Default() *Run {
	return &Run{Properties: map[string]string{}}
}

// Property implements formula.Configuration. The repeat header interval is
// exposed under layout.RepeatIntervalProperty and takes precedence over a
// free-form property of the same name.
func (r *Run) Property(key string) (string, bool) {
	if key == layout.RepeatIntervalProperty && r.RepeatHeaderInterval > 0 {
		return strconv.Itoa(r.RepeatHeaderInterval), true
	}
	v, ok := r.Properties[key]
	return v, ok
}

// Localization builds the localization context for the run.
func (r *Run) Localization() (*formula.Localization, error) {
	loc, err := formula.ParseLocalization(r.Locale, r.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return loc, nil
}

// Load reads the run configuration from a file or a directory of .hcl files.
// An empty path yields Default().
func Load(ctx context.Context, path string) (*Run, error) {
	logger := ctxlog.FromContext(ctx)
	if path == "" {
		logger.Debug("No run configuration path given, using defaults.")
		return Default(), nil
	}
	logger.Debug("Loading run configuration.", "path", path)

	paths, err := fsutil.FindFiles(path, ".hcl")
	if err != nil {
		return nil, fmt.Errorf("failed to find run files in %s: %w", path, err)
	}
	if len(paths) == 0 {
		logger.Warn("No .hcl run files found in path, using defaults.", "path", path)
		return Default(), nil
	}

	parser := hclparse.NewParser()
	files := make([]*hcl.File, 0, len(paths))
	for _, p := range paths {
		f, diags := parser.ParseHCLFile(p)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", p, diags)
		}
		files = append(files, f)
	}

	run, err := decode(hcl.MergeFiles(files))
	if err != nil {
		return nil, fmt.Errorf("failed to decode run configuration in %s: %w", path, err)
	}
	logger.Debug("Run configuration loaded.", "files", len(files), "locale", run.Locale, "repeat_header_interval", run.RepeatHeaderInterval)
	return run, nil
}

// Parse decodes a single run file held in memory.
func Parse(src []byte, filename string) (*Run, error) {
	f, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	return decode(f.Body)
}

func decode(body hcl.Body) (*Run, error) {
	var parsed hclRunFile
	if diags := gohcl.DecodeBody(body, nil, &parsed); diags.HasErrors() {
		return nil, diags
	}

	run := Default()
	if parsed.Run == nil {
		return run, nil
	}
	b := parsed.Run
	if b.Locale != nil {
		run.Locale = *b.Locale
	}
	if b.Timezone != nil {
		run.Timezone = *b.Timezone
	}
	if b.RepeatHeaderInterval != nil {
		if *b.RepeatHeaderInterval < 0 {
			return nil, fmt.Errorf("%w: repeat_header_interval must not be negative, got %d", ErrInvalidConfig, *b.RepeatHeaderInterval)
		}
		run.RepeatHeaderInterval = *b.RepeatHeaderInterval
	}
	if b.Properties != nil {
		run.Properties = maps.Clone(b.Properties)
	}
	if _, err := run.Localization(); err != nil {
		return nil, err
	}
	return run, nil
}

// PropertyNames lists the free-form property names in sorted order.
func (r *Run) PropertyNames() []string {
	return slices.Sorted(maps.Keys(r.Properties))
}
