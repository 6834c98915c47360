package report

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/reportflow/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// Layout files describe one report tree. Formulas and display conditions are
// written as plain HCL expressions and kept as source text:
//
//	report "sales" {
//	  group "by-region" {
//	    fields = ["region"]
//	    header "region-header" {
//	      repeat = true
//	      field "region" { value = row.region }
//	    }
//	    detail "line" {
//	      field "amount" {
//	        value      = formatnumber(row.amount, 2)
//	        display_if = row.amount > 0
//	      }
//	    }
//	  }
//	}

var fileSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{{Type: "report", LabelNames: []string{"name"}}},
}

var childBlocks = []hcl.BlockHeaderSchema{
	{Type: "section", LabelNames: []string{"name"}},
	{Type: "group", LabelNames: []string{"name"}},
	{Type: "header", LabelNames: []string{"name"}},
	{Type: "footer", LabelNames: []string{"name"}},
	{Type: "detail", LabelNames: []string{"name"}},
	{Type: "object", LabelNames: []string{"name"}},
	{Type: "field", LabelNames: []string{"name"}},
	{Type: "attribute", LabelNames: []string{"namespace", "name"}},
}

var kindAttributes = map[string][]hcl.AttributeSchema{
	"group":  {{Name: "fields", Required: true}},
	"header": {{Name: "repeat"}},
	"footer": {{Name: "repeat"}},
	"object": {{Name: "url"}, {Name: "class_id"}, {Name: "master_fields"}, {Name: "detail_fields"}},
	"field":  {{Name: "value", Required: true}, {Name: "print_repeated_values"}},
}

var attributeSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{{Name: "value", Required: true}},
}

// Load reads and validates a layout file.
func Load(ctx context.Context, path string) (*Node, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading layout file.", "path", path)

	f, diags := hclparse.NewParser().ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}
	root, err := decodeFile(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode layout %s: %w", path, err)
	}
	logger.Debug("Layout loaded.", "path", path, "report", root.Name(), "children", root.ChildCount())
	return root, nil
}

// Decode parses a layout held in memory.
func Decode(src []byte, filename string) (*Node, error) {
	f, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	return decodeFile(f)
}

func decodeFile(f *hcl.File) (*Node, error) {
	content, diags := f.Body.Content(fileSchema)
	if diags.HasErrors() {
		return nil, diags
	}
	if len(content.Blocks) != 1 {
		return nil, fmt.Errorf("%w: expected exactly one report block, found %d", ErrInvalidStructure, len(content.Blocks))
	}

	d := &decoder{src: f.Bytes}
	root, diags := d.node(content.Blocks[0])
	if diags.HasErrors() {
		return nil, diags
	}
	if err := Validate(root); err != nil {
		return nil, err
	}
	return root, nil
}

type decoder struct {
	src []byte
}

// source returns the expression text as written in the file.
func (d *decoder) source(expr hcl.Expression) string {
	return string(expr.Range().SliceBytes(d.src))
}

func (d *decoder) node(b *hcl.Block) (*Node, hcl.Diagnostics) {
	schema := &hcl.BodySchema{
		Attributes: append([]hcl.AttributeSchema{{Name: "display_if"}}, kindAttributes[b.Type]...),
		Blocks:     childBlocks,
	}
	content, diags := b.Body.Content(schema)
	if diags.HasErrors() {
		return nil, diags
	}
	name := b.Labels[0]

	var opts []Option
	if attr, ok := content.Attributes["display_if"]; ok {
		opts = append(opts, WithDisplayCondition(d.source(attr.Expr)))
	}

	var children []*Node
	for _, child := range content.Blocks {
		if child.Type == "attribute" {
			attrContent, ds := child.Body.Content(attributeSchema)
			diags = append(diags, ds...)
			if ds.HasErrors() {
				continue
			}
			var value string
			diags = append(diags, gohcl.DecodeExpression(attrContent.Attributes["value"].Expr, nil, &value)...)
			opts = append(opts, WithAttribute(child.Labels[0], child.Labels[1], value))
			continue
		}
		n, ds := d.node(child)
		diags = append(diags, ds...)
		if n != nil {
			children = append(children, n)
		}
	}
	if diags.HasErrors() {
		return nil, diags
	}
	if len(children) > 0 {
		opts = append(opts, WithChildren(children...))
	}

	switch b.Type {
	case "report":
		return NewReport(name, opts...), nil
	case "section":
		return NewSection(name, opts...), nil
	case "detail":
		return NewDetail(name, opts...), nil
	case "group":
		var fields []string
		diags = decodeAttribute(content, "fields", &fields)
		return NewGroup(name, fields, opts...), diags
	case "header", "footer":
		var repeat bool
		diags = decodeAttribute(content, "repeat", &repeat)
		return NewGroupSection(name, repeat, opts...), diags
	case "object":
		var ole ObjectOle
		var url cty.Value
		diags = decodeAttribute(content, "url", &url)
		if !diags.HasErrors() && !url.IsNull() {
			ole.URL = new(string)
			diags = append(diags, decodeAttribute(content, "url", ole.URL)...)
		}
		diags = append(diags, decodeAttribute(content, "class_id", &ole.ClassID)...)
		diags = append(diags, decodeAttribute(content, "master_fields", &ole.MasterFields)...)
		diags = append(diags, decodeAttribute(content, "detail_fields", &ole.DetailFields)...)
		return NewObjectOle(name, ole, opts...), diags
	case "field":
		if _, ok := content.Attributes["print_repeated_values"]; ok {
			var printRepeated bool
			diags = decodeAttribute(content, "print_repeated_values", &printRepeated)
			opts = append(opts, WithPrintRepeatedValues(printRepeated))
		}
		return NewField(name, d.source(content.Attributes["value"].Expr), opts...), diags
	default:
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Unsupported block type",
			Detail:   fmt.Sprintf("Blocks of type %q are not allowed here.", b.Type),
			Subject:  &b.DefRange,
		}}
	}
}

// decodeAttribute decodes an optional attribute into target; absent attributes leave it untouched.
func decodeAttribute(content *hcl.BodyContent, name string, target any) hcl.Diagnostics {
	attr, ok := content.Attributes[name]
	if !ok {
		return nil
	}
	return gohcl.DecodeExpression(attr.Expr, nil, target)
}
