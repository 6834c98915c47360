package report

import (
	"slices"
)

// Kind tags the variant of a Node.
type Kind int

const (
	// KindReport is the root container; its body runs once per data row.
	KindReport Kind = iota
	// KindSection is a plain container processed once.
	KindSection
	// KindGroup partitions rows by its group fields.
	KindGroup
	// KindGroupSection is a header or footer of a group.
	KindGroupSection
	// KindDetail is the per-row body of a group or report.
	KindDetail
	// KindObjectOle is an embedded object bound to master fields.
	KindObjectOle
	// KindField renders the value of a formula.
	KindField
)

func (k Kind) String() string {
	switch k {
	case KindReport:
		return "report"
	case KindSection:
		return "section"
	case KindGroup:
		return "group"
	case KindGroupSection:
		return "group-section"
	case KindDetail:
		return "detail"
	case KindObjectOle:
		return "object-ole"
	case KindField:
		return "field"
	default:
		return "unknown"
	}
}

// IsContainer reports whether nodes of this kind hold children.
func (k Kind) IsContainer() bool {
	switch k {
	case KindReport, KindSection, KindGroup, KindGroupSection, KindDetail:
		return true
	}
	return false
}

// IsBody reports whether a node of this kind is iterated per row by its parent.
func (k Kind) IsBody() bool {
	return k == KindDetail || k == KindGroup
}

// Attribute is a static attribute copied into the node's start/end events.
type Attribute struct {
	Namespace string
	Name      string
	Value     any
}

// ObjectOle describes an embedded object bound to the data source.
type ObjectOle struct {
	// URL is the object reference; nil means nothing can be emitted.
	URL          *string
	ClassID      string
	MasterFields []string
	DetailFields []string
}

// Node is a single element of the report structure.
type Node struct {
	kind     Kind
	name     string
	children []*Node

	attributes       []Attribute
	displayCondition string

	// group
	groupFields []string
	// group section
	repeatSection bool
	// object-ole
	ole ObjectOle
	// field
	formula             string
	printRepeatedValues bool
}

// Option customizes a node at construction time.
type Option func(*Node)

// WithDisplayCondition attaches a boolean formula; the node is skipped when it
// evaluates to false for the active row.
func WithDisplayCondition(expr string) Option {
	return func(n *Node) { n.displayCondition = expr }
}

// WithAttribute adds a static attribute to the node's events.
func WithAttribute(namespace, name string, value any) Option {
	return func(n *Node) {
		n.attributes = append(n.attributes, Attribute{Namespace: namespace, Name: name, Value: value})
	}
}

// WithPrintRepeatedValues controls whether a field is re-emitted for rows in
// which none of its referenced fields changed. Fields print repeated values by default.
func WithPrintRepeatedValues(enabled bool) Option {
	return func(n *Node) { n.printRepeatedValues = enabled }
}

// WithChildren appends children to a container node.
func WithChildren(children ...*Node) Option {
	return func(n *Node) { n.children = append(n.children, children...) }
}

func newNode(kind Kind, name string, opts []Option) *Node {
	n := &Node{kind: kind, name: name, printRepeatedValues: true}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// NewReport creates the root node.
func NewReport(name string, opts ...Option) *Node {
	return newNode(KindReport, name, opts)
}

// NewSection creates a plain container.
func NewSection(name string, opts ...Option) *Node {
	return newNode(KindSection, name, opts)
}

// NewGroup creates a group that breaks whenever one of fields changes.
func NewGroup(name string, fields []string, opts ...Option) *Node {
	n := newNode(KindGroup, name, opts)
	n.groupFields = slices.Clone(fields)
	return n
}

// NewGroupSection creates a group header or footer. repeat marks a repeating
// header/footer section.
func NewGroupSection(name string, repeat bool, opts ...Option) *Node {
	n := newNode(KindGroupSection, name, opts)
	n.repeatSection = repeat
	return n
}

// NewDetail creates the per-row body container.
func NewDetail(name string, opts ...Option) *Node {
	return newNode(KindDetail, name, opts)
}

// NewObjectOle creates an embedded-object leaf.
func NewObjectOle(name string, ole ObjectOle, opts ...Option) *Node {
	n := newNode(KindObjectOle, name, opts)
	n.ole = ObjectOle{
		ClassID:      ole.ClassID,
		MasterFields: slices.Clone(ole.MasterFields),
		DetailFields: slices.Clone(ole.DetailFields),
	}
	if ole.URL != nil {
		url := *ole.URL
		n.ole.URL = &url
	}
	return n
}

// NewField creates a leaf rendering the value of formula.
func NewField(name, formula string, opts ...Option) *Node {
	n := newNode(KindField, name, opts)
	n.formula = formula
	return n
}

func (n *Node) Kind() Kind               { return n.kind }
func (n *Node) Name() string             { return n.name }
func (n *Node) Children() []*Node        { return slices.Clone(n.children) }
func (n *Node) ChildCount() int          { return len(n.children) }
func (n *Node) Child(i int) *Node        { return n.children[i] }
func (n *Node) Attributes() []Attribute  { return slices.Clone(n.attributes) }
func (n *Node) DisplayCondition() string { return n.displayCondition }
func (n *Node) GroupFields() []string    { return slices.Clone(n.groupFields) }
func (n *Node) IsRepeatSection() bool    { return n.repeatSection }
func (n *Node) Formula() string          { return n.formula }
func (n *Node) PrintRepeatedValues() bool {
	return n.printRepeatedValues
}

// URL returns the embedded object reference and whether one is present.
func (n *Node) URL() (string, bool) {
	if n.ole.URL == nil {
		return "", false
	}
	return *n.ole.URL, true
}

func (n *Node) ClassID() string        { return n.ole.ClassID }
func (n *Node) MasterFields() []string { return slices.Clone(n.ole.MasterFields) }
func (n *Node) DetailFields() []string { return slices.Clone(n.ole.DetailFields) }

// BodyIndex returns the index of the first Detail or Group child, or -1.
func (n *Node) BodyIndex() int {
	return slices.IndexFunc(n.children, func(c *Node) bool { return c.kind.IsBody() })
}

// String returns a short "kind:name" label used in logs and errors.
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	return n.kind.String() + ":" + n.name
}
