// Package layout is the layout controller engine: a resumable state machine
// that walks a report structure tree against a flow controller and emits
// start/end events to a Target.
//
// A Controller is a value. Every transition returns a new Controller and
// never modifies the receiver, so a driver may retry a step from any earlier
// controller. One Advance call performs exactly one step: open an element,
// produce the next piece of its content (usually by returning a child
// controller), or close it. When a controller finishes, control returns to
// its parent through the parent's join point.
//
// Node kinds do not subclass each other. Each kind resolves to a table of
// capabilities (start, attribute computation, content generation, join),
// with the base behavior used wherever a kind does not override a step.
package layout
