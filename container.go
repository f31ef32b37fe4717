package textframe

import (
	"log/slog"
	"sync"

	"github.com/textframe/textframe/attr"
)

// TruncationType selects which edge of the last visible line is replaced by
// the truncation token.
type TruncationType int

// see TruncationType
const (
	TruncationNone TruncationType = iota
	TruncationStart
	TruncationMiddle
	TruncationEnd
)

// LinePositionModifier is invoked once per layout construction with the final
// line slice; it may move line origins, e.g. to snap baselines to a fixed
// grid. It runs before bounding-rect aggregation.
type LinePositionModifier func(lines []Line)

// Container is the geometric constraint text is laid out into: either a size
// with insets, or an arbitrary path, minus any exclusion paths.
//
// A Container is mutable until it is consumed by a layout. From then on it is
// read-only: setters log and return without effect, so the layout's geometry
// can never silently diverge from a container the caller still holds. Use
// Clone to obtain a mutable copy. All accessors are safe for concurrent use.
type Container struct {
	mu sync.Mutex

	width, height float64
	insets        Insets
	path          *Path

	exclusionPaths []*Path
	pathLineWidth  float64
	fillRule       FillRule
	verticalForm   bool

	maximumRows     int
	truncationType  TruncationType
	truncationToken *attr.Text

	modifier LinePositionModifier

	readonly bool
}

// NewContainer returns a container of the given size. Negative dimensions
// are clamped to zero.
func NewContainer(width, height float64) *Container {
	c := &Container{}
	c.SetSize(width, height)
	return c
}

// NewContainerWithPath returns a container shaped by the given path; its size
// and insets are derived from the path bounds.
func NewContainerWithPath(p *Path) *Container {
	c := &Container{}
	c.SetPath(p)
	return c
}

// denyReadonly reports (and logs) a rejected mutation of an attached
// container. Callers hold c.mu.
func (c *Container) denyReadonly() bool {
	if c.readonly {
		slog.Warn("textframe: container is attached to a layout; mutation ignored")
		return true
	}
	return false
}

// attach marks the container read-only; called once by the layout builder.
func (c *Container) attach() {
	c.mu.Lock()
	c.readonly = true
	c.mu.Unlock()
}

// detach restores mutability when construction fails after attach, so a
// failed layout does not freeze the caller's container.
func (c *Container) detach() {
	c.mu.Lock()
	c.readonly = false
	c.mu.Unlock()
}

// Clone returns a mutable deep copy of the container.
func (c *Container) Clone() *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := &Container{
		width:           c.width,
		height:          c.height,
		insets:          c.insets,
		pathLineWidth:   c.pathLineWidth,
		fillRule:        c.fillRule,
		verticalForm:    c.verticalForm,
		maximumRows:     c.maximumRows,
		truncationType:  c.truncationType,
		truncationToken: c.truncationToken,
		modifier:        c.modifier,
	}
	if c.path != nil {
		n.path = c.path.Copy()
	}
	for _, p := range c.exclusionPaths {
		n.exclusionPaths = append(n.exclusionPaths, p.Copy())
	}
	return n
}

// SetSize sets the container size, clamping negative dimensions to zero. It
// has no effect while a custom path is set.
func (c *Container) SetSize(width, height float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.denyReadonly() || c.path != nil {
		return
	}
	if width < 0.0 {
		width = 0.0
	}
	if height < 0.0 {
		height = 0.0
	}
	c.width, c.height = width, height
}

// Size returns the container size.
func (c *Container) Size() (float64, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width, c.height
}

// SetInsets sets the container insets, clamping negative components to zero.
// It has no effect while a custom path is set.
func (c *Container) SetInsets(in Insets) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.denyReadonly() || c.path != nil {
		return
	}
	c.insets = in.clamp()
}

// Insets returns the container insets.
func (c *Container) Insets() Insets {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.insets
}

// SetPath sets a custom container path. The container size is derived from
// the path bounds and the insets from the bounds' offset, disabling
// independent size and inset editing. A nil path restores size/inset mode.
func (c *Container) SetPath(p *Path) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.denyReadonly() {
		return
	}
	if p == nil {
		c.path = nil
		return
	}
	c.path = p.Copy()
	b := p.Bounds()
	c.width = b.X + b.W
	c.height = b.Y + b.H
	c.insets = Insets{Top: b.Y, Left: b.X, Bottom: 0.0, Right: 0.0}.clamp()
}

// Path returns the custom container path, or nil.
func (c *Container) Path() *Path {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.path
}

// SetExclusionPaths sets the paths carved out of the container before
// typesetting, in order.
func (c *Container) SetExclusionPaths(paths []*Path) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.denyReadonly() {
		return
	}
	c.exclusionPaths = nil
	for _, p := range paths {
		c.exclusionPaths = append(c.exclusionPaths, p.Copy())
	}
}

// ExclusionPaths returns the exclusion paths.
func (c *Container) ExclusionPaths() []*Path {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exclusionPaths
}

// SetPathLineWidth sets the stroke width the shaper applies when consuming
// the path. Negative widths are clamped to zero.
func (c *Container) SetPathLineWidth(w float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.denyReadonly() {
		return
	}
	if w < 0.0 {
		w = 0.0
	}
	c.pathLineWidth = w
}

// PathLineWidth returns the path stroke width.
func (c *Container) PathLineWidth() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pathLineWidth
}

// SetFillRule sets how the clip path interior is determined. The default,
// EvenOdd, makes appended exclusion paths carve holes.
func (c *Container) SetFillRule(rule FillRule) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.denyReadonly() {
		return
	}
	c.fillRule = rule
}

// FillRule returns the clip path fill rule.
func (c *Container) FillRule() FillRule {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fillRule
}

// SetVerticalForm switches the primary writing axis to vertical (CJK-style
// columns progressing right to left).
func (c *Container) SetVerticalForm(vertical bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.denyReadonly() {
		return
	}
	c.verticalForm = vertical
}

// VerticalForm returns whether the container lays out vertical-form text.
func (c *Container) VerticalForm() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.verticalForm
}

// SetMaximumRows limits the number of visual rows; 0 means unlimited.
// Negative values are clamped to zero.
func (c *Container) SetMaximumRows(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.denyReadonly() {
		return
	}
	if n < 0 {
		n = 0
	}
	c.maximumRows = n
}

// MaximumRows returns the row limit; 0 means unlimited.
func (c *Container) MaximumRows() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maximumRows
}

// SetTruncationType selects the edge the truncation token replaces.
func (c *Container) SetTruncationType(t TruncationType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.denyReadonly() {
		return
	}
	c.truncationType = t
}

// TruncationType returns the truncation edge.
func (c *Container) TruncationType() TruncationType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.truncationType
}

// SetTruncationToken sets the token text substituted for clipped content. A
// nil token makes the layout synthesize "…" from the trailing attributes.
func (c *Container) SetTruncationToken(t *attr.Text) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.denyReadonly() {
		return
	}
	c.truncationToken = t
}

// TruncationToken returns the custom truncation token, or nil.
func (c *Container) TruncationToken() *attr.Text {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.truncationToken
}

// SetLinePositionModifier sets the per-construction line position hook.
func (c *Container) SetLinePositionModifier(m LinePositionModifier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.denyReadonly() {
		return
	}
	c.modifier = m
}

// LinePositionModifier returns the line position hook, or nil.
func (c *Container) LinePositionModifier() LinePositionModifier {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modifier
}

// innerRect returns the rectangle available for text when no custom path is
// set, in layout space.
func (c *Container) innerRect() Rect {
	return Rect{0.0, 0.0, c.width, c.height}.Inset(c.insets)
}

// clipPath assembles the path handed to the shaper: the custom path or the
// inset rectangle, with all exclusion paths appended as subpaths. isRect
// reports the rectangle fast path (no custom path, no exclusions) and
// separable whether one visual row may consist of several disjoint fragments.
func (c *Container) clipPath() (clip *Path, isRect bool, separable bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	base := c.path
	if base == nil {
		r := c.innerRect()
		base = Rectangle(r.X, r.Y, r.W, r.H)
		isRect = len(c.exclusionPaths) == 0
	}
	clip = base
	for _, p := range c.exclusionPaths {
		clip = clip.Append(p)
	}
	separable = c.path != nil || len(c.exclusionPaths) > 0
	return clip, isRect, separable
}
