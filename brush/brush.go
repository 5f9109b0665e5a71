/*
	Package brush implements the brush lifecycle shared by every tool and the terrain
	dispatch protocol that gathers chunk data into a transfer buffer, runs a compute
	kernel over it, and scatters the center chunk back into the grid.
*/
package brush

import (
	"context"
	"fmt"

	"github.com/isoterra/sculpt/grid"
	"github.com/isoterra/sculpt/property"
	"github.com/isoterra/sculpt/sculpt"
)

// Behavior is the capability set each variant provides to the lifecycle.
type Behavior interface {
	AffectsGeometry() bool

	// SetBuffer (re)acquires the transfer buffer for a grid's chunk size, releasing any
	// buffer already held.
	SetBuffer(g *grid.Grid) error

	// ReleaseBuffer hands back the transfer buffer, if any.
	ReleaseBuffer()

	// BeginDispatch runs one gather, dispatch, scatter cycle at the hit.
	BeginDispatch(ctx context.Context, b *Brush, g *grid.Grid, hit Hit) (Result, error)

	OnStart(b *Brush, hit Hit) error
	OnApply(ctx context.Context, b *Brush, g *grid.Grid, hit Hit) (Result, error)
	OnLeave(b *Brush)
}

// Brush is a brush instance: its declared descriptors, its own property store, and the
// lifecycle state machine wrapped around a variant's behavior.
type Brush struct {
	name    string
	variant string

	declared   property.Descriptors
	associator property.Associator
	store      *property.Store

	behavior Behavior
	state    State
}

func (b *Brush) String() string {
	return fmt.Sprintf("brush %q (%s, %s)", b.name, b.variant, b.state)
}

// Name returns the brush asset name.
func (b *Brush) Name() string { return b.name }

// Variant returns the registered variant name running this brush.
func (b *Brush) Variant() string { return b.variant }

// State returns the current lifecycle state.
func (b *Brush) State() State { return b.state }

// Store returns the brush's property store for typed host UI access.
func (b *Brush) Store() *property.Store { return b.store }

// AffectsGeometry returns true if dispatches by this brush change iso data.
func (b *Brush) AffectsGeometry() bool {
	return b.behavior.AffectsGeometry()
}

// GetExtendedProperties returns the identifiers this brush declares, in declaration
// order.
func (b *Brush) GetExtendedProperties() []string {
	return b.declared.IDs()
}

// ExtendsProperty returns true if the brush declares the identifier.
func (b *Brush) ExtendsProperty(id string) bool {
	return b.declared.Declares(id)
}

// OnChooseBrush selects the brush and populates any missing property defaults.
// Choosing an already selected brush only reruns initialization.
func (b *Brush) OnChooseBrush() error {
	if b.state == Applying {
		return &sculpt.StateError{Op: "OnChooseBrush", State: b.state}
	}
	b.store.InitializeBrush()
	b.state = Selected
	return nil
}

// SetBuffer acquires the variant's transfer buffer for the grid's chunk size.  It must be
// called after selection and again whenever the chunk size changes.
func (b *Brush) SetBuffer(g *grid.Grid) error {
	if b.state == Unselected {
		return &sculpt.StateError{Op: "SetBuffer", State: b.state}
	}
	return b.behavior.SetBuffer(g)
}

// OnStartApplyingBrush begins a stroke.
func (b *Brush) OnStartApplyingBrush(hit Hit) error {
	if b.state != Selected {
		return &sculpt.StateError{Op: "OnStartApplyingBrush", State: b.state}
	}
	if err := b.behavior.OnStart(b, hit); err != nil {
		return err
	}
	b.state = Applying
	return nil
}

// OnApplyBrush applies one stroke sample.  This is the only transition that dispatches.
func (b *Brush) OnApplyBrush(ctx context.Context, g *grid.Grid, hit Hit) (Result, error) {
	if b.state != Applying {
		return Result{}, &sculpt.StateError{Op: "OnApplyBrush", State: b.state}
	}
	return b.behavior.OnApply(ctx, b, g, hit)
}

// OnLeaveBrush ends a stroke, or deselects the brush and releases its buffer when no
// stroke is active.  Calling it on an unselected brush is a no-op so it is always safe
// on abnormal stroke termination.
func (b *Brush) OnLeaveBrush() {
	switch b.state {
	case Applying:
		b.behavior.OnLeave(b)
		b.state = Selected
	case Selected:
		b.behavior.OnLeave(b)
		b.behavior.ReleaseBuffer()
		b.state = Unselected
	}
}

// Deactivate leaves the brush until it is unselected with no buffer held.
func (b *Brush) Deactivate() {
	for b.state != Unselected {
		b.OnLeaveBrush()
	}
	b.behavior.ReleaseBuffer()
}

// roleID maps a role to the identifier this brush reads.
func (b *Brush) roleID(r property.Role) (string, error) {
	id, err := b.associator.RoleToIdentifier(r)
	if err != nil {
		return "", err
	}
	if !b.declared.Declares(id) {
		return "", fmt.Errorf("brush %q reads role %q but does not declare %q: %w", b.name, r, id, sculpt.ErrUndeclaredProperty)
	}
	return id, nil
}

// Float reads the float property backing a role.
func (b *Brush) Float(r property.Role) (float32, error) {
	id, err := b.roleID(r)
	if err != nil {
		return 0, err
	}
	return b.store.Float(id)
}

// Bool reads the bool property backing a role.
func (b *Brush) Bool(r property.Role) (bool, error) {
	id, err := b.roleID(r)
	if err != nil {
		return false, err
	}
	return b.store.Bool(id)
}

// Color reads the color property backing a role.
func (b *Brush) Color(r property.Role) (sculpt.Color, error) {
	id, err := b.roleID(r)
	if err != nil {
		return sculpt.Color{}, err
	}
	return b.store.Color(id)
}
