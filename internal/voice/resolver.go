package voice

import (
	"errors"
	"fmt"

	"github.com/rbright/baserah/internal/bus"
)

// Source names which input the active profile was derived from.
type Source string

const (
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
)

// LocalChange is the bus notification emitted when the persisted override
// changes. A nil Profile means the override is absent.
type LocalChange struct {
	Profile *Profile
}

// Subscriber receives the active profile after every recompute.
type Subscriber func(active Profile, source Source)

// Resolver derives the active profile as local override if present, else
// remote default.
//
// The On* handlers, Active, Remote, Local and Subscribe must all run on one
// coordination goroutine. SetLocalOverride and ClearLocalOverride only touch the
// store and the bus, so they may be called from anywhere except that goroutine
// (bus delivery hands the change back to it).
type Resolver struct {
	store Store
	bus   *bus.Bus[LocalChange]

	local  *Profile
	remote Profile
	active Profile
	source Source

	subs []Subscriber
}

// NewResolver seeds the remote default with Default and derives the initial
// active profile from it.
func NewResolver(store Store, changes *bus.Bus[LocalChange]) *Resolver {
	r := &Resolver{
		store:  store,
		bus:    changes,
		remote: Default(),
	}
	r.recompute()
	return r
}

// Subscribe registers fn for every future recompute.
func (r *Resolver) Subscribe(fn Subscriber) {
	if fn == nil {
		return
	}
	r.subs = append(r.subs, fn)
}

// OnLocalOverrideChanged replaces the local override (nil clears it),
// recomputes and publishes.
func (r *Resolver) OnLocalOverrideChanged(p *Profile) {
	if p == nil {
		r.local = nil
	} else {
		normalized := p.Normalize()
		r.local = &normalized
	}
	r.recompute()
	r.publish()
}

// OnRemoteDefaultPushed replaces the remote default, recomputes and publishes.
// While a local override is present the active profile is unaffected.
func (r *Resolver) OnRemoteDefaultPushed(p Profile) {
	r.remote = p.Normalize()
	r.recompute()
	r.publish()
}

// SetLocalOverride persists p and announces the change on the bus.
func (r *Resolver) SetLocalOverride(p Profile) error {
	if r.store == nil {
		return errors.New("voice override store is not configured")
	}
	p = p.Normalize()
	if err := SaveOverride(r.store, p); err != nil {
		return fmt.Errorf("persist voice override: %w", err)
	}
	if r.bus != nil {
		r.bus.Publish(LocalChange{Profile: &p})
	}
	return nil
}

// ClearLocalOverride removes the persisted override and announces its absence.
func (r *Resolver) ClearLocalOverride() error {
	if r.store == nil {
		return errors.New("voice override store is not configured")
	}
	if err := DeleteOverride(r.store); err != nil {
		return fmt.Errorf("clear voice override: %w", err)
	}
	if r.bus != nil {
		r.bus.Publish(LocalChange{})
	}
	return nil
}

// Active returns the current derived profile.
func (r *Resolver) Active() Profile {
	return r.active
}

// ActiveSource reports which input Active came from.
func (r *Resolver) ActiveSource() Source {
	return r.source
}

// Remote returns the latest remote default, tracked even while overridden.
func (r *Resolver) Remote() Profile {
	return r.remote
}

// Local returns the local override when present.
func (r *Resolver) Local() (Profile, bool) {
	if r.local == nil {
		return Profile{}, false
	}
	return *r.local, true
}

func (r *Resolver) recompute() {
	if r.local != nil {
		r.active = *r.local
		r.source = SourceLocal
		return
	}
	r.active = r.remote
	r.source = SourceRemote
}

func (r *Resolver) publish() {
	for _, fn := range r.subs {
		fn(r.active, r.source)
	}
}
