package audio

import (
	"sync"
	"sync/atomic"
	"time"
)

// PermissionTTL is how long DevicePermission trusts its last answer.
const PermissionTTL = time.Second

// Permission answers whether microphone capture is currently allowed and
// can ask for it. Request never blocks; its outcome only shows up in a later
// Granted call.
type Permission interface {
	Granted() bool
	Request()
}

// DevicePermission treats capture as permitted while the audio server
// exposes at least one capture source to this user. The answer is cached
// for TTL so per-tick checks do not hit the audio server.
type DevicePermission struct {
	ctx Context

	// OnRequest is invoked by Request, typically to print a hint.
	OnRequest func()
	TTL       time.Duration

	now       func() time.Time
	mu        sync.Mutex
	checkedAt time.Time
	granted   bool
}

func NewDevicePermission(ctx Context, onRequest func()) *DevicePermission {
	return &DevicePermission{ctx: ctx, OnRequest: onRequest, TTL: PermissionTTL, now: time.Now}
}

func (p *DevicePermission) Granted() bool {
	if p.ctx == nil {
		return false
	}
	now := time.Now
	if p.now != nil {
		now = p.now
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	t := now()
	if !p.checkedAt.IsZero() && t.Sub(p.checkedAt) < p.TTL {
		return p.granted
	}
	devices, err := p.ctx.Devices()
	p.granted = err == nil && len(devices) > 0
	p.checkedAt = t
	return p.granted
}

func (p *DevicePermission) Request() {
	p.mu.Lock()
	p.checkedAt = time.Time{}
	p.mu.Unlock()
	if p.OnRequest != nil {
		go p.OnRequest()
	}
}

// FakePermission is a settable Permission for tests and headless runs.
type FakePermission struct {
	granted  atomic.Bool
	mu       sync.Mutex
	requests int
	grantOn  bool
}

// NewFakePermission returns a permission in the given state. When
// grantOnRequest is set, Request flips it to granted.
func NewFakePermission(granted, grantOnRequest bool) *FakePermission {
	p := &FakePermission{grantOn: grantOnRequest}
	p.granted.Store(granted)
	return p
}

func (p *FakePermission) Granted() bool { return p.granted.Load() }

func (p *FakePermission) Set(granted bool) { p.granted.Store(granted) }

func (p *FakePermission) Request() {
	p.mu.Lock()
	p.requests++
	grant := p.grantOn
	p.mu.Unlock()
	if grant {
		p.granted.Store(true)
	}
}

// Requests reports how many times Request was called.
func (p *FakePermission) Requests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests
}
