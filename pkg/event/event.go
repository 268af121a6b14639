// Package event provides the in-process publish/subscribe bus the simulation
// uses to report combat outcomes and state changes to its collaborators.
package event

import (
	"sync"
	"time"

	"github.com/opd-ai/go-skirmish/pkg/entity"
	"github.com/opd-ai/go-skirmish/pkg/physics"
)

// Type represents the type of event
type Type string

// Event types published by the simulation
const (
	ShipLoaded        Type = "ship_loaded"
	ShipLoadFailed    Type = "ship_load_failed"
	TargetSelected    Type = "target_selected"
	SelectionCleared  Type = "selection_cleared"
	AttackStarted     Type = "attack_started"
	AttackStopped     Type = "attack_stopped"
	AmmoChanged       Type = "ammo_changed"
	ProjectileFired   Type = "projectile_fired"
	ProjectileHit     Type = "projectile_hit"
	ProjectileExpired Type = "projectile_expired"
	TickCompleted     Type = "tick_completed"
)

// Event is the base interface for all events
type Event interface {
	GetType() Type
	GetSource() interface{}
}

// BaseEvent provides common functionality for all events
type BaseEvent struct {
	EventType Type
	Source    interface{}
}

// GetType returns the event type
func (e *BaseEvent) GetType() Type {
	return e.EventType
}

// GetSource returns the event source
func (e *BaseEvent) GetSource() interface{} {
	return e.Source
}

// Handler is a function that handles events
type Handler func(Event)

// Subscription identifies a registered handler. Cancel removes it and may be
// called any number of times.
type Subscription struct {
	ID     uint64
	Type   Type
	Cancel func()
}

type subscriber struct {
	id      uint64
	handler Handler
}

// Bus manages event subscriptions and dispatching
type Bus struct {
	handlers map[Type][]subscriber
	nextID   uint64
	mu       sync.RWMutex
}

// NewEventBus creates a new event bus
func NewEventBus() *Bus {
	return &Bus{
		handlers: make(map[Type][]subscriber),
		nextID:   1,
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType Type, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[eventType] = append(b.handlers[eventType], subscriber{id: id, handler: handler})

	var once sync.Once
	return &Subscription{
		ID:   id,
		Type: eventType,
		Cancel: func() {
			once.Do(func() { b.unsubscribe(eventType, id) })
		},
	}
}

// Unsubscribe removes a subscription. It is equivalent to sub.Cancel().
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil || sub.Cancel == nil {
		return
	}
	sub.Cancel()
}

func (b *Bus) unsubscribe(eventType Type, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[eventType]
	for i, s := range subs {
		if s.id == id {
			// copy so in-flight Publish calls keep their slice intact
			next := make([]subscriber, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			if len(next) == 0 {
				delete(b.handlers, eventType)
			} else {
				b.handlers[eventType] = next
			}
			return
		}
	}
}

// Publish sends an event to all subscribed handlers, in subscription order
func (b *Bus) Publish(event Event) {
	if b == nil || event == nil {
		return
	}
	b.mu.RLock()
	subs := b.handlers[event.GetType()]
	b.mu.RUnlock()

	for _, s := range subs {
		s.handler(event)
	}
}

// Specific event implementations

// ShipEvent reports a change concerning a single ship
type ShipEvent struct {
	BaseEvent
	ShipID entity.ID
	Err    error
}

// NewShipEvent creates a new ship event
func NewShipEvent(eventType Type, source interface{}, shipID entity.ID) *ShipEvent {
	return &ShipEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		ShipID: shipID,
	}
}

// CombatEvent reports a change of the player's combat state
type CombatEvent struct {
	BaseEvent
	ShooterID entity.ID
	TargetID  entity.ID
	Ammo      entity.AmmoType
	Attacking bool
	// Reason is set on AttackStopped: "toggle", "out_of_range" or "deselected".
	Reason string
}

// NewCombatEvent creates a new combat event
func NewCombatEvent(eventType Type, source interface{}, shooter, target entity.ID, ammo entity.AmmoType, attacking bool) *CombatEvent {
	return &CombatEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		ShooterID: shooter,
		TargetID:  target,
		Ammo:      ammo,
		Attacking: attacking,
	}
}

// ProjectileEvent reports a projectile being fired or removed. Hit and
// expiry are distinguished by the event type.
type ProjectileEvent struct {
	BaseEvent
	ProjectileID entity.ID
	OwnerID      entity.ID
	TargetID     entity.ID
	Ammo         entity.AmmoType
	Position     physics.Vector3
	Age          time.Duration
}

// NewProjectileEvent creates a new projectile event from the projectile's
// current state.
func NewProjectileEvent(eventType Type, source interface{}, p *entity.Projectile, now time.Time) *ProjectileEvent {
	return &ProjectileEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		ProjectileID: p.ID,
		OwnerID:      p.OwnerID,
		TargetID:     p.TargetID,
		Ammo:         p.Kind,
		Position:     p.Tip(),
		Age:          p.Age(now),
	}
}

// TickEvent reports a completed authoritative tick
type TickEvent struct {
	BaseEvent
	Sequence uint64
	Ships    int
	Duration time.Duration
}

// NewTickEvent creates a new tick event
func NewTickEvent(source interface{}, sequence uint64, ships int, duration time.Duration) *TickEvent {
	return &TickEvent{
		BaseEvent: BaseEvent{
			EventType: TickCompleted,
			Source:    source,
		},
		Sequence: sequence,
		Ships:    ships,
		Duration: duration,
	}
}
