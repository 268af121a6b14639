// Package entity defines the ships and projectiles of the combat sandbox and
// the renderable handle contract they share with the rendering front-ends.
package entity

import (
	"github.com/opd-ai/go-skirmish/pkg/physics"
)

// ID is a unique identifier for an entity
type ID string

// PlayerID is the identifier of the player-controlled ship.
const PlayerID ID = "player"

// Handle is an opaque link to a renderable owned by a rendering front-end.
// A nil Handle means the visual has not loaded yet; every operation on an
// entity must tolerate that.
type Handle interface {
	// SetTransform moves the renderable and turns it to face along facing.
	SetTransform(position, facing physics.Vector3)
	// Release removes the renderable. It is called at most once per handle.
	Release()
}

// Placeable is implemented by every entity that can carry a Handle.
type Placeable interface {
	GetID() ID
	GetPosition() physics.Vector3
	GetFacing() physics.Vector3
	GetHandle() Handle
}

// Sync pushes the logical transform of e to its handle, if it has one.
// It reports whether a handle was updated.
func Sync(e Placeable) bool {
	h := e.GetHandle()
	if h == nil {
		return false
	}
	h.SetTransform(e.GetPosition(), e.GetFacing())
	return true
}
