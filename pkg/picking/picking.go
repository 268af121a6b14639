// Package picking turns pointer positions into world rays and resolves them
// against ship hitboxes or the ground plane.
package picking

import (
	"github.com/opd-ai/go-skirmish/pkg/entity"
	"github.com/opd-ai/go-skirmish/pkg/physics"
)

// Projector maps between screen space and world space for the active camera.
type Projector interface {
	// ScreenRay returns the world ray through the screen point (x, y).
	// ok is false when the point lies outside the viewport.
	ScreenRay(x, y float64) (ray physics.Ray, ok bool)
	// WorldToScreen projects a world point. ok is false when the point is
	// behind the camera.
	WorldToScreen(p physics.Vector3) (x, y float64, ok bool)
}

// Hit is the result of an entity pick.
type Hit struct {
	ID    entity.ID
	T     float64
	Point physics.Vector3
}

// Picker resolves pointer rays against ships.
type Picker struct {
	// HitboxRadius is the radius of each ship's spherical hitbox.
	HitboxRadius float64
	// IncludePlayer lets the player's own ship be picked.
	IncludePlayer bool
}

// New creates a Picker.
func New(hitboxRadius float64, includePlayer bool) *Picker {
	return &Picker{HitboxRadius: hitboxRadius, IncludePlayer: includePlayer}
}

// PickEntity returns the ship whose hitbox the ray enters first. Only ships
// with a loaded handle are tested. Ties on the ray parameter go to the
// smaller ID so the result does not depend on iteration order.
func (p *Picker) PickEntity(ray physics.Ray, ships []*entity.Ship) (Hit, bool) {
	var best Hit
	found := false

	for _, s := range ships {
		if s == nil || !s.HasHandle() {
			continue
		}
		if s.PlayerControlled && !p.IncludePlayer {
			continue
		}
		t, ok := physics.Sphere{Center: s.Position, Radius: p.HitboxRadius}.IntersectRay(ray)
		if !ok {
			continue
		}
		if !found || t < best.T || (t == best.T && s.ID < best.ID) {
			best = Hit{ID: s.ID, T: t, Point: ray.At(t)}
			found = true
		}
	}
	return best, found
}

// PickGround returns the ground point under the ray.
func PickGround(ray physics.Ray) (physics.Vector3, bool) {
	return physics.IntersectGround(ray)
}

// Target is what a primary pointer press resolved to.
type Target struct {
	// Ship is set when a ship was hit.
	Ship entity.ID
	// Ground is valid when HasGround is true and no ship was hit.
	Ground    physics.Vector3
	HasGround bool
}

// Resolve applies the pointer dispatch rule: a ship hit wins, otherwise the
// ground point is used. Both may miss.
func (p *Picker) Resolve(proj Projector, x, y float64, ships []*entity.Ship) Target {
	ray, ok := proj.ScreenRay(x, y)
	if !ok {
		return Target{}
	}
	if hit, ok := p.PickEntity(ray, ships); ok {
		return Target{Ship: hit.ID}
	}
	point, ok := PickGround(ray)
	return Target{Ground: point, HasGround: ok}
}
