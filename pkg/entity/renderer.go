package entity

// Renderer creates renderables for transient entities. Front-ends that cannot
// draw a projectile may return nil; the projectile still simulates.
type Renderer interface {
	CreateProjectile(p *Projectile) Handle
}

// NopRenderer creates no renderables.
type NopRenderer struct{}

// CreateProjectile implements Renderer.
func (NopRenderer) CreateProjectile(*Projectile) Handle { return nil }
