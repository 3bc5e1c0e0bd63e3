package destructible

import "github.com/milk9111/hillroll/physics"

// Hit describes the contact that caused damage.
type Hit struct {
	Body   physics.BodyHandle
	Other  physics.BodyHandle
	Speed  float64
	Damage float64
}

// Health tracks the remaining hit points of a destructible body.
type Health struct {
	Max     float64
	Current float64
	Dead    bool

	OnDamage func(h *Health, hit Hit)
	OnDeath  func(h *Health, hit Hit)
}

// NewHealth creates a Health with max/current initialized.
func NewHealth(max float64) *Health {
	if max <= 0 {
		max = 1
	}
	return &Health{Max: max, Current: max}
}

func (h *Health) IsAlive() bool {
	return h != nil && !h.Dead && h.Current > 0
}

// ApplyDamage subtracts amount. Returns true if damage was applied. OnDeath fires
// once, on the hit that takes Current to zero.
func (h *Health) ApplyDamage(amount float64, hit Hit) bool {
	if h == nil || h.Dead || amount <= 0 {
		return false
	}
	h.Current -= amount
	if h.Current < 0 {
		h.Current = 0
	}
	if h.OnDamage != nil {
		h.OnDamage(h, hit)
	}
	if h.Current <= 0 {
		h.Dead = true
		if h.OnDeath != nil {
			h.OnDeath(h, hit)
		}
	}
	return true
}

// Fraction returns Current/Max in [0, 1].
func (h *Health) Fraction() float64 {
	if h == nil || h.Max <= 0 {
		return 0
	}
	return h.Current / h.Max
}
