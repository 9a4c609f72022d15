package sim

// SmokeCloud is an active vision-blocking cloud.
type SmokeCloud struct {
	ID        string
	Center    Vec2
	Radius    float64
	Remaining float64
}

// SmokeManager owns the active smoke clouds, in creation order. Units
// inside a cloud are harder to hit and shoot with halved accuracy.
type SmokeManager struct {
	clouds []SmokeCloud
}

func NewSmokeManager() *SmokeManager {
	return &SmokeManager{}
}

// AddCloud places a cloud lasting the given number of seconds.
func (sm *SmokeManager) AddCloud(id string, center Vec2, radius, seconds float64) {
	if radius <= 0 || seconds <= 0 {
		return
	}
	sm.clouds = append(sm.clouds, SmokeCloud{
		ID:        id,
		Center:    center,
		Radius:    radius,
		Remaining: seconds,
	})
}

// Update decays cloud lifetimes and drops expired clouds, preserving
// creation order.
func (sm *SmokeManager) Update(dt float64) {
	kept := sm.clouds[:0]
	for _, c := range sm.clouds {
		c.Remaining -= dt
		if c.Remaining > 0 {
			kept = append(kept, c)
		}
	}
	sm.clouds = kept
}

// Obscured reports whether p lies inside any active cloud.
func (sm *SmokeManager) Obscured(p Vec2) bool {
	for _, c := range sm.clouds {
		if p.Dist(c.Center) <= c.Radius {
			return true
		}
	}
	return false
}

// Clouds returns a copy of the active set.
func (sm *SmokeManager) Clouds() []SmokeCloud {
	return append([]SmokeCloud(nil), sm.clouds...)
}
