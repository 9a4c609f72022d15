package sim

import "math"

// TransportEventKind tags a transport transition.
type TransportEventKind int

const (
	TransportEventMounted TransportEventKind = iota
	TransportEventUnloaded
)

// TransportEvent reports a unit mounting or leaving a transport.
type TransportEvent struct {
	Kind        TransportEventKind
	UnitID      string
	TransportID string
}

// TransportManager tracks which units ride inside which transports. The
// passenger side is a map for lookup; the ordered side lives on each
// transport's Passengers slice so unloads stay deterministic.
type TransportManager struct {
	byPassenger map[string]string
	events      []TransportEvent
}

func NewTransportManager() *TransportManager {
	return &TransportManager{byPassenger: make(map[string]string)}
}

// TryMount loads passenger into transport. It fails when the transport
// has no capacity left, the teams differ, or either unit is already in a
// relation that forbids it.
func (tm *TransportManager) TryMount(g *Game, passenger, transport *Unit) bool {
	if passenger == nil || transport == nil || passenger.ID == transport.ID {
		return false
	}
	if transport.Spec.TransportCapacity <= 0 ||
		len(transport.Passengers) >= transport.Spec.TransportCapacity {
		return false
	}
	if passenger.Team != transport.Team {
		return false
	}
	if passenger.Transport != "" || passenger.GarrisonedIn != "" || len(passenger.Passengers) > 0 {
		return false
	}
	if transport.Transport != "" {
		return false
	}

	tm.byPassenger[passenger.ID] = transport.ID
	transport.Passengers = append(transport.Passengers, passenger.ID)
	passenger.Transport = transport.ID
	passenger.Position = transport.Position
	passenger.clearCommands()
	passenger.engaged = ""
	tm.events = append(tm.events, TransportEvent{
		Kind:        TransportEventMounted,
		UnitID:      passenger.ID,
		TransportID: transport.ID,
	})
	return true
}

// UnloadAll places every passenger around the transport, in mount order.
// Placement draws from the match RNG.
func (tm *TransportManager) UnloadAll(g *Game, transport *Unit, rng *RNG) {
	if len(transport.Passengers) == 0 {
		return
	}
	ids := append([]string(nil), transport.Passengers...)
	transport.Passengers = nil
	for _, pid := range ids {
		delete(tm.byPassenger, pid)
		p := g.unit(pid)
		if p == nil {
			continue
		}
		angle := rng.Next() * 2 * math.Pi
		radius := unloadRadius * (0.5 + 0.5*rng.Next())
		offset := Vec2{X: math.Sin(angle), Z: math.Cos(angle)}.Scale(radius)
		p.Transport = ""
		p.Position = g.gameMap.Clamp(transport.Position.Add(offset))
		tm.events = append(tm.events, TransportEvent{
			Kind:        TransportEventUnloaded,
			UnitID:      pid,
			TransportID: transport.ID,
		})
	}
}

// release unbinds one passenger without placing it. Used when a unit is
// removed from play.
func (tm *TransportManager) release(g *Game, passenger *Unit) {
	tid, ok := tm.byPassenger[passenger.ID]
	if !ok {
		return
	}
	delete(tm.byPassenger, passenger.ID)
	passenger.Transport = ""
	if t := g.unit(tid); t != nil {
		kept := t.Passengers[:0]
		for _, id := range t.Passengers {
			if id != passenger.ID {
				kept = append(kept, id)
			}
		}
		t.Passengers = kept
	}
}

// TransportOf returns the id of the transport carrying a unit.
func (tm *TransportManager) TransportOf(unitID string) (string, bool) {
	tid, ok := tm.byPassenger[unitID]
	return tid, ok
}

// Sync copies transport positions onto passengers, in spawn order, so an
// unload always starts from the vehicle's current location.
func (tm *TransportManager) Sync(g *Game) {
	for _, id := range g.unitOrder {
		u := g.units[id]
		if u == nil || u.Transport == "" {
			continue
		}
		if t := g.unit(u.Transport); t != nil {
			u.Position = t.Position
			u.RotationY = t.RotationY
		}
	}
}

// DrainEvents returns and clears the accumulated transport events.
func (tm *TransportManager) DrainEvents() []TransportEvent {
	ev := tm.events
	tm.events = nil
	return ev
}
