package sim

import "math"

// weaponState tracks one weapon slot's firing cycle.
type weaponState struct {
	spec     WeaponSpec
	cooldown float64
}

// attackerMark remembers a unit that recently fired on this one, newest
// entries last. Return fire reads this list.
type attackerMark struct {
	id   string
	tick int64
}

// Unit is one simulated entity: a squad, gun team, or vehicle. All fields
// are mutated only from within the game tick.
type Unit struct {
	ID      string
	Type    string
	Team    Team
	OwnerID string
	// Spec is copied from the registry at spawn.
	Spec UnitSpec

	Position    Vec2
	RotationY   float64
	Health      float64
	Morale      float64
	Suppression float64
	// Frozen units neither move nor fire. Set during deployment.
	Frozen bool
	// ReturnFireOnly restricts target acquisition to recent attackers.
	ReturnFireOnly bool

	// GarrisonedIn is the occupied building id, empty when outside.
	GarrisonedIn string
	// Transport is the carrying unit's id. A mounted unit is absent from
	// the world: it is skipped by updates, queries, and targeting.
	Transport string
	// Passengers lists carried unit ids in mount order.
	Passengers []string

	current unitCommand
	queue   []unitCommand
	// engaged is the target acquired this tick. Recomputed every tick and
	// deliberately excluded from the checksum.
	engaged   string
	weapons   []weaponState
	attackers []attackerMark
}

// Alive reports whether the unit is still in play.
func (u *Unit) Alive() bool {
	return u.Health > 0
}

// IsRouting reports whether morale has collapsed. Routing units ignore
// commands and do not fire until morale recovers.
func (u *Unit) IsRouting() bool {
	return u.Morale <= 0
}

// Forward returns the unit's facing direction. Rotation zero faces +Z.
func (u *Unit) Forward() Vec2 {
	return Vec2{X: math.Sin(u.RotationY), Z: math.Cos(u.RotationY)}
}

// armorFacing returns the armor value presented toward a shot fired from
// the given position: front within 45 degrees of facing, rear within 45
// degrees of the opposite direction, side otherwise.
func (u *Unit) armorFacing(from Vec2) float64 {
	toSource := from.Sub(u.Position).Normalize()
	d := u.Forward().Dot(toSource)
	switch {
	case d > frontArcCos:
		return u.Spec.Armor.Front
	case d < -frontArcCos:
		return u.Spec.Armor.Rear
	default:
		return u.Spec.Armor.Side
	}
}

func (u *Unit) maxWeaponRange() float64 {
	r := 0.0
	for i := range u.weapons {
		if u.weapons[i].spec.Range > r {
			r = u.weapons[i].spec.Range
		}
	}
	return r
}

// setCommand installs an order. Queued orders append up to the queue cap;
// direct orders replace the current order and drop the queue.
func (u *Unit) setCommand(cmd unitCommand, queued bool) {
	if queued && !u.current.idle() {
		if len(u.queue) < maxCommandQueue {
			u.queue = append(u.queue, cmd)
		}
		return
	}
	u.current = cmd
	u.queue = u.queue[:0]
}

// clearCommands drops the current order and the queue.
func (u *Unit) clearCommands() {
	u.current = unitCommand{}
	u.queue = u.queue[:0]
}

// advanceQueue pops the next queued order, or goes idle.
func (u *Unit) advanceQueue() {
	if len(u.queue) == 0 {
		u.current = unitCommand{}
		return
	}
	u.current = u.queue[0]
	u.queue = u.queue[1:]
}

// pushFront re-queues an order at the head, ahead of anything queued.
func (u *Unit) pushFront(cmd unitCommand) {
	u.queue = append([]unitCommand{cmd}, u.queue...)
}

// rememberAttacker records or refreshes an attacker, keeping newest last.
func (u *Unit) rememberAttacker(id string, tick int64) {
	for i := range u.attackers {
		if u.attackers[i].id == id {
			m := attackerMark{id: id, tick: tick}
			u.attackers = append(append(u.attackers[:i:i], u.attackers[i+1:]...), m)
			return
		}
	}
	u.attackers = append(u.attackers, attackerMark{id: id, tick: tick})
}

// forgetUnit drops references to a removed unit: attacker memory, the
// current order's target, and queued targets.
func (u *Unit) forgetUnit(id string) {
	kept := u.attackers[:0]
	for _, m := range u.attackers {
		if m.id != id {
			kept = append(kept, m)
		}
	}
	u.attackers = kept
	if u.engaged == id {
		u.engaged = ""
	}
	if u.current.targetUnit == id {
		u.advanceQueue()
	}
}

// fixedUpdate advances the unit by one tick. Mounted passengers are
// skipped entirely by the caller.
func (u *Unit) fixedUpdate(g *Game, dt float64) {
	if !u.Alive() || u.Frozen {
		return
	}
	u.updateMorale(dt)
	u.engaged = ""
	if u.IsRouting() {
		return
	}
	u.dispatchCommand(g, dt)
	u.acquireTarget(g)
	u.updateWeapons(g, dt)
}

// updateMorale decays suppression and recovers morale once suppression
// has dropped low enough.
func (u *Unit) updateMorale(dt float64) {
	if u.Suppression > 0 {
		u.Suppression -= suppressionDecayPerSecond * dt
		if u.Suppression < 0 {
			u.Suppression = 0
		}
	}
	if u.Suppression < recoverySuppressionCeiling && u.Morale < maxMorale {
		u.Morale += moraleRecoveryPerSecond * dt
		if u.Morale > maxMorale {
			u.Morale = maxMorale
		}
	}
}

// dispatchCommand runs one tick of the current order.
func (u *Unit) dispatchCommand(g *Game, dt float64) {
	switch u.current.kind {
	case CommandMove, CommandAttackMove:
		if u.moveToward(g, u.current.target, u.Spec.Speed, dt, true) {
			u.advanceQueue()
		}
	case CommandFastMove:
		if u.moveToward(g, u.current.target, u.Spec.Speed*fastMoveFactor, dt, true) {
			u.advanceQueue()
		}
	case CommandReverse:
		// Back up without turning, keeping the front armor toward the
		// last facing.
		if u.moveToward(g, u.current.target, u.Spec.Speed*reverseFactor, dt, false) {
			u.advanceQueue()
		}
	case CommandAttack:
		u.dispatchAttack(g, dt)
	case CommandMount:
		u.dispatchMount(g, dt)
	case CommandGarrison:
		u.dispatchGarrison(g, dt)
	}
}

func (u *Unit) dispatchAttack(g *Game, dt float64) {
	target := g.unit(u.current.targetUnit)
	if target == nil || !target.Alive() || target.Transport != "" {
		u.advanceQueue()
		return
	}
	if u.Position.Dist(target.Position) > u.maxWeaponRange() {
		u.moveToward(g, target.Position, u.Spec.Speed, dt, true)
		return
	}
	u.faceToward(target.Position, dt)
}

func (u *Unit) dispatchMount(g *Game, dt float64) {
	transport := g.unit(u.current.targetUnit)
	if transport == nil || !transport.Alive() || transport.Transport != "" {
		u.advanceQueue()
		return
	}
	if u.Position.Dist(transport.Position) > unloadRadius {
		u.moveToward(g, transport.Position, u.Spec.Speed, dt, true)
		return
	}
	if g.transports.TryMount(g, u, transport) {
		u.clearCommands()
		return
	}
	u.advanceQueue()
}

func (u *Unit) dispatchGarrison(g *Game, dt float64) {
	b, ok := g.buildings.Get(u.current.building)
	if !ok {
		u.advanceQueue()
		return
	}
	if u.Position.Dist(b.Position) > unloadRadius {
		u.moveToward(g, b.Position, u.Spec.Speed, dt, true)
		return
	}
	g.buildings.TryGarrison(g, u, b.ID)
	u.advanceQueue()
}

// moveToward advances the unit toward target, optionally turning into the
// travel direction, and reports arrival. Positions stay clamped to the
// map.
func (u *Unit) moveToward(g *Game, target Vec2, speed, dt float64, turn bool) bool {
	if u.GarrisonedIn != "" {
		// Movement orders reaching a garrisoned unit mean it already left
		// the building during command execution; anything else holds.
		return true
	}
	delta := target.Sub(u.Position)
	dist := delta.Length()
	if dist <= arrivalEpsilon {
		return true
	}
	if turn {
		u.faceToward(target, dt)
	}
	step := speed * dt
	if step >= dist {
		u.Position = target
	} else {
		u.Position = u.Position.Add(delta.Scale(step / dist))
	}
	u.Position = g.gameMap.Clamp(u.Position)
	return target.Sub(u.Position).Length() <= arrivalEpsilon
}

// faceToward rotates the unit toward a point at its rotation speed.
func (u *Unit) faceToward(target Vec2, dt float64) {
	delta := target.Sub(u.Position)
	if delta.X == 0 && delta.Z == 0 {
		return
	}
	desired := math.Atan2(delta.X, delta.Z)
	u.RotationY = rotateToward(u.RotationY, desired, u.Spec.RotationSpeed*dt)
}

// rotateToward moves angle current toward desired by at most step radians,
// taking the short way around.
func rotateToward(current, desired, step float64) float64 {
	diff := wrapAngle(desired - current)
	if math.Abs(diff) <= step {
		return desired
	}
	if diff > 0 {
		return wrapAngle(current + step)
	}
	return wrapAngle(current - step)
}

// wrapAngle normalizes an angle to (-pi, pi].
func wrapAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
