package sim

import "math"

// acquireTarget picks this tick's opportunity target. Explicit attack
// orders take priority and are handled by dispatch instead.
func (u *Unit) acquireTarget(g *Game) {
	if u.current.kind == CommandAttack {
		return
	}
	var target *Unit
	if u.ReturnFireOnly {
		target = g.recentAttackerInRange(u)
	} else {
		target = g.nearestEnemyInRange(u)
	}
	if target == nil {
		return
	}
	if u.current.kind == CommandAttackMove {
		// Pause the sweep and fight as a transient attack order. The
		// sweep resumes from the queue once the target drops.
		u.pushFront(u.current)
		u.current = unitCommand{kind: CommandAttack, targetUnit: target.ID}
		return
	}
	u.engaged = target.ID
}

func (u *Unit) combatTargetID() string {
	if u.current.kind == CommandAttack {
		return u.current.targetUnit
	}
	return u.engaged
}

// updateWeapons runs each weapon slot's firing cycle: cooldown tick,
// range check, then resolution. Cooldowns advance even without a target.
func (u *Unit) updateWeapons(g *Game, dt float64) {
	target := g.unit(u.combatTargetID())
	for i := range u.weapons {
		w := &u.weapons[i]
		if w.cooldown > 0 {
			w.cooldown -= dt
		}
		if target == nil || !target.Alive() || w.cooldown > 0 {
			continue
		}
		if u.Position.Dist(target.Position) > w.spec.Range {
			continue
		}
		w.cooldown = w.spec.Cooldown
		g.resolveShot(u, target, w.spec)
	}
}

// nearestEnemyInRange scans the opposing team's units in spawn order and
// returns the closest live one inside u's weapon range. Spawn order
// breaks distance ties, which keeps acquisition deterministic.
func (g *Game) nearestEnemyInRange(u *Unit) *Unit {
	maxRange := u.maxWeaponRange()
	if maxRange <= 0 {
		return nil
	}
	var best *Unit
	bestDist := math.Inf(1)
	for _, id := range g.unitsByTeam[u.Team.Opponent()] {
		cand := g.units[id]
		if cand == nil || !cand.Alive() || cand.Transport != "" {
			continue
		}
		d := u.Position.Dist(cand.Position)
		if d <= maxRange && d < bestDist {
			best = cand
			bestDist = d
		}
	}
	return best
}

// recentAttackerInRange returns the most recently remembered attacker
// that is still alive, hostile, and inside weapon range.
func (g *Game) recentAttackerInRange(u *Unit) *Unit {
	maxRange := u.maxWeaponRange()
	if maxRange <= 0 || len(u.attackers) == 0 {
		return nil
	}
	horizon := g.tick - int64(returnFireMemorySeconds*float64(g.cfg.TickRate))
	for i := len(u.attackers) - 1; i >= 0; i-- {
		m := u.attackers[i]
		if m.tick < horizon {
			continue
		}
		cand := g.unit(m.id)
		if cand == nil || !cand.Alive() || cand.Team == u.Team || cand.Transport != "" {
			continue
		}
		if u.Position.Dist(cand.Position) <= maxRange {
			return cand
		}
	}
	return nil
}

// resolveShot fires one round from attacker at defender. Smoke rounds
// place a cloud and deal no damage. Gun rounds roll accuracy against the
// RNG, then apply armor-mitigated damage, morale pressure, and
// suppression. Taking fire marks the attacker for return fire whether or
// not the round hits.
func (g *Game) resolveShot(attacker, defender *Unit, w WeaponSpec) {
	if w.SmokeRadius > 0 {
		g.smoke.AddCloud(g.nextSmokeID(), defender.Position, w.SmokeRadius, w.SmokeSeconds)
		return
	}
	accuracy := w.Accuracy
	if g.smoke.Obscured(attacker.Position) || g.smoke.Obscured(defender.Position) {
		accuracy *= smokeAccuracyFactor
	}
	defender.rememberAttacker(attacker.ID, g.tick)
	if !g.rng.NextBool(accuracy) {
		return
	}

	armor := defender.armorFacing(attacker.Position)
	base := math.Floor((w.Penetration-armor)/2) + 1
	if base < 0 {
		base = 0
	}
	// Morale takes the projected hit even when the round ricochets off
	// the armor.
	projected := base
	if projected < 1 {
		projected = 1
	}
	moraleLoss := moraleDamageFactor * projected * w.Multiplier

	mitigation := 1.0 - maxCoverReduction*g.gameMap.CoverAt(defender.Position)
	if defender.GarrisonedIn != "" {
		mitigation *= garrisonDamageFactor
	}

	defender.Health -= base * w.Multiplier * mitigation
	defender.Morale -= moraleLoss
	if defender.Morale < 0 {
		defender.Morale = 0
	}
	defender.Suppression += moraleLoss
	if !defender.Alive() {
		g.log.Debug().
			Str("unit", defender.ID).
			Str("by", attacker.ID).
			Int64("tick", g.tick).
			Msg("unit destroyed")
	}
}
