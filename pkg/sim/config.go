package sim

import "time"

// Config carries the per-match tuning the simulation reads at start.
// The zero value is not usable directly; call withDefaults or start from
// DefaultConfig.
type Config struct {
	// TickRate is the number of simulation steps per second.
	TickRate int
	// DeploymentSeconds is how long the setup phase lasts.
	DeploymentSeconds float64
	// EconomyTickSeconds is the interval between income/score payouts.
	EconomyTickSeconds float64
	// IncomePerTick is the base credit income per economy tick.
	IncomePerTick int
	// VictoryThreshold is the score a team needs to win.
	VictoryThreshold int
	// StartingCredits is each team's opening credit balance.
	StartingCredits int
}

// DefaultConfig returns the standard match tuning.
func DefaultConfig() Config {
	return Config{
		TickRate:           DefaultTickRate,
		DeploymentSeconds:  DefaultDeploymentSeconds,
		EconomyTickSeconds: DefaultEconomyTickSeconds,
		IncomePerTick:      DefaultIncomePerTick,
		VictoryThreshold:   DefaultVictoryThreshold,
		StartingCredits:    DefaultStartingCredits,
	}
}

// TickInterval returns the wall-clock duration of one simulation step.
func (c Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

func (c Config) dt() float64 {
	return 1.0 / float64(c.TickRate)
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TickRate <= 0 {
		c.TickRate = d.TickRate
	}
	if c.DeploymentSeconds <= 0 {
		c.DeploymentSeconds = d.DeploymentSeconds
	}
	if c.EconomyTickSeconds <= 0 {
		c.EconomyTickSeconds = d.EconomyTickSeconds
	}
	if c.IncomePerTick <= 0 {
		c.IncomePerTick = d.IncomePerTick
	}
	if c.VictoryThreshold <= 0 {
		c.VictoryThreshold = d.VictoryThreshold
	}
	if c.StartingCredits < 0 {
		c.StartingCredits = d.StartingCredits
	}
	return c
}
