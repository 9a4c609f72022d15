package config

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/breakline/server/pkg/sim"
)

// Config holds application configuration loaded from environment variables.
// The simulation core never reads the environment itself; Sim() converts
// the relevant keys into the value the games consume.
type Config struct {
	Port       string
	RedisURL   string
	RosterPath string

	MaxConcurrentGames int
	DisposalDelay      time.Duration

	TickRate           int
	DeploymentDuration float64
	IncomePerTick      int
	TickDuration       float64
	VictoryThreshold   int
	StartingCredits    int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:       envOrDefault("PORT", "8080"),
		RedisURL:   os.Getenv("REDIS_URL"),
		RosterPath: os.Getenv("ROSTER_PATH"),

		MaxConcurrentGames: envIntOrDefault("MAX_CONCURRENT_GAMES", 20),
		DisposalDelay:      time.Duration(envFloatOrDefault("DISPOSAL_DELAY_SECONDS", 5)) * time.Second,

		TickRate:           envIntOrDefault("TICK_RATE", sim.DefaultTickRate),
		DeploymentDuration: envFloatOrDefault("DEPLOYMENT_DURATION", sim.DefaultDeploymentSeconds),
		IncomePerTick:      envIntOrDefault("INCOME_PER_TICK", sim.DefaultIncomePerTick),
		TickDuration:       envFloatOrDefault("TICK_DURATION", sim.DefaultEconomyTickSeconds),
		VictoryThreshold:   envIntOrDefault("VICTORY_THRESHOLD", sim.DefaultVictoryThreshold),
		StartingCredits:    envIntOrDefault("STARTING_CREDITS", sim.DefaultStartingCredits),
	}
}

// Sim returns the per-match tuning handed to every game.
func (c *Config) Sim() sim.Config {
	return sim.Config{
		TickRate:           c.TickRate,
		DeploymentSeconds:  c.DeploymentDuration,
		EconomyTickSeconds: c.TickDuration,
		IncomePerTick:      c.IncomePerTick,
		VictoryThreshold:   c.VictoryThreshold,
		StartingCredits:    c.StartingCredits,
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Ignoring malformed integer env var")
		return fallback
	}
	return n
}

func envFloatOrDefault(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Ignoring malformed float env var")
		return fallback
	}
	return f
}
