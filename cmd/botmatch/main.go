package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/breakline/server/internal/gamedata"
	"github.com/freeeve/breakline/server/pkg/sim"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	var (
		numMatches int
		ticks      int64
		workers    int
		seed       int64
		deploySecs float64
		jsonOut    bool
	)

	flag.IntVar(&numMatches, "n", 1, "Number of replay pairs to run")
	flag.Int64Var(&ticks, "ticks", 6000, "Ticks to simulate per match")
	flag.IntVar(&workers, "workers", 1, "Concurrency (parallel matches)")
	flag.Int64Var(&seed, "seed", 0, "Base seed (0 = random)")
	flag.Float64Var(&deploySecs, "deploy", 10, "Deployment phase length in seconds")
	flag.BoolVar(&jsonOut, "json", false, "Output results as JSON")

	flag.Parse()

	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("Shutting down...")
		cancel()
	}()

	// Run matches
	results := make([]*matchResult, numMatches)
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	errCount := 0

	for i := 0; i < numMatches; i++ {
		wg.Add(1)
		sem <- struct{}{}

		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			result, err := runMatch(ctx, matchConfig{
				Index:      idx,
				MapSeed:    uint32(seed) + uint32(idx),
				StreamSeed: seed + int64(idx),
				Ticks:      ticks,
				DeploySecs: deploySecs,
			})
			if err != nil {
				log.Error().Err(err).Int("match", idx+1).Msg("Match failed")
				mu.Lock()
				errCount++
				mu.Unlock()
				return
			}

			mu.Lock()
			results[idx] = result
			mu.Unlock()

			ev := log.Info()
			if !result.Passed {
				ev = log.Error()
			}
			ev.Int("match", idx+1).
				Bool("passed", result.Passed).
				Int64("ticks", result.Ticks).
				Str("phase", result.FinalPhase).
				Float64("ticksPerSec", result.TicksPerSec).
				Msg("Match completed")
		}(i)
	}

	wg.Wait()

	if jsonOut {
		printJSON(results, numMatches, errCount)
	} else {
		printSummary(results, ticks, errCount)
	}
	if anyDiverged(results) || errCount > 0 {
		os.Exit(1)
	}
}

type matchConfig struct {
	Index      int
	MapSeed    uint32
	StreamSeed int64
	Ticks      int64
	DeploySecs float64
}

type matchResult struct {
	Match       int     `json:"match"`
	MapSeed     uint32  `json:"mapSeed"`
	StreamSeed  int64   `json:"streamSeed"`
	Ticks       int64   `json:"ticks"`
	Passed      bool    `json:"passed"`
	DivergedAt  int64   `json:"divergedAt,omitempty"`
	ChecksumA   string  `json:"checksumA,omitempty"`
	ChecksumB   string  `json:"checksumB,omitempty"`
	FinalPhase  string  `json:"finalPhase"`
	TicksPerSec float64 `json:"ticksPerSec"`
}

// runMatch replays one seeded command stream through two independent
// games and compares their checksum streams tick for tick. Both games
// get their own map instance built from the same seed; zone, building,
// and terrain state is per game.
func runMatch(ctx context.Context, mc matchConfig) (*matchResult, error) {
	cfg := sim.DefaultConfig()
	cfg.DeploymentSeconds = mc.DeploySecs

	players := []sim.PlayerSlot{
		{ID: "p1", Team: sim.Team1},
		{ID: "p2", Team: sim.Team2},
	}
	nop := zerolog.Nop()

	a := sim.NewGame(cfg, gamedata.Default(), players, nop)
	b := sim.NewGame(cfg, gamedata.Default(), players, nop)

	var sumsA, sumsB []uint32
	a.SetBroadcast(func(m sim.Message) {
		if tu, ok := m.(sim.TickUpdate); ok {
			sumsA = append(sumsA, tu.Checksum)
		}
	})
	b.SetBroadcast(func(m sim.Message) {
		if tu, ok := m.(sim.TickUpdate); ok {
			sumsB = append(sumsB, tu.Checksum)
		}
	})

	a.Initialize(gamedata.DefaultMap(mc.MapSeed))
	b.Initialize(gamedata.DefaultMap(mc.MapSeed))

	deployTicks := int64(math.Round(cfg.DeploymentSeconds * float64(cfg.TickRate)))
	stream := newCommandStream(mc.StreamSeed, "p1", "p2", gamedata.DefaultMap(mc.MapSeed), deployTicks, cfg.TickRate)

	result := &matchResult{
		Match:      mc.Index + 1,
		MapSeed:    mc.MapSeed,
		StreamSeed: mc.StreamSeed,
		Passed:     true,
	}

	start := time.Now()
	var executed int64
	for t := int64(1); t <= mc.Ticks; t++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		for _, cmd := range stream.next(t) {
			a.ReceiveCommand(cmd)
			// The unit id slice is the only state shared between the
			// two copies; give each game its own.
			b.ReceiveCommand(cloneCommand(cmd))
		}
		a.ProcessTick()
		b.ProcessTick()
		executed = t

		if len(sumsA) != len(sumsB) {
			result.Passed = false
			result.DivergedAt = t
			break
		}
		if n := len(sumsA); n > 0 && sumsA[n-1] != sumsB[n-1] {
			result.Passed = false
			result.DivergedAt = t
			result.ChecksumA = fmt.Sprintf("%08x", sumsA[n-1])
			result.ChecksumB = fmt.Sprintf("%08x", sumsB[n-1])
			break
		}

		if a.CurrentPhase() == sim.PhaseVictory && b.CurrentPhase() == sim.PhaseVictory {
			break
		}
	}

	elapsed := time.Since(start)
	result.Ticks = executed
	result.FinalPhase = a.CurrentPhase().String()
	if elapsed > 0 {
		// Counts simulated ticks across both games of the pair.
		result.TicksPerSec = float64(2*executed) / elapsed.Seconds()
	}
	return result, nil
}

func cloneCommand(c sim.GameCommand) sim.GameCommand {
	c.UnitIDs = append([]string(nil), c.UnitIDs...)
	return c
}

func anyDiverged(results []*matchResult) bool {
	for _, r := range results {
		if r != nil && !r.Passed {
			return true
		}
	}
	return false
}

func printSummary(results []*matchResult, ticks int64, errCount int) {
	completed, passed := 0, 0
	var rate float64
	for _, r := range results {
		if r == nil {
			continue
		}
		completed++
		rate += r.TicksPerSec
		if r.Passed {
			passed++
		}
	}

	fmt.Printf("\nResults (%d matches, up to %d ticks each):\n", completed, ticks)
	for _, r := range results {
		if r != nil && !r.Passed {
			fmt.Printf("  match %d (map seed %d): diverged at tick %d (%s vs %s)\n",
				r.Match, r.MapSeed, r.DivergedAt, r.ChecksumA, r.ChecksumB)
		}
	}
	fmt.Printf("  %d passed, %d diverged", passed, completed-passed)
	if errCount > 0 {
		fmt.Printf(", %d failed to run", errCount)
	}
	fmt.Println()
	if completed > 0 {
		fmt.Printf("  avg %.0f ticks/sec per match\n", rate/float64(completed))
	}
}

func printJSON(results []*matchResult, total, errCount int) {
	out := struct {
		Total   int            `json:"total"`
		Errors  int            `json:"errors"`
		Results []*matchResult `json:"results"`
	}{
		Total:   total,
		Errors:  errCount,
		Results: results,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(out)
}
