package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/freeeve/breakline/server/internal/botclient"
	"github.com/freeeve/breakline/server/pkg/sim"
)

func main() {
	url := flag.String("url", "http://localhost:8080", "server base URL")
	code := flag.String("code", "", "game code to join (empty creates a two-bot match)")
	player := flag.String("player", "", "player id to join as (required with -code)")
	seed := flag.Int64("seed", 0, "script seed (0 = time-based)")
	every := flag.Duration("every", 2*time.Second, "delay between scripted orders")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("Received shutdown signal")
		cancel()
	}()

	if *code != "" {
		joinExisting(ctx, *url, *code, *player, *seed, *every)
		return
	}

	// No code given: stand up a fresh match and play both sides.
	created, err := botclient.CreateSession(ctx, *url, "", []botclient.RosterEntry{
		{ID: "bot1", Name: "Bot One", Team: "team1"},
		{ID: "bot2", Name: "Bot Two", Team: "team2"},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Game creation failed")
	}
	log.Info().Str("code", created).Msg("Created bot match")

	sides := []struct {
		player string
		team   sim.Team
	}{
		{"bot1", sim.Team1},
		{"bot2", sim.Team2},
	}

	results := make([]botclient.Result, len(sides))
	group, gctx := errgroup.WithContext(ctx)
	for i, side := range sides {
		group.Go(func() error {
			r, err := botclient.New(botclient.Config{
				ServerURL:  *url,
				Code:       created,
				PlayerID:   side.player,
				Team:       side.team,
				Seed:       *seed + int64(i),
				OrderEvery: *every,
			}).Run(gctx)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Bot match failed")
	}
	for i, side := range sides {
		report(side.player, results[i])
	}
	log.Info().Msg("Bot match completed")
}

// joinExisting plays a single seat in a game somebody else created.
func joinExisting(ctx context.Context, url, code, player string, seed int64, every time.Duration) {
	if player == "" {
		log.Fatal().Msg("-player is required when joining an existing game")
	}
	team, err := botclient.FetchTeam(ctx, url, code, player)
	if err != nil {
		log.Fatal().Err(err).Str("code", code).Msg("Game lookup failed")
	}
	result, err := botclient.New(botclient.Config{
		ServerURL:  url,
		Code:       code,
		PlayerID:   player,
		Team:       team,
		Seed:       seed,
		OrderEvery: every,
	}).Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Bot client failed")
	}
	report(player, result)
}

func report(player string, r botclient.Result) {
	log.Info().
		Str("player", player).
		Str("event", r.Event).
		Str("winner", r.Winner).
		Int("score", r.PlayerScore).
		Int("enemyScore", r.EnemyScore).
		Int64("tick", r.Tick).
		Msg("Game over")
}
