package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lewtip97/fives-app/internal/app"
	"github.com/lewtip97/fives-app/internal/league"
	"github.com/lewtip97/fives-app/internal/platform/shutdown"
	"github.com/lewtip97/fives-app/internal/store"
)

func main() {
	var teamFlag, season string
	var seed bool
	flag.StringVar(&teamFlag, "team", "", "team id to recalculate (default: every team)")
	flag.StringVar(&season, "season", "", "restrict to one season")
	flag.BoolVar(&seed, "seed", false, "insert a sample team with a season of results first")
	flag.Parse()

	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	code := run(ctx, a, strings.TrimSpace(teamFlag), strings.TrimSpace(season), seed)

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	a.Close(closeCtx)
	cancel()
	os.Exit(code)
}

func run(ctx context.Context, a *app.App, teamFlag, season string, seed bool) int {
	scope := league.Scope{Season: season}
	if teamFlag != "" {
		id, err := uuid.Parse(teamFlag)
		if err != nil {
			fmt.Printf("invalid -team %q: %v\n", teamFlag, err)
			return 2
		}
		scope.TeamID = id
	}

	if seed {
		team, err := a.Store.SeedSample(ctx, store.DefaultSampleSpec())
		if err != nil {
			fmt.Printf("seed sample data: %v\n", err)
			return 1
		}
		fmt.Printf("seeded %s (%s)\n", team.Name, team.ID)
		if scope.TeamID == uuid.Nil {
			scope.TeamID = team.ID
		}
	}

	sum, err := a.Service.Recalculate(ctx, scope)
	if err != nil {
		fmt.Printf("recalculate %s: %v\n", scope, err)
		return 1
	}
	fmt.Println(sum.Message())
	for _, d := range sum.Skipped {
		fmt.Printf("  skipped: %s\n", d)
	}
	return 0
}
