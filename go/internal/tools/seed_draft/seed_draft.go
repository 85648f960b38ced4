package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/mcdev12/draftengine/go/internal/dbconfig"
	"github.com/mcdev12/draftengine/go/internal/draft/fixture"
	"github.com/mcdev12/draftengine/go/internal/draft/repository"
)

func main() {
	path := flag.String("fixture", "go/internal/assets/fixture.yaml", "leagues, teams and players to seed")
	migrate := flag.Bool("migrate", true, "apply the schema before seeding")
	flag.Parse()

	ctx := context.Background()
	_ = godotenv.Load()

	// 1) Load fixture
	f, err := fixture.Load(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect to DB
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.PoolDSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect error: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	store := repository.NewPostgres(pool)
	if *migrate {
		if err := store.Migrate(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
			os.Exit(1)
		}
	}

	// 3) Seed
	stats, err := f.Apply(ctx, store, time.Now().UTC())
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf(
		"Draft seed: leagues=%d teams=%d players inserted=%d updated=%d\n",
		stats.Leagues, stats.Teams, stats.PlayersInserted, stats.PlayersUpdated,
	)
}
