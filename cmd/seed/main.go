// Command seed applies a YAML fixture file to the database.
package main

import (
	"context"
	"log"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/luizasposito/sheep-management-system/internal/config"
	"github.com/luizasposito/sheep-management-system/internal/database"
	"github.com/luizasposito/sheep-management-system/internal/seed"
)

func main() {
	envFiles := flag.StringSlice("env-file", nil, "dotenv file(s) to load before reading the environment")
	file := flag.StringP("file", "f", "fixtures.yaml", "fixture file")
	migrate := flag.Bool("migrate", false, "create missing tables before seeding")
	flag.Parse()

	cfg := config.Load(*envFiles...)

	in, err := os.Open(*file)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	fixtures, err := seed.Parse(in)
	_ = in.Close()
	if err != nil {
		log.Fatalf("seed: %s: %v", *file, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()
	if *migrate || cfg.DBAutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatalf("db migrate: %v", err)
		}
	}

	s := &seed.Seeder{Store: seed.NewSQLStore(db), BcryptCost: cfg.BcryptCost}
	rep, err := s.Run(ctx, fixtures)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	log.Printf("seed: %d farms, %d veterinarians, %d groups created; %d skipped",
		rep.Farms, rep.Veterinarians, rep.Groups, rep.Skipped)
}
