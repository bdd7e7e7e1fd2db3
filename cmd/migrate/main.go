// Command migrate imports username:password lines from the users file.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/petermazzocco/vitalarbor-api/internal/auth"
	"github.com/petermazzocco/vitalarbor-api/internal/config"
	"github.com/petermazzocco/vitalarbor-api/internal/importer"
	"github.com/petermazzocco/vitalarbor-api/internal/logging"
	"github.com/petermazzocco/vitalarbor-api/internal/store"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	db, err := store.Open(cfg.DBDriver, cfg.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	users := store.New(db, auth.NewHasher(auth.DefaultCost))

	if _, err := importer.New(users, log).Run(context.Background(), cfg.UsersFile); err != nil {
		log.Fatal().Err(err).Msg("migration aborted")
	}
}
