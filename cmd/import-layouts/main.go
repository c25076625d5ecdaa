// Command import-layouts loads <owner>.yaml, <owner>.yml or <owner>.toml layout files from a
// directory into the SQLite database served by the embedded backend.
package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/the-kennel/internal/config"
	"github.com/debemdeboas/the-kennel/internal/db"
	"github.com/debemdeboas/the-kennel/internal/logger"
	"github.com/debemdeboas/the-kennel/internal/repository"
)

func main() {
	path := flag.String("path", "", "Directory containing the layout files")
	dbPath := flag.String("db", "", "SQLite database (defaults to database.path of -config)")
	configPath := flag.String("config", "config.yaml", "Configuration file")
	flag.Parse()

	log := logger.New("info", logger.FormatConsole)
	config.SetLogger(log)
	db.SetLogger(log)
	repository.SetLogger(log)

	if *path == "" {
		log.Fatal().Msg("The --path flag is required")
	}

	if *dbPath == "" {
		if err := config.LoadConfig(*configPath); err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}
		*dbPath = config.AppConfig.Database.Path
	}

	sqlite := db.NewSQLite(*dbPath)
	if err := sqlite.InitDB(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer sqlite.Close()

	repo := repository.NewDBLayoutRepository(sqlite)

	files, err := os.ReadDir(*path)
	if err != nil {
		log.Fatal().Err(err).Str("path", *path).Msg("Error reading directory")
	}

	imported := 0
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		if _, ok := ownerFromFile(file.Name()); !ok {
			continue
		}

		if err := importFile(context.Background(), log, repo, filepath.Join(*path, file.Name())); err != nil {
			log.Error().Err(err).Str("file", file.Name()).Msg("Error importing layout")
			continue
		}
		imported++
	}

	log.Info().Int("imported", imported).Msg("Import finished")
}

func importFile(ctx context.Context, log zerolog.Logger, repo repository.LayoutRepository, path string) error {
	site, err := readLayoutFile(path)
	if err != nil {
		return err
	}

	if err := repo.ReplacePets(ctx, site.Owner, site.Pets); err != nil {
		return err
	}
	if _, err := repo.PutLayout(ctx, site.Owner, site.Layout); err != nil {
		return err
	}

	log.Info().
		Str("owner", string(site.Owner)).
		Int("sections", len(site.Layout.Sections)).
		Int("pets", len(site.Pets)).
		Msg("Imported layout")
	return nil
}
