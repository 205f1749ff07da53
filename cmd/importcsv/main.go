// Command importcsv loads ingredients or tags from a CSV file into the database.
//
// Ingredient rows are "name,measurement_unit"; tag rows are "name,color[,slug]".
// Rows that already exist are skipped, so the import can be re-run.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gosimple/slug"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/foodgram/foodgram-api/internal/config"
	"github.com/foodgram/foodgram-api/internal/logger"
	"github.com/foodgram/foodgram-api/internal/recipe"
)

// catalog is the part of the store the import writes to.
type catalog interface {
	CreateIngredient(ctx context.Context, i *recipe.Ingredient) error
	CreateTag(ctx context.Context, t *recipe.Tag) error
}

type result struct {
	created int
	skipped int
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var filePath, kind, configPath string

	flagSet := pflag.NewFlagSet("importcsv", pflag.ContinueOnError)
	flagSet.StringVarP(&filePath, "file", "f", "data/ingredients.csv", "path to the CSV file")
	flagSet.StringVarP(&kind, "kind", "k", "ingredients", "what the file holds: ingredients or tags")
	flagSet.StringVar(&configPath, "config", "config.json", "path to the server config file")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", filePath, err)
	}
	defer f.Close()

	ctx := context.Background()
	store, err := recipe.NewSQLStore(ctx, cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer store.Close()

	res, err := importCSV(ctx, store, f, kind)
	if err != nil {
		return err
	}
	log.Info("import finished",
		zap.String("file", filePath),
		zap.String("kind", kind),
		zap.Int("created", res.created),
		zap.Int("skipped", res.skipped),
	)
	return nil
}

func importCSV(ctx context.Context, store catalog, r io.Reader, kind string) (result, error) {
	var insert func(row []string) error
	switch kind {
	case "ingredients":
		insert = func(row []string) error {
			if len(row) < 2 {
				return fmt.Errorf("expected name,measurement_unit, got %d fields", len(row))
			}
			return store.CreateIngredient(ctx, &recipe.Ingredient{
				Name:            strings.TrimSpace(row[0]),
				MeasurementUnit: strings.TrimSpace(row[1]),
			})
		}
	case "tags":
		insert = func(row []string) error {
			if len(row) < 2 {
				return fmt.Errorf("expected name,color[,slug], got %d fields", len(row))
			}
			t := &recipe.Tag{
				Name:  strings.TrimSpace(row[0]),
				Color: strings.ToUpper(strings.TrimSpace(row[1])),
			}
			if len(row) > 2 {
				t.Slug = strings.TrimSpace(row[2])
			}
			if t.Slug == "" {
				t.Slug = slug.Make(t.Name)
			}
			return store.CreateTag(ctx, t)
		}
	default:
		return result{}, fmt.Errorf("unknown kind %q", kind)
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var res result
	for line := 1; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		if err != nil {
			return res, fmt.Errorf("line %d: %w", line, err)
		}
		err = insert(row)
		switch {
		case errors.Is(err, recipe.ErrAlreadyExists):
			res.skipped++
		case err != nil:
			return res, fmt.Errorf("line %d: %w", line, err)
		default:
			res.created++
		}
	}
}
