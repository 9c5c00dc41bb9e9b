package repository

import (
	"context"
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/cinerank/internal/domain/model"
)

type seedFile struct {
	Movies []model.CatalogItem `koanf:"movies"`
}

// LoadSeed reads a YAML catalog of the form {movies: [...]} and upserts every
// item into store. Items already stored keep their rating aggregates, so
// reseeding a persistent store does not undo live ratings. It returns the
// number of items written.
func LoadSeed(ctx context.Context, store Store, path string) (int, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return 0, fmt.Errorf("load seed %s: %w", path, err)
	}

	var seed seedFile
	if err := k.UnmarshalWithConf("", &seed, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return 0, fmt.Errorf("decode seed %s: %w", path, err)
	}

	for i, item := range seed.Movies {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if _, err := store.UpsertItem(ctx, item); err != nil {
			return i, fmt.Errorf("seed item %d (%q): %w", i, item.Title, err)
		}
	}
	return len(seed.Movies), nil
}
