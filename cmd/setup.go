package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/genresort/internal/shared"
)

// Setup creates the config file and initializes the local database schema.
func (r *Runner) Setup(ctx context.Context, path string, force bool) error {
	if force {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove existing config: %w", err)
		}
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	r.logger.Infof("created config file at %s", path)

	config, err := shared.LoadConfig(path)
	if err != nil {
		return err
	}
	r.config = config

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	db.Close()
	r.logger.Infof("initialized database at %s", r.config.Database.Path)

	return r.writePlainln(
		"Setup complete. Fill in [credentials.spotify] and [sync] targets in %s, then run 'genresort auth'.",
		path,
	)
}
