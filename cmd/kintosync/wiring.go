package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/tonimelisma/kinto-sync/internal/collection"
	"github.com/tonimelisma/kinto-sync/internal/kintoclient"
	"github.com/tonimelisma/kinto-sync/internal/kintoconfig"
	"github.com/tonimelisma/kinto-sync/internal/kintostore"
)

// buildCollection assembles a Collection from the resolved CLI config: a
// durable SQLite store and, when a server URL is configured, a remote
// client authenticated from the credentials file.
func buildCollection(ctx context.Context, cc *CLIContext) (*collection.Collection, func(), error) {
	cfg := cc.Cfg

	store, err := kintostore.NewSQLiteAdapter(ctx, cfg.Collection.DBPath, cfg.Collection.Bucket, cfg.Collection.Name, cc.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("opening local store: %w", err)
	}

	closer := func() { _ = store.Close() }

	remote, err := buildRemote(cfg, cc)
	if err != nil {
		closer()

		return nil, nil, err
	}

	c := collection.New(collection.Config{
		Bucket: cfg.Collection.Bucket,
		Name:   cfg.Collection.Name,
		Store:  store,
		Remote: remote,
		Logger: cc.Logger,
	})

	return c, closer, nil
}

func buildRemote(cfg *kintoconfig.Config, cc *CLIContext) (*kintoclient.Client, error) {
	if cfg.Server.BaseURL == "" {
		return nil, nil
	}

	var token kintoclient.TokenSource

	if cfg.Server.CredentialsFile != "" {
		raw, err := os.ReadFile(cfg.Server.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("reading credentials file: %w", err)
		}

		token = kintoclient.StaticToken(strings.TrimSpace(string(raw)))
	}

	return kintoclient.New(cfg.Server.BaseURL, nil, token, nil, cc.Logger)
}
