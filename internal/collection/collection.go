package collection

import (
	"log/slog"

	"github.com/tonimelisma/kinto-sync/internal/idschema"
	"github.com/tonimelisma/kinto-sync/internal/kintoclient"
	"github.com/tonimelisma/kinto-sync/internal/kintostore"
	"github.com/tonimelisma/kinto-sync/internal/transform"
)

// Collection is the core orchestrator. It exclusively owns its storage
// adapter and the collection metadata slot; callers never touch the
// adapter directly.
type Collection struct {
	bucket string
	name   string

	store    kintostore.Adapter
	schema   idschema.Schema
	pipeline *transform.Pipeline
	remote   *kintoclient.Client
	logger   *slog.Logger
}

// Config holds the dependencies a Collection is built from.
type Config struct {
	Bucket   string
	Name     string
	Store    kintostore.Adapter
	Schema   idschema.Schema     // defaults to idschema.Default
	Pipeline *transform.Pipeline // defaults to an empty pipeline
	Remote   *kintoclient.Client
	Logger   *slog.Logger
}

// New builds a Collection bound to exactly one (bucket, name) pair.
func New(cfg Config) *Collection {
	schema := cfg.Schema
	if schema == nil {
		schema = idschema.Default
	}

	pipeline := cfg.Pipeline
	if pipeline == nil {
		pipeline = transform.NewPipeline()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Collection{
		bucket:   cfg.Bucket,
		name:     cfg.Name,
		store:    cfg.Store,
		schema:   schema,
		pipeline: pipeline,
		remote:   cfg.Remote,
		logger:   logger,
	}
}
