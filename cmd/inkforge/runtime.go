package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ramonehamilton/InkForge/internal/config"
	"github.com/ramonehamilton/InkForge/internal/embedding"
	"github.com/ramonehamilton/InkForge/internal/lorcana/deckbuilder"
	"github.com/ramonehamilton/InkForge/internal/lorcana/vectorindex"
	"github.com/ramonehamilton/InkForge/internal/storage"
)

// runtime holds the services shared by the commands.
type runtime struct {
	db       *storage.DB
	snapshot *storage.Snapshot
	index    *vectorindex.Holder
	builder  *deckbuilder.Builder
}

// openStore opens the corpus database, applying pending migrations.
func openStore(cfg *config.Config) (*storage.DB, error) {
	dbConfig := storage.DefaultConfig(cfg.Database.Path)
	dbConfig.AutoMigrate = true
	db, err := storage.Open(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// newRuntime wires the database, the search snapshot, the embedding engine
// and the deck builder.
func newRuntime(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*runtime, error) {
	db, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	rt := &runtime{db: db, snapshot: storage.NewSnapshot(db)}

	ix, err := rt.snapshot.Load(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to load search snapshot: %w", err)
	}
	rt.index = vectorindex.NewHolder(ix)
	logger.Info("Search snapshot loaded",
		zap.Int("indexed_cards", ix.Len()),
		zap.Int("dimensions", ix.Dimensions()))

	embCfg, err := cfg.GetEmbeddingConfig()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	engine, err := embedding.NewEngine(ctx, embCfg)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create embedding engine: %w", err)
	}

	policy, err := cfg.GetPolicy()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	rt.builder, err = deckbuilder.New(engine, rt.index, policy,
		deckbuilder.WithLookup(rt.snapshot.Cards()),
		deckbuilder.WithLogger(logger.Named("deckbuilder")),
	)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return rt, nil
}

// Close releases the database.
func (rt *runtime) Close() error {
	return rt.db.Close()
}
