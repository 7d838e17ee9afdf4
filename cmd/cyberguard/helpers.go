package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/TechNxt05/CyberGuard/internal/config"
	"github.com/TechNxt05/CyberGuard/internal/llm"
	"github.com/TechNxt05/CyberGuard/internal/research"
	"github.com/TechNxt05/CyberGuard/internal/storage"
)

// runtime - собранные зависимости сервиса
type runtime struct {
	cfg      *config.Config
	chain    *llm.Chain
	research *research.Aggregator
	store    storage.Gateway
	closeFn  func() error
}

func (rt *runtime) Close() error {
	if rt.closeFn != nil {
		return rt.closeFn()
	}
	return nil
}

// buildRuntime поднимает конфиг, цепочку провайдеров, research и стор.
// Без единого LLM-ключа сервис стартует и честно деградирует.
func buildRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	backends := llm.BackendsFromConfig(cfg.LLM)
	var chain *llm.Chain
	if len(backends) > 0 {
		g := llm.InitGenkit(ctx, cfg.LLM)
		chain = llm.NewChain(g, backends)
		log.Printf("✅ LLM chain: %d provider(s) configured", len(backends))
	} else {
		chain = llm.NewChainWithCall(nil, nil)
		log.Printf("⚠️ No LLM provider keys found, running in degraded mode")
	}

	var store storage.Gateway
	closeFn := func() error { return nil }
	if cfg.Storage.DBPath != "" {
		sqlite, err := storage.OpenSQLite(cfg.Storage.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		store = sqlite
		closeFn = sqlite.Close
		log.Printf("✅ SQLite storage: %s", cfg.Storage.DBPath)
	} else {
		store = storage.NewMemoryStore()
		log.Printf("⚠️ DB_PATH not set, using in-memory storage")
	}

	return &runtime{
		cfg:      cfg,
		chain:    chain,
		research: research.NewAggregator(chain, cfg.Research),
		store:    store,
		closeFn:  closeFn,
	}, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
