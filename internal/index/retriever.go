// Package index provides the read-only retrieval view over the vector store:
// cosine nearest-neighbor candidate selection followed by maximal marginal
// relevance re-ranking.
package index

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"kbot/internal/embedding"
	"kbot/internal/store"
)

// ErrNotReady is returned when retrieval is attempted before any successful
// index build.
var ErrNotReady = errors.New("index not ready: no content has been loaded")

// Config tunes retrieval.
type Config struct {
	// K is the number of chunks returned per query.
	K int
	// FetchK is the size of the nearest-neighbor candidate pool fed to MMR.
	FetchK int
	// Lambda balances query relevance (1.0) against diversity (0.0).
	Lambda float64
}

// DefaultConfig returns the standard k=4 over fetch_k=10 setup.
func DefaultConfig() Config {
	return Config{K: 4, FetchK: 10, Lambda: 0.5}
}

// Retriever embeds queries and selects diversified nearest chunks.
type Retriever struct {
	store  *store.Store
	engine embedding.Engine
	cfg    Config
	logger *zap.Logger
}

// NewRetriever creates a retriever over the given store and engine.
func NewRetriever(st *store.Store, engine embedding.Engine, cfg Config, logger *zap.Logger) *Retriever {
	if cfg.K <= 0 {
		cfg.K = 4
	}
	if cfg.FetchK < cfg.K {
		cfg.FetchK = cfg.K
	}
	if cfg.Lambda <= 0 || cfg.Lambda > 1 {
		cfg.Lambda = 0.5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{store: st, engine: engine, cfg: cfg, logger: logger}
}

// Retrieve embeds query, ranks the live index by cosine similarity, and
// returns up to K chunks chosen by maximal marginal relevance from the
// FetchK nearest candidates.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]store.Entry, error) {
	if !r.store.Ready() {
		return nil, ErrNotReady
	}

	queryVec, err := r.engine.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	entries, err := r.store.Live(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNotReady
	}

	candidates := make([]candidate, 0, len(entries))
	for _, e := range entries {
		sim, err := embedding.CosineSimilarity(queryVec, e.Vector)
		if err != nil {
			return nil, fmt.Errorf("score chunk %s: %w", e.ID, err)
		}
		candidates = append(candidates, candidate{entry: e, sim: sim})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].sim > candidates[j].sim
	})
	if len(candidates) > r.cfg.FetchK {
		candidates = candidates[:r.cfg.FetchK]
	}

	// MMR: each round pick the candidate maximizing
	// lambda*sim(query, c) - (1-lambda)*max(sim(c, selected)).
	var selected []store.Entry
	remaining := candidates
	for len(selected) < r.cfg.K && len(remaining) > 0 {
		bestIdx := 0
		bestScore := mmrScore(remaining[0], selected, r.cfg.Lambda)
		for i := 1; i < len(remaining); i++ {
			if score := mmrScore(remaining[i], selected, r.cfg.Lambda); score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}
		selected = append(selected, remaining[bestIdx].entry)
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	r.logger.Debug("retrieved chunks",
		zap.Int("selected", len(selected)),
		zap.Int("candidates", len(candidates)))
	return selected, nil
}

type candidate struct {
	entry store.Entry
	sim   float64
}

func mmrScore(c candidate, selected []store.Entry, lambda float64) float64 {
	maxSim := 0.0
	for _, s := range selected {
		if sim, err := embedding.CosineSimilarity(c.entry.Vector, s.Vector); err == nil && sim > maxSim {
			maxSim = sim
		}
	}
	return lambda*c.sim - (1-lambda)*maxSim
}
