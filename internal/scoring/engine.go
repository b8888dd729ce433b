package scoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lettersontherocks/AI-Interview/internal/llm"
	"github.com/lettersontherocks/AI-Interview/internal/metrics"
)

// DefaultCacheTTL bounds how long a score is reused for an identical answer.
const DefaultCacheTTL = time.Hour

// Engine wraps a Scorer with a bounded wait and a result cache. It never fails:
// a scorer error or timeout yields a nil score.
type Engine struct {
	scorer  Scorer
	timeout time.Duration
	cache   *resultCache
	logger  *zap.Logger
}

func NewEngine(scorer Scorer, timeout, cacheTTL time.Duration, logger *zap.Logger) *Engine {
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	return &Engine{
		scorer:  scorer,
		timeout: timeout,
		cache:   newResultCache(cacheTTL),
		logger:  logger,
	}
}

// Score returns the instant score and hint, both nil when scoring did not complete.
func (e *Engine) Score(ctx context.Context, in Input) (*float64, *string) {
	key := cacheKey(in)
	if res, ok := e.cache.get(key); ok {
		return result(res)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := e.scorer.Score(ctx, in)
	metrics.ObserveCollaborator("scoring", start)
	if err != nil {
		metrics.CollaboratorFallbacks.WithLabelValues("scoring").Inc()
		e.logger.Warn("Scoring failed, answer accepted without score",
			zap.Bool("timeout", llm.IsTimeout(err)),
			zap.Error(err))
		return nil, nil
	}

	e.cache.set(key, res)
	return result(res)
}

// Sweep evicts expired cached scores.
func (e *Engine) Sweep() int {
	return e.cache.sweep()
}

func result(res Result) (*float64, *string) {
	score := res.Score
	if res.Hint == "" {
		return &score, nil
	}
	hint := res.Hint
	return &score, &hint
}
