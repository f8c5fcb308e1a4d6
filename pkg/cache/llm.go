package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/ojasjagtap/prompt-ide/pkg/core"
	"github.com/ojasjagtap/prompt-ide/pkg/logging"
)

// CachedLLM wraps a model handle and memoizes Generate calls. Optimizers
// re-evaluate the same prompt many times across trials; the cache turns
// those repeats into local reads.
type CachedLLM struct {
	core.LLM
	cache Cache
}

// WrapLLM layers a cache over an existing model handle.
func WrapLLM(lm core.LLM, cache Cache) *CachedLLM {
	return &CachedLLM{LLM: lm, cache: cache}
}

// Generate checks the cache before delegating to the wrapped model. Cache
// failures degrade to a direct model call rather than failing the job.
func (c *CachedLLM) Generate(ctx context.Context, prompt string, options ...core.GenerateOption) (*core.LLMResponse, error) {
	logger := logging.GetLogger()
	opts := core.NewGenerateOptions()
	for _, opt := range options {
		opt(opts)
	}

	key := c.cacheKey(prompt, opts)

	if data, ok, err := c.cache.Get(ctx, key); err != nil {
		logger.Warn(ctx, "cache read failed, calling model directly: %v", err)
	} else if ok {
		var resp core.LLMResponse
		if err := json.Unmarshal(data, &resp); err == nil {
			logger.Debug(ctx, "cache hit for model %s", c.ModelID())
			return &resp, nil
		}
		logger.Warn(ctx, "discarding unreadable cache entry: %v", err)
	}

	resp, err := c.LLM.Generate(ctx, prompt, options...)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(resp); err == nil {
		if err := c.cache.Set(ctx, key, data, 0); err != nil {
			logger.Warn(ctx, "cache write failed: %v", err)
		}
	}

	return resp, nil
}

func (c *CachedLLM) cacheKey(prompt string, opts *core.GenerateOptions) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%d|%g|%g|%v|", c.ProviderName(), c.ModelID(),
		opts.MaxTokens, opts.Temperature, opts.TopP, opts.Stop)
	h.Write([]byte(prompt))
	return hex.EncodeToString(h.Sum(nil))
}
