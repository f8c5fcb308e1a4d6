package metrics

import (
	"context"
	"math"
	"strings"

	"golang.org/x/text/cases"

	"github.com/ojasjagtap/prompt-ide/pkg/core"
	"github.com/ojasjagtap/prompt-ide/pkg/errors"
	"github.com/ojasjagtap/prompt-ide/pkg/logging"
)

// Metric scores a single prediction against its expected example. Scores
// are in [0, 1]; evaluation failures score 0 rather than aborting a run.
type Metric func(ctx context.Context, expected core.Example, prediction map[string]interface{}) float64

// Supported metric kinds.
const (
	KindExactMatch = "exact_match"
	KindContains   = "contains"
	KindSemanticF1 = "semantic_f1"
	KindCustom     = "custom"
)

// Config selects and parameterizes the metric for a job.
type Config struct {
	Kind          string
	CaseSensitive bool
	Code          string // custom metric expression
}

// Build constructs the metric for cfg. The returned note is non-empty when
// the builder substituted a different metric than requested (semantic
// scoring without an embedding-capable model degrades to exact match).
// Unknown kinds fail outright rather than silently degrading: a scoring
// function the caller didn't ask for would corrupt every result downstream.
func Build(cfg Config, lm core.LLM) (Metric, string, error) {
	switch cfg.Kind {
	case KindExactMatch, "":
		return exactMatch(cfg.CaseSensitive), "", nil

	case KindContains:
		return containsMatch(cfg.CaseSensitive), "", nil

	case KindSemanticF1:
		if lm == nil || !core.HasCapability(lm, core.CapabilityEmbedding) {
			note := "semantic_f1 requires an embedding-capable model, falling back to exact match"
			return exactMatch(cfg.CaseSensitive), note, nil
		}
		return semanticMatch(lm), "", nil

	case KindCustom:
		metric, err := compileCustomMetric(cfg.Code)
		if err != nil {
			return nil, "", err
		}
		return metric, "", nil

	default:
		return nil, "", errors.WithFields(
			errors.Newf(errors.UnsupportedOption,
				"unknown metric type: %q (use 'exact_match', 'contains', 'semantic_f1', or 'custom')", cfg.Kind),
			errors.Fields{
				"metric_type": cfg.Kind,
			})
	}
}

var foldCaser = cases.Fold()

func normalize(s string, caseSensitive bool) string {
	s = strings.TrimSpace(s)
	if !caseSensitive {
		s = foldCaser.String(s)
	}
	return s
}

func exactMatch(caseSensitive bool) Metric {
	return func(ctx context.Context, expected core.Example, prediction map[string]interface{}) float64 {
		want := normalize(expected.Answer(), caseSensitive)
		got := normalize(core.StringField(prediction, "answer"), caseSensitive)
		if want == got {
			return 1.0
		}
		return 0.0
	}
}

// containsMatch scores 1 when the prediction contains the expected answer.
func containsMatch(caseSensitive bool) Metric {
	return func(ctx context.Context, expected core.Example, prediction map[string]interface{}) float64 {
		want := normalize(expected.Answer(), caseSensitive)
		got := normalize(core.StringField(prediction, "answer"), caseSensitive)
		if want == "" {
			return 0.0
		}
		if strings.Contains(got, want) {
			return 1.0
		}
		return 0.0
	}
}

// semanticMatch scores by cosine similarity of the two answers' embeddings,
// clamped to [0, 1].
func semanticMatch(lm core.LLM) Metric {
	return func(ctx context.Context, expected core.Example, prediction map[string]interface{}) float64 {
		logger := logging.GetLogger()

		want := strings.TrimSpace(expected.Answer())
		got := strings.TrimSpace(core.StringField(prediction, "answer"))
		if want == "" || got == "" {
			return 0.0
		}

		wantEmb, err := lm.CreateEmbedding(ctx, want)
		if err != nil {
			logger.Warn(ctx, "embedding failed for expected answer: %v", err)
			return 0.0
		}
		gotEmb, err := lm.CreateEmbedding(ctx, got)
		if err != nil {
			logger.Warn(ctx, "embedding failed for predicted answer: %v", err)
			return 0.0
		}

		sim := cosineSimilarity(wantEmb.Vector, gotEmb.Vector)
		if sim < 0 {
			return 0.0
		}
		if sim > 1 {
			return 1.0
		}
		return sim
	}
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0.0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
