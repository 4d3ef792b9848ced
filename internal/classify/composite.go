package classify

import (
	"context"
	"log/slog"
)

// HeuristicThreshold is the heuristic confidence at which the model is skipped.
const HeuristicThreshold = 0.80

// Composite tries the heuristic first and falls back to the model when the
// heuristic is uncertain. If the model is also uncertain the heuristic answer,
// possibly nil, is returned.
type Composite struct {
	heuristic Classifier
	model     Classifier
	logger    *slog.Logger
}

// NewComposite builds a composite classifier. model may be nil when no
// provider is configured.
func NewComposite(heuristic, model Classifier, logger *slog.Logger) *Composite {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composite{heuristic: heuristic, model: model, logger: logger}
}

func (c *Composite) Classify(ctx context.Context, filename, text string) *Result {
	res := c.heuristic.Classify(ctx, filename, text)
	if res != nil && res.Confidence >= HeuristicThreshold {
		return res
	}
	if c.model == nil {
		return res
	}
	c.logger.Debug("classify.composite.fallback", "filename", filename)
	if mres := c.model.Classify(ctx, filename, text); mres != nil {
		return mres
	}
	return res
}
