// Package optimizer re-fits the scheduling model's weight vector from the
// review history. It turns the append-only log into per-card rating/delta
// sequences and delegates the numeric fit to a WeightFitter.
package optimizer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/recallbox/recallbox/internal/domain"
	"github.com/recallbox/recallbox/internal/domain/srs"
	"github.com/recallbox/recallbox/internal/platform/logger"
)

// MinReviews is the smallest review history the optimizer accepts.
const MinReviews = 50

// InsufficientDataError is returned when the history holds fewer than
// MinReviews entries. It is fatal to that optimization call only.
type InsufficientDataError struct {
	Count int
}

// Error implements the error interface.
func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient review data: %d entries (minimum %d)", e.Count, MinReviews)
}

// ProgressFunc reports optimization progress after each discrete step.
type ProgressFunc func(step, total int)

// WeightFitter is the numeric fitting routine. It consumes three aligned
// arrays — per-review ratings (1..4), per-review whole days since that
// card's previous review (0 for a first review), and per-card entry counts
// whose sum equals the total review count — and returns the fitted weight
// vector. Close releases the fitter; it must be called on every path.
type WeightFitter interface {
	Fit(ctx context.Context, ratings, deltaDays, lengths []int, progress ProgressFunc) ([]float64, error)
	Close() error
}

// FitterFactory builds a fitter for one optimization run.
type FitterFactory func(enableShortTerm bool) (WeightFitter, error)

// Result is a successful optimization outcome.
type Result struct {
	Weights     []float64 `json:"weights"`
	CardsUsed   int       `json:"cards_used"`
	ReviewsUsed int       `json:"reviews_used"`
}

// Optimizer batch-fits scheduling weights from review log entries.
type Optimizer struct {
	newFitter FitterFactory
	logger    *slog.Logger
}

// New creates an Optimizer with the given fitter factory.
func New(factory FitterFactory, log *slog.Logger) *Optimizer {
	if factory == nil {
		panic("factory cannot be nil for Optimizer")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Optimizer{
		newFitter: factory,
		logger:    log.With(slog.String("component", "optimizer")),
	}
}

// NewDefault creates an Optimizer backed by the built-in gradient descent
// fitter.
func NewDefault(log *slog.Logger) *Optimizer {
	return New(func(enableShortTerm bool) (WeightFitter, error) {
		return NewGradientFitter(GradientConfig{EnableShortTerm: enableShortTerm}), nil
	}, log)
}

// Optimize fits a weight vector from the given log entries. Entries are
// grouped by card in write order; each card's sequence contributes
// (rating, days since that card's previous entry) pairs. The result's
// weight count is 19 without short-term steps and 21 with.
func (o *Optimizer) Optimize(
	ctx context.Context,
	entries []domain.LogEntry,
	enableShortTerm bool,
	progress ProgressFunc,
) (*Result, error) {
	log := logger.FromContextOrDefault(ctx, o.logger)

	if len(entries) < MinReviews {
		return nil, &InsufficientDataError{Count: len(entries)}
	}

	ratings, deltaDays, lengths := buildDataset(entries)

	fitter, err := o.newFitter(enableShortTerm)
	if err != nil {
		return nil, fmt.Errorf("failed to create weight fitter: %w", err)
	}
	// The fitter handle is released on every exit path, including failures.
	defer func() {
		if cerr := fitter.Close(); cerr != nil {
			log.Warn("failed to release weight fitter", slog.String("error", cerr.Error()))
		}
	}()

	weights, err := fitter.Fit(ctx, ratings, deltaDays, lengths, progress)
	if err != nil {
		return nil, fmt.Errorf("weight fit failed: %w", err)
	}

	want := srs.WeightCountLongTerm
	if enableShortTerm {
		want = srs.WeightCountFull
	}
	if len(weights) != want {
		return nil, fmt.Errorf("fitter returned %d weights, want %d", len(weights), want)
	}

	log.Info("optimization finished",
		slog.Int("cards_used", len(lengths)),
		slog.Int("reviews_used", len(entries)),
		slog.Bool("short_term", enableShortTerm))
	return &Result{
		Weights:     weights,
		CardsUsed:   len(lengths),
		ReviewsUsed: len(entries),
	}, nil
}

// buildDataset flattens the log into the fitter's three aligned arrays.
// Cards appear in order of first appearance; entries within a card keep
// write order.
func buildDataset(entries []domain.LogEntry) (ratings, deltaDays, lengths []int) {
	grouped := make(map[domain.CardID][]domain.LogEntry)
	var cardOrder []domain.CardID
	for _, e := range entries {
		if _, seen := grouped[e.CardID]; !seen {
			cardOrder = append(cardOrder, e.CardID)
		}
		grouped[e.CardID] = append(grouped[e.CardID], e)
	}

	ratings = make([]int, 0, len(entries))
	deltaDays = make([]int, 0, len(entries))
	lengths = make([]int, 0, len(cardOrder))

	for _, id := range cardOrder {
		seq := grouped[id]
		lengths = append(lengths, len(seq))
		for i, e := range seq {
			ratings = append(ratings, int(e.Rating))

			delta := 0
			if i > 0 {
				delta = int(e.Timestamp.Sub(seq[i-1].Timestamp).Hours() / 24.0)
				if delta < 0 {
					delta = 0
				}
			}
			deltaDays = append(deltaDays, delta)
		}
	}
	return ratings, deltaDays, lengths
}
