package optimizer

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/recallbox/recallbox/internal/domain"
	"github.com/recallbox/recallbox/internal/domain/srs"
)

// ErrFitterClosed is returned when Fit is called on a released fitter.
var ErrFitterClosed = errors.New("optimizer: weight fitter already closed")

// GradientConfig configures the built-in gradient descent fitter.
// Zero values are replaced with defaults.
type GradientConfig struct {
	Epochs          int     // default 5
	MiniBatchSize   int     // default 512 (clamped to the available cross-day reviews)
	LearningRate    float64 // default 0.04
	MaxSeqLen       int     // default 64
	EnableShortTerm bool
}

// gradientFitter fits weights with mini-batch gradient descent: Adam with
// cosine annealing over numerical central-difference gradients of the
// binary cross-entropy loss, replaying each card's history through the
// scheduling model.
type gradientFitter struct {
	cfg    GradientConfig
	closed bool
}

// Verify interface compliance at compile time.
var _ WeightFitter = (*gradientFitter)(nil)

// NewGradientFitter creates the built-in fitter.
func NewGradientFitter(cfg GradientConfig) WeightFitter {
	if cfg.Epochs == 0 {
		cfg.Epochs = 5
	}
	if cfg.MiniBatchSize == 0 {
		cfg.MiniBatchSize = 512
	}
	if cfg.LearningRate == 0 {
		cfg.LearningRate = 0.04
	}
	if cfg.MaxSeqLen == 0 {
		cfg.MaxSeqLen = 64
	}
	return &gradientFitter{cfg: cfg}
}

// fitReview is one review event reconstructed from the aligned arrays.
type fitReview struct {
	rating      domain.Rating
	elapsedDays float64
	label       float64 // 0 for Again, 1 otherwise
}

// Fit implements WeightFitter. Cancellation is cooperative: the context is
// checked between epochs (the progress-reported steps), never mid-step.
func (f *gradientFitter) Fit(
	ctx context.Context,
	ratings, deltaDays, lengths []int,
	progress ProgressFunc,
) ([]float64, error) {
	if f.closed {
		return nil, ErrFitterClosed
	}

	cards := f.buildCards(ratings, deltaDays, lengths)

	n := srs.WeightCountLongTerm
	if f.cfg.EnableShortTerm {
		n = srs.WeightCountFull
	}
	weights := make([]float64, n)
	copy(weights, srs.DefaultWeights[:n])

	crossDay := countCrossDay(cards)
	if crossDay == 0 {
		// Nothing to fit against; the defaults are the best estimate.
		return weights, nil
	}
	batchSize := f.cfg.MiniBatchSize
	if batchSize > crossDay {
		batchSize = crossDay
	}

	tMax := int(math.Ceil(float64(crossDay)/float64(batchSize))) * f.cfg.Epochs
	opt := newAdam(f.cfg.LearningRate, n)
	schedule := newCosineAnnealing(f.cfg.LearningRate, tMax)
	rng := rand.New(rand.NewSource(42))

	order := make([]int, len(cards))
	for i := range order {
		order[i] = i
	}

	best := make([]float64, n)
	copy(best, weights)
	bestLoss := math.Inf(1)

	for epoch := 0; epoch < f.cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})

		var batch [][]fitReview
		batchCrossDay := 0
		step := func() {
			grad := f.numericalGradient(weights, batch)
			opt.setLR(schedule.lr())
			opt.update(weights, grad)
			srs.ClampWeights(weights)
			schedule.advance()
			batch = batch[:0]
			batchCrossDay = 0
		}

		for _, idx := range order {
			batch = append(batch, cards[idx])
			for _, r := range cards[idx] {
				if r.elapsedDays >= 1.0 {
					batchCrossDay++
				}
			}
			if batchCrossDay >= batchSize {
				step()
			}
		}
		if batchCrossDay > 0 {
			step()
		}

		epochLoss := f.batchLoss(weights, cards)
		if epochLoss < bestLoss {
			bestLoss = epochLoss
			copy(best, weights)
		}

		if progress != nil {
			progress(epoch+1, f.cfg.Epochs)
		}
	}

	return best, nil
}

// Close releases the fitter. Further Fit calls fail with ErrFitterClosed.
func (f *gradientFitter) Close() error {
	f.closed = true
	return nil
}

// buildCards reconstructs per-card review sequences from the aligned
// arrays, truncating each card to MaxSeqLen reviews.
func (f *gradientFitter) buildCards(ratings, deltaDays, lengths []int) [][]fitReview {
	cards := make([][]fitReview, 0, len(lengths))
	pos := 0
	for _, length := range lengths {
		n := length
		if n > f.cfg.MaxSeqLen {
			n = f.cfg.MaxSeqLen
		}
		seq := make([]fitReview, 0, n)
		for i := 0; i < n; i++ {
			r := domain.Rating(ratings[pos+i])
			label := 1.0
			if r == domain.RatingAgain {
				label = 0.0
			}
			seq = append(seq, fitReview{
				rating:      r,
				elapsedDays: float64(deltaDays[pos+i]),
				label:       label,
			})
		}
		cards = append(cards, seq)
		pos += length
	}
	return cards
}

func countCrossDay(cards [][]fitReview) int {
	count := 0
	for _, seq := range cards {
		for _, r := range seq {
			if r.elapsedDays >= 1.0 {
				count++
			}
		}
	}
	return count
}

const bceClamp = 1e-7

// bceLoss computes -[y*ln(p) + (1-y)*ln(1-p)] with p clamped away from 0
// and 1.
func bceLoss(rPred, y float64) float64 {
	p := math.Max(bceClamp, math.Min(rPred, 1-bceClamp))
	return -(y*math.Log(p) + (1-y)*math.Log(1-p))
}

// batchLoss replays each card's history through a model built from the
// candidate weights and averages the BCE loss over cross-day reviews.
func (f *gradientFitter) batchLoss(weights []float64, cards [][]fitReview) float64 {
	svc, err := srs.NewService(srs.Config{
		Weights:         weights,
		EnableShortTerm: f.cfg.EnableShortTerm,
	})
	if err != nil {
		return 0
	}

	// A fixed origin keeps the replay deterministic; only deltas matter.
	origin := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	var totalLoss float64
	var count int

	for _, seq := range cards {
		state := svc.InitialState(origin)
		at := origin
		for _, rev := range seq {
			at = at.Add(time.Duration(rev.elapsedDays * 24 * float64(time.Hour)))

			if state.Phase != domain.PhaseNew && rev.elapsedDays >= 1.0 {
				rPred := svc.Retrievability(state, at)
				totalLoss += bceLoss(rPred, rev.label)
				count++
			}

			next, err := svc.ApplyRating(state, rev.rating, at)
			if err != nil {
				return 0
			}
			state = next
		}
	}

	if count == 0 {
		return 0
	}
	return totalLoss / float64(count)
}

const gradEps = 1e-5

// numericalGradient computes dL/dw[i] ≈ (L(w+ε) - L(w-ε)) / 2ε per weight.
func (f *gradientFitter) numericalGradient(weights []float64, cards [][]fitReview) []float64 {
	grad := make([]float64, len(weights))
	for i := range weights {
		plus := make([]float64, len(weights))
		copy(plus, weights)
		plus[i] += gradEps

		minus := make([]float64, len(weights))
		copy(minus, weights)
		minus[i] -= gradEps

		grad[i] = (f.batchLoss(plus, cards) - f.batchLoss(minus, cards)) / (2 * gradEps)
	}
	return grad
}
