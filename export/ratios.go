package export

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrBadRatios marks a split-ratio validation failure. Nothing is
// written when validation fails.
var ErrBadRatios = errors.New("split ratios must sum to 100%")

// Ratios is the train/val/test split as fractions of the labeled set.
type Ratios struct {
	Train float64
	Val   float64
	Test  float64
}

// DefaultRatios is the 70/15/15 split.
var DefaultRatios = Ratios{Train: 0.70, Val: 0.15, Test: 0.15}

// ParseRatios reads a "train,val,test" percentage triple, e.g.
// "70,15,15".
func ParseRatios(s string) (Ratios, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return Ratios{}, fmt.Errorf("want three comma-separated percentages, got %q", s)
	}
	vals := make([]float64, 3)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return Ratios{}, fmt.Errorf("ratio %q: %w", part, err)
		}
		vals[i] = v / 100
	}
	r := Ratios{Train: vals[0], Val: vals[1], Test: vals[2]}
	return r, r.Validate()
}

// Validate accepts ratio sums within 1% of a full split.
func (r Ratios) Validate() error {
	sum := r.Train + r.Val + r.Test
	if sum < 0.99 || sum > 1.01 {
		return fmt.Errorf("%w: %.0f%%+%.0f%%+%.0f%% = %.0f%%",
			ErrBadRatios, r.Train*100, r.Val*100, r.Test*100, sum*100)
	}
	if r.Train < 0 || r.Val < 0 || r.Test < 0 {
		return fmt.Errorf("%w: negative ratio", ErrBadRatios)
	}
	return nil
}

// counts sizes the splits over n labeled images: train and val floor,
// test absorbs the remainder.
func (r Ratios) counts(n int) (train, val, test int) {
	train = int(float64(n) * r.Train)
	val = int(float64(n) * r.Val)
	test = n - train - val
	return train, val, test
}
