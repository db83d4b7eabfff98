package partition

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Options controls how sessions or rows are split.
type Options struct {
	// TrainRatio is the head fraction used for training. Nil means
	// 1 - TestRatio.
	TrainRatio *float64 `validate:"omitempty,gte=0,lte=1"`

	// TestRatio is the tail fraction used for testing.
	TestRatio float64 `validate:"gte=0,lte=1"`

	// TrainAnomalyRatio is the probability of keeping each anomalous
	// training item.
	TrainAnomalyRatio float64 `validate:"gte=0,lte=1"`

	// RandomPartition shuffles the order before splitting.
	RandomPartition bool

	// FilterUnseen drops normal test rows whose template never occurs in
	// the training rows. Only applies to row partitioning.
	FilterUnseen bool
}

// Ratio returns a pointer to r, for setting Options.TrainRatio.
func Ratio(r float64) *float64 {
	return &r
}

var validate = validator.New()

// ratioEpsilon absorbs float error in sums such as 0.7 + 0.3. Real overlap
// is still caught by counts.
const ratioEpsilon = 1e-9

// Validate checks ratio bounds and that train and test ratios sum to at
// most 1.
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &ConfigError{
				Field:  fe.Field(),
				Reason: fmt.Sprintf("must satisfy %s=%s, got %v", fe.Tag(), fe.Param(), fe.Value()),
			}
		}
		return &ConfigError{Field: "options", Reason: err.Error()}
	}

	if sum := o.trainRatio() + o.TestRatio; sum > 1+ratioEpsilon {
		return &ConfigError{
			Field:  "TrainRatio+TestRatio",
			Reason: fmt.Sprintf("must be <= 1, got %.4f", sum),
		}
	}
	return nil
}

func (o Options) trainRatio() float64 {
	if o.TrainRatio == nil {
		return 1 - o.TestRatio
	}
	return *o.TrainRatio
}

// counts returns floor(train_ratio * n) and floor(test_ratio * n).
// Overlapping head and tail windows are rejected.
func (o Options) counts(n int) (train, test int, err error) {
	train = int(o.trainRatio() * float64(n))
	test = int(o.TestRatio * float64(n))
	if train+test > n {
		return 0, 0, &ConfigError{
			Field:  "TrainRatio+TestRatio",
			Reason: fmt.Sprintf("selects %d train and %d test items from %d; windows would overlap", train, test, n),
		}
	}
	return train, test, nil
}
