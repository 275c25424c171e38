package tapfit

import (
	"github.com/gorgonia/tapfit/metrics"
	"github.com/gorgonia/tapfit/rbm"
	"github.com/gorgonia/tapfit/tap"
	"github.com/pkg/errors"
)

type Config struct {
	Name      string
	ModelConf rbm.Config
	TAPConf   tap.Config
	BatchSize int
	LearnRate float64
	Seed      int64 // seed of every random draw of the fit. 0 seeds from the clock

	// extensions
	Metrics       []metrics.Metric // evaluated after every epoch. nil means metrics.Defaults()
	Augmenter     Augmenter
	OutputEncoder OutputEncoder
}

// DefaultConfig is a TAP2 fit of a visible × hidden machine with persistent magnetizations.
func DefaultConfig(name string, visible, hidden int) Config {
	tapConf := tap.DefaultConfig()
	tapConf.PersistentSamples = 10
	return Config{
		Name:      name,
		ModelConf: rbm.DefaultConf(visible, hidden),
		TAPConf:   tapConf,
		BatchSize: 100,
		LearnRate: 0.01,
	}
}

func (c Config) Validate() error {
	if !c.ModelConf.IsValid() {
		return errors.Errorf("invalid model config %+v", c.ModelConf)
	}
	if err := c.TAPConf.Validate(); err != nil {
		return errors.Wrap(err, "TAPConf")
	}
	if c.BatchSize < 1 {
		return errors.Errorf("batch size must be positive. Got %d", c.BatchSize)
	}
	if !(c.LearnRate > 0) {
		return errors.Errorf("learn rate must be positive. Got %v", c.LearnRate)
	}
	return nil
}

// OutputEncoder encodes the record of every epoch as whatever.
//
// An example OutputEncoder is a websocket stream of the statistics. Another example would be a logger.
type OutputEncoder interface {
	Encode(r Record) error
	Flush() error
}

// Augmenter takes an example, and creates more examples from it. The example itself is not kept unless it is
// among the results.
type Augmenter func(example []float64) [][]float64
