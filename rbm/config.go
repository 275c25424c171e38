package rbm

// Config configures a two layer Bernoulli-Bernoulli machine
type Config struct {
	NumVisible int // visible layer width
	NumHidden  int // hidden layer width

	WeightScale float64 // standard deviation of the initial couplings
}

func DefaultConf(visible, hidden int) Config {
	return Config{
		NumVisible:  visible,
		NumHidden:   hidden,
		WeightScale: 0.01,
	}
}

func (conf Config) IsValid() bool {
	return conf.NumVisible >= 1 &&
		conf.NumHidden >= 1 &&
		conf.WeightScale >= 0
}
