package tap

// Config configures a Machine.
type Config struct {
	Order Order // number of terms kept in the expansion

	// descent used for every gradient computation
	InitLR    float64
	Tolerance float64
	MaxIters  int

	// PersistentSamples is the number of magnetizations kept between gradient computations to seed the next
	// descent. 0 means every descent starts from a fresh random magnetization.
	PersistentSamples int

	LineSearch LineSearch
}

func DefaultConfig() Config {
	return Config{
		Order:     TAP2,
		InitLR:    0.1,
		Tolerance: 1e-7,
		MaxIters:  100,
	}
}

// Settings returns the descent settings of the configuration.
func (c Config) Settings() Settings {
	return Settings{
		InitLR:    c.InitLR,
		Tolerance: c.Tolerance,
		MaxIters:  c.MaxIters,
	}
}

// Validate returns a ConfigError describing the first invalid field, if any.
func (c Config) Validate() error {
	if !c.Order.IsValid() {
		return ConfigError{"Order", c.Order}
	}
	if err := c.Settings().validate(); err != nil {
		return err
	}
	if c.PersistentSamples < 0 {
		return ConfigError{"PersistentSamples", c.PersistentSamples}
	}
	if c.LineSearch != LineSearchCompat && c.LineSearch != LineSearchConsistent {
		return ConfigError{"LineSearch", c.LineSearch}
	}
	return nil
}

func (c Config) IsValid() bool { return c.Validate() == nil }

// DefaultFreeEnergySettings are the settings for standalone free energy estimates.
func DefaultFreeEnergySettings() Settings {
	return Settings{InitLR: 0.1, Tolerance: 1e-4, MaxIters: 50}
}

// DefaultHeatCapacitySettings are the settings the heat capacity metric uses.
func DefaultHeatCapacitySettings() Settings {
	return Settings{InitLR: 0.01, Tolerance: 1e-4, MaxIters: 20}
}
