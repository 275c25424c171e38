package tap

import "fmt"

// ConfigError is returned when a Machine is asked to work with a configuration it cannot honour.
// Invalid values are never clamped.
type ConfigError struct {
	Field string
	Value interface{}
}

func (err ConfigError) Error() string {
	return fmt.Sprintf("invalid TAP configuration: %s = %v", err.Field, err.Value)
}

// shapeError is returned when a magnetization does not fit the model it is evaluated against.
type shapeError struct {
	layer     string
	got, want int
}

func (err shapeError) Error() string {
	return fmt.Sprintf("%s magnetization has %d units; expected %d", err.layer, err.got, err.want)
}

// domainError is returned when a magnetization supplied from outside has a component outside (0, 1).
type domainError struct {
	layer string
	index int
	value float64
}

func (err domainError) Error() string {
	return fmt.Sprintf("%s magnetization component %d is %v; it must lie strictly inside (0, 1)", err.layer, err.index, err.value)
}
