package rbm

import "testing"

var validityCases = []struct {
	conf  Config
	valid bool
}{
	{DefaultConf(4, 3), true},
	{Config{NumVisible: 1, NumHidden: 1}, true},
	{Config{NumVisible: 0, NumHidden: 3}, false},
	{Config{NumVisible: 3, NumHidden: 0}, false},
	{Config{NumVisible: 3, NumHidden: 3, WeightScale: -1}, false},
}

func TestConfigIsValid(t *testing.T) {
	for _, c := range validityCases {
		if got := c.conf.IsValid(); got != c.valid {
			t.Errorf("Expected %+v to have validity %v. Got %v instead", c.conf, c.valid, got)
		}
	}
}
