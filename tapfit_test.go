package tapfit

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorgonia/tapfit/metrics"
	"github.com/gorgonia/tapfit/rbm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

type countingEncoder struct {
	records []Record
	flushes int
}

func (e *countingEncoder) Encode(r Record) error { e.records = append(e.records, r); return nil }
func (e *countingEncoder) Flush() error          { e.flushes++; return nil }

// stripes is a trivially learnable dataset: alternating halves of the visible layer are on.
func stripes(rows, cols int) *tensor.Dense {
	backing := make([]float64, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if (j < cols/2) == (i%2 == 0) {
				backing[i*cols+j] = 1
			}
		}
	}
	return tensor.New(tensor.WithShape(rows, cols), tensor.WithBacking(backing))
}

func testConfig() Config {
	conf := DefaultConfig("stripes", 6, 3)
	conf.BatchSize = 5
	conf.LearnRate = 0.1
	conf.TAPConf.PersistentSamples = 2
	conf.Seed = 1337
	return conf
}

func TestNewValidates(t *testing.T) {
	conf := testConfig()
	conf.BatchSize = 0
	_, err := New(conf)
	assert.Error(t, err)

	conf = testConfig()
	conf.TAPConf.Order = 4
	_, err = New(conf)
	assert.Error(t, err)

	conf = testConfig()
	conf.ModelConf.NumHidden = 0
	_, err = New(conf)
	assert.Error(t, err)
}

func TestLearn(t *testing.T) {
	enc := new(countingEncoder)
	conf := testConfig()
	conf.OutputEncoder = enc
	f, err := New(conf)
	require.NoError(t, err)

	data := stripes(20, 6)
	orig := data.Clone().(*tensor.Dense)
	require.NoError(t, f.Learn(data, 2))
	assert.Equal(t, orig.Data(), data.Data(), "Learn must not shuffle the caller's data")

	require.Len(t, f.Records, 2)
	for i, r := range f.Records {
		assert.Equal(t, i, r.Epoch)
		assert.Equal(t, "stripes", r.Name)
		for _, m := range metrics.Defaults() {
			_, ok := r.Metrics[m.Name()]
			assert.True(t, ok, "epoch %d has no %s", i, m.Name())
		}
	}
	// 4 minibatches per epoch, each with one descent per persistent sample and one heat capacity descent
	assert.Equal(t, 2*4*(2+1), f.Records[1].TAP.Minimizations)
	assert.Equal(t, f.Records, enc.records)
	assert.Equal(t, 1, enc.flushes)
	assert.Contains(t, f.ExecLog(), "Epoch 1")

	// epochs keep counting across calls
	require.NoError(t, f.Learn(data, 1))
	assert.Equal(t, 2, f.Records[2].Epoch)

	assert.Error(t, f.Learn(stripes(4, 6), 1), "too few examples for a batch")
	assert.Error(t, f.Learn(stripes(20, 5), 1), "wrong width")
}

func TestLearnAugmented(t *testing.T) {
	conf := DefaultConfig("rotations", 4, 2)
	conf.BatchSize = 4
	conf.Seed = 1
	conf.Augmenter = Rotations(2)
	conf.Metrics = []metrics.Metric{new(metrics.ReconstructionError)}
	f, err := New(conf)
	require.NoError(t, err)

	data := tensor.New(tensor.WithShape(2, 4), tensor.WithBacking([]float64{1, 0, 0, 0, 1, 1, 0, 0}))
	prepared, err := f.prepare(data)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{8, 4}, prepared.Shape())

	// the batch size applies to the augmented examples: 2 examples fill a batch of 4 once rotated, not one of 9
	f.batchSize = 9
	_, err = f.prepare(data)
	assert.Error(t, err)
	f.batchSize = 4

	require.NoError(t, f.Learn(data, 1))
	require.Len(t, f.Records, 1)
	assert.Equal(t, []string{"ReconstructionError"}, f.Names)
}

func TestDump(t *testing.T) {
	conf := testConfig()
	conf.Metrics = []metrics.Metric{new(metrics.ReconstructionError), new(metrics.EnergyGap)}
	f, err := New(conf)
	require.NoError(t, err)
	require.NoError(t, f.Learn(stripes(10, 6), 3))

	filename := filepath.Join(t.TempDir(), "stats.csv")
	require.NoError(t, f.Dump(filename))

	file, err := os.Open(filename)
	require.NoError(t, err)
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"epoch", "ReconstructionError", "EnergyGap", "free_energy", "minimizations", "converged", "stalled", "exhausted"}, rows[0])
	assert.Equal(t, "2", rows[3][0])
	for _, row := range rows[1:] {
		assert.NotEmpty(t, row[1])
		assert.NotEmpty(t, row[2])
	}
}

func TestSaveLoad(t *testing.T) {
	f, err := New(testConfig())
	require.NoError(t, err)
	require.NoError(t, f.Learn(stripes(10, 6), 1))

	filename := filepath.Join(t.TempDir(), "stripes.model")
	require.NoError(t, f.Save(filename))

	g, err := New(testConfig())
	require.NoError(t, err)
	require.NoError(t, g.Load(filename))

	assert.Equal(t, f.Model.Config, g.Model.Config)
	for i, p := range []*tensor.Dense{g.Model.W, g.Model.A, g.Model.B} {
		want := []*tensor.Dense{f.Model.W, f.Model.A, f.Model.B}[i]
		assert.Equal(t, rbm.Float64s(want), rbm.Float64s(p))
	}
	// the machine now fits the loaded model
	require.NoError(t, g.Learn(stripes(10, 6), 1))

	assert.Error(t, g.Load(filepath.Join(t.TempDir(), "missing.model")))
}
