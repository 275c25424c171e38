package tapfit

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/gorgonia/tapfit/tap"
)

// Record is what one epoch of fitting produced.
type Record struct {
	Name       string
	Epoch      int
	Metrics    map[string]float64 // only metrics that had a value
	FreeEnergy float64            // Γ at the magnetization behind the epoch's last gradient
	TAP        tap.Stats          // descent counters since the fit began
}

type Statistics struct {
	Names   []string // metric names, in column order
	Records []Record
}

func makeStatistics(names []string) Statistics {
	return Statistics{
		Names:   names,
		Records: make([]Record, 0, 64),
	}
}

func (s *Statistics) update(r Record) {
	s.Records = append(s.Records, r)
}

// Dump writes the statistics as CSV, one row per epoch. Metrics without a value are left empty.
func (s *Statistics) Dump(filename string) error {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)

	header := append([]string{"epoch"}, s.Names...)
	header = append(header, "free_energy", "minimizations", "converged", "stalled", "exhausted")
	if err := w.Write(header); err != nil {
		return err
	}
	var records [][]string
	for _, r := range s.Records {
		record := make([]string, 0, len(header))
		record = append(record, strconv.Itoa(r.Epoch))
		for _, name := range s.Names {
			var cell string
			if v, ok := r.Metrics[name]; ok {
				cell = strconv.FormatFloat(v, 'g', 6, 64)
			}
			record = append(record, cell)
		}
		record = append(record,
			strconv.FormatFloat(r.FreeEnergy, 'g', 6, 64),
			strconv.Itoa(r.TAP.Minimizations),
			strconv.Itoa(r.TAP.Converged),
			strconv.Itoa(r.TAP.Stalled),
			strconv.Itoa(r.TAP.Exhausted),
		)
		records = append(records, record)
	}
	if err := w.WriteAll(records); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
