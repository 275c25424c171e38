package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/gorgonia/tapfit"
	"github.com/gorgonia/tapfit/tap"
	"gorgonia.org/tensor"
)

var (
	side     = flag.Int("side", 4, "side of the square images the machine learns")
	hidden   = flag.Int("hidden", 8, "hidden units")
	examples = flag.Int("examples", 400, "number of synthetic examples")
	epochs   = flag.Int("epochs", 20, "epochs to fit for")
	order    = flag.Int("order", 2, "order of the TAP expansion (1, 2 or 3)")
	addr     = flag.String("addr", ":8080", "address the statistics are served on")
	wait     = flag.Bool("wait", true, "wait for enter before fitting, so a client can connect")
)

// bars draws side × side images with one random horizontal bar, flipped by a few random pixels.
func bars(r *rand.Rand, n, side int) *tensor.Dense {
	examples := make([][]float64, n)
	for i := range examples {
		bits := make([]bool, side*side)
		row := r.Intn(side)
		for j := 0; j < side; j++ {
			bits[row*side+j] = true
		}
		for k := 0; k < side/2; k++ {
			p := r.Intn(len(bits))
			bits[p] = !bits[p]
		}
		examples[i] = tapfit.EncodeBits(bits, nil)
	}
	data, err := tapfit.Stack(examples)
	if err != nil {
		log.Fatal(err)
	}
	return data
}

func main() {
	flag.Parse()

	conf := tapfit.DefaultConfig("Bars", (*side)*(*side), *hidden)
	conf.BatchSize = 20
	conf.LearnRate = 0.05
	conf.TAPConf.Order = tap.Order(*order)
	conf.Augmenter = tapfit.Rotations(*side) // horizontal bars become vertical ones too

	outEnc := NewEncoder(*side, *hidden)
	go func(h http.Handler) {
		mux := http.NewServeMux()
		mux.Handle("/ws", h)

		log.Printf("ws://localhost%s/ws", *addr)
		if err := http.ListenAndServe(*addr, mux); err != nil {
			log.Println(err)
		}
	}(outEnc)
	conf.OutputEncoder = outEnc

	f, err := tapfit.New(conf)
	if err != nil {
		log.Fatalf("%+v", err)
	}
	outEnc.model = f.Model

	if *wait {
		reader := bufio.NewReader(os.Stdin)
		fmt.Print("press enter when ready")
		reader.ReadString('\n')
	}

	data := bars(rand.New(rand.NewSource(1337)), *examples, *side)
	if err = f.Learn(data, *epochs); err != nil {
		log.Fatalf("%+v", err)
	}
	for _, rec := range f.Records {
		log.Printf("epoch %d: Γ %.4f %v", rec.Epoch, rec.FreeEnergy, rec.Metrics)
	}
	if err = f.Dump("bars.csv"); err != nil {
		log.Fatal(err)
	}
	if err = f.Save("bars.model"); err != nil {
		log.Fatal(err)
	}
}
