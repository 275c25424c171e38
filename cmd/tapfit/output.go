package main

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/chewxy/math32"
	"github.com/gorgonia/tapfit"
	"github.com/gorgonia/tapfit/rbm"
	"github.com/gorilla/websocket"
	"gorgonia.org/vecf32"
)

// Encoder is a structure that streams epoch records according to the tapfit.OutputEncoder interface
type Encoder struct {
	records chan update
	side    int
	hidden  int
	model   *rbm.Model
}

// update is what a client receives once per epoch.
type update struct {
	tapfit.Record

	// Filters holds, per hidden unit, its couplings to the side × side visible image, scaled into [-1, 1].
	Filters [][]float32
}

var upgrader = websocket.Upgrader{} // use default options

func (enc *Encoder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Print("upgrade:", err)
		return
	}
	defer c.Close()
	for {
		var b []byte
		select {
		case u := <-enc.records:
			if b, err = json.Marshal(u); err != nil {
				log.Println("marshal:", err)
				continue
			}
		case <-r.Context().Done():
			return
		}
		if err = c.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Println("write:", err)
			return
		}
	}
}

// NewEncoder with the image side and the number of hidden units
func NewEncoder(side, hidden int) *Encoder {
	return &Encoder{
		records: make(chan update, 16),
		side:    side,
		hidden:  hidden,
	}
}

// Encode an epoch. Records are dropped when no client keeps up.
func (enc *Encoder) Encode(r tapfit.Record) error {
	u := update{Record: r}
	if enc.model != nil {
		u.Filters = filters(rbm.Float64s(enc.model.W), enc.side*enc.side, enc.hidden)
	}
	select {
	case enc.records <- u:
	default:
		log.Printf("no client; dropped epoch %d", r.Epoch)
	}
	return nil
}

// Flush ...
func (enc *Encoder) Flush() error { return nil }

// filters splits a visible × hidden weight matrix into one float32 image per hidden unit, each scaled by its
// largest magnitude.
func filters(w []float64, visible, hidden int) [][]float32 {
	retVal := make([][]float32, hidden)
	for j := range retVal {
		f := make([]float32, visible)
		var max float32
		for i := range f {
			f[i] = float32(w[i*hidden+j])
			max = math32.Max(max, math32.Abs(f[i]))
		}
		if max > 0 {
			vecf32.Scale(f, 1/max)
		}
		retVal[j] = f
	}
	return retVal
}
