// Package diag exposes a read-only HTTP status page over the bus and
// its amplifiers, for operators watching a running simulator from
// outside the wire protocol itself.
package diag

import (
	"encoding/json"
	"net/http"
	"strconv"

	"goji.io"
	"goji.io/pat"

	"github.com/keyence-sim/ilsim/internal/bus"
)

// Mux builds the diagnostic routes over b: GET /bus and GET /amplifier/:id.
func Mux(b *bus.Bus) *goji.Mux {
	m := goji.NewMux()
	m.HandleFunc(pat.Get("/bus"), busStatus(b))
	m.HandleFunc(pat.Get("/amplifier/:id"), amplifierStatus(b))
	return m
}

type busView struct {
	Count     int  `json:"count"`
	HasError  bool `json:"has_error"`
}

func busStatus(b *bus.Bus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, busView{Count: b.Count(), HasError: b.HasError()})
	}
}

type amplifierView struct {
	ID         int  `json:"id"`
	HasError   bool `json:"has_error"`
	Invalid    bool `json:"invalid"`
	UnderRange bool `json:"under_range"`
	OverRange  bool `json:"over_range"`
	High       bool `json:"high"`
	Low        bool `json:"low"`
	Go         bool `json:"go"`
	Alarm      bool `json:"alarm"`
}

func amplifierStatus(b *bus.Bus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(pat.Param(r, "id"))
		if err != nil {
			http.Error(w, "bad amplifier id", http.StatusBadRequest)
			return
		}
		a, err := b.ByID(id)
		if err != nil {
			http.Error(w, "no such amplifier", http.StatusNotFound)
			return
		}
		high, low, goState, alarm := a.PhysicalOutputs()
		writeJSON(w, amplifierView{
			ID:         id,
			HasError:   a.HasError(),
			Invalid:    a.Invalid(),
			UnderRange: a.UnderRange(),
			OverRange:  a.OverRange(),
			High:       high,
			Low:        low,
			Go:         goState,
			Alarm:      alarm,
		})
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
