// Package protocol implements the line-oriented command/response engine:
// it lexes one request line, validates it against the fixed grammar,
// dispatches to the bus or to one amplifier, and formats the reply.
package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/keyence-sim/ilsim/internal/ampl"
	"github.com/keyence-sim/ilsim/internal/bus"
	"github.com/keyence-sim/ilsim/internal/wireerr"
)

// Engine executes request lines against one bus.
type Engine struct {
	Bus *bus.Bus
}

// New returns an engine bound to b.
func New(b *bus.Bus) *Engine {
	return &Engine{Bus: b}
}

// Handle consumes one line, stripped of its CRLF terminator, and
// returns one reply line, also without a terminator; the transport is
// responsible for framing on the wire.
func (e *Engine) Handle(line string) string {
	cmd2 := leadingTwo(line)

	c, err := parse(line)
	if err != nil {
		return formatError(cmd2, err)
	}

	// A malformed line always reports 255, even with the bus in a
	// general-error state; only a grammatically valid line checks the
	// bus's own internal_error next, ahead of per-command dispatch.
	if e.Bus.HasError() {
		return formatError(c.name, wireerr.New(wireerr.GeneralSystem))
	}

	reply, err := e.dispatch(c)
	if err != nil {
		return formatError(c.name, err)
	}
	return reply
}

func leadingTwo(line string) string {
	if len(line) >= 2 {
		return line[:2]
	}
	return line
}

func formatError(cmd2 string, err error) string {
	code := wireerr.GeneralSystem
	var f wireerr.Fault
	if errors.As(err, &f) {
		code = f.Code
	}
	return fmt.Sprintf("ER,%s,%03d", cmd2, int(code))
}

type command struct {
	name   string
	id     int
	q      int
	signed int
}

// parse validates line against the fixed M0/MS/SR/SW/FR grammar. Any
// deviation — case, spacing, extra digits, a missing sign on SW —
// fails with error 255, matching the single regex the reference
// implementation fullmatches the whole line against.
func parse(line string) (command, error) {
	parts := strings.Split(line, ",")
	switch parts[0] {
	case "M0":
		if len(parts) == 1 && parts[0] == "M0" {
			return command{name: "M0"}, nil
		}
	case "MS":
		if len(parts) == 1 && parts[0] == "MS" {
			return command{name: "MS"}, nil
		}
	case "SR":
		if len(parts) == 3 {
			if id, ok := digits(parts[1], 2); ok {
				if q, ok := digits(parts[2], 3); ok {
					return command{name: "SR", id: id, q: q}, nil
				}
			}
		}
	case "SW":
		if len(parts) == 4 {
			if id, ok := digits(parts[1], 2); ok {
				if q, ok := digits(parts[2], 3); ok {
					if sv, ok := signedDigits(parts[3]); ok {
						return command{name: "SW", id: id, q: q, signed: sv}, nil
					}
				}
			}
		}
	case "FR":
		if len(parts) == 3 {
			if id, ok := digits(parts[1], 2); ok {
				if q, ok := digits(parts[2], 3); ok {
					return command{name: "FR", id: id, q: q}, nil
				}
			}
		}
	}
	return command{}, wireerr.New(wireerr.BadFormat)
}

func digits(s string, n int) (int, bool) {
	if len(s) != n {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

func signedDigits(s string) (int, bool) {
	if len(s) != 10 {
		return 0, false
	}
	if s[0] != '+' && s[0] != '-' {
		return 0, false
	}
	mag, ok := digits(s[1:], 9)
	if !ok {
		return 0, false
	}
	if s[0] == '-' {
		return -mag, true
	}
	return mag, true
}

func formatSigned(v int) string {
	sign := byte('+')
	if v < 0 {
		sign = '-'
		v = -v
	}
	return fmt.Sprintf("%c%09d", sign, v)
}

func (e *Engine) dispatch(c command) (string, error) {
	switch c.name {
	case "M0":
		return e.handleM0(), nil
	case "MS":
		return e.handleMS(), nil
	case "SR":
		return e.handleSR(c.id, c.q)
	case "SW":
		return e.handleSW(c.id, c.q, c.signed)
	case "FR":
		return e.handleFR(c.id, c.q)
	}
	return "", wireerr.New(wireerr.BadFormat)
}

func (e *Engine) handleM0() string {
	amps := e.Bus.Amplifiers()
	values := make([]string, len(amps))
	for i, a := range amps {
		a.ApplyUncertainty()
		values[i] = formatSigned(a.WireValuePerAmplifier())
	}
	return "M0," + strings.Join(values, ",")
}

func (e *Engine) handleMS() string {
	amps := e.Bus.Amplifiers()
	parts := make([]string, 0, len(amps)*2)
	for _, a := range amps {
		state, value := a.OutputStateAndValue()
		parts = append(parts, fmt.Sprintf("%02d", int(state)), formatSigned(value))
	}
	return "MS," + strings.Join(parts, ",")
}

func (e *Engine) resolve(id int) (*ampl.Amplifier, error) {
	return e.Bus.ByID(id)
}

// productNameRegister is the wire protocol's one string-valued
// register (#200); every other register formats as a signed
// nine-digit field, matching communication.py's response_SR split
// on isinstance(output, str).
const productNameRegister = 200

func (e *Engine) handleSR(id, q int) (string, error) {
	if id != 0 && q == productNameRegister {
		a, err := e.resolve(id)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("SR,%02d,%03d,%s", id, q, a.ProductName()), nil
	}
	var v int
	var err error
	if id == 0 {
		v, err = e.Bus.HandleRead(q)
	} else {
		var a *ampl.Amplifier
		a, err = e.resolve(id)
		if err == nil {
			v, err = a.HandleRead(q)
		}
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SR,%02d,%03d,%s", id, q, formatSigned(v)), nil
}

func (e *Engine) handleSW(id, q, sv int) (string, error) {
	var err error
	if id == 0 {
		err = e.Bus.HandleWrite(q, sv)
	} else {
		var a *ampl.Amplifier
		a, err = e.resolve(id)
		if err == nil {
			err = a.HandleWrite(q, sv)
		}
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SW,%02d,%03d", id, q), nil
}

func (e *Engine) handleFR(id, q int) (string, error) {
	if id == 0 {
		return "", wireerr.New(wireerr.BadID)
	}
	a, err := e.resolve(id)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("FR,%02d,%03d,%s", id, q, formatSigned(a.Heads.DecimalPosition)), nil
}
