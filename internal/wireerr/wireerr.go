// Package wireerr defines the nine wire-protocol error codes shared by
// the amplifier register file, the communication-unit register file,
// and the protocol engine, the way github.jpl.nasa.gov/bdube/golab/newport
// defines a single XPSError type shared by every caller of the XPS
// controller.
package wireerr

import "fmt"

// Code is one of the nine wire error codes defined by the protocol.
type Code int

// The complete, closed set of codes that may appear on the wire.
const (
	OutOfRange        Code = 9
	Forbidden         Code = 12
	WriteProtected    Code = 14
	ReadProtected     Code = 16
	NoSuchRegister    Code = 20
	BadID             Code = 22
	Reserved          Code = 31
	GeneralSystem     Code = 254
	BadFormat         Code = 255
)

var text = map[Code]string{
	OutOfRange:     "write value outside valid range",
	Forbidden:      "operation forbidden in current state",
	WriteProtected: "register is write-protected",
	ReadProtected:  "register is read-protected",
	NoSuchRegister: "register number out of range",
	BadID:          "id outside valid range or absent amplifier",
	Reserved:       "register is reserved",
	GeneralSystem:  "general system error",
	BadFormat:      "command format invalid",
}

// Fault is an error carrying one of the wire codes above. It is
// constructed at the point of detection and matched once, at the
// protocol engine boundary, with errors.As.
type Fault struct {
	Code Code
}

// New builds a Fault for the given code.
func New(c Code) Fault {
	return Fault{Code: c}
}

func (f Fault) Error() string {
	if s, ok := text[f.Code]; ok {
		return fmt.Sprintf("error %03d: %s", int(f.Code), s)
	}
	return fmt.Sprintf("error %03d", int(f.Code))
}
