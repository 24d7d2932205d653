// Package serialline serves the line protocol over an RS-232C
// maintenance port, the optional secondary transport alongside
// transport/tcpline. Serial ports flap in a way sockets don't, so the
// port is reopened with an exponential backoff rather than failing
// the daemon outright.
package serialline

import (
	"bufio"
	"log"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/tarm/serial"
)

// Handler processes one CRLF-stripped request line and returns the
// reply line, also without its terminator.
type Handler func(line string) string

// Server serves Handle over one serial device, reopening it on I/O
// failure.
type Server struct {
	Device  string
	Baud    int
	Handle  Handler
	Logger  *log.Logger
}

// NewServer returns a Server for device at the given baud rate.
func NewServer(device string, baud int, h Handler, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{Device: device, Baud: baud, Handle: h, Logger: logger}
}

// Run opens the device and serves requests until ctx-equivalent stop
// is requested by closing stop; on any I/O error it reopens the port
// with backoff and resumes, the way comm.RemoteDevice.Open retries a
// flapping link instead of giving up.
func (s *Server) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		port, err := s.open()
		if err != nil {
			s.Logger.Printf("serialline: giving up opening %s: %v", s.Device, err)
			return
		}
		s.serve(port, stop)
		port.Close()
	}
}

func (s *Server) open() (*serial.Port, error) {
	var port *serial.Port
	op := func() error {
		p, err := serial.OpenPort(&serial.Config{Name: s.Device, Baud: s.Baud, ReadTimeout: time.Second})
		if err != nil {
			return err
		}
		port = p
		return nil
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 0 // retry indefinitely; stop is not checked while reopening
	err := backoff.Retry(op, b)
	return port, err
}

func (s *Server) serve(port *serial.Port, stop <-chan struct{}) {
	scanner := bufio.NewScanner(port)
	scanner.Split(scanCRLF)
	for scanner.Scan() {
		select {
		case <-stop:
			return
		default:
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		reply := s.Handle(line)
		if _, err := port.Write([]byte(reply + "\r\n")); err != nil {
			s.Logger.Printf("serialline: write to %s failed: %v", s.Device, err)
			return
		}
	}
}

func scanCRLF(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := strings.Index(string(data), "\r\n"); i >= 0 {
		return i + 2, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
