// Command ilsimctl is a minimal demo client for ilsimd: it opens a
// connection with backoff, shows a connecting spinner, sends one line,
// and prints the colored reply.
package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/fatih/color"
	"github.com/theckman/yacspin"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Println("usage: ilsimctl <host:port> <line>")
		os.Exit(1)
	}
	addr := os.Args[1]
	line := os.Args[2]

	conn, err := dial(addr)
	if err != nil {
		color.Red("connect to %s: %v", addr, err)
		os.Exit(1)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(line + "\r\n")); err != nil {
		color.Red("write: %v", err)
		os.Exit(1)
	}

	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		color.Red("read: %v", err)
		os.Exit(1)
	}
	reply = strings.TrimRight(reply, "\r\n")

	if strings.HasPrefix(reply, "ER,") {
		color.Red(reply)
	} else {
		color.Green(reply)
	}
}

// dial connects to addr, retrying with exponential backoff and a
// connecting spinner the way comm.RemoteDevice.Open retries a
// flapping link rather than failing on the first timeout.
func dial(addr string) (net.Conn, error) {
	cfg := yacspin.Config{
		Frequency:       100 * time.Millisecond,
		CharSet:         yacspin.CharSets[9],
		Suffix:          " connecting to " + addr,
		SuffixAutoColon: true,
	}
	spinner, err := yacspin.New(cfg)
	if err == nil {
		spinner.Start()
		defer spinner.Stop()
	}

	var conn net.Conn
	op := func() error {
		c, err := net.DialTimeout("tcp", addr, time.Second)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = 5 * time.Second
	if err := backoff.Retry(op, b); err != nil {
		return nil, err
	}
	return conn, nil
}
