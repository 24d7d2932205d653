// Command ilsimd serves the line protocol simulator: run, mkconf, and
// version subcommands, mirroring cmd/multiserver's CLI shape.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"

	yml "gopkg.in/yaml.v2"

	"github.com/keyence-sim/ilsim/internal/bus"
	"github.com/keyence-sim/ilsim/internal/config"
	"github.com/keyence-sim/ilsim/internal/diag"
	"github.com/keyence-sim/ilsim/internal/protocol"
	"github.com/keyence-sim/ilsim/transport/serialline"
	"github.com/keyence-sim/ilsim/transport/tcpline"
)

// Version is the build version, injected via -ldflags at release time.
var Version = "dev"

func usage() {
	fmt.Println(`ilsimd simulates a Keyence-style IL series sensor bus over TCP.

Usage:
	ilsimd [configpath] <command>

Commands:
	run      start the daemon (default)
	mkconf   write the effective configuration as JSON to stdout
	version  print the version`)
}

func main() {
	args := os.Args[1:]
	cmd := "run"
	path := "config.json"
	switch len(args) {
	case 0:
	case 1:
		if args[0] == "mkconf" || args[0] == "version" || args[0] == "help" {
			cmd = args[0]
		} else {
			path = args[0]
		}
	default:
		path = args[0]
		cmd = args[1]
	}

	switch cmd {
	case "help":
		usage()
	case "version":
		fmt.Printf("ilsimd version %s\n", Version)
	case "mkconf":
		mkconf(path)
	case "run":
		run(path)
	default:
		log.Fatalf("unknown command %q", cmd)
	}
}

func mkconf(path string) {
	c, err := config.Load(path)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		log.Fatalf("encoding config: %v", err)
	}
	// Also emit a YAML rendering alongside the JSON one, the way
	// multiserver's mkconf/conf pair round-trips its config.
	if err := yml.NewEncoder(os.Stderr).Encode(c); err != nil {
		log.Fatalf("encoding config as yaml: %v", err)
	}
}

func run(path string) {
	c, err := config.Load(path)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	b, err := config.BuildBus(c)
	if err != nil {
		log.Fatalf("building bus: %v", err)
	}
	startAmplifiers(b)

	engine := protocol.New(b)
	srv := tcpline.NewServer(engine.Handle, 50, 5, log.New(os.Stderr, "tcpline: ", log.LstdFlags))
	srv.Reload = func() error {
		reloaded, err := config.Load(path)
		if err != nil {
			return err
		}
		newBus, err := config.BuildBus(reloaded)
		if err != nil {
			return err
		}
		startAmplifiers(newBus)
		b.ReplaceAmplifiers(newBus.Amplifiers())
		return nil
	}

	ln, err := net.Listen("tcp", c.Addr())
	if err != nil {
		log.Fatalf("listening on %s: %v", c.Addr(), err)
	}
	log.Printf("ilsimd listening on %s (%d sensors)", c.Addr(), b.Count())

	if c.SerialDevice != "" {
		go serialline.NewServer(c.SerialDevice, 9600, engine.Handle, log.New(os.Stderr, "serialline: ", log.LstdFlags)).Run(nil)
	}

	go func() {
		diagAddr := "127.0.0.1:64122"
		log.Printf("diag http listening on %s", diagAddr)
		if err := http.ListenAndServe(diagAddr, diag.Mux(b)); err != nil {
			log.Printf("diag http server stopped: %v", err)
		}
	}()

	log.Fatal(srv.Serve(ln))
}

func startAmplifiers(b *bus.Bus) {
	for _, a := range b.Amplifiers() {
		a.Start(context.Background())
	}
}
