// Command pshell-server-demo hosts a PSHELL server with a handful of
// example commands, for exercising and demonstrating the four transports
// (spec §4.E). Grounded on cmd/minimega/main.go's flag/signal/banner
// wiring and cmd/miniccc's single-purpose-binary simplicity; unlike
// minimega, this demo registers its own small command set rather than
// exposing an application's real CLI.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/pshell-go/pshell/internal/config"
	"github.com/pshell-go/pshell/pkg/pshellcli"
	"github.com/pshell-go/pshell/pkg/pshelllog"
	"github.com/pshell-go/pshell/pkg/pshellserver"
)

const banner = `pshell-server-demo, a PSHELL process-specific embedded command shell demo server.`

var (
	fName     = flag.String("name", "demo", "server name, and prompt prefix")
	fTransport = flag.String("transport", "local", "transport: udp, tcp, unix, or local")
	fHost     = flag.String("host", pshellserver.AnyHost, "bind host (udp/tcp only): anyhost, localhost, anybcast, or a literal address")
	fPort     = flag.Int("port", 0, "bind port (udp/tcp only); 0 lets the OS choose")
	fTitle    = flag.String("title", "PSHELL Demo Server", "title reported to clients")
	fIdle     = flag.Duration("idle-timeout", 0, "idle session timeout (0 disables)")
	fLogLevel = flag.String("log-level", "warning", "log level: none, error, warning, or info")
	fVersion  = flag.Bool("version", false, "print the version and exit")
)

func usage() {
	fmt.Println(banner)
	fmt.Println("usage: pshell-server-demo [option]...")
	flag.PrintDefaults()
}

func parseLogLevel(s string) (pshelllog.Level, error) {
	switch strings.ToLower(s) {
	case "none":
		return pshelllog.None, nil
	case "error":
		return pshelllog.Error, nil
	case "warning":
		return pshelllog.Warning, nil
	case "info":
		return pshelllog.Info, nil
	}
	return pshelllog.Warning, fmt.Errorf("unrecognized log level %q", s)
}

func parseTransport(s string) (pshellserver.Transport, error) {
	switch strings.ToLower(s) {
	case "udp":
		return pshellserver.UDP, nil
	case "tcp":
		return pshellserver.TCP, nil
	case "unix":
		return pshellserver.Unix, nil
	case "local":
		return pshellserver.Local, nil
	}
	return pshellserver.Local, fmt.Errorf("unrecognized transport %q", s)
}

// registerDemoCommands adds the sample commands exercised by the demo:
// hello (spec §8 scenario 1/2), date, and uptime.
func registerDemoCommands(s *pshellserver.Server) {
	start := time.Now()

	s.AddCommand(pshellcli.Command{
		Name:        "hello",
		Description: "print a greeting for each argument",
		Usage:       "<arg> [arg ...]",
		MinArgs:     1,
		MaxArgs:     20,
		Callback: func(sink *pshellcli.Sink, args []string) {
			sink.Printf(true, "hello command dispatched:")
			for i, a := range args {
				sink.Printf(true, "  argv[%d]: '%s'", i, a)
			}
		},
	})

	s.AddCommand(pshellcli.Command{
		Name:        "date",
		Description: "show the current date and time",
		Callback: func(sink *pshellcli.Sink, args []string) {
			sink.Printf(true, "%s", time.Now().Format(time.RFC1123))
		},
	})

	s.AddCommand(pshellcli.Command{
		Name:        "uptime",
		Description: "show how long this server has been running",
		Callback: func(sink *pshellcli.Sink, args []string) {
			sink.Printf(true, "up %s", time.Since(start).Round(time.Second))
		},
	})
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *fVersion {
		fmt.Println("pshell-server-demo", pshellserver.Version)
		os.Exit(0)
	}

	level, err := parseLogLevel(*fLogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	pshelllog.SetLevel(level)

	transport, err := parseTransport(*fTransport)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	s := pshellserver.NewServer(*fName)
	s.Title = *fTitle
	s.IdleTimeout = *fIdle

	entries, err := config.LoadServerConfig()
	if err != nil {
		pshelllog.Warningf("pshell-server-demo: pshell-server.conf: %v", err)
	}
	params := config.ApplyServerConfig(entries, s.Name, config.ServerParams{
		Title: s.Title, Banner: s.Banner, Prompt: s.Prompt, Host: *fHost, Type: *fTransport, Port: *fPort,
	})
	s.Title, s.Banner, s.Prompt = params.Title, params.Banner, params.Prompt
	if params.TimeoutNone {
		s.IdleTimeout = 0
	} else if params.Timeout > 0 {
		s.IdleTimeout = time.Duration(params.Timeout) * time.Minute
	}
	if params.Type != *fTransport {
		if t, terr := parseTransport(params.Type); terr == nil {
			transport = t
		}
	}

	// Forward SIGINT/SIGTERM to a clean CleanupResources() call for the
	// long-running UDP/Unix case; TCP/Local already return from
	// StartServer when their accept loop ends.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		s.CleanupResources()
		os.Exit(0)
	}()

	registerDemoCommands(s)

	if startupPath, ok := config.StartupFile(s.Name); ok {
		lines, lerr := config.LoadLines(startupPath)
		if lerr != nil {
			pshelllog.Warningf("pshell-server-demo: startup file %s: %v", startupPath, lerr)
		}
		for _, line := range lines {
			s.RunCommand(line)
		}
	}

	if err := s.StartServer(transport, pshellserver.Blocking, params.Host, params.Port); err != nil {
		fmt.Fprintf(os.Stderr, "pshell-server-demo: %v\n", err)
		os.Exit(1)
	}
}
