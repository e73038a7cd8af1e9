package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/billed/internal/remote"
	"github.com/zombor/billed/internal/session"
	"github.com/zombor/billed/internal/web"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("billed")
	var (
		port          = fs.IntLong("port", 8080, "HTTP server port")
		storeURL      = fs.StringLong("store-url", "http://localhost:5678", "Bill store base URL")
		storeUser     = fs.StringLong("store-user", "", "Bill store basic auth username (optional)")
		storePass     = fs.StringLong("store-pass", "", "Bill store basic auth password (optional)")
		storeTimeout  = fs.DurationLong("store-timeout", 30*time.Second, "Bill store request timeout")
		sessionDB     = fs.StringLong("session-db", "", "Session database file path (sessions are kept in memory when empty)")
		formTTL       = fs.DurationLong("form-ttl", 2*time.Hour, "How long an unsubmitted new bill form is kept")
		secureCookies = fs.BoolLong("secure-cookies", "Mark the session cookie Secure (serve behind TLS)")
		showVersion   = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("BILLED"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	client, err := remote.NewClient(remote.Config{
		BaseURL:  *storeURL,
		Username: *storeUser,
		Password: *storePass,
		Timeout:  *storeTimeout,
	})
	if err != nil {
		slog.Error("Failed to initialize store client", "error", err)
		os.Exit(1)
	}

	var sessions session.Storage
	if *sessionDB != "" {
		slog.Info("Initializing session database...", "path", *sessionDB)
		bolt, err := session.NewBoltStorage(*sessionDB)
		if err != nil {
			slog.Error("Failed to initialize session database", "error", err)
			os.Exit(1)
		}
		defer bolt.Close()
		sessions = bolt
	} else {
		sessions = session.NewMemoryStorage()
	}

	opts := []web.Option{web.WithFormTTL(*formTTL)}
	if *secureCookies {
		opts = append(opts, web.WithSecureCookies())
	}
	server := web.NewServer(client, sessions, opts...)

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "store", *storeURL)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
