package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/billed/internal/scanning"
	"github.com/zombor/billed/internal/store"
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

	fs := ff.NewFlagSet("billed-store")
	var (
		port        = fs.IntLong("port", 5678, "HTTP server port")
		publicURL   = fs.StringLong("public-url", "", "URL clients reach this store at, used in receipt links (default http://localhost:<port>)")
		dbPath      = fs.StringLong("db", "billed.db", "Database file path")
		backend     = fs.StringLong("storage-backend", "local", "Receipt storage: 'local' or 'gcs'")
		storagePath = fs.StringLong("storage", "./receipts", "Storage directory path (local backend)")
		gcsBucket   = fs.StringLong("gcs-bucket", "", "Google Cloud Storage bucket (gcs backend)")
		gcsPrefix   = fs.StringLong("gcs-prefix", "receipts/", "Object name prefix (gcs backend)")
		scannerType = fs.StringLong("scanner", "none", "Scanner type: 'none', 'gemini' or 'ollama'")
		geminiKey   = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL   = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, llava-phi3, qwen2-vl)")
		authUser    = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass    = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("BILLED_STORE"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	ctx := context.Background()

	slog.Info("Initializing database...", "path", *dbPath)
	db, err := store.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var scanner scanning.Scanner
	switch *scannerType {
	case "none":
		slog.Info("Receipt scanning disabled")
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini scanner...", "model", *geminiModel)
		gemini, err := scanning.NewGemini(ctx, apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
		defer gemini.Close()
		scanner = gemini
	case "ollama":
		slog.Info("Initializing Ollama scanner...", "url", *ollamaURL, "model", *ollamaModel)
		ollama, err := scanning.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama", "error", err)
			os.Exit(1)
		}
		defer ollama.Close()
		scanner = ollama
	default:
		slog.Error("Invalid scanner type", "type", *scannerType, "valid", "none, gemini or ollama")
		os.Exit(1)
	}

	var files store.Storage
	switch *backend {
	case "local":
		slog.Info("Initializing local storage...", "path", *storagePath)
		files, err = store.NewLocalStorage(*storagePath)
		if err != nil {
			slog.Error("Failed to initialize storage", "error", err)
			os.Exit(1)
		}
	case "gcs":
		if *gcsBucket == "" {
			slog.Error("A bucket is required for the gcs backend. Set --gcs-bucket")
			os.Exit(1)
		}
		slog.Info("Initializing Cloud Storage...", "bucket", *gcsBucket, "prefix", *gcsPrefix)
		gcs, err := store.NewGCSStorage(ctx, *gcsBucket, *gcsPrefix)
		if err != nil {
			slog.Error("Failed to initialize Cloud Storage", "error", err)
			os.Exit(1)
		}
		defer gcs.Close()
		files = gcs
	default:
		slog.Error("Invalid storage backend", "backend", *backend, "valid", "local or gcs")
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", *port)
	baseURL := *publicURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://localhost%s", addr)
	}

	billService := store.NewService(db, scanner, files, baseURL)
	server := store.NewServer(billService, store.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	})

	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", baseURL)
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
