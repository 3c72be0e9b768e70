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
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/slip-scanner/internal/inbox"
	"github.com/zombor/slip-scanner/internal/scanning"
	"github.com/zombor/slip-scanner/internal/scanning/tesseract"
	"github.com/zombor/slip-scanner/internal/slip"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func parseLogLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return l, fmt.Errorf("invalid log level %q", level)
	}
	return l, nil
}

func newRecognizer(kind, tesseractLangs, geminiKey, geminiModel, ollamaURL, ollamaModel string) (scanning.Recognizer, error) {
	switch kind {
	case "tesseract":
		slog.Info("Initializing Tesseract recognizer...", "languages", tesseractLangs)
		return tesseract.New(tesseractLangs)
	case "gemini":
		if geminiKey == "" {
			geminiKey = os.Getenv("GEMINI_API_KEY")
		}
		if geminiKey == "" {
			return nil, fmt.Errorf("gemini API key is required: set --gemini-key or GEMINI_API_KEY")
		}
		slog.Info("Initializing Gemini recognizer...", "model", geminiModel)
		return scanning.NewGemini(geminiKey, geminiModel)
	case "ollama":
		slog.Info("Initializing Ollama recognizer...", "url", ollamaURL, "model", ollamaModel)
		return scanning.NewOllama(ollamaURL, ollamaModel)
	default:
		return nil, fmt.Errorf("invalid recognizer %q: want tesseract, gemini or ollama", kind)
	}
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// a missing .env is fine; flags and the environment still apply
	_ = godotenv.Load()

	fs := ff.NewFlagSet("slip-scanner")
	var (
		port           = fs.IntLong("port", 8080, "HTTP server port")
		cacheDB        = fs.StringLong("cache-db", "slip-scanner.db", "Recognized text cache file path (empty disables caching)")
		cacheTTL       = fs.DurationLong("cache-ttl", 0, "Prune cached text older than this at startup (0 keeps everything)")
		recognizerType = fs.StringLong("recognizer", "tesseract", "Recognizer: 'tesseract', 'gemini' or 'ollama'")
		tesseractLangs = fs.StringLong("tesseract-langs", tesseract.DefaultLanguages, "Tesseract languages")
		geminiKey      = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel    = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL      = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel    = fs.StringLong("ollama-model", "qwen2.5vl:7b", "Ollama vision model name")
		authUser       = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass       = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		watchDir       = fs.StringLong("watch-dir", "", "Scan slip images dropped into this directory (optional)")
		archiveDir     = fs.StringLong("archive-dir", "", "Move watched slips here once scanned (optional)")
		logLevel       = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		showVersion    = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("SLIP_SCANNER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	level, err := parseLogLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	// Initialize cache
	var cache slip.TextCache = slip.NopCache{}
	if *cacheDB != "" {
		slog.Info("Initializing cache...", "path", *cacheDB)
		boltCache, err := slip.NewBoltCache(*cacheDB)
		if err != nil {
			slog.Error("Failed to initialize cache", "error", err)
			os.Exit(1)
		}
		if *cacheTTL > 0 {
			pruned, err := boltCache.Prune(time.Now().Add(-*cacheTTL))
			if err != nil {
				slog.Warn("Failed to prune cache", "error", err)
			} else {
				slog.Info("Pruned cache", "removed", pruned)
			}
		}
		cache = boltCache
	}
	defer cache.Close()

	recognizer, err := newRecognizer(*recognizerType, *tesseractLangs, *geminiKey, *geminiModel, *ollamaURL, *ollamaModel)
	if err != nil {
		slog.Error("Failed to initialize recognizer", "error", err)
		os.Exit(1)
	}
	defer recognizer.Close()

	slipService := slip.NewService(recognizer, cache)

	basicAuth := slip.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := slip.NewServer(slipService, basicAuth)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf(":%d", *port)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(addr)
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "recognizer", recognizer.Name())
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	watcherDone := make(chan error, 1)
	if *watchDir != "" {
		var archive *inbox.Archive
		if *archiveDir != "" {
			archive, err = inbox.NewArchive(*archiveDir)
			if err != nil {
				slog.Error("Failed to initialize archive", "error", err)
				os.Exit(1)
			}
		}
		watcher := inbox.NewWatcher(*watchDir, slipService, archive, os.Stdout, inbox.DefaultSettleDelay)
		go func() {
			watcherDone <- watcher.Run(ctx)
		}()
	} else {
		close(watcherDone)
	}

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			slog.Error("Server error", "error", err)
		}
		stop()
	}

	slog.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown error", "error", err)
	}
	if err := <-watcherDone; err != nil {
		slog.Error("Watcher error", "error", err)
	}
}
