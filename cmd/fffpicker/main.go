// Command fffpicker is a small demo binary exercising the picker's
// embedding API: it scans a workspace root, then serves interactive fuzzy
// queries from stdin until interrupted.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rybkr/fffpicker"
	"github.com/rybkr/fffpicker/internal/diag"
	"github.com/rybkr/fffpicker/internal/progress"
	"github.com/rybkr/fffpicker/internal/termcolor"
)

func main() {
	initLogger()

	root := flag.String("root", getEnv("FFFPICKER_ROOT", "."), "Workspace root to index")
	maxResults := flag.Int("max-results", atoiEnv("FFFPICKER_MAX_RESULTS", 50), "Maximum results per query")
	maxThreads := flag.Int("max-threads", atoiEnv("FFFPICKER_MAX_THREADS", 4), "Maximum scorer worker threads")
	diagAddr := flag.String("diag-addr", getEnv("FFFPICKER_DIAG_ADDR", ""), "Address for the optional diagnostics server (empty disables it)")
	colorFlag := flag.String("color", "auto", "Color output: auto, always, never")
	noColor := flag.Bool("no-color", false, "Disable color output")

	flag.Parse()

	colorMode := termcolor.ColorAuto
	if *noColor {
		colorMode = termcolor.ColorNever
	} else if *colorFlag != "auto" {
		var err error
		colorMode, err = termcolor.ParseColorMode(*colorFlag)
		if err != nil {
			slog.Error("invalid color flag", "value", *colorFlag, "err", err)
			os.Exit(1)
		}
	}
	cw := termcolor.NewWriter(os.Stdout, colorMode)

	spin := progress.New("Scanning workspace...")
	spin.Start()
	scanStart := time.Now()
	ok, err := fffpicker.InitFilePicker(*root)
	scanDur := time.Since(scanStart).Round(time.Millisecond)
	spin.Stop()

	if err != nil {
		slog.Error("failed to initialize picker", "root", *root, "err", err)
		os.Exit(1)
	}
	if !ok {
		slog.Error("picker already initialized")
		os.Exit(1)
	}

	files, _ := fffpicker.GetCachedFiles()
	fmt.Printf("%s %s\n", cw.BoldCyan("fffpicker"), cw.Green(fmt.Sprintf("%d files indexed", len(files))))
	fmt.Printf("  root:    %s  %s\n", *root, cw.Yellow(fmt.Sprintf("(scanned in %s)", scanDur)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var diagServer *diag.Server
	if *diagAddr != "" {
		diagServer, err = fffpicker.StartDiagServer(*diagAddr)
		if err != nil {
			slog.Error("failed to start diagnostics server", "err", err)
		} else {
			fmt.Printf("  diag:    http://%s\n", *diagAddr)
		}
	}

	go runREPL(ctx, *maxResults, *maxThreads, cw)

	<-ctx.Done()
	slog.Info("shutting down")
	if diagServer != nil {
		diagServer.Shutdown()
	}
	_ = fffpicker.StopBackgroundMonitor()
}

func runREPL(ctx context.Context, maxResults, maxThreads int, cw *termcolor.Writer) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println(cw.Bold("Type a query and press enter. Commands: :scan, :progress, :quit"))

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ":") {
			if !handleCommand(line, cw) {
				return
			}
			continue
		}

		result, err := fffpicker.FuzzySearchFiles(line, maxResults, maxThreads, "")
		if err != nil {
			fmt.Printf("%s %v\n", cw.Red("error:"), err)
			continue
		}

		for i, item := range result.Items {
			score := result.Scores[i]
			fmt.Printf("  %-50s %6d  %s\n", item.RelativePath, score.Total, score.MatchType)
		}
		fmt.Printf("%s\n", cw.Yellow(fmt.Sprintf("%d/%d matched", result.TotalMatched, result.TotalFiles)))
	}
}

var knownCommands = []string{":scan", ":progress", ":quit", ":help"}

func handleCommand(line string, cw *termcolor.Writer) bool {
	switch line {
	case ":scan":
		if err := fffpicker.ScanFiles(); err != nil {
			fmt.Printf("%s %v\n", cw.Red("error:"), err)
		}
		return true
	case ":progress":
		p, err := fffpicker.GetScanProgress()
		if err != nil {
			fmt.Printf("%s %v\n", cw.Red("error:"), err)
			return true
		}
		fmt.Printf("  scanned: %d/%d  scanning: %v\n", p.ScannedFiles, p.TotalFiles, p.IsScanning)
		return true
	case ":quit":
		return false
	case ":help":
		fmt.Println("  :scan      trigger a full rescan")
		fmt.Println("  :progress  show scan progress")
		fmt.Println("  :quit      exit")
		return true
	default:
		if suggestion := suggest(line, knownCommands); suggestion != "" {
			fmt.Printf("%s unknown command %q — did you mean %s?\n", cw.Yellow("hint:"), line, suggestion)
		} else {
			fmt.Printf("%s unknown command %q\n", cw.Yellow("hint:"), line)
		}
		return true
	}
}

// suggest returns the best matching candidate for input, or "" if no
// candidate is within the edit distance threshold max(2, len(input)/3).
func suggest(input string, candidates []string) string {
	if input == "" {
		return ""
	}
	threshold := max(2, len(input)/3)

	best := ""
	bestDist := threshold + 1
	for _, c := range candidates {
		d := levenshtein(input, c)
		if d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best
}

// levenshtein computes the edit distance between two strings using a
// single-row dynamic programming approach.
func levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	if len(a) > len(b) {
		a, b = b, a
	}

	row := make([]int, len(a)+1)
	for i := range row {
		row[i] = i
	}

	for j := 1; j <= len(b); j++ {
		prev := row[0]
		row[0] = j
		for i := 1; i <= len(a); i++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			tmp := row[i]
			row[i] = min(row[i]+1, min(row[i-1]+1, prev+cost))
			prev = tmp
		}
	}
	return row[len(a)]
}

// initLogger reads FFFPICKER_LOG_LEVEL and FFFPICKER_LOG_FORMAT from the
// environment and installs the corresponding slog.Handler as the default.
func initLogger() {
	level := slog.LevelInfo
	switch getEnv("FFFPICKER_LOG_LEVEL", "info") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if getEnv("FFFPICKER_LOG_FORMAT", "text") == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func atoiEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}
