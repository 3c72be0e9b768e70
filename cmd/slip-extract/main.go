package main

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/zombor/slip-scanner/internal/extract"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

// fixedClock pins "today" for --today
type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, ff.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := ff.NewFlagSet("slip-extract")
	var (
		format      = fs.StringLong("format", "json", "Output format: 'json' or 'text'")
		today       = fs.StringLong("today", "", "Treat this date (YYYY-MM-DD) as today")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix("SLIP_EXTRACT")); err != nil {
		fmt.Fprintf(stdout, "%s\n", ffhelp.Flags(fs))
		return err
	}

	if *showVersion {
		fmt.Fprintln(stdout, version)
		return nil
	}

	if *format != "json" && *format != "text" {
		return fmt.Errorf("invalid format %q: want json or text", *format)
	}

	engine := extract.New()
	if *today != "" {
		date, err := civil.ParseDate(*today)
		if err != nil {
			return fmt.Errorf("parsing --today: %w", err)
		}
		engine = extract.NewWithClock(fixedClock{now: date.In(time.Local)})
	}

	text, err := readInput(fs.GetArgs(), stdin)
	if err != nil {
		return err
	}

	result := engine.Extract(text)
	if *format == "text" {
		return writeSummary(stdout, result)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(result)
}

// readInput reads the named file, or stdin when no file (or "-") is given
func readInput(args []string, stdin io.Reader) (string, error) {
	if len(args) > 1 {
		return "", fmt.Errorf("expected at most one input file, got %d", len(args))
	}
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", args[0], err)
	}
	return string(data), nil
}

func writeSummary(w io.Writer, result extract.Result) error {
	p := message.NewPrinter(language.Thai)

	amount := "-"
	if result.Amount.Valid {
		amount = p.Sprintf("฿%.2f", result.Amount.Decimal.InexactFloat64())
	}
	info := result.Category.Info()

	_, err := fmt.Fprintf(w,
		"วันที่:    %s (%s)\nยอดเงิน:  %s (%s)\nประเภท:  %s %s\nหมายเหตุ: %s\n",
		result.Date, result.Provenance.DateSource,
		amount, result.Provenance.AmountSource,
		info.Icon, info.Label,
		result.NoteHint,
	)
	return err
}
