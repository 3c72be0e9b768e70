package extract

import (
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Engine turns recognized slip text into form fields. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	timeSource TimeSource
}

// New creates an Engine that reads today's date from the wall clock.
func New() *Engine {
	return NewWithClock(&defaultTimeSource{})
}

// NewWithClock creates an Engine with a custom time source for testing
func NewWithClock(timeSrc TimeSource) *Engine {
	return &Engine{timeSource: timeSrc}
}

// Extract runs every stage over raw and assembles the result. It never
// fails; text with nothing recognizable yields today's date, no amount and
// the other category.
func (e *Engine) Extract(raw string) Result {
	text := Normalize(raw)

	timeSrc := e.timeSource
	if timeSrc == nil {
		timeSrc = &defaultTimeSource{}
	}
	date, dateSource := ExtractDate(text, timeSrc.Now())
	amount, amountSource, found := ExtractAmount(text)

	result := Result{
		Date:      date,
		Direction: DirectionExpense,
		Category:  GuessCategory(text),
		NoteHint:  noteHint(found),
		Provenance: Provenance{
			DateSource:   dateSource,
			AmountSource: amountSource,
		},
	}
	if found {
		result.Amount = decimal.NewNullDecimal(amount)
	}

	slog.Debug("Extracted slip fields",
		"date", result.Date.String(),
		"date_source", dateSource,
		"amount_source", amountSource,
		"category", result.Category,
		"text_length", len(raw),
	)

	return result
}

var defaultEngine = New()

// Extract runs the default wall-clock engine over raw.
func Extract(raw string) Result {
	return defaultEngine.Extract(raw)
}
