package extract

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Direction is the money flow of a slip.
type Direction string

const (
	DirectionExpense Direction = "expense"
	DirectionIncome  Direction = "income"
)

// Note hints attached to every result, depending on whether an amount was found.
const (
	NoteAmountFound   = "สแกนจากสลิป"
	NoteAmountMissing = "สแกนจากสลิป (ไม่พบยอดเงิน กรุณากรอกเอง)"
)

// DateSource names the pattern family that produced Result.Date.
type DateSource string

const (
	DateFromThaiLongForm DateSource = "thai_long"
	DateFromNumeric      DateSource = "numeric"
	DateFromISO          DateSource = "iso"
	DateDefaulted        DateSource = "default"
)

// AmountSource names the tier that produced Result.Amount.
type AmountSource string

const (
	AmountFromLabel          AmountSource = "labeled"
	AmountFromLargestDecimal AmountSource = "largest_decimal"
	AmountFromLargestInteger AmountSource = "largest_integer"
	AmountNotFound           AmountSource = "none"
)

// Provenance records which heuristic produced each field.
type Provenance struct {
	DateSource   DateSource   `json:"date_source"`
	AmountSource AmountSource `json:"amount_source"`
}

// Result is the best-effort set of fields recovered from one slip.
// Amount is invalid (JSON null) when no amount could be determined.
type Result struct {
	Date       civil.Date          `json:"date"`
	Amount     decimal.NullDecimal `json:"amount"`
	Direction  Direction           `json:"direction"`
	Category   Category            `json:"category"`
	NoteHint   string              `json:"note_hint"`
	Provenance Provenance          `json:"provenance"`
}

// Partial reports whether the date fell back to today or no amount was found.
func (r Result) Partial() bool {
	return r.Provenance.DateSource == DateDefaulted || !r.Amount.Valid
}

func noteHint(amountFound bool) string {
	if amountFound {
		return NoteAmountFound
	}
	return NoteAmountMissing
}
