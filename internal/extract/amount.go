package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// keyword then number: "ยอดโอน 1250.00", "Total: 45"; "Subtotal" is not a total
	keywordAmountRe = regexp.MustCompile(`(?i)(?:\b(?:amount|total)\b|จำนวนเงิน|ยอดเงิน|ยอดโอน|ยอดชำระ|ยอดรวม|รวม)\s*:?\s*(?:฿|thb)?\s*(\d+(?:\.\d+)?)`)
	// number then currency: "1250.00 บาท", "45 THB"
	currencyAmountRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:บาท|baht|thb|บ\.|฿)`)

	numericTokenRe = regexp.MustCompile(`[\d.]+`)
	decimalShapeRe = regexp.MustCompile(`^\d+\.\d{2}$`)
	digitRunRe     = regexp.MustCompile(`\d+`)
)

// Bare integers inside these inclusive bands are most likely Buddhist Era
// or Gregorian years and are never taken as amounts.
var yearNoiseBands = [][2]int64{
	{2500, 2600},
	{2000, 2100},
}

// amountTier is one stage of the amount search. Tiers run in order and the
// first one that finds a positive amount wins.
type amountTier struct {
	source AmountSource
	find   func(text string) (decimal.Decimal, bool)
}

var amountTiers = []amountTier{
	{source: AmountFromLabel, find: labeledAmount},
	{source: AmountFromLargestDecimal, find: largestDecimal},
	{source: AmountFromLargestInteger, find: largestPlausibleInteger},
}

// ExtractAmount finds the transaction amount in normalized text. The bool is
// false when no tier produced a positive amount.
func ExtractAmount(text string) (decimal.Decimal, AmountSource, bool) {
	for _, tier := range amountTiers {
		if amount, ok := tier.find(text); ok {
			return amount, tier.source, true
		}
	}
	return decimal.Zero, AmountNotFound, false
}

func labeledAmount(text string) (decimal.Decimal, bool) {
	for _, re := range []*regexp.Regexp{keywordAmountRe, currencyAmountRe} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			amount, err := decimal.NewFromString(m[1])
			if err != nil || !amount.IsPositive() {
				continue
			}
			return amount, true
		}
	}
	return decimal.Zero, false
}

func largestDecimal(text string) (decimal.Decimal, bool) {
	var (
		best  decimal.Decimal
		found bool
	)
	for _, token := range numericTokenRe.FindAllString(text, -1) {
		token = strings.Trim(token, ".")
		if !decimalShapeRe.MatchString(token) {
			continue
		}
		amount, err := decimal.NewFromString(token)
		if err != nil || !amount.IsPositive() {
			continue
		}
		if !found || amount.GreaterThan(best) {
			best, found = amount, true
		}
	}
	return best, found
}

func largestPlausibleInteger(text string) (decimal.Decimal, bool) {
	var (
		best  decimal.Decimal
		found bool
	)
	for _, run := range digitRunRe.FindAllString(text, -1) {
		amount, err := decimal.NewFromString(run)
		if err != nil || !amount.IsPositive() || inYearNoiseBand(amount) {
			continue
		}
		if !found || amount.GreaterThan(best) {
			best, found = amount, true
		}
	}
	return best, found
}

func inYearNoiseBand(amount decimal.Decimal) bool {
	for _, band := range yearNoiseBands {
		if amount.GreaterThanOrEqual(decimal.NewFromInt(band[0])) &&
			amount.LessThanOrEqual(decimal.NewFromInt(band[1])) {
			return true
		}
	}
	return false
}
