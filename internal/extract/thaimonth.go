package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// thaiMonths lists each month's full name and its dotted abbreviation.
var thaiMonths = [12][2]string{
	{"มกราคม", "ม.ค."},
	{"กุมภาพันธ์", "ก.พ."},
	{"มีนาคม", "มี.ค."},
	{"เมษายน", "เม.ย."},
	{"พฤษภาคม", "พ.ค."},
	{"มิถุนายน", "มิ.ย."},
	{"กรกฎาคม", "ก.ค."},
	{"สิงหาคม", "ส.ค."},
	{"กันยายน", "ก.ย."},
	{"ตุลาคม", "ต.ค."},
	{"พฤศจิกายน", "พ.ย."},
	{"ธันวาคม", "ธ.ค."},
}

// ThaiMonthLexicon maps every surface form of a Thai month seen on slips
// (full name, "ม.ค.", "ม.ค", "มค") to its two-digit month number.
// It is built once and must not be modified.
var ThaiMonthLexicon = buildThaiMonthLexicon()

func buildThaiMonthLexicon() map[string]string {
	lexicon := make(map[string]string, len(thaiMonths)*4)
	for i, names := range thaiMonths {
		month := fmt.Sprintf("%02d", i+1)
		full, abbr := names[0], names[1]
		lexicon[full] = month
		lexicon[abbr] = month
		lexicon[strings.TrimSuffix(abbr, ".")] = month
		lexicon[strings.ReplaceAll(abbr, ".", "")] = month
	}
	return lexicon
}

// thaiMonthAlternation returns a regexp alternation of all lexicon forms,
// longest first, so "มี.ค." wins over "มี.ค".
func thaiMonthAlternation() string {
	forms := make([]string, 0, len(ThaiMonthLexicon))
	for form := range ThaiMonthLexicon {
		forms = append(forms, form)
	}
	sort.Slice(forms, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(forms[i]), utf8.RuneCountInString(forms[j])
		if li != lj {
			return li > lj
		}
		return forms[i] < forms[j]
	})

	quoted := make([]string, len(forms))
	for i, form := range forms {
		quoted[i] = regexp.QuoteMeta(form)
	}
	return strings.Join(quoted, "|")
}
