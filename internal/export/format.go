package export

import (
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter renders scalars for display in the configured locale.
type Formatter struct {
	tag     language.Tag
	unit    currency.Unit
	symbol  string
	printer *message.Printer
	months  [12]string
}

var indonesianMonths = [12]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// NewFormatter builds a formatter for a BCP 47 locale and an ISO 4217 code.
func NewFormatter(locale, code string) (*Formatter, error) {
	if locale == "" {
		locale = "id-ID"
	}
	if code == "" {
		code = "IDR"
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("export: parse locale %q: %w", locale, err)
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, fmt.Errorf("export: parse currency %q: %w", code, err)
	}
	printer := message.NewPrinter(tag)
	f := &Formatter{
		tag:     tag,
		unit:    unit,
		symbol:  printer.Sprint(currency.Symbol(unit)),
		printer: printer,
	}
	base, _ := tag.Base()
	if base.String() == "id" {
		f.months = indonesianMonths
	} else {
		for i := range f.months {
			f.months[i] = time.Month(i + 1).String()
		}
	}
	return f, nil
}

// MustFormatter is NewFormatter for static configuration.
func MustFormatter(locale, code string) *Formatter {
	f, err := NewFormatter(locale, code)
	if err != nil {
		panic(err)
	}
	return f
}

// Locale returns the formatter's language tag.
func (f *Formatter) Locale() string { return f.tag.String() }

// Currency formats an amount with grouping and the currency symbol, for
// example "Rp 1.500.000". Fractions are kept only when the amount has one.
func (f *Formatter) Currency(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := 0
	if amount != math.Trunc(amount) {
		digits = 2
	}
	value := f.printer.Sprint(number.Decimal(amount, number.MaxFractionDigits(digits), number.MinFractionDigits(digits)))
	return sign + f.symbol + " " + value
}

// Number formats a plain number with locale grouping.
func (f *Formatter) Number(v float64) string {
	return f.printer.Sprint(number.Decimal(v, number.MaxFractionDigits(2)))
}

// Int formats an integer with locale grouping.
func (f *Formatter) Int(v int) string {
	return f.printer.Sprint(number.Decimal(v))
}

// Date formats t as "2 Januari 2024". Zero times render empty.
func (f *Formatter) Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return fmt.Sprintf("%d %s %d", t.Day(), f.months[t.Month()-1], t.Year())
}

// DateTime formats t as "2 Januari 2024 14:05".
func (f *Formatter) DateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return f.Date(t) + " " + t.Format("15:04")
}

// Label maps an enumeration value to its display label, falling back to the
// value with its first letter capitalised.
func (f *Formatter) Label(labels map[string]string, value string) string {
	if label, ok := labels[value]; ok {
		return label
	}
	if value == "" {
		return ""
	}
	return strings.ToUpper(value[:1]) + value[1:]
}

// Bool renders yes/no in the formatter's language.
func (f *Formatter) Bool(v bool) string {
	base, _ := f.tag.Base()
	switch {
	case base.String() == "id" && v:
		return "Ya"
	case base.String() == "id":
		return "Tidak"
	case v:
		return "Yes"
	default:
		return "No"
	}
}
