package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/monbudget/monbudget/internal/common"
	"github.com/monbudget/monbudget/internal/model"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
)

// ColumnMapping maps CSV column indexes to transaction fields. Indexes are
// zero-based; use -1 for columns the file does not have. Either Amount (one
// signed column) or the Debit/Credit pair must be set, not both.
type ColumnMapping struct {
	Date   int
	Label  int
	Amount int
	Debit  int
	Credit int
}

// Validate checks that the mapping is usable.
func (m ColumnMapping) Validate() error {
	if m.Date < 0 {
		return fmt.Errorf("%w: date column is required", common.ErrBadColumnMapping)
	}
	if m.Label < 0 {
		return fmt.Errorf("%w: label column is required", common.ErrBadColumnMapping)
	}
	hasAmount := m.Amount >= 0
	hasPair := m.Debit >= 0 && m.Credit >= 0
	if hasAmount == hasPair {
		return fmt.Errorf("%w: need either an amount column or a debit/credit pair", common.ErrBadColumnMapping)
	}
	return nil
}

// RowError records a CSV line that could not be converted.
type RowError struct {
	Line int
	Err  error
}

// ParseReport details what happened to each line of a parsed file.
type ParseReport struct {
	Parsed  int
	Skipped int // blank lines and zero-amount rows
	Errors  []RowError
}

// CSVParser converts bank CSV exports into transactions.
type CSVParser struct {
	mapping       ColumnMapping
	delimiter     rune
	autoDelimiter bool
	hasHeader     bool
}

// CSVOption configures a CSVParser.
type CSVOption func(*CSVParser)

// WithDelimiter overrides the field delimiter. Without it the parser
// detects the delimiter from the first line of the file.
func WithDelimiter(delimiter rune) CSVOption {
	return func(p *CSVParser) {
		p.delimiter = delimiter
		p.autoDelimiter = false
	}
}

// WithoutHeader treats the first line as data instead of column names.
func WithoutHeader() CSVOption {
	return func(p *CSVParser) {
		p.hasHeader = false
	}
}

// NewCSVParser creates a parser for the given column mapping.
func NewCSVParser(mapping ColumnMapping, opts ...CSVOption) (*CSVParser, error) {
	if err := mapping.Validate(); err != nil {
		return nil, err
	}
	p := &CSVParser{
		mapping:       mapping,
		delimiter:     ';',
		autoDelimiter: true,
		hasHeader:     true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// DetectDelimiter inspects the first line of the sample and returns the most
// frequent candidate delimiter. Falls back to ';' when nothing matches.
func DetectDelimiter(sample string) rune {
	firstLine := sample
	if idx := strings.IndexByte(sample, '\n'); idx >= 0 {
		firstLine = sample[:idx]
	}

	best := ';'
	bestCount := 0
	for _, candidate := range []rune{';', ',', '\t', '|'} {
		if count := strings.Count(firstLine, string(candidate)); count > bestCount {
			best = candidate
			bestCount = count
		}
	}
	return best
}

// Parse reads the whole file and converts each line into a transaction.
// Rows with a zero amount or an empty label are skipped; rows with an
// unparseable date or amount are reported as errors. Both cases leave the
// rest of the file unaffected.
func (p *CSVParser) Parse(reader io.Reader) ([]model.Transaction, *ParseReport, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	content = toUTF8(content)

	delimiter := p.delimiter
	if p.autoDelimiter {
		delimiter = DetectDelimiter(string(content))
	}

	r := csv.NewReader(strings.NewReader(string(content)))
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	report := &ParseReport{}
	var transactions []model.Transaction

	line := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("malformed CSV at line %d: %w", line+1, err)
		}
		line++

		if p.hasHeader && line == 1 {
			continue
		}
		if isBlank(record) {
			report.Skipped++
			continue
		}

		txn, skip, err := p.convertRow(record)
		if err != nil {
			report.Errors = append(report.Errors, RowError{Line: line, Err: err})
			continue
		}
		if skip {
			report.Skipped++
			continue
		}

		report.Parsed++
		transactions = append(transactions, txn)
	}

	return transactions, report, nil
}

func (p *CSVParser) convertRow(record []string) (model.Transaction, bool, error) {
	amount, err := p.rowAmount(record)
	if err != nil {
		return model.Transaction{}, false, err
	}
	if amount.IsZero() {
		return model.Transaction{}, true, nil
	}

	label := strings.TrimSpace(field(record, p.mapping.Label))
	if label == "" {
		return model.Transaction{}, true, nil
	}

	date, err := ParseDate(field(record, p.mapping.Date))
	if err != nil {
		return model.Transaction{}, false, err
	}

	direction := model.DirectionCredit
	if amount.IsNegative() {
		direction = model.DirectionDebit
	}

	return model.Transaction{
		ID:        uuid.NewString(),
		Date:      date,
		Label:     label,
		Amount:    amount.Abs(),
		Direction: direction,
	}, false, nil
}

// rowAmount computes the signed amount: credit minus debit when the mapping
// uses the two-column form, otherwise the single signed column.
func (p *CSVParser) rowAmount(record []string) (decimal.Decimal, error) {
	if p.mapping.Amount >= 0 {
		return ParseAmount(field(record, p.mapping.Amount))
	}

	debit, err := ParseAmount(field(record, p.mapping.Debit))
	if err != nil {
		return decimal.Zero, fmt.Errorf("debit column: %w", err)
	}
	credit, err := ParseAmount(field(record, p.mapping.Credit))
	if err != nil {
		return decimal.Zero, fmt.Errorf("credit column: %w", err)
	}
	if credit.IsPositive() {
		return credit, nil
	}
	return debit.Abs().Neg(), nil
}

// ParseDate accepts the two formats seen in bank exports: DD/MM/YYYY and
// ISO YYYY-MM-DD.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{"02/01/2006", "2006-01-02"} {
		if date, err := time.Parse(layout, value); err == nil {
			return date, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

// ParseAmount parses French ("1 234,56") and plain ("1234.56") amount
// formats. An empty field parses as zero, matching the blank debit or credit
// cell of a two-column export.
func ParseAmount(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, nil
	}
	value = strings.ReplaceAll(value, " ", "")
	value = strings.ReplaceAll(value, " ", "") // non-breaking thousands separator
	value = strings.ReplaceAll(value, ",", ".")

	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unrecognized amount %q", value)
	}
	return amount, nil
}

// toUTF8 converts Windows-1252/ISO-8859-1 exports to UTF-8. Valid UTF-8
// passes through untouched.
func toUTF8(content []byte) []byte {
	if utf8.Valid(content) {
		return content
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(content)
	if err != nil {
		return content
	}
	return decoded
}

func isBlank(record []string) bool {
	for _, value := range record {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}

func field(record []string, index int) string {
	if index < 0 || index >= len(record) {
		return ""
	}
	return record[index]
}
