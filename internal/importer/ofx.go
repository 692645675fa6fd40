package importer

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/google/uuid"
	"github.com/monbudget/monbudget/internal/model"
	"github.com/shopspring/decimal"
)

// OFXParser converts OFX/QFX bank exports into transactions.
type OFXParser struct{}

// NewOFXParser creates a new OFX parser.
func NewOFXParser() *OFXParser {
	return &OFXParser{}
}

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	tagFixRegex   = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// preprocessOFX fixes common formatting issues in real-world OFX files before
// handing them to the parser: leading blank lines, mixed-case SEVERITY values,
// and SGML-style tags missing their closing bracket.
func (p *OFXParser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
	content = tagFixRegex.ReplaceAllString(content, "$1>")
	return content
}

// Parse reads an OFX/QFX file and returns its transactions. Statements that
// fail to convert are logged and skipped; the rest of the file is kept.
func (p *OFXParser) Parse(reader io.Reader) ([]model.Transaction, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var transactions []model.Transaction
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			transactions = append(transactions, p.convertStatement(stmt.BankTranList)...)
		}
	}

	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			transactions = append(transactions, p.convertStatement(stmt.BankTranList)...)
		}
	}

	slog.Info("Parsed OFX file",
		"total_transactions", len(transactions),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return transactions, nil
}

func (p *OFXParser) convertStatement(list *ofxgo.TransactionList) []model.Transaction {
	if list == nil {
		return nil
	}

	var transactions []model.Transaction
	for _, ofxTx := range list.Transactions {
		txn, err := p.convertTransaction(ofxTx)
		if err != nil {
			slog.Warn("Skipping OFX transaction",
				"fitid", string(ofxTx.FiTID),
				"error", err)
			continue
		}
		transactions = append(transactions, txn)
	}
	return transactions
}

func (p *OFXParser) convertTransaction(ofxTx ofxgo.Transaction) (model.Transaction, error) {
	// OFX amounts are signed: negative means money out.
	amount, err := decimal.NewFromString(ofxTx.TrnAmt.FloatString(2))
	if err != nil {
		return model.Transaction{}, fmt.Errorf("bad amount: %w", err)
	}

	label := p.extractLabel(ofxTx)
	if label == "" {
		return model.Transaction{}, fmt.Errorf("transaction has no label")
	}

	direction := model.DirectionCredit
	if amount.IsNegative() {
		direction = model.DirectionDebit
	}

	return model.Transaction{
		ID:        uuid.NewString(),
		Date:      ofxTx.DtPosted.Time,
		Label:     label,
		Amount:    amount.Abs(),
		Direction: direction,
	}, nil
}

// extractLabel picks the most descriptive text for a transaction so the
// automation rules have something meaningful to match against.
func (p *OFXParser) extractLabel(ofxTx ofxgo.Transaction) string {
	if ofxTx.Payee != nil && ofxTx.Payee.Name != "" {
		return strings.TrimSpace(string(ofxTx.Payee.Name))
	}

	name := strings.TrimSpace(string(ofxTx.Name))
	if ofxTx.Memo != "" && isGenericDescription(name) {
		name = strings.TrimSpace(string(ofxTx.Memo))
	}
	return name
}

// isGenericDescription reports whether a transaction name carries no
// merchant information.
func isGenericDescription(name string) bool {
	switch strings.ToUpper(name) {
	case "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE":
		return true
	}
	return false
}
