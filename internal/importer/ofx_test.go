package importer

import (
	"strings"
	"testing"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/monbudget/monbudget/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBankOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20241215120000[0:GMT]
<LANGUAGE>FRA
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>EUR
<BANKACCTFROM>
<BANKID>30004
<ACCTID>00012345678
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20241201120000[0:GMT]
<DTEND>20241215120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20241202120000[0:GMT]
<TRNAMT>-45.50
<FITID>2024120201
<NAME>PAIEMENT PAR CARTE Picnic Paris
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20241205120000[0:GMT]
<TRNAMT>2500.00
<FITID>2024120501
<NAME>VIR SEPA EMPLOYEUR
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20241210120000[0:GMT]
<TRNAMT>-9.99
<FITID>2024121001
<NAME>PURCHASE
<MEMO>NETFLIX.COM ABONNEMENT
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20241215120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

const sampleCreditCardOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20241215120000[0:GMT]
<LANGUAGE>FRA
</SONRS>
</SIGNONMSGSRSV1>
<CREDITCARDMSGSRSV1>
<CCSTMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<CCSTMTRS>
<CURDEF>EUR
<CCACCTFROM>
<ACCTID>4970111122223333
</CCACCTFROM>
<BANKTRANLIST>
<DTSTART>20241201120000[0:GMT]
<DTEND>20241215120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20241203120000[0:GMT]
<TRNAMT>-15.00
<FITID>CC2024120301
<NAME>SPOTIFY AB
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>-500.00
<DTASOF>20241215120000[0:GMT]
</LEDGERBAL>
</CCSTMTRS>
</CCSTMTTRNRS>
</CREDITCARDMSGSRSV1>
</OFX>`

func TestOFXParse(t *testing.T) {
	tests := []struct {
		name          string
		ofxData       string
		expectedCount int
		expectedError bool
	}{
		{
			name:          "bank statement",
			ofxData:       sampleBankOFX,
			expectedCount: 3,
		},
		{
			name:          "credit card statement",
			ofxData:       sampleCreditCardOFX,
			expectedCount: 1,
		},
		{
			name:          "invalid OFX data",
			ofxData:       "not valid OFX",
			expectedError: true,
		},
		{
			name:          "empty file",
			ofxData:       "",
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewOFXParser()
			transactions, err := parser.Parse(strings.NewReader(tt.ofxData))

			if tt.expectedError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Len(t, transactions, tt.expectedCount)
			}
		})
	}
}

func TestOFXParseBankTransactions(t *testing.T) {
	parser := NewOFXParser()

	transactions, err := parser.Parse(strings.NewReader(sampleBankOFX))
	require.NoError(t, err)
	require.Len(t, transactions, 3)

	groceries := transactions[0]
	assert.NotEmpty(t, groceries.ID)
	assert.Equal(t, "PAIEMENT PAR CARTE Picnic Paris", groceries.Label)
	assert.True(t, groceries.Amount.Equal(decimal.RequireFromString("45.50")))
	assert.Equal(t, model.DirectionDebit, groceries.Direction)
	assert.Equal(t, 2024, groceries.Date.Year())
	assert.Equal(t, time.December, groceries.Date.Month())
	assert.Equal(t, 2, groceries.Date.Day())

	salary := transactions[1]
	assert.Equal(t, "VIR SEPA EMPLOYEUR", salary.Label)
	assert.True(t, salary.Amount.Equal(decimal.RequireFromString("2500")))
	assert.Equal(t, model.DirectionCredit, salary.Direction)

	// Generic NAME falls through to the MEMO field.
	netflix := transactions[2]
	assert.Equal(t, "NETFLIX.COM ABONNEMENT", netflix.Label)
}

func TestOFXParseCreditCardTransactions(t *testing.T) {
	parser := NewOFXParser()

	transactions, err := parser.Parse(strings.NewReader(sampleCreditCardOFX))
	require.NoError(t, err)
	require.Len(t, transactions, 1)

	spotify := transactions[0]
	assert.Equal(t, "SPOTIFY AB", spotify.Label)
	assert.True(t, spotify.Amount.Equal(decimal.RequireFromString("15")))
	assert.Equal(t, model.DirectionDebit, spotify.Direction)
}

func TestOFXExtractLabel(t *testing.T) {
	parser := NewOFXParser()

	tests := []struct {
		name     string
		tx       ofxgo.Transaction
		expected string
	}{
		{
			name:     "name field",
			tx:       ofxgo.Transaction{Name: "CARREFOUR PARIS"},
			expected: "CARREFOUR PARIS",
		},
		{
			name:     "payee wins over name",
			tx:       ofxgo.Transaction{Name: "DEBIT", Payee: &ofxgo.Payee{Name: "Carrefour"}},
			expected: "Carrefour",
		},
		{
			name:     "memo replaces generic name",
			tx:       ofxgo.Transaction{Name: "PURCHASE", Memo: "AMAZON EU SARL"},
			expected: "AMAZON EU SARL",
		},
		{
			name:     "memo ignored when name is specific",
			tx:       ofxgo.Transaction{Name: "CARREFOUR PARIS", Memo: "CB 02/12"},
			expected: "CARREFOUR PARIS",
		},
		{
			name:     "whitespace trimmed",
			tx:       ofxgo.Transaction{Name: "  CARREFOUR  "},
			expected: "CARREFOUR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parser.extractLabel(tt.tx))
		})
	}
}

func TestPreprocessOFX(t *testing.T) {
	parser := NewOFXParser()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "leading blank lines trimmed",
			input:    "\n\n  OFXHEADER:100",
			expected: "OFXHEADER:100",
		},
		{
			name:     "mixed case severity uppercased",
			input:    "<SEVERITY>Info</SEVERITY>",
			expected: "<SEVERITY>INFO</SEVERITY>",
		},
		{
			name:     "missing closing bracket fixed",
			input:    "<BANKTRANLIST",
			expected: "<BANKTRANLIST>",
		},
		{
			name:     "well formed unchanged",
			input:    "<TRNAMT>-45.50",
			expected: "<TRNAMT>-45.50",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parser.preprocessOFX(tt.input))
		})
	}
}
