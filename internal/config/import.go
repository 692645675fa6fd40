package config

import (
	"fmt"
	"unicode/utf8"

	"github.com/monbudget/monbudget/internal/common"
	"github.com/spf13/viper"
)

// ImportProfile describes how to read one bank's CSV export: which column
// holds what, the delimiter, and whether the file starts with a header line.
// Column indexes are zero-based; -1 means the column is absent.
type ImportProfile struct {
	Delimiter string
	NoHeader  bool
	Date      int
	Label     int
	Amount    int
	Debit     int
	Credit    int
}

// LoadImportProfile loads a named CSV import profile from configuration.
// Profiles live under import.profiles.<name>:
//
//	import:
//	  profiles:
//	    mabanque:
//	      delimiter: ";"
//	      date: 0
//	      label: 1
//	      debit: 2
//	      credit: 3
func LoadImportProfile(name string) (*ImportProfile, error) {
	sub := viper.Sub("import.profiles." + name)
	if sub == nil {
		return nil, fmt.Errorf("%w: import profile %q", common.ErrMissingConfig, name)
	}

	profile := &ImportProfile{
		Delimiter: ";",
		Date:      -1,
		Label:     -1,
		Amount:    -1,
		Debit:     -1,
		Credit:    -1,
	}

	if sub.IsSet("delimiter") {
		profile.Delimiter = sub.GetString("delimiter")
	}
	if utf8.RuneCountInString(profile.Delimiter) != 1 {
		return nil, fmt.Errorf("%w: import profile %q: delimiter must be a single character", common.ErrInvalidConfig, name)
	}
	profile.NoHeader = sub.GetBool("no_header")

	for key, target := range map[string]*int{
		"date":   &profile.Date,
		"label":  &profile.Label,
		"amount": &profile.Amount,
		"debit":  &profile.Debit,
		"credit": &profile.Credit,
	} {
		if sub.IsSet(key) {
			*target = sub.GetInt(key)
		}
	}

	return profile, nil
}
