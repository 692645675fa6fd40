package model

// ClassificationResult is the outcome of running the rule engine over one
// transaction: the resulting value of each target field (unchanged or newly
// assigned) plus the ordered list of rule ids that contributed at least one
// field.
type ClassificationResult struct {
	CategoryID    *int64  `json:"category_id"`
	SubCategoryID *int64  `json:"sub_category_id"`
	PayeeID       *int64  `json:"payee_id"`
	PaymentMethod *string `json:"payment_method"`
	FiredRules    []int64 `json:"fired_rules"`
}

// Complete reports whether all four target fields hold a value, meaning no
// further rule can contribute anything.
func (r *ClassificationResult) Complete() bool {
	return r.CategoryID != nil && r.SubCategoryID != nil && r.PayeeID != nil && r.PaymentMethod != nil
}

// ApplyTo writes every newly assigned field back onto the transaction and
// reports whether anything changed. Fields the transaction already had keep
// their value.
func (r *ClassificationResult) ApplyTo(txn *Transaction) bool {
	changed := false
	if txn.CategoryID == nil && r.CategoryID != nil {
		txn.CategoryID = r.CategoryID
		changed = true
	}
	if txn.SubCategoryID == nil && r.SubCategoryID != nil {
		txn.SubCategoryID = r.SubCategoryID
		changed = true
	}
	if txn.PayeeID == nil && r.PayeeID != nil {
		txn.PayeeID = r.PayeeID
		changed = true
	}
	if txn.PaymentMethod == nil && r.PaymentMethod != nil {
		txn.PaymentMethod = r.PaymentMethod
		changed = true
	}
	return changed
}

// BulkStats summarizes one bulk reclassification run.
type BulkStats struct {
	RuleFires map[int64]int `json:"rule_fires"`
	Processed int           `json:"processed"`
	Changed   int           `json:"changed"`
	Unchanged int           `json:"unchanged"`
	Failed    int           `json:"failed"`
}
