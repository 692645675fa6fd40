package model

import "time"

// Payee represents a counterparty (merchant, employer, organization) a
// transaction can be attributed to.
type Payee struct {
	CreatedAt time.Time `json:"created_at"`
	Name      string    `json:"name"`
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
}

// Account represents a bank account transactions belong to.
type Account struct {
	CreatedAt time.Time `json:"created_at"`
	Name      string    `json:"name"`
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
}
