package model

import "time"

// Category represents a transaction category. A category with a non-nil
// ParentID is a sub-category of that parent. The rule engine assigns category
// and sub-category independently, so a sub-category set by a later rule is not
// required to belong to the category set by an earlier one.
type Category struct {
	CreatedAt time.Time `json:"created_at"`
	ParentID  *int64    `json:"parent_id,omitempty"`
	Name      string    `json:"name"`
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
}

// IsSubCategory reports whether the category has a parent.
func (c *Category) IsSubCategory() bool {
	return c.ParentID != nil
}
