package models

// CategoryType represents the type of category
type CategoryType string

const (
	CategoryTypeIncome   CategoryType = "income"
	CategoryTypeExpense  CategoryType = "expense"
	CategoryTypeTransfer CategoryType = "transfer"
)

// TransferCategoryName is the category that tags both legs of a transfer.
const TransferCategoryName = "Transfer"

// Category represents a transaction category
type Category struct {
	Base
	UserID      string       `gorm:"type:uuid;not null;index" json:"user_id"`
	Name        string       `gorm:"not null" json:"name"`
	Type        CategoryType `gorm:"not null" json:"type"`
	Description string       `json:"description"`
	ParentID    *string      `gorm:"type:uuid" json:"parent_id,omitempty"`

	Parent *Category `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
}
