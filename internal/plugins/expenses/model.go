// Package expenses implements personal expense records: paginated listing
// with category and date filters, creation, deletion, and the monthly and
// per-category aggregation views. Descriptions are encrypted at rest;
// every query is scoped to the owning user.
package expenses

import (
	"time"
)

// Category classifies an expense. Stored as its string name.
type Category string

const (
	CategoryBills          Category = "BILLS"
	CategoryEntertainment  Category = "ENTERTAINMENT"
	CategoryFood           Category = "FOOD"
	CategoryHealthcare     Category = "HEALTHCARE"
	CategoryOther          Category = "OTHER"
	CategoryShopping       Category = "SHOPPING"
	CategoryTransportation Category = "TRANSPORTATION"
)

// categories is the closed set of valid categories.
var categories = map[Category]bool{
	CategoryBills:          true,
	CategoryEntertainment:  true,
	CategoryFood:           true,
	CategoryHealthcare:     true,
	CategoryOther:          true,
	CategoryShopping:       true,
	CategoryTransportation: true,
}

// ValidCategory reports whether name is a known expense category.
func ValidCategory(name string) bool {
	return categories[Category(name)]
}

// dateLayout is the wire format for expense dates: date only, no time
// component.
const dateLayout = "2006-01-02"

// Expense is a single expense record. Date carries the day the expense
// occurred (date only); CreatedAt is the row's insertion time. The
// description is stored encrypted and only exists in plaintext in memory.
type Expense struct {
	ID          string    `json:"id"`
	UserID      string    `json:"-"`
	Amount      float64   `json:"amount"`
	Category    Category  `json:"category"`
	Description string    `json:"description"`
	Date        string    `json:"date"`
	CreatedAt   time.Time `json:"createdAt"`
}

// MonthlyTotal is one row of the monthly aggregation: total spend per
// calendar month inside the queried range.
type MonthlyTotal struct {
	Year  int     `json:"year"`
	Month int     `json:"month"`
	Total float64 `json:"total"`
}

// CategoryTotal is one row of the per-category aggregation over the user's
// whole history.
type CategoryTotal struct {
	Category Category `json:"category"`
	Total    float64  `json:"total"`
}

// --- Service DTOs ---

// CreateInput is the payload for creating an expense.
type CreateInput struct {
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
}

// ListQuery carries the optional list filters and pagination. Category and
// the date pair are mutually independent filters; when both dates are set
// they bound the range inclusively.
type ListQuery struct {
	Category  string
	StartDate string
	EndDate   string
	Page      int
	Size      int
}

// Page is the paginated list envelope.
type Page struct {
	Content       []Expense `json:"content"`
	Number        int       `json:"number"`
	Size          int       `json:"size"`
	TotalElements int       `json:"totalElements"`
	TotalPages    int       `json:"totalPages"`
}
