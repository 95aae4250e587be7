package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	CategoryFood           Category = "Food"
	CategoryTransportation Category = "Transportation"
	CategoryHousing        Category = "Housing"
	CategoryUtilities      Category = "Utilities"
	CategoryEntertainment  Category = "Entertainment"
	CategoryShopping       Category = "Shopping"
	CategoryHealthcare     Category = "Healthcare"
	CategoryOther          Category = "Other"
)

// MaxDescriptionLength bounds the free-text description of an expense.
const MaxDescriptionLength = 500

type (
	Category string

	// Expense is a single dated, categorized amount owned by one user.
	Expense struct {
		ID          string          `json:"id"`
		OwnerID     string          `json:"ownerId,omitempty"`
		Amount      decimal.Decimal `json:"amount"`
		Category    Category        `json:"category"`
		Description string          `json:"description"`
		Date        time.Time       `json:"date"`
		CreatedAt   time.Time       `json:"createdAt,omitzero"`
		UpdatedAt   time.Time       `json:"updatedAt,omitzero"`
	}

	// ExpenseFilter narrows a listing. Zero values mean "no constraint".
	ExpenseFilter struct {
		Category Category
		From     time.Time
		To       time.Time
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrMissingDate        = errors.New("date is required")
	ErrDescriptionTooLong = errors.New("description too long (max 500 characters)")
	ErrMissingOwner       = errors.New("owner is required")
	ErrNotFound           = errors.New("not found")

	// ErrExpenseNotFound and ErrUserNotFound both match ErrNotFound.
	ErrExpenseNotFound error = notFound("expense")
	ErrUserNotFound    error = notFound("user")
)

type notFound string

func (e notFound) Error() string { return string(e) + " not found" }

func (e notFound) Is(target error) bool { return target == ErrNotFound }

var categories = []Category{
	CategoryFood,
	CategoryTransportation,
	CategoryHousing,
	CategoryUtilities,
	CategoryEntertainment,
	CategoryShopping,
	CategoryHealthcare,
	CategoryOther,
}

// Categories returns the closed set of categories accepted on write.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// ParseCategory matches s case-insensitively against the known categories
// and returns the canonical spelling.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range categories {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", ErrInvalidCategory
}

func (c Category) Validate() error {
	if _, err := ParseCategory(string(c)); err != nil {
		return err
	}
	return nil
}

func (c Category) String() string {
	return string(c)
}

func (e Expense) Validate() error {
	if e.Amount.IsNegative() || e.Amount.GreaterThan(MaxAmount) {
		return ErrInvalidAmount
	}
	if err := e.Category.Validate(); err != nil {
		return err
	}
	if e.Date.IsZero() {
		return ErrMissingDate
	}
	if len([]rune(e.Description)) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return nil
}

// Matches reports whether e satisfies every constraint set on f.
// From and To are inclusive.
func (f ExpenseFilter) Matches(e Expense) bool {
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if !f.From.IsZero() && e.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.Date.After(f.To) {
		return false
	}
	return true
}
