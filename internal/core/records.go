package core

import (
	"encoding/json"
	"fmt"
)

// DecodeExpenses parses a JSON array of expenses and applies the same rules
// as a write: amounts are normalized, categories take their canonical
// spelling and every record must validate. Errors name the zero-based index
// of the first bad record and wrap its sentinel.
func DecodeExpenses(data []byte) ([]Expense, error) {
	var records []Expense
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	for i := range records {
		if err := records[i].normalize(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return records, nil
}

func (e *Expense) normalize() error {
	amount, err := NormalizeAmount(e.Amount)
	if err != nil {
		return err
	}
	e.Amount = amount
	if c, err := ParseCategory(string(e.Category)); err == nil {
		e.Category = c
	}
	return e.Validate()
}
