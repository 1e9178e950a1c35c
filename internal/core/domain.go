package core

import (
	"errors"
	"math"
	"strings"
	"time"
)

// DateLayout is the layout used for Record.Date in every store.
const DateLayout = "2006-01-02"

const (
	DefaultCurrency = "$"
	DefaultCategory = "Other"
)

type (
	// ParsedExpense is the result of parsing one chat message.
	ParsedExpense struct {
		Amount   float64
		Currency string
		Category string
		Note     string
		Date     time.Time // set by the caller, not by ParseExpense
	}

	// Record is the persisted form of an expense, as read back for reports.
	Record struct {
		Date     string
		Category string
		Amount   float64
		Note     string
	}
)

var (
	ErrUnparseable   = errors.New("unparseable expense")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyCategory = errors.New("empty category")
)

// Record converts a parsed expense into its stored form.
func (p ParsedExpense) Record() Record {
	date := p.Date
	if date.IsZero() {
		date = time.Now()
	}
	return Record{
		Date:     date.UTC().Format(DateLayout),
		Category: p.Category,
		Amount:   p.Amount,
		Note:     p.Note,
	}
}

func (r Record) Validate() error {
	if strings.TrimSpace(r.Category) == "" {
		return ErrEmptyCategory
	}
	if math.IsNaN(r.Amount) || math.IsInf(r.Amount, 0) || r.Amount < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Period returns the year and month encoded in Date, if any.
func (r Record) Period() (year, month int, ok bool) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(r.Date))
	if err != nil {
		return 0, 0, false
	}
	return t.Year(), int(t.Month()), true
}
