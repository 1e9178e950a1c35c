package core

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestRecordValidate(t *testing.T) {
	cases := []struct {
		r   Record
		err error
	}{
		{Record{Date: "2025-01-01", Category: "Food", Amount: 1}, nil},
		{Record{Date: "2025-01-01", Category: "Food", Amount: 0}, nil},
		{Record{Category: "  ", Amount: 1}, ErrEmptyCategory},
		{Record{Category: "Food", Amount: -1}, ErrInvalidAmount},
		{Record{Category: "Food", Amount: math.NaN()}, ErrInvalidAmount},
		{Record{Category: "Food", Amount: math.Inf(1)}, ErrInvalidAmount},
	}
	for i, tc := range cases {
		err := tc.r.Validate()
		if !errors.Is(err, tc.err) {
			t.Fatalf("case %d: expected %v, got %v", i, tc.err, err)
		}
	}
}

func TestParsedExpenseRecord(t *testing.T) {
	p := ParsedExpense{
		Amount:   12.5,
		Currency: "$",
		Category: "Lunch",
		Note:     "with team",
		Date:     time.Date(2025, 3, 9, 23, 30, 0, 0, time.UTC),
	}
	r := p.Record()
	if r.Date != "2025-03-09" || r.Category != "Lunch" || r.Amount != 12.5 || r.Note != "with team" {
		t.Fatalf("unexpected record: %+v", r)
	}
}

func TestRecordPeriod(t *testing.T) {
	y, m, ok := Record{Date: "2024-11-30"}.Period()
	if !ok || y != 2024 || m != 11 {
		t.Fatalf("unexpected period: %d %d %v", y, m, ok)
	}
	if _, _, ok := (Record{Date: "11/30/2024"}).Period(); ok {
		t.Fatalf("expected non-ISO date to be rejected")
	}
}
