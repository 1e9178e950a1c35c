package google

import (
	"testing"
)

func TestParseRows(t *testing.T) {
	values := [][]interface{}{
		{"Date", "Category", "Amount", "Note"},
		{"2025-07-01", "Coffee", 5.0},
		{"2025-07-02", "Lunch", "12,50", "team"},
		{"2025-07-03", "Gas", 45.99, "fuel"},
		{"2025-07-04", "Broken"},     // too short
		{},                           // blank row, not counted
		{"2025-07-05", "Bad", "abc"}, // bad amount
		{"2025-07-06", "", 3.0},      // empty category
		{"2025-07-07", "Neg", -2.0},  // negative
	}
	records, skipped := parseRows(values)
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d: %+v", len(records), records)
	}
	if skipped != 4 {
		t.Fatalf("expected 4 skipped rows, got %d", skipped)
	}
	if records[0].Category != "Coffee" || records[0].Amount != 5 || records[0].Note != "" {
		t.Fatalf("unexpected first record: %+v", records[0])
	}
	if records[1].Amount != 12.5 || records[1].Note != "team" {
		t.Fatalf("unexpected second record: %+v", records[1])
	}
	if records[2].Date != "2025-07-03" || records[2].Note != "fuel" {
		t.Fatalf("unexpected third record: %+v", records[2])
	}
}

func TestParseRowsWithoutHeader(t *testing.T) {
	values := [][]interface{}{
		{"2025-07-01", "Coffee", 5.0},
	}
	records, skipped := parseRows(values)
	if len(records) != 1 || skipped != 0 {
		t.Fatalf("unexpected result: %+v skipped=%d", records, skipped)
	}
}

func TestParseRowsEmpty(t *testing.T) {
	records, skipped := parseRows(nil)
	if len(records) != 0 || skipped != 0 {
		t.Fatalf("unexpected result: %+v skipped=%d", records, skipped)
	}
}
