package core

import (
	"strings"
	"testing"
)

func TestBuildReportEmpty(t *testing.T) {
	if got := BuildReport(nil); got != EmptyReportMessage {
		t.Fatalf("unexpected empty report: %q", got)
	}
	if got := BuildReport([]Record{}); got != "📊 No expenses recorded yet.\n\nStart by sending me your daily expenses!" {
		t.Fatalf("unexpected empty report: %q", got)
	}
}

func TestBuildReportTie(t *testing.T) {
	records := []Record{
		{Category: "Food", Amount: 10},
		{Category: "Food", Amount: 5},
		{Category: "Gas", Amount: 15},
	}
	want := "📊 Monthly Expense Report\n\n" +
		"Food: $15.00 (50.0%)\n" +
		"Gas: $15.00 (50.0%)\n" +
		"\n💰 Total: $30.00" +
		"\n📈 Entries: 3"
	got := BuildReport(records)
	if got != want {
		t.Fatalf("report mismatch\n got: %q\nwant: %q", got, want)
	}
	if again := BuildReport(records); again != got {
		t.Fatalf("report is not idempotent")
	}
}

func TestBuildReportOrdering(t *testing.T) {
	records := []Record{
		{Category: "Coffee", Amount: 3.5},
		{Category: "Rent", Amount: 1000},
		{Category: "Coffee", Amount: 2.25},
		{Category: "coffee", Amount: 1},
		{Category: "Gas", Amount: 45.99},
	}
	got := BuildReport(records)
	lines := strings.Split(got, "\n")
	wantPrefixes := []string{"Rent: $1000.00", "Gas: $45.99", "Coffee: $5.75", "coffee: $1.00"}
	for i, p := range wantPrefixes {
		if !strings.HasPrefix(lines[2+i], p) {
			t.Fatalf("line %d = %q, want prefix %q\n%s", i, lines[2+i], p, got)
		}
	}
	if !strings.HasSuffix(got, "\n💰 Total: $1052.74\n📈 Entries: 5") {
		t.Fatalf("unexpected summary:\n%s", got)
	}
}

func TestAggregatePercentages(t *testing.T) {
	totals := Aggregate([]Record{
		{Category: "A", Amount: 1},
		{Category: "B", Amount: 2},
	})
	if totals.Entries != 2 || totals.Total.StringFixed(2) != "3.00" {
		t.Fatalf("unexpected totals: %+v", totals)
	}
	if got := totals.Percentage(totals.ByCategory[0].Amount).StringFixed(1); got != "66.7" {
		t.Fatalf("B percentage = %s", got)
	}
	if got := totals.Percentage(totals.ByCategory[1].Amount).StringFixed(1); got != "33.3" {
		t.Fatalf("A percentage = %s", got)
	}
}

func TestBuildReportZeroTotal(t *testing.T) {
	got := BuildReport([]Record{{Category: "Free", Amount: 0}})
	if !strings.Contains(got, "Free: $0.00 (0.0%)") {
		t.Fatalf("unexpected zero report: %q", got)
	}
}

func TestFilterPeriod(t *testing.T) {
	records := []Record{
		{Date: "2025-01-31", Category: "A", Amount: 1},
		{Date: "2025-02-01", Category: "B", Amount: 2},
		{Date: "garbage", Category: "C", Amount: 3},
		{Date: "2024-01-15", Category: "D", Amount: 4},
	}
	got := FilterPeriod(records, 2025, 1)
	if len(got) != 1 || got[0].Category != "A" {
		t.Fatalf("unexpected filter result: %+v", got)
	}
}
