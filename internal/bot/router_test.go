package bot

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		in  string
		cmd Command
		arg string
	}{
		{"help", CommandHelp, ""},
		{"  /HELP ", CommandHelp, ""},
		{"/help@ExpenseBot", CommandHelp, ""},
		{"report", CommandReport, ""},
		{"/report", CommandReport, ""},
		{"/report@ExpenseBot", CommandReport, ""},
		{"/report 2025-01", CommandReport, "2025-01"},
		{"report 2025-3", CommandReport, "2025-3"},
		{"/start", CommandStart, ""},
		{"start", CommandStart, ""},
		{"help me", CommandExpense, ""},
		{"report lunch 5", CommandExpense, ""},
		{"report 12", CommandExpense, ""},
		{"Coffee 5", CommandExpense, ""},
		{"", CommandExpense, ""},
		{"/", CommandExpense, ""},
		{"helpful 4", CommandExpense, ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			cmd, arg := Classify(tt.in)
			if cmd != tt.cmd || arg != tt.arg {
				t.Fatalf("Classify(%q) = %v,%q want %v,%q", tt.in, cmd, arg, tt.cmd, tt.arg)
			}
		})
	}
}
