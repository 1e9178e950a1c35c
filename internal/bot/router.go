package bot

import (
	"regexp"
	"strings"
)

// Command is what an inbound chat message asks for.
type Command int

const (
	CommandExpense Command = iota
	CommandHelp
	CommandReport
	CommandStart
)

func (c Command) String() string {
	switch c {
	case CommandHelp:
		return "help"
	case CommandReport:
		return "report"
	case CommandStart:
		return "start"
	default:
		return "expense"
	}
}

var periodArg = regexp.MustCompile(`^\d{4}-\d{1,2}$`)

// Classify routes a message. The returned argument is only set for
// "report YYYY-MM". Anything that is not a command is an expense.
func Classify(text string) (Command, string) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(text)))
	if len(fields) == 0 || len(fields) > 2 {
		return CommandExpense, ""
	}

	name := fields[0]
	if strings.HasPrefix(name, "/") {
		// Telegram group syntax: /report@MyExpenseBot
		if at := strings.IndexByte(name, '@'); at > 0 {
			name = name[:at]
		}
		name = name[1:]
	}

	switch {
	case name == "help" && len(fields) == 1:
		return CommandHelp, ""
	case name == "start" && len(fields) == 1:
		return CommandStart, ""
	case name == "report" && len(fields) == 1:
		return CommandReport, ""
	case name == "report" && periodArg.MatchString(fields[1]):
		return CommandReport, fields[1]
	}
	return CommandExpense, ""
}
