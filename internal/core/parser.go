package core

import (
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ParseExpense turns one line of chat text into a ParsedExpense.
//
// The first numeric token (an optional "$" followed by digits, optionally
// followed by "." and more digits) is the amount. Text before it yields the
// category, text after it is kept verbatim as the note:
//
//	"Coffee 5"       -> Coffee, 5
//	"Lunch $12.50"   -> Lunch, 12.5
//	"Gas 45.99 fuel" -> Gas, 45.99, note "fuel"
//
// Text without any digit returns ErrUnparseable. The returned Date is zero;
// callers stamp it.
func ParseExpense(text string) (exp ParsedExpense, err error) {
	defer func() {
		if r := recover(); r != nil {
			exp, err = ParsedExpense{}, ErrUnparseable
		}
	}()

	text = strings.TrimSpace(text)

	tok, ok := scanAmount(text)
	if !ok {
		return ParsedExpense{}, ErrUnparseable
	}

	digits := strings.TrimSuffix(text[tok.digitsStart:tok.end], ".")
	amount, perr := strconv.ParseFloat(digits, 64)
	if perr != nil || math.IsInf(amount, 0) || math.IsNaN(amount) {
		return ParsedExpense{}, ErrUnparseable
	}

	note := strings.TrimSpace(text[tok.end:])

	category := letterRun(strings.TrimSpace(text[:tok.start]))
	if category == "" && note != "" {
		category = firstNoteToken(note)
	}
	if category == "" {
		category = DefaultCategory
	}

	return ParsedExpense{
		Amount:   amount,
		Currency: DefaultCurrency,
		Category: titleCase(category),
		Note:     note,
	}, nil
}

type amountToken struct {
	start       int // includes the currency symbol when present
	digitsStart int
	end         int
}

// scanAmount finds the leftmost `\$?\d+\.?\d*` in s.
func scanAmount(s string) (amountToken, bool) {
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '$' && i+1 < len(s) && isDigit(s[i+1]):
			return amountToken{start: i, digitsStart: i + 1, end: scanNumber(s, i+1)}, true
		case isDigit(s[i]):
			return amountToken{start: i, digitsStart: i, end: scanNumber(s, i)}, true
		}
	}
	return amountToken{}, false
}

func scanNumber(s string, i int) int {
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
		}
	}
	return i
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// letterRun returns the first run of letters and whitespace in s, trimmed.
func letterRun(s string) string {
	start := -1
	for i, r := range s {
		inRun := unicode.IsLetter(r) || unicode.IsSpace(r)
		if start < 0 {
			if inRun {
				start = i
			}
			continue
		}
		if !inRun {
			return strings.TrimSpace(s[start:i])
		}
	}
	if start < 0 {
		return ""
	}
	return strings.TrimSpace(s[start:])
}

// firstNoteToken splits on every whitespace or parenthesis rune and returns
// the first piece, which is empty when the note starts with a separator.
func firstNoteToken(note string) string {
	end := strings.IndexFunc(note, func(r rune) bool {
		return unicode.IsSpace(r) || r == '(' || r == ')'
	})
	if end < 0 {
		return note
	}
	return note[:end]
}

// titleCase upper-cases the first letter of each space separated word and
// lower-cases the rest, using Unicode case mapping.
func titleCase(s string) string {
	words := strings.Split(s, " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}
