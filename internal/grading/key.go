// Package grading decides whether a raw response to an item is correct.
package grading

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/abhisek/adaptest/internal/itembank"
)

// KeyEvaluator compares responses with the item's answer key.
//
// Responses are trimmed and compared case-insensitively. Integer, decimal
// and fraction answers compare by value, so "007", "3.50" and "2/4" match
// "7", "3.5" and "1/2". Multiple choice accepts the 1-based choice number
// or the choice text. Text compares with whitespace runs collapsed.
type KeyEvaluator struct{}

func (KeyEvaluator) Evaluate(_ context.Context, it itembank.Item, raw string) (bool, error) {
	if strings.TrimSpace(it.Answer) == "" {
		return false, fmt.Errorf("item %q has no answer key", it.ID)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, nil
	}

	switch it.Format {
	case itembank.FormatMultipleChoice:
		return matchChoice(raw, it), nil
	case itembank.FormatInteger, itembank.FormatDecimal, itembank.FormatFraction:
		return sameNumber(raw, it.Answer), nil
	default:
		return sameText(raw, it.Answer), nil
	}
}

func matchChoice(raw string, it itembank.Item) bool {
	if n, err := strconv.Atoi(raw); err == nil && n >= 1 && n <= len(it.Choices) {
		return sameText(it.Choices[n-1], it.Answer)
	}
	return sameText(raw, it.Answer)
}

// sameNumber compares exact rationals so "0.1" and "1/10" are equal.
// Unparseable input is simply wrong.
func sameNumber(raw, key string) bool {
	got, ok := new(big.Rat).SetString(strings.ReplaceAll(raw, " ", ""))
	if !ok {
		return false
	}
	want, ok := new(big.Rat).SetString(strings.ReplaceAll(strings.TrimSpace(key), " ", ""))
	if !ok {
		return false
	}
	return got.Cmp(want) == 0
}

func sameText(a, b string) bool {
	return strings.EqualFold(strings.Join(strings.Fields(a), " "), strings.Join(strings.Fields(b), " "))
}
