package service

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	apperrors "luckysix/internal/errors"
)

const (
	drawSize  = 6
	numberMin = 1
	numberMax = 60
)

// validateNumbers re-checks what the form layer should already guarantee:
// exactly six distinct numbers, each in [1,60].
func validateNumbers(numbers []int) error {
	if len(numbers) != drawSize {
		return apperrors.ErrInvalidDraw
	}
	seen := map[int]bool{}
	for _, n := range numbers {
		if n < numberMin || n > numberMax || seen[n] {
			return apperrors.ErrInvalidDraw
		}
		seen[n] = true
	}
	return nil
}

// encodeNumbers sorts a copy ascending and space-joins it, the plaintext form
// a draw takes just before encryption. Storing sorted avoids false negatives
// from insertion order when rounds are matched.
func encodeNumbers(numbers []int) string {
	sorted := make([]int, len(numbers))
	copy(sorted, numbers)
	sort.Ints(sorted)

	parts := make([]string, len(sorted))
	for i, n := range sorted {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, " ")
}

// parseNumbers decodes a space-joined plaintext back into integers.
func parseNumbers(s string) ([]int, error) {
	fields := strings.Fields(s)
	numbers := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("parse draw numbers: %w", err)
		}
		numbers = append(numbers, n)
	}
	return numbers, nil
}

// equalNumbers compares two number sequences for exact equality. Both sides
// are sorted before comparison.
func equalNumbers(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	as := make([]int, len(a))
	copy(as, a)
	sort.Ints(as)
	bs := make([]int, len(b))
	copy(bs, b)
	sort.Ints(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
