package dto

import (
	"strconv"
	"strings"

	apperrors "github.com/spec-kit/raffle-service/pkg/util"
)

// Params is the flat key-value bag an action reads its inputs from. Query
// values override body values; every value arrives as a string.
type Params map[string]string

// Has reports whether key was provided at all.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Str returns the trimmed value for key.
func (p Params) Str(key string) string {
	return strings.TrimSpace(p[key])
}

// Int parses key as an integer. Absent or blank yields fallback; a present
// non-numeric value fails as invalid input.
func (p Params) Int(key string, fallback int) (int, error) {
	value := p.Str(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, apperrors.NewInvalidInput(key+" must be an integer", nil)
	}
	return parsed, nil
}

// IntList parses key as a comma-separated integer list. Surrounding
// brackets are tolerated so JSON-style arrays parse too.
func (p Params) IntList(key string) ([]int, error) {
	value := strings.Trim(p.Str(key), "[]")
	if value == "" {
		return nil, nil
	}

	parts := strings.Split(value, ",")
	numbers := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		parsed, err := strconv.Atoi(part)
		if err != nil {
			return nil, apperrors.NewInvalidInput(key+" must be a comma-separated list of integers", nil)
		}
		numbers = append(numbers, parsed)
	}
	return numbers, nil
}
