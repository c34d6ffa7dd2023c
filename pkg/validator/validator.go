package validator

import (
	"fmt"
	"slices"
	"sort"
	"unicode"
)

// All returns the first non-nil error.
func All(errors ...error) error {
	for _, err := range errors {
		if err != nil {
			return err
		}
	}
	return nil
}

type Validatable interface {
	Validate() error
}

func Each[T Validatable](items []T, description string) error {
	for i, item := range items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("%s[%d]: %w", description, i, err)
		}
	}
	return nil
}

func Map[T any](items []T, f func(T, string) error, description string) error {
	for i, item := range items {
		if err := f(item, fmt.Sprintf("%s[%d]", description, i)); err != nil {
			return err
		}
	}
	return nil
}

// MapDict validates map entries in key order so the reported error is
// stable.
func MapDict[T any](items map[string]T, f func(string, T, string) error, description string) error {
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := f(key, items[key], fmt.Sprintf("%s[%q]", description, key)); err != nil {
			return err
		}
	}
	return nil
}

func NotEmpty(field, description string) error {
	if field == "" {
		return fmt.Errorf("%s must not be empty", description)
	}
	return nil
}

func NoDuplicates[T comparable](slice []T, description string) error {
	seen := make(map[T]struct{})
	for _, v := range slice {
		if _, ok := seen[v]; ok {
			return fmt.Errorf("%s contains duplicate value: %v", description, v)
		}
		seen[v] = struct{}{}
	}
	return nil
}

func SliceHasElements[T comparable](slice []T, allowed []T, description string) error {
	for _, v := range slice {
		if err := MatchesAllowed(v, allowed, description); err != nil {
			return err
		}
	}
	return nil
}

func MatchesAllowed[T comparable](field T, allowed []T, description string) error {
	if !slices.Contains(allowed, field) {
		return fmt.Errorf("%s must be one of %v, got %v", description, allowed, field)
	}
	return nil
}

func InRange(n, lo, hi int, description string) error {
	if n < lo || n > hi {
		return fmt.Errorf("%s must be between %d and %d, got %d", description, lo, hi, n)
	}
	return nil
}

// Delimiter accepts a single printable ASCII punctuation character.
func Delimiter(field, description string) error {
	if len(field) != 1 || field[0] > unicode.MaxASCII || !unicode.IsPunct(rune(field[0])) && !unicode.IsSymbol(rune(field[0])) {
		return fmt.Errorf("%s must be a single ASCII punctuation character, got %q", description, field)
	}
	return nil
}
