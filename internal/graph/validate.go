package graph

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const MinTitleLength = 2

var ErrTitleTooShort = fmt.Errorf("title must be at least %d characters", MinTitleLength)

type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every problem found on a node or form.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, e := range v {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

func (v ValidationErrors) Is(target error) bool {
	for _, e := range v {
		if target == ErrTitleTooShort && e.Field == "data.title" {
			return true
		}
	}
	return false
}

func ValidateTitle(title string) error {
	if utf8.RuneCountInString(strings.TrimSpace(title)) < MinTitleLength {
		return ErrTitleTooShort
	}
	return nil
}

// IsValidation reports whether err was produced by node or form validation.
func IsValidation(err error) bool {
	var v ValidationErrors
	if errors.As(err, &v) {
		return true
	}
	var f FieldError
	return errors.As(err, &f)
}
