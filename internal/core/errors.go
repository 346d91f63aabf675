package core

import (
	"errors"
	"fmt"
	"strings"
)

// RequiredColumns are the header names a statement must carry, matched exactly.
var RequiredColumns = []string{"Date", "Description", "Debit", "Credit", "Balance"}

var (
	ErrMissingColumns    = errors.New("missing required columns")
	ErrNotSpreadsheet    = errors.New("file is not a readable spreadsheet")
	ErrEmptySheet        = errors.New("spreadsheet has no header row")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// InputFormatError reports the required columns a header row lacks.
type InputFormatError struct {
	Missing []string
}

func (e *InputFormatError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingColumns, strings.Join(e.Missing, ", "))
}

func (e *InputFormatError) Unwrap() error {
	return ErrMissingColumns
}

// IsInputFormat reports whether err means the upload itself was unusable, as
// opposed to an internal failure while processing it.
func IsInputFormat(err error) bool {
	return errors.Is(err, ErrMissingColumns) ||
		errors.Is(err, ErrNotSpreadsheet) ||
		errors.Is(err, ErrEmptySheet) ||
		errors.Is(err, ErrUnsupportedFormat)
}
