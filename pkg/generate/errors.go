package generate

import (
	"errors"
	"strings"
)

// Precondition errors. Their text is shown to the user as is.
var (
	ErrNoRepository = errors.New("No repository selected. Please select a repo first.")
	ErrNoResults    = errors.New("No results found. Please attempt a search to see what is in your repo first.")
	ErrNoSelection  = errors.New("No files selected. Please select some files first.")
	ErrEmptyPrompt  = errors.New("Please enter a custom prompt.")
	ErrBusy         = errors.New("another request is already running for this session")
)

// FetchError reports the files that could not be downloaded. Any failed
// file aborts the use case that triggered the fetch.
type FetchError struct {
	Paths []string
}

func (e *FetchError) Error() string {
	return "Error fetching file content for: " + strings.Join(e.Paths, "; ")
}

// IsPrecondition reports whether err is a precondition failure
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrNoRepository) ||
		errors.Is(err, ErrNoResults) ||
		errors.Is(err, ErrNoSelection) ||
		errors.Is(err, ErrEmptyPrompt)
}
