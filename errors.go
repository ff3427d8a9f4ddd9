package modpipe

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNoTitle is returned when a mod page has no recognizable title.
	ErrNoTitle = errors.New("page has no mod title")

	// ErrUnsupportedFormat is returned when no extractor recognizes an archive.
	ErrUnsupportedFormat = errors.New("unsupported archive format")

	// ErrBadStatus is returned for non-success HTTP responses.
	ErrBadStatus = errors.New("unexpected status code")
)

// FailureKind classifies why a single item of a run failed.
type FailureKind string

const (
	KindNetwork    FailureKind = "network"
	KindParse      FailureKind = "parse"
	KindArchive    FailureKind = "archive"
	KindFilesystem FailureKind = "filesystem"
)

// ItemError is a failure of one URL, record or archive. It is logged and
// counted, never returned from a stage run.
type ItemError struct {
	Kind FailureKind
	Item string
	Err  error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s error for %s: %v", e.Kind, e.Item, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

func itemError(kind FailureKind, item string, err error) *ItemError {
	return &ItemError{Kind: kind, Item: item, Err: err}
}
