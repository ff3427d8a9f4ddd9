package modpipe

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

// Summary counts what happened to the items of a single stage run.
// Partial success is normal: a run with failures is still a finished run.
type Summary struct {
	Stage     string
	Processed int
	Succeeded int
	Skipped   int
	Failed    map[FailureKind]int
	Bytes     int64
}

func newSummary(stage string) Summary {
	return Summary{Stage: stage, Failed: make(map[FailureKind]int)}
}

func (s *Summary) succeed() {
	s.Processed++
	s.Succeeded++
}

func (s *Summary) skip() {
	s.Processed++
	s.Skipped++
}

// fail counts err under its kind. Errors that are not an *ItemError are
// counted as filesystem failures.
func (s *Summary) fail(err error) {
	s.Processed++
	if s.Failed == nil {
		s.Failed = make(map[FailureKind]int)
	}

	var itemErr *ItemError
	if errors.As(err, &itemErr) {
		s.Failed[itemErr.Kind]++
		return
	}
	s.Failed[KindFilesystem]++
}

// FailedTotal returns the number of failed items of every kind.
func (s Summary) FailedTotal() int {
	total := 0
	for _, n := range s.Failed {
		total += n
	}
	return total
}

func (s Summary) String() string {
	str := fmt.Sprintf("%s finished: %d processed, %d succeeded, %d skipped, %d failed",
		s.Stage, s.Processed, s.Succeeded, s.Skipped, s.FailedTotal())

	if s.FailedTotal() > 0 {
		kinds := make([]string, 0, len(s.Failed))
		for kind, n := range s.Failed {
			if n > 0 {
				kinds = append(kinds, fmt.Sprintf("%s=%d", kind, n))
			}
		}
		sort.Strings(kinds)
		str += " (" + strings.Join(kinds, ", ") + ")"
	}

	if s.Bytes > 0 {
		str += ", " + humanize.Bytes(uint64(s.Bytes)) + " downloaded"
	}

	return str
}
