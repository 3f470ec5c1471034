package tscluster

import "fmt"

// InputShapeError reports input that is not a rectangular table of at least
// two series with at least two observations each.
type InputShapeError struct {
	// Index is the offending series index for a length mismatch, or -1 when
	// the table as a whole is malformed (too few series, too short series).
	Index int

	// WantLen is the expected series length (taken from the first series)
	// and GotLen the offending length. Both are 0 when Index is -1.
	WantLen int
	GotLen  int

	Reason string
}

func (e *InputShapeError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("tscluster: invalid input: %s", e.Reason)
	}
	return fmt.Sprintf("tscluster: invalid input: series %d has length %d, want %d",
		e.Index, e.GotLen, e.WantLen)
}

// DegenerateSeriesError reports a series whose variance is numerically zero,
// making standardization (and therefore shape comparison) undefined.
// The series is never silently dropped.
type DegenerateSeriesError struct {
	Index int
}

func (e *DegenerateSeriesError) Error() string {
	return fmt.Sprintf("tscluster: series %d has zero variance; standardization is undefined", e.Index)
}

// ConfigError reports an invalid Config field. It is returned before any
// sampling begins.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("tscluster: invalid config: %s %s", e.Field, e.Reason)
}
