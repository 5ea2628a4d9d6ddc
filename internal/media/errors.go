package media

import "fmt"

// EmptySequenceError is returned when zero items are supplied where at least one is required.
type EmptySequenceError struct {
	What string
}

func (e *EmptySequenceError) Error() string {
	return fmt.Sprintf("empty sequence: at least one %s is required", e.What)
}

// UnsupportedAssetError is returned when an asset cannot be read or recognized.
type UnsupportedAssetError struct {
	Path string
	Err  error
}

func (e *UnsupportedAssetError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("unsupported asset %q", e.Path)
	}
	return fmt.Sprintf("unsupported asset %q: %v", e.Path, e.Err)
}

func (e *UnsupportedAssetError) Unwrap() error { return e.Err }

// NarrationUnavailableError is returned when narration audio is missing at bind time.
type NarrationUnavailableError struct {
	Path string
	Err  error
}

func (e *NarrationUnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("narration unavailable %q", e.Path)
	}
	return fmt.Sprintf("narration unavailable %q: %v", e.Path, e.Err)
}

func (e *NarrationUnavailableError) Unwrap() error { return e.Err }

// TimingInconsistencyError signals a broken internal timing invariant. It is a defect
// and is never corrected silently.
type TimingInconsistencyError struct {
	What     string
	Expected float64
	Actual   float64
}

func (e *TimingInconsistencyError) Error() string {
	return fmt.Sprintf("timing inconsistency in %s: expected %.6fs, got %.6fs", e.What, e.Expected, e.Actual)
}

// Tolerance is the accepted drift between scheduled and reconciled durations, in seconds.
const Tolerance = 1e-3
