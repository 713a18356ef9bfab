package cache

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument reports a nil/empty key, a nil required
	// collection, an out-of-range page, or an invalid Options combination.
	ErrInvalidArgument = errors.New("cache: invalid argument")

	// ErrInvalidState reports an operation on a closed engine or a scope
	// reassignment after the scope was set.
	ErrInvalidState = errors.New("cache: invalid state")

	// ErrSerialization reports a payload that could not be converted to
	// the requested type. Surfaced only when ThrowOnSerializationError is
	// set; otherwise reads degrade to a miss.
	ErrSerialization = errors.New("cache: serialization failure")

	// ErrCacheFailure wraps internal collaborator errors that cannot be
	// recovered locally — currently a failing SizeCalculator, whose
	// estimate gates MaxEntrySize and the memory budget, so the write
	// that needed it cannot proceed.
	ErrCacheFailure = errors.New("cache: internal failure")
)

// MaxEntrySizeError reports a write rejected because the value's estimated
// size exceeds Options.MaxEntrySize. Returned only when
// ThrowOnMaxEntrySizeExceeded is set; otherwise the write fails silently
// with the operation's failure value.
type MaxEntrySizeError struct {
	Key      string
	Size     int64
	Max      int64
	TypeName string
}

func (e *MaxEntrySizeError) Error() string {
	return fmt.Sprintf("cache: entry %q of type %s is %d bytes, exceeds max entry size %d",
		e.Key, e.TypeName, e.Size, e.Max)
}

func invalidArgf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
