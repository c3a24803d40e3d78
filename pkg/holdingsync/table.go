package holdingsync

import "context"

// Table is the range-addressed remote store. Writes use the mode that
// evaluates formula text. Implementations must not fail Get for absent data.
type Table interface {
	Get(ctx context.Context, rng string) ([][]string, error)
	Update(ctx context.Context, rng string, values [][]any) error
	BatchUpdate(ctx context.Context, data []RangeValues) error
	Append(ctx context.Context, rng string, values [][]any) error
	Clear(ctx context.Context, rng string) error
}

// RangeValues is one range of a multi-range write.
type RangeValues struct {
	Range  string
	Values [][]any
}

// unavailableTable stands in when the remote session could not be set up:
// every call fails with the setup error.
type unavailableTable struct {
	err error
}

// Unavailable returns a Table whose every call returns a SETUP_FAILURE
// wrapping err.
func Unavailable(err error) Table {
	return unavailableTable{err: WrapError(ErrCodeSetup, "remote table unavailable", err)}
}

func (t unavailableTable) Get(context.Context, string) ([][]string, error) { return nil, t.err }

func (t unavailableTable) Update(context.Context, string, [][]any) error { return t.err }

func (t unavailableTable) BatchUpdate(context.Context, []RangeValues) error { return t.err }

func (t unavailableTable) Append(context.Context, string, [][]any) error { return t.err }

func (t unavailableTable) Clear(context.Context, string) error { return t.err }
