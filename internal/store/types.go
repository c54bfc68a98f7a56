package store

import (
	"context"
	"encoding/json"
)

// Row is one record as returned by the remote store.
type Row map[string]any

type FilterOp string

const (
	OpEq     FilterOp = "eq"
	OpIn     FilterOp = "in"
	OpIsNull FilterOp = "is_null"
)

type Filter struct {
	Column string
	Op     FilterOp
	Value  any
}

func Eq(column string, value any) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

func In(column string, values []string) Filter {
	return Filter{Column: column, Op: OpIn, Value: values}
}

func IsNull(column string) Filter {
	return Filter{Column: column, Op: OpIsNull}
}

type Order struct {
	Column     string
	Descending bool
}

// Range is an inclusive row window, matching the remote store's range
// pagination ([From, To], zero-based).
type Range struct {
	From int
	To   int
}

type Query struct {
	Table   string
	Columns []string
	Filters []Filter
	Order   *Order
	Range   *Range
}

// Client is the surface consumed from the hosted record store. All
// operations are request/response; the store is the system of record.
type Client interface {
	Select(ctx context.Context, q Query) ([]Row, error)
	Count(ctx context.Context, table string, filters []Filter) (int, error)
	Insert(ctx context.Context, table string, row Row, returning []string) (Row, error)
	Update(ctx context.Context, table string, filters []Filter, patch Row, returning []string) ([]Row, error)
	Delete(ctx context.Context, table string, filters []Filter) error
}

// DecodeRows maps raw rows onto a typed destination through JSON.
func DecodeRows(rows []Row, dst any) error {
	payload, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, dst)
}

// DecodeRow maps a single raw row onto a typed destination.
func DecodeRow(row Row, dst any) error {
	payload, err := json.Marshal(row)
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, dst)
}
