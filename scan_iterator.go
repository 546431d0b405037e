package redis

import (
	"context"

	"github.com/pior/redis/resp"
	"github.com/pior/redis/result"
)

// ScanPageFunc fetches the page of a scan starting at cursor.
type ScanPageFunc[T any] func(ctx context.Context, cursor string) (result.ScanPage[T], error)

// ScanIterator walks a cursor-based iteration page by page.
//
// The first page is fetched with cursor "0". Once the store returns cursor
// "0" the iteration is complete and Next returns false without any I/O.
//
//	it := client.ScanIter(redis.ScanArgs{Match: "user:*"})
//	for it.Next(ctx) {
//		fmt.Println(it.Val())
//	}
//	if err := it.Err(); err != nil {
//		return err
//	}
type ScanIterator[T any] struct {
	fetch   ScanPageFunc[T]
	cursor  string
	started bool

	items []T
	pos   int
	err   error
}

// NewScanIterator returns an iterator over the pages returned by fetch.
func NewScanIterator[T any](fetch ScanPageFunc[T]) *ScanIterator[T] {
	return &ScanIterator[T]{fetch: fetch, cursor: resp.CursorDone}
}

// Next advances to the next item, fetching pages as needed.
// Pages may be empty while the cursor is not done.
func (it *ScanIterator[T]) Next(ctx context.Context) bool {
	for {
		if it.err != nil {
			return false
		}
		if it.pos < len(it.items) {
			it.pos++
			return true
		}
		if it.started && it.cursor == resp.CursorDone {
			return false
		}

		page, err := it.fetch(ctx, it.cursor)
		if err != nil {
			it.err = err
			return false
		}
		it.started = true
		it.cursor = page.Cursor
		it.items = page.Items
		it.pos = 0
	}
}

// Val returns the current item.
func (it *ScanIterator[T]) Val() T {
	return it.items[it.pos-1]
}

// Cursor returns the cursor of the next page, "0" when the iteration is complete.
func (it *ScanIterator[T]) Cursor() string {
	return it.cursor
}

// Err returns the error that stopped the iteration.
func (it *ScanIterator[T]) Err() error {
	return it.err
}
