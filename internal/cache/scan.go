package cache

import "context"

// FieldScanner walks a hash's fields matching a pattern, one bounded page
// per Next call. The scan terminates when the store's cursor returns to its
// starting value; an explicit iterator rather than recursion so large hashes
// cannot grow the stack.
type FieldScanner struct {
	store   Store
	key     string
	pattern string
	count   int64

	cursor uint64
}

// NewFieldScanner creates a scanner over key's fields matching pattern
func NewFieldScanner(store Store, key, pattern string, count int64) *FieldScanner {
	return &FieldScanner{
		store:   store,
		key:     key,
		pattern: pattern,
		count:   count,
	}
}

// Next returns the next page of matching field names. done is true once the
// cursor has wrapped around; the returned fields are still valid on the
// final page.
func (s *FieldScanner) Next(ctx context.Context) (fields []string, done bool, err error) {
	fields, next, err := s.store.HScan(ctx, s.key, s.cursor, s.pattern, s.count)
	if err != nil {
		return nil, false, err
	}
	s.cursor = next
	return fields, next == 0, nil
}
