package provisioning

import (
	"context"
	"fmt"
)

// Pager walks a paginated listing one page at a time
type Pager[T any] interface {
	HasMorePages() bool
	NextPage(ctx context.Context) ([]T, error)
}

// PageFunc fetches the page that starts at token (nil for the first page)
// and returns its items and the token of the following page.
type PageFunc[T any] func(ctx context.Context, token *string) ([]T, *string, error)

// Pages is a lazy Pager over a token-paginated list API
type Pages[T any] struct {
	fetch   PageFunc[T]
	token   *string
	started bool
}

// NewPages creates a Pager that calls fetch on demand
func NewPages[T any](fetch PageFunc[T]) *Pages[T] {
	return &Pages[T]{fetch: fetch}
}

// HasMorePages reports whether NextPage can be called
func (p *Pages[T]) HasMorePages() bool {
	return !p.started || (p.token != nil && *p.token != "")
}

// NextPage fetches the next page
func (p *Pages[T]) NextPage(ctx context.Context) ([]T, error) {
	if !p.HasMorePages() {
		return nil, fmt.Errorf("no more pages")
	}
	items, next, err := p.fetch(ctx, p.token)
	if err != nil {
		return nil, err
	}
	p.started = true
	p.token = next
	return items, nil
}

// Reset rewinds the pager to the first page
func (p *Pages[T]) Reset() {
	p.started = false
	p.token = nil
}

// FindFirst returns the first listed item accepted by match. Pages are
// fetched only until a match is found.
func FindFirst[T any](ctx context.Context, pager Pager[T], match func(T) bool) (T, bool, error) {
	var zero T
	for pager.HasMorePages() {
		items, err := pager.NextPage(ctx)
		if err != nil {
			return zero, false, err
		}
		for _, item := range items {
			if match(item) {
				return item, true, nil
			}
		}
	}
	return zero, false, nil
}

// FindByName returns the id of the first listed resource named name. An
// empty name never matches.
func FindByName[T any](ctx context.Context, pager Pager[T], name string, nameOf, idOf func(T) string) (string, bool, error) {
	if name == "" {
		return "", false, nil
	}
	item, found, err := FindFirst(ctx, pager, func(item T) bool { return nameOf(item) == name })
	if err != nil {
		return "", false, fmt.Errorf("failed to list resources while looking up %q: %w", name, err)
	}
	if !found {
		return "", false, nil
	}
	return idOf(item), true, nil
}
