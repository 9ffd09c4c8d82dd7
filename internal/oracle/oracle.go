// Package oracle wraps the external answer judge. The scoring pass treats
// it as an opaque, fallible boolean oracle: given the round's letter and a
// batch of (category, answer) pairs, it says which answers are real words
// that fit their category.
package oracle

import "context"

// Item is one deduplicated (category, answer) pair to judge.
type Item struct {
	Category string `json:"category"`
	Answer   string `json:"answer"`
}

// Validator judges a batch of answers against the round's letter.
// Implementations must handle an empty batch without any remote call.
// Items missing from the returned map are treated as invalid.
type Validator interface {
	Validate(ctx context.Context, letter string, items []Item) (map[Item]bool, error)
}

// Func adapts a plain function to the Validator interface.
type Func func(ctx context.Context, letter string, items []Item) (map[Item]bool, error)

func (f Func) Validate(ctx context.Context, letter string, items []Item) (map[Item]bool, error) {
	return f(ctx, letter, items)
}
