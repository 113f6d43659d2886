package models

// Page is the envelope of every list endpoint.
type Page[T any] struct {
	Count   int64 `json:"count"`
	Results []T   `json:"results"`
}

// NewPage never returns a nil Results slice so empty pages encode as [].
func NewPage[T any](count int64, results []T) Page[T] {
	if results == nil {
		results = []T{}
	}
	return Page[T]{Count: count, Results: results}
}
