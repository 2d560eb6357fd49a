// Package storage defines where the catalog resource is read from.
package storage

import "context"

// Provider fetches the raw catalog resource. Implementations are read-only.
type Provider interface {
	// Fetch returns the resource body as a JSON array of records.
	Fetch(ctx context.Context) ([]byte, error)
	// Describe returns the resource location for logs.
	Describe() string
}
