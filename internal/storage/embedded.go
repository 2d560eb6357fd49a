package storage

import (
	"context"
	"embed"
)

//go:embed data/catalog.json
var embeddedFS embed.FS

const embeddedName = "data/catalog.json"

// Embedded serves the catalog compiled into the binary.
type Embedded struct{}

// NewEmbedded returns the built-in catalog provider.
func NewEmbedded() Embedded {
	return Embedded{}
}

// Fetch implements Provider.
func (Embedded) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return embeddedFS.ReadFile(embeddedName)
}

// Describe implements Provider.
func (Embedded) Describe() string {
	return "embedded:" + embeddedName
}
