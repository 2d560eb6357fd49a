// Package models defines the domain types for langcards.
package models

// Record is one catalog entry describing a single programming language.
type Record struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	CreationInfo string `json:"creationInfo"`
	Link         string `json:"link"`
}

// Catalog is the ordered, load-once sequence of records, in resource order.
// It is never mutated after it has been loaded.
type Catalog []Record

// Len returns the number of records.
func (c Catalog) Len() int {
	return len(c)
}

// Empty reports whether the catalog holds no records.
func (c Catalog) Empty() bool {
	return len(c) == 0
}
