// Package types - Product catalog records
package types

// Product is a catalog record as seen by the storage resolver.
// Only ModelName is read; Attributes is carried through untouched.
type Product struct {
	// ID is the catalog identifier
	ID int `json:"id"`

	// ModelName is the storage model name used as a matrix column
	ModelName string `json:"model_name"`

	// Attributes holds the rest of the catalog record
	Attributes map[string]any `json:"attributes,omitempty"`
}

// ProductLookup fetches a product by id.
// A nil product means not found; an error is treated the same way.
type ProductLookup func(id int) (*Product, error)
