package record

import (
	"fmt"
	"sort"
)

// Schema names a collection and the words used to talk about its records.
type Schema struct {
	Name    string // collection key in the document and URL segment ("items")
	IDParam string // path parameter name ("item_id")
	Label   string // singular display name ("Item")
	File    string // document file name used by the file backend
}

var (
	Items = Schema{
		Name:    "items",
		IDParam: "item_id",
		Label:   "Item",
		File:    "data.json",
	}
	Products = Schema{
		Name:    "products",
		IDParam: "product_id",
		Label:   "Product",
		File:    "products.json",
	}
)

var known = map[string]Schema{
	Items.Name:    Items,
	Products.Name: Products,
}

// Lookup returns the known schema with the given collection name.
func Lookup(name string) (Schema, error) {
	s, ok := known[name]
	if !ok {
		return Schema{}, fmt.Errorf("unknown collection %q (known: %v)", name, KnownNames())
	}
	return s, nil
}

// KnownNames returns the sorted names of all known collections.
func KnownNames() []string {
	names := make([]string, 0, len(known))
	for n := range known {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NotFoundDetail is the message returned to clients when an id is absent.
func (s Schema) NotFoundDetail() string {
	return s.Label + " not found"
}
