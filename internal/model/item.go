package model

// Item is one pantry entry as seen in the shared collection.
// ID comes from the store and never changes; Name and Price are fixed at
// creation (there is no in-place edit).
type Item struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"` // quantity as entered
}

// Draft holds the add-form input until it is submitted.
type Draft struct {
	Name  string `json:"name"`
	Price string `json:"price"`
}

func (d *Draft) Reset() { *d = Draft{} }

// Field keys used when items are written to a store.
const (
	FieldName  = "name"
	FieldPrice = "price"
)
