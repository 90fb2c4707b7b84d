package model

// Ingredient represents a known ingredient record in the database.
type Ingredient struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}
