package repository

import (
	"pantryscan/internal/model"
)

// IngredientRepository defines the operations on the known-ingredient store.
// The store is an alternate source for the ingredient dictionary.
type IngredientRepository interface {
	// ReplaceAll swaps the whole table in one transaction; on error the
	// previous contents are kept.
	ReplaceAll(ingredients []model.Ingredient) error

	GetAll() ([]model.Ingredient, error)
	GetByName(name string) (*model.Ingredient, error)
	Count() (int, error)
}
