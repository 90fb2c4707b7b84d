package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"pantryscan/internal/model"
)

// IngredientRepository implements repository.IngredientRepository for SQLite.
type IngredientRepository struct {
	db *DB
}

// NewIngredientRepository creates a new SQLite ingredient repository.
func NewIngredientRepository(db *DB) *IngredientRepository {
	return &IngredientRepository{db: db}
}

// ReplaceAll deletes every stored ingredient and inserts the given ones in a
// single transaction. Names are stored as given; callers normalize them.
func (r *IngredientRepository) ReplaceAll(ingredients []model.Ingredient) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM ingredients`); err != nil {
		return fmt.Errorf("failed to clear ingredients: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO ingredients (name, count) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET count = excluded.count
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, ing := range ingredients {
		if _, err := stmt.Exec(ing.Name, ing.Count); err != nil {
			return fmt.Errorf("failed to insert ingredient %q: %w", ing.Name, err)
		}
	}

	return tx.Commit()
}

// GetAll returns every ingredient in insertion order.
func (r *IngredientRepository) GetAll() ([]model.Ingredient, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	rows, err := r.db.Conn().Query(`SELECT id, name, count FROM ingredients ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query ingredients: %w", err)
	}
	defer rows.Close()

	var ingredients []model.Ingredient
	for rows.Next() {
		var ing model.Ingredient
		if err := rows.Scan(&ing.ID, &ing.Name, &ing.Count); err != nil {
			return nil, fmt.Errorf("failed to scan ingredient: %w", err)
		}
		ingredients = append(ingredients, ing)
	}

	return ingredients, rows.Err()
}

// GetByName returns the ingredient with the exact name, or nil when absent.
func (r *IngredientRepository) GetByName(name string) (*model.Ingredient, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var ing model.Ingredient
	err := r.db.Conn().QueryRow(`SELECT id, name, count FROM ingredients WHERE name = ?`, name).
		Scan(&ing.ID, &ing.Name, &ing.Count)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query ingredient: %w", err)
	}
	return &ing, nil
}

// Count returns the number of stored ingredients.
func (r *IngredientRepository) Count() (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM ingredients`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count ingredients: %w", err)
	}
	return count, nil
}
