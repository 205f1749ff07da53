package recipe

import (
	"context"
	"fmt"
)

// ShoppingList sums the ingredient amounts of every recipe in userID's cart,
// grouped by ingredient name and measurement unit, ordered by name then unit.
func (s *SQLStore) ShoppingList(ctx context.Context, userID int64) ([]ShoppingItem, error) {
	items := []ShoppingItem{}
	err := s.db.SelectContext(ctx, &items, s.db.Rebind(`
		SELECT i.name, i.measurement_unit, SUM(ri.amount) AS total_amount
		FROM shopping_carts sc
		JOIN recipe_ingredients ri ON ri.recipe_id = sc.recipe_id
		JOIN ingredients i ON i.id = ri.ingredient_id
		WHERE sc.user_id = ?
		GROUP BY i.name, i.measurement_unit
		ORDER BY i.name, i.measurement_unit`), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to compile shopping list: %w", err)
	}
	return items, nil
}
