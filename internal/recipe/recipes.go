package recipe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

const recipeColumns = `r.id, r.author_id, r.name, r.text, r.image, r.cooking_time`

// CreateRecipe inserts the recipe and all of its tag and ingredient links in one transaction.
func (s *SQLStore) CreateRecipe(ctx context.Context, authorID int64, w RecipeWrite) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := checkReferences(ctx, tx, w); err != nil {
			return err
		}

		var err error
		id, err = insertReturningID(ctx, tx,
			"INSERT INTO recipes (author_id, name, text, image, cooking_time) VALUES (?, ?, ?, ?, ?) RETURNING id",
			authorID, w.Name, w.Text, w.Image, w.CookingTime,
		)
		if err != nil {
			return fmt.Errorf("failed to insert recipe: %w", err)
		}

		return insertLinks(ctx, tx, id, w)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateRecipe replaces the recipe's tag and ingredient links with the submitted
// sets, then updates its columns. Existing link rows are deleted, not diffed.
func (s *SQLStore) UpdateRecipe(ctx context.Context, id int64, w RecipeWrite) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var exists bool
		if err := tx.GetContext(ctx, &exists, tx.Rebind("SELECT EXISTS (SELECT 1 FROM recipes WHERE id = ?)"), id); err != nil {
			return fmt.Errorf("failed to check recipe: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		if err := checkReferences(ctx, tx, w); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM recipe_tags WHERE recipe_id = ?"), id); err != nil {
			return fmt.Errorf("failed to delete recipe tags: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM recipe_ingredients WHERE recipe_id = ?"), id); err != nil {
			return fmt.Errorf("failed to delete recipe ingredients: %w", err)
		}
		if err := insertLinks(ctx, tx, id, w); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx,
			tx.Rebind("UPDATE recipes SET name = ?, text = ?, image = ?, cooking_time = ? WHERE id = ?"),
			w.Name, w.Text, w.Image, w.CookingTime, id,
		)
		if err != nil {
			return fmt.Errorf("failed to update recipe: %w", err)
		}
		return nil
	})
}

// DeleteRecipe removes the recipe; its links, favorites and cart rows cascade.
func (s *SQLStore) DeleteRecipe(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM recipes WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetRecipe retrieves a recipe row by id.
func (s *SQLStore) GetRecipe(ctx context.Context, id int64) (*Recipe, error) {
	var r Recipe
	if err := getOne(ctx, s.db, &r, "SELECT "+recipeColumns+" FROM recipes r WHERE r.id = ?", id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	return &r, nil
}

// ListRecipes returns one page of recipes matching f, newest first, and the total match count.
// Several tag slugs match recipes carrying any of them.
func (s *SQLStore) ListRecipes(ctx context.Context, f RecipeFilter) ([]Recipe, int, error) {
	var (
		where []string
		args  []any
	)
	if len(f.TagSlugs) > 0 {
		where = append(where, `r.id IN (SELECT rt.recipe_id FROM recipe_tags rt JOIN tags t ON t.id = rt.tag_id WHERE t.slug IN (?))`)
		args = append(args, f.TagSlugs)
	}
	if f.AuthorID != 0 {
		where = append(where, `r.author_id = ?`)
		args = append(args, f.AuthorID)
	}
	if f.FavoritedBy != 0 {
		where = append(where, `r.id IN (SELECT recipe_id FROM favorites WHERE user_id = ?)`)
		args = append(args, f.FavoritedBy)
	}
	if f.InCartOf != 0 {
		where = append(where, `r.id IN (SELECT recipe_id FROM shopping_carts WHERE user_id = ?)`)
		args = append(args, f.InCartOf)
	}

	from := " FROM recipes r"
	if len(where) > 0 {
		from += " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	countQuery, countArgs, err := sqlx.In("SELECT COUNT(*)"+from, args...)
	if err != nil {
		return nil, 0, err
	}
	if err := s.db.GetContext(ctx, &total, s.db.Rebind(countQuery), countArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to count recipes: %w", err)
	}

	query := "SELECT " + recipeColumns + from + " ORDER BY r.created_at DESC, r.id DESC"
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}
	recipes := []Recipe{}
	if err := selectIn(ctx, s.db, &recipes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list recipes: %w", err)
	}
	return recipes, total, nil
}

// AuthorRecipes returns up to limit newest recipes of each author; limit <= 0 means all.
func (s *SQLStore) AuthorRecipes(ctx context.Context, authorID int64, limit int) ([]Recipe, error) {
	recipes, _, err := s.ListRecipes(ctx, RecipeFilter{AuthorID: authorID, Limit: limit})
	return recipes, err
}

// CountRecipesByAuthor returns the number of recipes of each author keyed by author id.
func (s *SQLStore) CountRecipesByAuthor(ctx context.Context, authorIDs []int64) (map[int64]int, error) {
	out := make(map[int64]int, len(authorIDs))
	if len(authorIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		AuthorID int64 `db:"author_id"`
		Count    int   `db:"n"`
	}
	err := selectIn(ctx, s.db, &rows,
		"SELECT author_id, COUNT(*) AS n FROM recipes WHERE author_id IN (?) GROUP BY author_id", authorIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to count recipes: %w", err)
	}
	for _, r := range rows {
		out[r.AuthorID] = r.Count
	}
	return out, nil
}

// TagsForRecipes returns each recipe's tags ordered by name, keyed by recipe id.
func (s *SQLStore) TagsForRecipes(ctx context.Context, recipeIDs []int64) (map[int64][]Tag, error) {
	out := make(map[int64][]Tag, len(recipeIDs))
	if len(recipeIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		RecipeID int64 `db:"recipe_id"`
		Tag
	}
	err := selectIn(ctx, s.db, &rows, `
		SELECT rt.recipe_id, t.id, t.name, t.color, t.slug
		FROM recipe_tags rt
		JOIN tags t ON t.id = rt.tag_id
		WHERE rt.recipe_id IN (?)
		ORDER BY t.name`, recipeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipe tags: %w", err)
	}
	for _, r := range rows {
		out[r.RecipeID] = append(out[r.RecipeID], r.Tag)
	}
	return out, nil
}

// IngredientsForRecipes returns each recipe's ingredient lines in insertion order, keyed by recipe id.
func (s *SQLStore) IngredientsForRecipes(ctx context.Context, recipeIDs []int64) (map[int64][]RecipeIngredient, error) {
	out := make(map[int64][]RecipeIngredient, len(recipeIDs))
	if len(recipeIDs) == 0 {
		return out, nil
	}
	var rows []RecipeIngredient
	err := selectIn(ctx, s.db, &rows, `
		SELECT ri.recipe_id, i.id, i.name, i.measurement_unit, ri.amount
		FROM recipe_ingredients ri
		JOIN ingredients i ON i.id = ri.ingredient_id
		WHERE ri.recipe_id IN (?)
		ORDER BY ri.id`, recipeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipe ingredients: %w", err)
	}
	for _, r := range rows {
		out[r.RecipeID] = append(out[r.RecipeID], r)
	}
	return out, nil
}

// checkReferences fails with ErrUnknownTag or ErrUnknownIngredient when w points at missing rows.
func checkReferences(ctx context.Context, tx *sqlx.Tx, w RecipeWrite) error {
	if len(w.TagIDs) > 0 {
		missing, err := missingIDs(ctx, tx, "tags", w.TagIDs)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return fmt.Errorf("%w: %v", ErrUnknownTag, missing)
		}
	}
	if len(w.Ingredients) > 0 {
		ids := make([]int64, len(w.Ingredients))
		for i, ing := range w.Ingredients {
			ids[i] = ing.IngredientID
		}
		missing, err := missingIDs(ctx, tx, "ingredients", ids)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return fmt.Errorf("%w: %v", ErrUnknownIngredient, missing)
		}
	}
	return nil
}

func missingIDs(ctx context.Context, tx *sqlx.Tx, table string, ids []int64) ([]int64, error) {
	var found []int64
	if err := selectIn(ctx, tx, &found, "SELECT id FROM "+table+" WHERE id IN (?)", ids); err != nil {
		return nil, fmt.Errorf("failed to check %s: %w", table, err)
	}
	present := make(map[int64]bool, len(found))
	for _, id := range found {
		present[id] = true
	}
	var missing []int64
	for _, id := range ids {
		if !present[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func insertLinks(ctx context.Context, tx *sqlx.Tx, recipeID int64, w RecipeWrite) error {
	for _, tagID := range w.TagIDs {
		_, err := tx.ExecContext(ctx, tx.Rebind("INSERT INTO recipe_tags (recipe_id, tag_id) VALUES (?, ?)"), recipeID, tagID)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("duplicate tag %d: %w", tagID, ErrAlreadyExists)
			}
			return fmt.Errorf("failed to insert recipe tag: %w", err)
		}
	}
	for _, ing := range w.Ingredients {
		_, err := tx.ExecContext(ctx,
			tx.Rebind("INSERT INTO recipe_ingredients (recipe_id, ingredient_id, amount) VALUES (?, ?, ?)"),
			recipeID, ing.IngredientID, ing.Amount,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("duplicate ingredient %d: %w", ing.IngredientID, ErrAlreadyExists)
			}
			return fmt.Errorf("failed to insert recipe ingredient: %w", err)
		}
	}
	return nil
}
