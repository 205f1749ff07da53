package recipe

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Relation describes a per-user link table of (owner, target) pairs that is
// unique per pair. Favorites and the shopping cart link users to recipes;
// subscriptions link a follower to an author.
type Relation struct {
	Name         string
	Table        string
	OwnerColumn  string
	TargetColumn string
}

var (
	Favorites     = Relation{Name: "favorites", Table: "favorites", OwnerColumn: "user_id", TargetColumn: "recipe_id"}
	ShoppingCart  = Relation{Name: "shopping cart", Table: "shopping_carts", OwnerColumn: "user_id", TargetColumn: "recipe_id"}
	Subscriptions = Relation{Name: "subscriptions", Table: "subscriptions", OwnerColumn: "user_id", TargetColumn: "author_id"}
)

// LinkExists reports whether owner is linked to target.
func (s *SQLStore) LinkExists(ctx context.Context, rel Relation, owner, target int64) (bool, error) {
	return linkExists(ctx, s.db, rel, owner, target)
}

func linkExists(ctx context.Context, q sqlx.ExtContext, rel Relation, owner, target int64) (bool, error) {
	var exists bool
	query := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE %s = ? AND %s = ?)", rel.Table, rel.OwnerColumn, rel.TargetColumn)
	if err := sqlx.GetContext(ctx, q, &exists, q.Rebind(query), owner, target); err != nil {
		return false, fmt.Errorf("failed to check %s: %w", rel.Name, err)
	}
	return exists, nil
}

// LinkedTargets returns the subset of targets that owner is linked to.
func (s *SQLStore) LinkedTargets(ctx context.Context, rel Relation, owner int64, targets []int64) (map[int64]bool, error) {
	out := make(map[int64]bool, len(targets))
	if owner == 0 || len(targets) == 0 {
		return out, nil
	}
	var linked []int64
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? AND %s IN (?)", rel.TargetColumn, rel.Table, rel.OwnerColumn, rel.TargetColumn)
	if err := selectIn(ctx, s.db, &linked, query, owner, targets); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", rel.Name, err)
	}
	for _, id := range linked {
		out[id] = true
	}
	return out, nil
}

// AddLink links owner to target. An existing pair yields ErrAlreadyExists;
// the unique constraint backs the pre-check when two requests race. A target
// deleted in the meantime yields ErrNotFound.
func (s *SQLStore) AddLink(ctx context.Context, rel Relation, owner, target int64) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		exists, err := linkExists(ctx, tx, rel, owner, target)
		if err != nil {
			return err
		}
		if exists {
			return ErrAlreadyExists
		}
		return insertLink(ctx, tx, rel, owner, target)
	})
}

func insertLink(ctx context.Context, q sqlx.ExtContext, rel Relation, owner, target int64) error {
	query := fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?)", rel.Table, rel.OwnerColumn, rel.TargetColumn)
	if _, err := q.ExecContext(ctx, q.Rebind(query), owner, target); err != nil {
		switch {
		case isUniqueViolation(err):
			return ErrAlreadyExists
		case isForeignKeyViolation(err):
			return fmt.Errorf("%w: %s target %d", ErrNotFound, rel.Name, target)
		}
		return fmt.Errorf("failed to add to %s: %w", rel.Name, err)
	}
	return nil
}

// RemoveLink unlinks owner from target, returning ErrNotFound when no pair existed.
func (s *SQLStore) RemoveLink(ctx context.Context, rel Relation, owner, target int64) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND %s = ?", rel.Table, rel.OwnerColumn, rel.TargetColumn)
	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), owner, target)
	if err != nil {
		return fmt.Errorf("failed to remove from %s: %w", rel.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSubscribedAuthors returns one page of the authors userID follows, ordered by
// username, and the total number of follows.
func (s *SQLStore) ListSubscribedAuthors(ctx context.Context, userID int64, limit, offset int) ([]User, int, error) {
	var total int
	err := s.db.GetContext(ctx, &total, s.db.Rebind("SELECT COUNT(*) FROM subscriptions WHERE user_id = ?"), userID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	users := []User{}
	err = s.db.SelectContext(ctx, &users, s.db.Rebind(`
		SELECT u.id, u.email, u.username, u.first_name, u.last_name, u.password_hash, u.is_staff
		FROM subscriptions sub
		JOIN users u ON u.id = sub.author_id
		WHERE sub.user_id = ?
		ORDER BY u.username, u.id
		LIMIT ? OFFSET ?`), userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return users, total, nil
}
