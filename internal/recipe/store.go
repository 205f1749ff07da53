package recipe

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"
)

var (
	//go:embed schema_postgres.sql
	postgresSchema string
	//go:embed schema_sqlite.sql
	sqliteSchema string
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// SQLStore is the Entity Store backed by PostgreSQL or SQLite.
// Queries are written with '?' placeholders and rebound for the driver.
type SQLStore struct {
	db *sqlx.DB
}

// NewSQLStore connects to the database and creates missing tables.
// driver is "postgres" (lib/pq) or "sqlite" (modernc.org/sqlite).
func NewSQLStore(ctx context.Context, driver, dataSourceName string) (*SQLStore, error) {
	var schema string
	switch driver {
	case "postgres":
		schema = postgresSchema
	case "sqlite":
		schema = sqliteSchema
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := sqlx.ConnectContext(ctx, driver, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == "sqlite" {
		// A single connection keeps in-memory databases and per-connection pragmas alive.
		db.SetMaxOpenConns(1)
		for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to exec %q: %w", pragma, err)
			}
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &SQLStore{db: db}, nil
}

// Close closes the underlying connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// withTx runs fn in a transaction, committing on success.
func (s *SQLStore) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// insertReturningID runs an INSERT ... RETURNING id statement.
func insertReturningID(ctx context.Context, q sqlx.ExtContext, query string, args ...any) (int64, error) {
	var id int64
	if err := q.QueryRowxContext(ctx, q.Rebind(query), args...).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return 0, ErrAlreadyExists
		}
		return 0, err
	}
	return id, nil
}

// getOne scans a single row into dest, returning ErrNotFound when nothing matches.
func getOne(ctx context.Context, q sqlx.ExtContext, dest any, query string, args ...any) error {
	err := sqlx.GetContext(ctx, q, dest, q.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// selectIn runs a query containing one or more slice arguments expanded with sqlx.In.
func selectIn(ctx context.Context, q sqlx.ExtContext, dest any, query string, args ...any) error {
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return err
	}
	return sqlx.SelectContext(ctx, q, dest, q.Rebind(query), args...)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503"
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// escapeLike escapes LIKE wildcards in a user supplied prefix.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

const userColumns = `id, email, username, first_name, last_name, password_hash, is_staff`

// CreateUser inserts a user and sets its ID. Duplicate email or username yields ErrAlreadyExists.
func (s *SQLStore) CreateUser(ctx context.Context, u *User) error {
	id, err := insertReturningID(ctx, s.db,
		"INSERT INTO users (email, username, first_name, last_name, password_hash, is_staff) VALUES (?, ?, ?, ?, ?, ?) RETURNING id",
		u.Email, u.Username, u.FirstName, u.LastName, u.PasswordHash, u.IsStaff,
	)
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return err
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	u.ID = id
	return nil
}

// GetUser retrieves a user by id.
func (s *SQLStore) GetUser(ctx context.Context, id int64) (*User, error) {
	var u User
	if err := getOne(ctx, s.db, &u, "SELECT "+userColumns+" FROM users WHERE id = ?", id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// GetUserByEmail retrieves a user by email, case-insensitively.
func (s *SQLStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	if err := getOne(ctx, s.db, &u, "SELECT "+userColumns+" FROM users WHERE LOWER(email) = LOWER(?)", email); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &u, nil
}

// ListUsers returns a page of users ordered by id and the total count.
func (s *SQLStore) ListUsers(ctx context.Context, limit, offset int) ([]User, int, error) {
	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM users"); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}
	users := []User{}
	err := s.db.SelectContext(ctx, &users,
		s.db.Rebind("SELECT "+userColumns+" FROM users ORDER BY id LIMIT ? OFFSET ?"), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// UsersByIDs returns the users with the given ids keyed by id.
func (s *SQLStore) UsersByIDs(ctx context.Context, ids []int64) (map[int64]User, error) {
	out := make(map[int64]User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []User
	if err := selectIn(ctx, s.db, &users, "SELECT "+userColumns+" FROM users WHERE id IN (?)", ids); err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// UpdatePassword replaces the stored password hash.
func (s *SQLStore) UpdatePassword(ctx context.Context, userID int64, hash string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind("UPDATE users SET password_hash = ? WHERE id = ?"), hash, userID)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListTags returns all tags ordered by name.
func (s *SQLStore) ListTags(ctx context.Context) ([]Tag, error) {
	tags := []Tag{}
	if err := s.db.SelectContext(ctx, &tags, "SELECT id, name, color, slug FROM tags ORDER BY name"); err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return tags, nil
}

// GetTag retrieves a tag by id.
func (s *SQLStore) GetTag(ctx context.Context, id int64) (*Tag, error) {
	var t Tag
	if err := getOne(ctx, s.db, &t, "SELECT id, name, color, slug FROM tags WHERE id = ?", id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	return &t, nil
}

// CreateTag inserts a tag. Name, color and slug are each unique.
func (s *SQLStore) CreateTag(ctx context.Context, t *Tag) error {
	id, err := insertReturningID(ctx, s.db,
		"INSERT INTO tags (name, color, slug) VALUES (?, ?, ?) RETURNING id", t.Name, t.Color, t.Slug)
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return err
		}
		return fmt.Errorf("failed to create tag: %w", err)
	}
	t.ID = id
	return nil
}

// ListIngredients returns ingredients whose name starts with prefix (case-insensitive), ordered by name.
func (s *SQLStore) ListIngredients(ctx context.Context, prefix string) ([]Ingredient, error) {
	ingredients := []Ingredient{}
	query := `SELECT id, name, measurement_unit FROM ingredients`
	var args []any
	if prefix != "" {
		query += ` WHERE LOWER(name) LIKE ? ESCAPE '\'`
		args = append(args, escapeLike(strings.ToLower(prefix))+"%")
	}
	query += ` ORDER BY name, measurement_unit`

	if err := s.db.SelectContext(ctx, &ingredients, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}
	return ingredients, nil
}

// GetIngredient retrieves an ingredient by id.
func (s *SQLStore) GetIngredient(ctx context.Context, id int64) (*Ingredient, error) {
	var i Ingredient
	if err := getOne(ctx, s.db, &i, "SELECT id, name, measurement_unit FROM ingredients WHERE id = ?", id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get ingredient: %w", err)
	}
	return &i, nil
}

// CreateIngredient inserts an ingredient; a duplicate (name, unit) pair yields ErrAlreadyExists.
func (s *SQLStore) CreateIngredient(ctx context.Context, i *Ingredient) error {
	id, err := insertReturningID(ctx, s.db,
		"INSERT INTO ingredients (name, measurement_unit) VALUES (?, ?) RETURNING id", i.Name, i.MeasurementUnit)
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return err
		}
		return fmt.Errorf("failed to create ingredient: %w", err)
	}
	i.ID = id
	return nil
}
