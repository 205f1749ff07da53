package recipe

import "errors"

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when an insert hits a unique constraint.
	ErrAlreadyExists = errors.New("already exists")
	// ErrUnknownTag is returned when a recipe references a tag id that does not exist.
	ErrUnknownTag = errors.New("unknown tag")
	// ErrUnknownIngredient is returned when a recipe references an ingredient id that does not exist.
	ErrUnknownIngredient = errors.New("unknown ingredient")
)

// User is a registered account. Authentication data never leaves the server.
type User struct {
	ID           int64  `json:"id" db:"id"`
	Email        string `json:"email" db:"email"`
	Username     string `json:"username" db:"username"`
	FirstName    string `json:"first_name" db:"first_name"`
	LastName     string `json:"last_name" db:"last_name"`
	PasswordHash string `json:"-" db:"password_hash"`
	IsStaff      bool   `json:"-" db:"is_staff"`
}

// Tag is reference data attached to recipes.
type Tag struct {
	ID    int64  `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Color string `json:"color" db:"color"`
	Slug  string `json:"slug" db:"slug"`
}

// Ingredient is reference data; (name, measurement_unit) is unique.
type Ingredient struct {
	ID              int64  `json:"id" db:"id"`
	Name            string `json:"name" db:"name"`
	MeasurementUnit string `json:"measurement_unit" db:"measurement_unit"`
}

// Recipe is the stored recipe row. Tags and ingredients live in link tables.
type Recipe struct {
	ID          int64  `json:"id" db:"id"`
	AuthorID    int64  `json:"author_id" db:"author_id"`
	Name        string `json:"name" db:"name"`
	Text        string `json:"text" db:"text"`
	Image       string `json:"image" db:"image"`
	CookingTime int    `json:"cooking_time" db:"cooking_time"`
}

// RecipeIngredient is one ingredient line of a recipe, expanded with the ingredient data.
type RecipeIngredient struct {
	RecipeID        int64  `json:"-" db:"recipe_id"`
	ID              int64  `json:"id" db:"id"`
	Name            string `json:"name" db:"name"`
	MeasurementUnit string `json:"measurement_unit" db:"measurement_unit"`
	Amount          int    `json:"amount" db:"amount"`
}

// IngredientAmount is an ingredient reference submitted with a recipe write.
type IngredientAmount struct {
	IngredientID int64
	Amount       int
}

// RecipeWrite carries every column and link of a recipe create or full update.
type RecipeWrite struct {
	Name        string
	Text        string
	Image       string
	CookingTime int
	TagIDs      []int64
	Ingredients []IngredientAmount
}

// RecipeFilter narrows ListRecipes. Zero values disable a filter.
type RecipeFilter struct {
	TagSlugs    []string
	AuthorID    int64
	FavoritedBy int64
	InCartOf    int64
	Limit       int
	Offset      int
}

// ShoppingItem is one aggregated line of a shopping list.
type ShoppingItem struct {
	Name            string `json:"name" db:"name"`
	MeasurementUnit string `json:"measurement_unit" db:"measurement_unit"`
	TotalAmount     int    `json:"amount" db:"total_amount"`
}
