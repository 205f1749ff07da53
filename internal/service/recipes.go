package service

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"go.uber.org/zap"

	"github.com/foodgram/foodgram-api/internal/apperr"
	"github.com/foodgram/foodgram-api/internal/platform/imagestore"
	"github.com/foodgram/foodgram-api/internal/recipe"
	"github.com/foodgram/foodgram-api/internal/validation"
)

// ImageStore persists uploaded recipe images. *imagestore.Store implements it.
type ImageStore interface {
	// Save decodes a base64 data URI and returns the stored image path.
	// Undecodable input yields an error wrapping imagestore.ErrInvalidImage.
	Save(dataURI string) (string, error)
	Remove(path string) error
	URL(path string) string
}

// Limits is the inclusive range accepted for cooking_time and ingredient amounts.
type Limits struct {
	Min int
	Max int
}

func (l Limits) contains(v int) bool {
	return v >= l.Min && v <= l.Max
}

// IngredientInput is one ingredient line of a recipe write.
type IngredientInput struct {
	ID     int64 `json:"id" validate:"gt=0"`
	Amount int   `json:"amount"`
}

// RecipeInput is the payload of a recipe create or update. Image is a base64
// data URI; it is required on create and keeps the current image when empty on update.
type RecipeInput struct {
	Ingredients []IngredientInput `json:"ingredients" validate:"required,min=1,dive"`
	Tags        []int64           `json:"tags" validate:"required,min=1,dive,gt=0"`
	Image       string            `json:"image"`
	Name        string            `json:"name" validate:"required,max=200"`
	Text        string            `json:"text" validate:"required"`
	CookingTime int               `json:"cooking_time"`
}

// RecipeQuery filters a recipe listing. IsFavorited and IsInShoppingCart
// apply to the viewer and are ignored for anonymous viewers.
type RecipeQuery struct {
	Tags             []string
	AuthorID         int64
	IsFavorited      bool
	IsInShoppingCart bool
	PageRequest
}

// RecipeSummary is the compact recipe view returned by toggles and subscriptions.
type RecipeSummary struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int    `json:"cooking_time"`
}

// RecipeView is the full recipe read model as seen by one viewer.
type RecipeView struct {
	ID          int64                     `json:"id"`
	Tags        []recipe.Tag              `json:"tags"`
	Author      UserView                  `json:"author"`
	Ingredients []recipe.RecipeIngredient `json:"ingredients"`
	Flags
	Name        string `json:"name"`
	Image       string `json:"image"`
	Text        string `json:"text"`
	CookingTime int    `json:"cooking_time"`
}

// Flags are the per-viewer booleans of a recipe.
type Flags struct {
	IsFavorited      bool `json:"is_favorited"`
	IsInShoppingCart bool `json:"is_in_shopping_cart"`
}

// flagsFor derives the viewer flags of a recipe from the viewer's favorite and
// cart lookups. Both lookups are empty for anonymous viewers.
func flagsFor(recipeID int64, favorites, cart map[int64]bool) Flags {
	return Flags{
		IsFavorited:      favorites[recipeID],
		IsInShoppingCart: cart[recipeID],
	}
}

// RecipeService composes recipe views and runs recipe writes.
type RecipeService struct {
	store     Store
	images    ImageStore
	validator *validation.Validator
	limits    Limits
	log       *zap.Logger
}

// NewRecipeService creates a RecipeService enforcing limits on writes.
func NewRecipeService(store Store, images ImageStore, v *validation.Validator, limits Limits, log *zap.Logger) *RecipeService {
	return &RecipeService{store: store, images: images, validator: v, limits: limits, log: log}
}

// Get returns the view of one recipe for viewer.
func (s *RecipeService) Get(ctx context.Context, id int64, viewer Viewer) (*RecipeView, error) {
	r, err := s.store.GetRecipe(ctx, id)
	if err != nil {
		return nil, notFound(err, "recipe")
	}
	views, err := s.views(ctx, []recipe.Recipe{*r}, viewer)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// List returns one page of recipes matching q, newest first.
func (s *RecipeService) List(ctx context.Context, q RecipeQuery, viewer Viewer) (Page[RecipeView], error) {
	if err := s.checkTagSlugs(ctx, q.Tags); err != nil {
		return Page[RecipeView]{}, err
	}

	f := recipe.RecipeFilter{
		TagSlugs: q.Tags,
		AuthorID: q.AuthorID,
		Limit:    q.Limit,
		Offset:   q.offset(),
	}
	if viewer.Authenticated() {
		if q.IsFavorited {
			f.FavoritedBy = viewer.ID
		}
		if q.IsInShoppingCart {
			f.InCartOf = viewer.ID
		}
	}

	recipes, total, err := s.store.ListRecipes(ctx, f)
	if err != nil {
		return Page[RecipeView]{}, internal(err)
	}
	views, err := s.views(ctx, recipes, viewer)
	if err != nil {
		return Page[RecipeView]{}, err
	}
	return Page[RecipeView]{Count: total, Results: views}, nil
}

// checkTagSlugs rejects filter slugs that name no tag.
func (s *RecipeService) checkTagSlugs(ctx context.Context, slugs []string) error {
	if len(slugs) == 0 {
		return nil
	}
	tags, err := s.store.ListTags(ctx)
	if err != nil {
		return internal(err)
	}
	known := make(map[string]bool, len(tags))
	for _, t := range tags {
		known[t.Slug] = true
	}
	for _, slug := range slugs {
		if !known[slug] {
			return apperr.ValidationWithDetails("invalid filter", map[string]string{
				"tags": fmt.Sprintf("select a valid choice, %q is not one of the available tags", slug),
			})
		}
	}
	return nil
}

// Summary returns the compact view of a recipe. It returns recipe.ErrNotFound
// unchanged so it can serve as a Toggle target.
func (s *RecipeService) Summary(ctx context.Context, id int64) (RecipeSummary, error) {
	r, err := s.store.GetRecipe(ctx, id)
	if err != nil {
		return RecipeSummary{}, err
	}
	return s.summarize(*r), nil
}

func (s *RecipeService) summarize(r recipe.Recipe) RecipeSummary {
	return RecipeSummary{ID: r.ID, Name: r.Name, Image: s.images.URL(r.Image), CookingTime: r.CookingTime}
}

// Create stores a new recipe authored by viewer and returns its view.
func (s *RecipeService) Create(ctx context.Context, viewer Viewer, in RecipeInput) (*RecipeView, error) {
	if !viewer.Authenticated() {
		return nil, apperr.ErrUnauthorized
	}
	if err := s.validate(in, true); err != nil {
		return nil, err
	}

	image, err := s.saveImage(in.Image)
	if err != nil {
		return nil, err
	}

	id, err := s.store.CreateRecipe(ctx, viewer.ID, in.write(image))
	if err != nil {
		s.removeImage(image)
		return nil, writeError(err)
	}
	return s.Get(ctx, id, viewer)
}

// Update replaces every field, tag and ingredient line of a recipe.
// Only the author or staff may update.
func (s *RecipeService) Update(ctx context.Context, id int64, viewer Viewer, in RecipeInput) (*RecipeView, error) {
	current, err := s.authorize(ctx, id, viewer)
	if err != nil {
		return nil, err
	}
	if err := s.validate(in, false); err != nil {
		return nil, err
	}

	image := current.Image
	if in.Image != "" {
		if image, err = s.saveImage(in.Image); err != nil {
			return nil, err
		}
	}

	if err := s.store.UpdateRecipe(ctx, id, in.write(image)); err != nil {
		if image != current.Image {
			s.removeImage(image)
		}
		return nil, writeError(err)
	}
	if image != current.Image {
		s.removeImage(current.Image)
	}
	return s.Get(ctx, id, viewer)
}

// Delete removes a recipe. Only the author or staff may delete.
func (s *RecipeService) Delete(ctx context.Context, id int64, viewer Viewer) error {
	current, err := s.authorize(ctx, id, viewer)
	if err != nil {
		return err
	}
	if err := s.store.DeleteRecipe(ctx, id); err != nil {
		return notFound(err, "recipe")
	}
	s.removeImage(current.Image)
	return nil
}

func (s *RecipeService) authorize(ctx context.Context, id int64, viewer Viewer) (*recipe.Recipe, error) {
	if !viewer.Authenticated() {
		return nil, apperr.ErrUnauthorized
	}
	r, err := s.store.GetRecipe(ctx, id)
	if err != nil {
		return nil, notFound(err, "recipe")
	}
	if r.AuthorID != viewer.ID && !viewer.IsStaff {
		return nil, apperr.Forbidden("only the author can change this recipe")
	}
	return r, nil
}

// validate checks in against the struct rules and the configured bounds and
// rejects repeated ingredient or tag ids. All problems are reported together.
func (s *RecipeService) validate(in RecipeInput, create bool) error {
	fields := map[string]string{}
	if err := s.validator.Validate(in); err != nil {
		var appErr *apperr.Error
		if !errors.As(err, &appErr) {
			return err
		}
		details, ok := appErr.Details.(map[string]string)
		if !ok {
			return err
		}
		maps.Copy(fields, details)
	}

	bounds := fmt.Sprintf("must be between %d and %d", s.limits.Min, s.limits.Max)
	if !s.limits.contains(in.CookingTime) {
		fields["cooking_time"] = bounds
	}

	seenIngredients := make(map[int64]bool, len(in.Ingredients))
	for i, ing := range in.Ingredients {
		if !s.limits.contains(ing.Amount) {
			fields[fmt.Sprintf("ingredients[%d].amount", i)] = bounds
		}
		if seenIngredients[ing.ID] {
			fields["ingredients"] = "ingredients must not repeat"
		}
		seenIngredients[ing.ID] = true
	}

	seenTags := make(map[int64]bool, len(in.Tags))
	for _, id := range in.Tags {
		if seenTags[id] {
			fields["tags"] = "tags must not repeat"
		}
		seenTags[id] = true
	}

	if create && in.Image == "" {
		fields["image"] = "this field is required"
	}

	if len(fields) > 0 {
		return apperr.ValidationWithDetails("validation failed", fields)
	}
	return nil
}

func (s *RecipeService) saveImage(dataURI string) (string, error) {
	path, err := s.images.Save(dataURI)
	if err != nil {
		if errors.Is(err, imagestore.ErrInvalidImage) {
			return "", apperr.ValidationWithDetails("validation failed", map[string]string{"image": err.Error()})
		}
		return "", internal(err)
	}
	return path, nil
}

func (s *RecipeService) removeImage(path string) {
	if path == "" {
		return
	}
	if err := s.images.Remove(path); err != nil {
		s.log.Warn("failed to remove recipe image", zap.String("path", path), zap.Error(err))
	}
}

func (in RecipeInput) write(image string) recipe.RecipeWrite {
	w := recipe.RecipeWrite{
		Name:        in.Name,
		Text:        in.Text,
		Image:       image,
		CookingTime: in.CookingTime,
		TagIDs:      in.Tags,
		Ingredients: make([]recipe.IngredientAmount, len(in.Ingredients)),
	}
	for i, ing := range in.Ingredients {
		w.Ingredients[i] = recipe.IngredientAmount{IngredientID: ing.ID, Amount: ing.Amount}
	}
	return w
}

// writeError maps store failures of a recipe write onto validation errors.
func writeError(err error) error {
	switch {
	case errors.Is(err, recipe.ErrUnknownTag):
		return apperr.ValidationWithDetails("validation failed", map[string]string{"tags": err.Error()})
	case errors.Is(err, recipe.ErrUnknownIngredient):
		return apperr.ValidationWithDetails("validation failed", map[string]string{"ingredients": err.Error()})
	case errors.Is(err, recipe.ErrAlreadyExists):
		return apperr.Conflict("recipe links must be unique")
	case errors.Is(err, recipe.ErrNotFound):
		return apperr.NotFoundf("recipe not found")
	default:
		return internal(err)
	}
}

// views builds the read model for recipes with a fixed number of batch queries.
func (s *RecipeService) views(ctx context.Context, recipes []recipe.Recipe, viewer Viewer) ([]RecipeView, error) {
	views := make([]RecipeView, 0, len(recipes))
	if len(recipes) == 0 {
		return views, nil
	}

	ids := make([]int64, len(recipes))
	authorIDs := make([]int64, 0, len(recipes))
	seenAuthor := map[int64]bool{}
	for i, r := range recipes {
		ids[i] = r.ID
		if !seenAuthor[r.AuthorID] {
			seenAuthor[r.AuthorID] = true
			authorIDs = append(authorIDs, r.AuthorID)
		}
	}

	tags, err := s.store.TagsForRecipes(ctx, ids)
	if err != nil {
		return nil, internal(err)
	}
	ingredients, err := s.store.IngredientsForRecipes(ctx, ids)
	if err != nil {
		return nil, internal(err)
	}
	authors, err := s.store.UsersByIDs(ctx, authorIDs)
	if err != nil {
		return nil, internal(err)
	}
	subscribed, err := s.store.LinkedTargets(ctx, recipe.Subscriptions, viewer.ID, authorIDs)
	if err != nil {
		return nil, internal(err)
	}
	favorites, err := s.store.LinkedTargets(ctx, recipe.Favorites, viewer.ID, ids)
	if err != nil {
		return nil, internal(err)
	}
	cart, err := s.store.LinkedTargets(ctx, recipe.ShoppingCart, viewer.ID, ids)
	if err != nil {
		return nil, internal(err)
	}

	for _, r := range recipes {
		v := RecipeView{
			ID:          r.ID,
			Tags:        tags[r.ID],
			Author:      newUserView(authors[r.AuthorID], subscribed[r.AuthorID]),
			Ingredients: ingredients[r.ID],
			Flags:       flagsFor(r.ID, favorites, cart),
			Name:        r.Name,
			Image:       s.images.URL(r.Image),
			Text:        r.Text,
			CookingTime: r.CookingTime,
		}
		if v.Tags == nil {
			v.Tags = []recipe.Tag{}
		}
		if v.Ingredients == nil {
			v.Ingredients = []recipe.RecipeIngredient{}
		}
		views = append(views, v)
	}
	return views, nil
}
