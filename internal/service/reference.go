package service

import (
	"context"
	"errors"
	"strings"

	"github.com/gosimple/slug"

	"github.com/foodgram/foodgram-api/internal/apperr"
	"github.com/foodgram/foodgram-api/internal/recipe"
	"github.com/foodgram/foodgram-api/internal/validation"
)

// TagInput creates a tag. An empty slug is derived from the name.
type TagInput struct {
	Name  string `json:"name" validate:"required,max=200"`
	Color string `json:"color" validate:"required,hexcolor"`
	Slug  string `json:"slug" validate:"omitempty,max=200,slug"`
}

// CreateIngredientInput creates an ingredient.
type CreateIngredientInput struct {
	Name            string `json:"name" validate:"required,max=200"`
	MeasurementUnit string `json:"measurement_unit" validate:"required,max=200"`
}

// ReferenceService serves tags and ingredients. Only staff may create them.
type ReferenceService struct {
	store     Store
	validator *validation.Validator
}

// NewReferenceService creates a ReferenceService.
func NewReferenceService(store Store, v *validation.Validator) *ReferenceService {
	return &ReferenceService{store: store, validator: v}
}

func (s *ReferenceService) ListTags(ctx context.Context) ([]recipe.Tag, error) {
	tags, err := s.store.ListTags(ctx)
	if err != nil {
		return nil, internal(err)
	}
	return tags, nil
}

func (s *ReferenceService) GetTag(ctx context.Context, id int64) (*recipe.Tag, error) {
	t, err := s.store.GetTag(ctx, id)
	if err != nil {
		return nil, notFound(err, "tag")
	}
	return t, nil
}

// CreateTag stores a tag. Name, color and slug must each be unused.
func (s *ReferenceService) CreateTag(ctx context.Context, viewer Viewer, in TagInput) (*recipe.Tag, error) {
	if err := requireStaff(viewer); err != nil {
		return nil, err
	}
	if in.Slug == "" {
		in.Slug = slug.Make(in.Name)
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	t := &recipe.Tag{Name: in.Name, Color: strings.ToUpper(in.Color), Slug: in.Slug}
	if err := s.store.CreateTag(ctx, t); err != nil {
		if errors.Is(err, recipe.ErrAlreadyExists) {
			return nil, apperr.Conflict("a tag with this name, color or slug already exists")
		}
		return nil, internal(err)
	}
	return t, nil
}

// ListIngredients returns ingredients whose name starts with prefix.
func (s *ReferenceService) ListIngredients(ctx context.Context, prefix string) ([]recipe.Ingredient, error) {
	ingredients, err := s.store.ListIngredients(ctx, strings.TrimSpace(prefix))
	if err != nil {
		return nil, internal(err)
	}
	return ingredients, nil
}

func (s *ReferenceService) GetIngredient(ctx context.Context, id int64) (*recipe.Ingredient, error) {
	i, err := s.store.GetIngredient(ctx, id)
	if err != nil {
		return nil, notFound(err, "ingredient")
	}
	return i, nil
}

// CreateIngredient stores an ingredient; (name, measurement_unit) must be unused.
func (s *ReferenceService) CreateIngredient(ctx context.Context, viewer Viewer, in CreateIngredientInput) (*recipe.Ingredient, error) {
	if err := requireStaff(viewer); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	i := &recipe.Ingredient{Name: in.Name, MeasurementUnit: in.MeasurementUnit}
	if err := s.store.CreateIngredient(ctx, i); err != nil {
		if errors.Is(err, recipe.ErrAlreadyExists) {
			return nil, apperr.Conflict("this ingredient already exists with this measurement unit")
		}
		return nil, internal(err)
	}
	return i, nil
}

func requireStaff(viewer Viewer) error {
	if !viewer.Authenticated() {
		return apperr.ErrUnauthorized
	}
	if !viewer.IsStaff {
		return apperr.Forbidden("only staff can change reference data")
	}
	return nil
}
