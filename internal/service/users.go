package service

import (
	"context"
	"errors"

	"github.com/foodgram/foodgram-api/internal/apperr"
	"github.com/foodgram/foodgram-api/internal/auth"
	"github.com/foodgram/foodgram-api/internal/recipe"
	"github.com/foodgram/foodgram-api/internal/validation"
)

// UserView is a user as seen by a viewer.
type UserView struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	IsSubscribed bool   `json:"is_subscribed"`
}

func newUserView(u recipe.User, subscribed bool) UserView {
	return UserView{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: subscribed,
	}
}

// RegisterInput is the sign-up payload.
type RegisterInput struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Username  string `json:"username" validate:"required,max=150,username"`
	FirstName string `json:"first_name" validate:"required,max=150"`
	LastName  string `json:"last_name" validate:"required,max=150"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
}

// RegisteredUser is returned by Register.
type RegisteredUser struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// LoginInput exchanges credentials for a token.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SetPasswordInput changes the caller's password.
type SetPasswordInput struct {
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
	CurrentPassword string `json:"current_password" validate:"required"`
}

// TokenIssuer issues API tokens.
type TokenIssuer interface {
	Issue(userID int64) (string, error)
}

// UserService manages accounts and token login.
type UserService struct {
	store     Store
	tokens    TokenIssuer
	validator *validation.Validator
}

// NewUserService creates a UserService.
func NewUserService(store Store, tokens TokenIssuer, v *validation.Validator) *UserService {
	return &UserService{store: store, tokens: tokens, validator: v}
}

// Register creates an account.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*RegisteredUser, error) {
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, internal(err)
	}
	u := &recipe.User{
		Email:        in.Email,
		Username:     in.Username,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, recipe.ErrAlreadyExists) {
			return nil, apperr.ValidationWithDetails("validation failed", map[string]string{
				"email": "a user with this email or username already exists",
			})
		}
		return nil, internal(err)
	}
	return &RegisteredUser{ID: u.ID, Email: u.Email, Username: u.Username, FirstName: u.FirstName, LastName: u.LastName}, nil
}

// Login verifies credentials and issues a token.
func (s *UserService) Login(ctx context.Context, in LoginInput) (string, error) {
	if err := s.validator.Validate(in); err != nil {
		return "", err
	}

	invalid := apperr.Validation("unable to log in with provided credentials")
	u, err := s.store.GetUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, recipe.ErrNotFound) {
			return "", invalid
		}
		return "", internal(err)
	}
	if err := auth.CheckPassword(u.PasswordHash, in.Password); err != nil {
		return "", invalid
	}

	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return "", internal(err)
	}
	return token, nil
}

// SetPassword replaces the viewer's password after checking the current one.
func (s *UserService) SetPassword(ctx context.Context, viewer Viewer, in SetPasswordInput) error {
	if !viewer.Authenticated() {
		return apperr.ErrUnauthorized
	}
	if err := s.validator.Validate(in); err != nil {
		return err
	}

	u, err := s.store.GetUser(ctx, viewer.ID)
	if err != nil {
		return notFound(err, "user")
	}
	if err := auth.CheckPassword(u.PasswordHash, in.CurrentPassword); err != nil {
		return apperr.ValidationWithDetails("validation failed", map[string]string{
			"current_password": "invalid password",
		})
	}

	hash, err := auth.HashPassword(in.NewPassword)
	if err != nil {
		return internal(err)
	}
	if err := s.store.UpdatePassword(ctx, viewer.ID, hash); err != nil {
		return notFound(err, "user")
	}
	return nil
}

// Get returns a user with is_subscribed relative to viewer.
func (s *UserService) Get(ctx context.Context, id int64, viewer Viewer) (*UserView, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, notFound(err, "user")
	}
	subscribed, err := s.store.LinkedTargets(ctx, recipe.Subscriptions, viewer.ID, []int64{id})
	if err != nil {
		return nil, internal(err)
	}
	v := newUserView(*u, subscribed[id])
	return &v, nil
}

// List returns one page of users ordered by id.
func (s *UserService) List(ctx context.Context, p PageRequest, viewer Viewer) (Page[UserView], error) {
	users, total, err := s.store.ListUsers(ctx, p.Limit, p.offset())
	if err != nil {
		return Page[UserView]{}, internal(err)
	}

	ids := make([]int64, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	subscribed, err := s.store.LinkedTargets(ctx, recipe.Subscriptions, viewer.ID, ids)
	if err != nil {
		return Page[UserView]{}, internal(err)
	}

	views := make([]UserView, len(users))
	for i, u := range users {
		views[i] = newUserView(u, subscribed[u.ID])
	}
	return Page[UserView]{Count: total, Results: views}, nil
}
