package service

import (
	"context"
	"errors"

	"github.com/foodgram/foodgram-api/internal/apperr"
	"github.com/foodgram/foodgram-api/internal/recipe"
)

// Toggle adds and removes link rows of one relation for the calling user.
// V is the view of the link target returned by Add.
//
// Adding an existing link and removing a missing one both fail with a conflict,
// so repeated identical calls never silently succeed.
type Toggle[V any] struct {
	links  LinkStore
	rel    recipe.Relation
	target func(ctx context.Context, id int64) (V, error)
	msgs   ToggleMessages
}

// ToggleMessages names the target and words the conflict errors of a Toggle.
type ToggleMessages struct {
	Target        string
	AlreadyLinked string
	NotLinked     string
}

// NewToggle creates a toggle over rel. target loads the view of a target id and
// must return recipe.ErrNotFound when the target does not exist.
func NewToggle[V any](links LinkStore, rel recipe.Relation, target func(ctx context.Context, id int64) (V, error), msgs ToggleMessages) *Toggle[V] {
	return &Toggle[V]{links: links, rel: rel, target: target, msgs: msgs}
}

// Add links userID to targetID and returns the target view.
func (t *Toggle[V]) Add(ctx context.Context, userID, targetID int64) (V, error) {
	var zero V
	view, err := t.resolve(ctx, targetID)
	if err != nil {
		return zero, err
	}

	if err := t.links.AddLink(ctx, t.rel, userID, targetID); err != nil {
		if errors.Is(err, recipe.ErrAlreadyExists) {
			return zero, apperr.Conflict(t.msgs.AlreadyLinked)
		}
		return zero, notFound(err, t.msgs.Target)
	}
	return view, nil
}

// Remove unlinks userID from targetID.
func (t *Toggle[V]) Remove(ctx context.Context, userID, targetID int64) error {
	if _, err := t.resolve(ctx, targetID); err != nil {
		return err
	}

	if err := t.links.RemoveLink(ctx, t.rel, userID, targetID); err != nil {
		if errors.Is(err, recipe.ErrNotFound) {
			return apperr.Conflict(t.msgs.NotLinked)
		}
		return internal(err)
	}
	return nil
}

// Linked reports whether userID is linked to targetID. Anonymous users are never linked.
func (t *Toggle[V]) Linked(ctx context.Context, userID, targetID int64) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	ok, err := t.links.LinkExists(ctx, t.rel, userID, targetID)
	if err != nil {
		return false, internal(err)
	}
	return ok, nil
}

func (t *Toggle[V]) resolve(ctx context.Context, targetID int64) (V, error) {
	view, err := t.target(ctx, targetID)
	if err != nil {
		var zero V
		return zero, notFound(err, t.msgs.Target)
	}
	return view, nil
}
