package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/auth"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db/models"
	pkgerrors "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/errors"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/pagination"
)

// Service is the caller's notification feed.
type Service interface {
	List(ctx context.Context, actor auth.Actor, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, actor auth.Actor, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, actor auth.Actor) (int64, error)
}

type ListParams struct {
	pagination.Params
	UnreadOnly bool
}

type ListResult struct {
	Items       []models.Notification `json:"items"`
	NextCursor  string                `json:"next_cursor,omitempty"`
	UnreadCount int64                 `json:"unread_count"`
}

type feedStore interface {
	Feed(ctx context.Context, q feedQuery) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID, at time.Time) (bool, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)
}

type service struct {
	store feedStore
	now   func() time.Time
}

func NewService(store feedStore) (Service, error) {
	if store == nil {
		return nil, errors.New("notifications store required")
	}
	return &service{store: store, now: time.Now}, nil
}

var errNoActor = pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")

func (s *service) List(ctx context.Context, actor auth.Actor, params ListParams) (*ListResult, error) {
	if actor.UserID == uuid.Nil {
		return nil, errNoActor
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor").
			WithDetails(pkgerrors.FieldErrors{"cursor": "invalid cursor"})
	}

	rows, err := s.store.Feed(ctx, feedQuery{
		userID:     actor.UserID,
		cursor:     cursor,
		limit:      params.Limit,
		unreadOnly: params.UnreadOnly,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	unread, err := s.store.CountUnread(ctx, actor.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}

	page := pagination.Trim(rows, params.Limit, func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	})
	return &ListResult{Items: page.Items, NextCursor: page.NextCursor, UnreadCount: unread}, nil
}

func (s *service) MarkRead(ctx context.Context, actor auth.Actor, notificationID uuid.UUID) error {
	switch {
	case actor.UserID == uuid.Nil:
		return errNoActor
	case notificationID == uuid.Nil:
		return pkgerrors.Validation("id", "notification id required")
	}
	found, err := s.store.MarkRead(ctx, actor.UserID, notificationID, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, actor auth.Actor) (int64, error) {
	if actor.UserID == uuid.Nil {
		return 0, errNoActor
	}
	n, err := s.store.MarkAllRead(ctx, actor.UserID, s.now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return n, nil
}
