package service

import (
	"context"
	"errors"

	notificationserrors "aptbook/internal/notifications/errors"
	"aptbook/internal/notifications/repository"
	"aptbook/pkg/auth"
	"aptbook/pkg/config"
	apperrors "aptbook/pkg/errors"
	"aptbook/pkg/model"
)

type NotificationService interface {
	ListMine(ctx context.Context, unreadOnly bool, limit int, offset int64) ([]*model.Notification, int64, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) (int64, error)
}

type notificationService struct {
	repo repository.NotificationRepository
	cfg  *config.Config
}

func NewNotificationService(repo repository.NotificationRepository, cfg *config.Config) NotificationService {
	return &notificationService{
		repo: repo,
		cfg:  cfg,
	}
}

func (s *notificationService) ListMine(ctx context.Context, unreadOnly bool, limit int, offset int64) ([]*model.Notification, int64, error) {
	caller, err := auth.RequireIdentity(ctx)
	if err != nil {
		return nil, 0, err
	}

	notifications, err := s.repo.FindByUser(ctx, caller.UserID, unreadOnly, limit, offset)
	if err != nil {
		s.cfg.Log.Error("Failed to list notifications", "user_id", caller.UserID, "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve notifications", err)
	}
	total, err := s.repo.CountByUser(ctx, caller.UserID, unreadOnly)
	if err != nil {
		s.cfg.Log.Error("Failed to count notifications", "user_id", caller.UserID, "error", err)
		return nil, 0, apperrors.Internal("Failed to count notifications", err)
	}
	return notifications, total, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id string) error {
	caller, err := auth.RequireIdentity(ctx)
	if err != nil {
		return err
	}
	if id == "" {
		return apperrors.InvalidInput("Notification ID cannot be empty")
	}

	if err := s.repo.MarkRead(ctx, id, caller.UserID); err != nil {
		if errors.Is(err, notificationserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Notification", id)
		}
		s.cfg.Log.Error("Failed to mark notification read", "id", id, "error", err)
		return apperrors.Internal("Failed to update notification", err)
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context) (int64, error) {
	caller, err := auth.RequireIdentity(ctx)
	if err != nil {
		return 0, err
	}

	n, err := s.repo.MarkAllRead(ctx, caller.UserID)
	if err != nil {
		s.cfg.Log.Error("Failed to mark notifications read", "user_id", caller.UserID, "error", err)
		return 0, apperrors.Internal("Failed to update notifications", err)
	}
	return n, nil
}
