package service

import (
	"context"
	"errors"

	apartmentserrors "aptbook/internal/apartments/errors"
	reviewserrors "aptbook/internal/reviews/errors"
	"aptbook/internal/reviews/repository"
	"aptbook/internal/reviews/validator"
	"aptbook/pkg/auth"
	"aptbook/pkg/config"
	apperrors "aptbook/pkg/errors"
	"aptbook/pkg/model"
	"aptbook/pkg/sanitizer"
)

// ApartmentFinder resolves the apartment a review belongs to.
type ApartmentFinder interface {
	FindByID(ctx context.Context, id string) (*model.Apartment, error)
}

type ReviewService interface {
	List(ctx context.Context, apartmentID string, limit int, offset int64) ([]*model.Review, int64, error)
	Summary(ctx context.Context, apartmentID string) (*repository.Summary, error)
	Create(ctx context.Context, apartmentID string, input *model.ReviewInput) (*model.Review, error)
	Update(ctx context.Context, id string, input *model.ReviewUpdate) (*model.Review, error)
	Delete(ctx context.Context, id string) error
}

type reviewService struct {
	repo       repository.ReviewRepository
	apartments ApartmentFinder
	validator  *validator.ReviewValidator
	cfg        *config.Config
}

func NewReviewService(
	repo repository.ReviewRepository,
	apartments ApartmentFinder,
	validator *validator.ReviewValidator,
	cfg *config.Config,
) ReviewService {
	return &reviewService{
		repo:       repo,
		apartments: apartments,
		validator:  validator,
		cfg:        cfg,
	}
}

func (s *reviewService) List(ctx context.Context, apartmentID string, limit int, offset int64) ([]*model.Review, int64, error) {
	if _, err := s.findApartment(ctx, apartmentID); err != nil {
		return nil, 0, err
	}

	reviews, err := s.repo.FindByApartment(ctx, apartmentID, limit, offset)
	if err != nil {
		s.cfg.Log.Error("Failed to list reviews", "apartment_id", apartmentID, "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve reviews", err)
	}
	total, err := s.repo.CountByApartment(ctx, apartmentID)
	if err != nil {
		s.cfg.Log.Error("Failed to count reviews", "apartment_id", apartmentID, "error", err)
		return nil, 0, apperrors.Internal("Failed to count reviews", err)
	}
	return reviews, total, nil
}

func (s *reviewService) Summary(ctx context.Context, apartmentID string) (*repository.Summary, error) {
	if _, err := s.findApartment(ctx, apartmentID); err != nil {
		return nil, err
	}

	summary, err := s.repo.Summarize(ctx, apartmentID)
	if err != nil {
		s.cfg.Log.Error("Failed to summarize reviews", "apartment_id", apartmentID, "error", err)
		return nil, apperrors.Internal("Failed to summarize reviews", err)
	}
	return summary, nil
}

// Create records the caller's review. Hosts cannot review their own listing.
func (s *reviewService) Create(ctx context.Context, apartmentID string, input *model.ReviewInput) (*model.Review, error) {
	caller, err := auth.RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	apartment, err := s.findApartment(ctx, apartmentID)
	if err != nil {
		return nil, err
	}
	if apartment.HostID == caller.UserID {
		return nil, apperrors.Forbidden("Hosts cannot review their own apartment")
	}

	input.Comment = sanitizer.SanitizeText(input.Comment)
	if err := s.validator.ValidateCreate(input); err != nil {
		return nil, apperrors.Validation("Review validation failed", map[string]any{"errors": err})
	}

	review := &model.Review{
		ApartmentID: apartmentID,
		UserID:      caller.UserID,
		Rating:      input.Rating,
		Comment:     input.Comment,
	}
	if err := s.repo.Create(ctx, review); err != nil {
		if errors.Is(err, reviewserrors.ErrAlreadyReviewed) {
			return nil, apperrors.Conflict("You have already reviewed this apartment")
		}
		s.cfg.Log.Error("Failed to create review", "apartment_id", apartmentID, "user_id", caller.UserID, "error", err)
		return nil, apperrors.Internal("Failed to create review", err)
	}

	s.cfg.Log.Info("Review created", "id", review.ID, "apartment_id", apartmentID, "user_id", caller.UserID)
	return review, nil
}

func (s *reviewService) Update(ctx context.Context, id string, input *model.ReviewUpdate) (*model.Review, error) {
	caller, err := auth.RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	review, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if review.UserID != caller.UserID {
		return nil, apperrors.Forbidden("Only the author can edit this review")
	}

	if input.Comment != nil {
		comment := sanitizer.SanitizeText(*input.Comment)
		input.Comment = &comment
	}
	if err := s.validator.ValidateUpdate(input); err != nil {
		return nil, apperrors.Validation("Review validation failed", map[string]any{"errors": err})
	}

	if input.Rating != nil {
		review.Rating = *input.Rating
	}
	if input.Comment != nil {
		review.Comment = *input.Comment
	}
	if err := s.repo.Update(ctx, review); err != nil {
		return nil, s.mapStoreError(err, id, "Failed to update review")
	}
	return review, nil
}

// Delete removes a review. Authors and admins may delete.
func (s *reviewService) Delete(ctx context.Context, id string) error {
	caller, err := auth.RequireIdentity(ctx)
	if err != nil {
		return err
	}

	review, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if review.UserID != caller.UserID && !caller.IsAdmin() {
		return apperrors.Forbidden("Only the author can delete this review")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return s.mapStoreError(err, id, "Failed to delete review")
	}
	s.cfg.Log.Info("Review deleted", "id", id, "by", caller.UserID)
	return nil
}

func (s *reviewService) load(ctx context.Context, id string) (*model.Review, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Review ID cannot be empty")
	}
	review, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapStoreError(err, id, "Failed to retrieve review")
	}
	return review, nil
}

func (s *reviewService) findApartment(ctx context.Context, id string) (*model.Apartment, error) {
	apartment, err := s.apartments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, apartmentserrors.ErrNotFound) || errors.Is(err, apartmentserrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("Apartment", id)
		}
		s.cfg.Log.Error("Failed to retrieve apartment", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve apartment", err)
	}
	return apartment, nil
}

func (s *reviewService) mapStoreError(err error, id, message string) error {
	switch {
	case errors.Is(err, reviewserrors.ErrNotFound), errors.Is(err, reviewserrors.ErrInvalidID):
		return apperrors.NotFoundWithID("Review", id)
	default:
		s.cfg.Log.Error(message, "id", id, "error", err)
		return apperrors.Internal(message, err)
	}
}
