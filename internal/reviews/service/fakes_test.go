package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	apartmentserrors "aptbook/internal/apartments/errors"
	reviewserrors "aptbook/internal/reviews/errors"
	"aptbook/internal/reviews/repository"
	"aptbook/pkg/model"
)

type apartmentFinderFunc func(ctx context.Context, id string) (*model.Apartment, error)

func (f apartmentFinderFunc) FindByID(ctx context.Context, id string) (*model.Apartment, error) {
	return f(ctx, id)
}

func apartmentsOf(apartments ...*model.Apartment) ApartmentFinder {
	return apartmentFinderFunc(func(_ context.Context, id string) (*model.Apartment, error) {
		for _, a := range apartments {
			if a.ID == id {
				return a, nil
			}
		}
		return nil, apartmentserrors.ErrNotFound
	})
}

// memoryReviewRepository enforces one review per (apartment, user) like the unique index.
type memoryReviewRepository struct {
	mu      sync.Mutex
	reviews map[string]*model.Review
	seq     int
}

func newMemoryReviewRepository() *memoryReviewRepository {
	return &memoryReviewRepository{reviews: map[string]*model.Review{}}
}

func (r *memoryReviewRepository) Create(_ context.Context, review *model.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.reviews {
		if existing.ApartmentID == review.ApartmentID && existing.UserID == review.UserID {
			return reviewserrors.ErrAlreadyReviewed
		}
	}
	r.seq++
	review.ID = fmt.Sprintf("66c0000000000000000000%02d", r.seq)
	cp := *review
	r.reviews[review.ID] = &cp
	return nil
}

func (r *memoryReviewRepository) FindByID(_ context.Context, id string) (*model.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	review, ok := r.reviews[id]
	if !ok {
		return nil, reviewserrors.ErrNotFound
	}
	cp := *review
	return &cp, nil
}

func (r *memoryReviewRepository) byApartment(apartmentID string) []*model.Review {
	var out []*model.Review
	for _, review := range r.reviews {
		if review.ApartmentID == apartmentID {
			cp := *review
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *memoryReviewRepository) FindByApartment(_ context.Context, apartmentID string, limit int, offset int64) ([]*model.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.byApartment(apartmentID)
	if int(offset) >= len(all) {
		return []*model.Review{}, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *memoryReviewRepository) CountByApartment(_ context.Context, apartmentID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.byApartment(apartmentID))), nil
}

func (r *memoryReviewRepository) Summarize(_ context.Context, apartmentID string) (*repository.Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	summary := &repository.Summary{ApartmentID: apartmentID}
	reviews := r.byApartment(apartmentID)
	if len(reviews) == 0 {
		return summary, nil
	}
	total := 0
	for _, review := range reviews {
		total += review.Rating
	}
	summary.Count = int64(len(reviews))
	summary.AverageRating = float64(total) / float64(len(reviews))
	return summary, nil
}

func (r *memoryReviewRepository) Update(_ context.Context, review *model.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reviews[review.ID]; !ok {
		return reviewserrors.ErrNotFound
	}
	cp := *review
	r.reviews[review.ID] = &cp
	return nil
}

func (r *memoryReviewRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reviews[id]; !ok {
		return reviewserrors.ErrNotFound
	}
	delete(r.reviews, id)
	return nil
}
