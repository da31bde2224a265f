package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	apartmentserrors "aptbook/internal/apartments/errors"
	"aptbook/internal/apartments/images"
	"aptbook/internal/apartments/repository"
	"aptbook/internal/apartments/validator"
	"aptbook/pkg/auth"
	"aptbook/pkg/cache"
	"aptbook/pkg/clock"
	"aptbook/pkg/config"
	apperrors "aptbook/pkg/errors"
	"aptbook/pkg/events"
	"aptbook/pkg/locale"
	"aptbook/pkg/model"
	"aptbook/pkg/sanitizer"

	"github.com/google/uuid"
)

const (
	listKeyPrefix         = "apartment:list:"
	detailKeyPrefix       = "apartment:detail:"
	availabilityKeyPrefix = "apartment:availability:"

	// DefaultAvailabilityDays is the calendar window returned when no range is given.
	DefaultAvailabilityDays = 90
	MaxAvailabilityDays     = 366
)

func detailKey(id string) string { return detailKeyPrefix + id }

func availabilityPrefix(id string) string { return availabilityKeyPrefix + id + ":" }

func listKey(f model.ApartmentFilter, limit int, offset int64) string {
	return listKeyPrefix + strings.Join([]string{
		strings.ToLower(f.City),
		strconv.Itoa(f.MinGuests),
		strconv.Itoa(limit),
		strconv.FormatInt(offset, 10),
	}, ":")
}

type ApartmentPage struct {
	Apartments []*model.Apartment `json:"apartments"`
	Total      int64              `json:"total"`
}

type ApartmentService interface {
	List(ctx context.Context, filter model.ApartmentFilter, limit int, offset int64) ([]*model.Apartment, int64, error)
	ListMine(ctx context.Context, limit int, offset int64) ([]*model.Apartment, int64, error)
	GetByID(ctx context.Context, id string) (*model.Apartment, error)
	Create(ctx context.Context, input *model.ApartmentInput) (*model.Apartment, error)
	Update(ctx context.Context, id string, input *model.ApartmentUpdate) (*model.Apartment, error)
	Delete(ctx context.Context, id string) error
	Verify(ctx context.Context, id string) (*model.Apartment, error)
	SetPricing(ctx context.Context, id string, input *model.PricingInput) (*model.Apartment, error)
	GetAvailability(ctx context.Context, id string, from, to *model.Date) ([]*model.ApartmentAvailability, error)
	SetAvailability(ctx context.Context, id string, input *model.AvailabilityInput) ([]*model.ApartmentAvailability, error)
	UploadImage(ctx context.Context, id string, data []byte, isCover bool) (*model.Apartment, error)
}

type apartmentService struct {
	repo         repository.ApartmentRepository
	availability repository.AvailabilityRepository
	validator    *validator.ApartmentValidator
	cache        cache.Cache
	images       images.Store
	publisher    events.Publisher
	clock        clock.Clock
	cfg          *config.Config
}

func NewApartmentService(
	repo repository.ApartmentRepository,
	availability repository.AvailabilityRepository,
	validator *validator.ApartmentValidator,
	cache cache.Cache,
	images images.Store,
	publisher events.Publisher,
	clk clock.Clock,
	cfg *config.Config,
) ApartmentService {
	return &apartmentService{
		repo:         repo,
		availability: availability,
		validator:    validator,
		cache:        cache,
		images:       images,
		publisher:    publisher,
		clock:        clk,
		cfg:          cfg,
	}
}

// List returns active, verified apartments. Pages are cached per filter.
func (s *apartmentService) List(ctx context.Context, filter model.ApartmentFilter, limit int, offset int64) ([]*model.Apartment, int64, error) {
	filter.City = sanitizer.SanitizeText(filter.City)
	filter.HostID = ""
	filter.IncludeUnlisted = false

	key := listKey(filter, limit, offset)
	var page ApartmentPage
	if s.cacheGet(ctx, key, &page) {
		return page.Apartments, page.Total, nil
	}

	apartments, total, err := s.list(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	s.cacheSet(ctx, key, ApartmentPage{Apartments: apartments, Total: total}, s.cfg.CacheListTTL)
	return apartments, total, nil
}

func (s *apartmentService) ListMine(ctx context.Context, limit int, offset int64) ([]*model.Apartment, int64, error) {
	caller, err := auth.RequireIdentity(ctx)
	if err != nil {
		return nil, 0, err
	}
	return s.list(ctx, model.ApartmentFilter{HostID: caller.UserID, IncludeUnlisted: true}, limit, offset)
}

func (s *apartmentService) list(ctx context.Context, filter model.ApartmentFilter, limit int, offset int64) ([]*model.Apartment, int64, error) {
	var count int64
	var apartments []*model.Apartment
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, filter)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count apartments", "error", errCount)
			errCount = apperrors.Internal("Failed to count apartments", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		apartments, errFind = s.repo.Find(ctx, filter, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list apartments", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve apartments", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}
	return apartments, count, nil
}

// GetByID hides unlisted apartments from everyone but their host and admins.
func (s *apartmentService) GetByID(ctx context.Context, id string) (*model.Apartment, error) {
	apartment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if !apartment.IsActive || !apartment.IsVerified {
		caller := auth.FromContext(ctx)
		if caller == nil || (caller.UserID != apartment.HostID && !caller.IsAdmin()) {
			return nil, apperrors.NotFoundWithID("Apartment", id)
		}
	}
	return apartment, nil
}

func (s *apartmentService) Create(ctx context.Context, input *model.ApartmentInput) (*model.Apartment, error) {
	caller, err := auth.RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	s.sanitizeInput(input)
	if err := s.validator.ValidateCreate(input); err != nil {
		s.cfg.Log.Warn("Apartment validation failed", "host_id", caller.UserID, "error", err)
		return nil, apperrors.Validation("Apartment validation failed", map[string]any{"errors": err})
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	apartment := &model.Apartment{
		HostID:         caller.UserID,
		Title:          input.Title,
		Description:    input.Description,
		PropertyType:   input.PropertyType,
		TotalBedrooms:  input.TotalBedrooms,
		TotalBathrooms: input.TotalBathrooms,
		MaxGuests:      input.MaxGuests,
		IsActive:       isActive,
		Address:        input.Address,
		Amenities:      nonNil(input.Amenities),
		Rules:          nonNil(input.Rules),
		Images:         []model.ApartmentImage{},
	}

	if err := s.repo.Create(ctx, apartment); err != nil {
		s.cfg.Log.Error("Failed to create apartment", "host_id", caller.UserID, "error", err)
		return nil, apperrors.Internal("Failed to create apartment", err)
	}

	// new listings are unverified, so public pages do not change yet
	s.cfg.Log.Info("Apartment created successfully", "id", apartment.ID, "host_id", apartment.HostID)
	return apartment, nil
}

func (s *apartmentService) Update(ctx context.Context, id string, input *model.ApartmentUpdate) (*model.Apartment, error) {
	apartment, err := s.loadOwned(ctx, id)
	if err != nil {
		return nil, err
	}

	s.sanitizeUpdate(input)
	if err := s.validator.ValidateUpdate(input); err != nil {
		return nil, apperrors.Validation("Apartment validation failed", map[string]any{"errors": err})
	}

	applyUpdate(apartment, input)
	if err := s.repo.Update(ctx, apartment); err != nil {
		return nil, s.mapStoreError(err, id, "Failed to update apartment")
	}

	s.invalidate(ctx, id)
	s.cfg.Log.Info("Apartment updated successfully", "id", id)
	return apartment, nil
}

func (s *apartmentService) Delete(ctx context.Context, id string) error {
	if _, err := s.loadOwned(ctx, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return s.mapStoreError(err, id, "Failed to delete apartment")
	}
	if err := s.availability.DeleteForApartment(ctx, id); err != nil {
		s.cfg.Log.Warn("Failed to delete availability of removed apartment", "id", id, "error", err)
	}

	s.invalidate(ctx, id)
	s.invalidateAvailability(ctx, id)
	s.cfg.Log.Info("Apartment deleted successfully", "id", id)
	return nil
}

func (s *apartmentService) Verify(ctx context.Context, id string) (*model.Apartment, error) {
	caller, err := auth.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	apartment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if apartment.IsVerified {
		return apartment, nil
	}

	if err := s.repo.SetVerified(ctx, id, true); err != nil {
		return nil, s.mapStoreError(err, id, "Failed to verify apartment")
	}
	apartment.IsVerified = true

	s.invalidate(ctx, id)
	s.cfg.Log.Info("Apartment verified", "id", id, "verified_by", caller.UserID)

	event := events.ApartmentEvent{
		ApartmentID: apartment.ID,
		HostID:      apartment.HostID,
		Title:       apartment.Title,
		ActorID:     caller.UserID,
	}
	if err := s.publisher.Publish(ctx, events.TopicApartments, apartment.ID, events.ApartmentVerified, event); err != nil {
		s.cfg.Log.Error("Failed to publish apartment event", "event_type", events.ApartmentVerified, "apartment_id", id, "error", err)
	}
	return apartment, nil
}

func (s *apartmentService) SetPricing(ctx context.Context, id string, input *model.PricingInput) (*model.Apartment, error) {
	apartment, err := s.loadOwned(ctx, id)
	if err != nil {
		return nil, err
	}

	input.Currency = strings.TrimSpace(input.Currency)
	if err := s.validator.ValidatePricing(input); err != nil {
		return nil, apperrors.Validation("Pricing validation failed", map[string]any{"errors": err})
	}

	currency := input.Currency
	if currency == "" {
		currency = model.DefaultCurrency
	}
	pricing := &model.ApartmentPricing{
		PricePerNight: input.PricePerNight,
		CleaningFee:   input.CleaningFee,
		ServiceFee:    input.ServiceFee,
		WeekendPrice:  input.WeekendPrice,
		Currency:      currency,
	}

	if err := s.repo.SetPricing(ctx, id, pricing); err != nil {
		return nil, s.mapStoreError(err, id, "Failed to set pricing")
	}
	apartment.Pricing = pricing

	s.invalidate(ctx, id)
	s.cfg.Log.Info("Apartment pricing updated", "id", id, "price_per_night", pricing.PricePerNight.String(), "currency", currency)
	return apartment, nil
}

// GetAvailability returns one entry per day in [from, to). Days without an
// override are available.
func (s *apartmentService) GetAvailability(ctx context.Context, id string, from, to *model.Date) ([]*model.ApartmentAvailability, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}

	start := model.DateOf(clock.Today(s.clock))
	if from != nil {
		start = *from
	}
	end := start.AddDays(DefaultAvailabilityDays)
	if to != nil {
		end = *to
	}
	if !start.Before(end) {
		return nil, apperrors.InvalidInput("'to' must be after 'from'")
	}
	if start.DaysUntil(end) > MaxAvailabilityDays {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Range cannot exceed %d days", MaxAvailabilityDays))
	}

	key := availabilityPrefix(id) + start.String() + ":" + end.String()
	var cached []*model.ApartmentAvailability
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	overrides, err := s.availability.FindRange(ctx, id, start, end)
	if err != nil {
		s.cfg.Log.Error("Failed to load availability", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve availability", err)
	}

	calendar := expandCalendar(id, start, end, overrides)
	s.cacheSet(ctx, key, calendar, s.cfg.CacheAvailabilityTTL)
	return calendar, nil
}

func (s *apartmentService) SetAvailability(ctx context.Context, id string, input *model.AvailabilityInput) ([]*model.ApartmentAvailability, error) {
	if _, err := s.loadOwned(ctx, id); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateAvailability(input); err != nil {
		return nil, apperrors.Validation("Availability validation failed", map[string]any{"errors": err})
	}

	if err := s.availability.Upsert(ctx, id, input.Days); err != nil {
		s.cfg.Log.Error("Failed to store availability", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to store availability", err)
	}
	s.invalidateAvailability(ctx, id)

	out := make([]*model.ApartmentAvailability, 0, len(input.Days))
	for _, day := range input.Days {
		out = append(out, &model.ApartmentAvailability{ApartmentID: id, Date: *day.Date, IsAvailable: day.IsAvailable})
	}
	s.cfg.Log.Info("Apartment availability updated", "id", id, "days", len(out))
	return out, nil
}

func (s *apartmentService) UploadImage(ctx context.Context, id string, data []byte, isCover bool) (*model.Apartment, error) {
	apartment, err := s.loadOwned(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, apperrors.InvalidInput("Image is empty")
	}

	url, err := s.images.Upload(ctx, "apartments/"+id, uuid.NewString(), data)
	if err != nil {
		if errors.Is(err, apartmentserrors.ErrImageRejected) {
			return nil, apperrors.InvalidInput("Image was rejected by the image store").WithCause(err)
		}
		return nil, apperrors.Unavailable("Image store").WithCause(err)
	}

	image := model.ApartmentImage{
		URL:        url,
		IsCover:    isCover || len(apartment.Images) == 0,
		UploadedAt: s.clock.Now().UTC(),
	}
	if err := s.repo.AddImage(ctx, id, image); err != nil {
		return nil, s.mapStoreError(err, id, "Failed to attach image")
	}

	if image.IsCover {
		for i := range apartment.Images {
			apartment.Images[i].IsCover = false
		}
	}
	apartment.Images = append(apartment.Images, image)

	s.invalidate(ctx, id)
	s.cfg.Log.Info("Apartment image uploaded", "id", id, "is_cover", image.IsCover)
	return apartment, nil
}

// --- Helpers ---

func (s *apartmentService) load(ctx context.Context, id string) (*model.Apartment, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Apartment ID cannot be empty")
	}

	var apartment model.Apartment
	if s.cacheGet(ctx, detailKey(id), &apartment) {
		return &apartment, nil
	}

	found, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapStoreError(err, id, "Failed to retrieve apartment")
	}

	s.cacheSet(ctx, detailKey(id), found, s.cfg.CacheDetailTTL)
	return found, nil
}

// loadOwned loads an apartment for a write by its host or an admin. It reads
// through to the store so writes never start from a stale cache entry.
func (s *apartmentService) loadOwned(ctx context.Context, id string) (*model.Apartment, error) {
	caller, err := auth.RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	apartment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapStoreError(err, id, "Failed to retrieve apartment")
	}
	if apartment.HostID != caller.UserID && !caller.IsAdmin() {
		return nil, apperrors.Forbidden("Only the host can change this apartment")
	}
	return apartment, nil
}

func (s *apartmentService) mapStoreError(err error, id, message string) error {
	switch {
	case errors.Is(err, apartmentserrors.ErrNotFound), errors.Is(err, apartmentserrors.ErrInvalidID):
		return apperrors.NotFoundWithID("Apartment", id)
	default:
		s.cfg.Log.Error(message, "id", id, "error", err)
		return apperrors.Internal(message, err)
	}
}

func (s *apartmentService) cacheGet(ctx context.Context, key string, dst any) bool {
	err := s.cache.GetJSON(ctx, key, dst)
	if err == nil {
		return true
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.cfg.Log.Warn("Cache read failed", "key", key, "error", err)
	}
	return false
}

func (s *apartmentService) cacheSet(ctx context.Context, key string, value any, ttl time.Duration) {
	if err := s.cache.SetJSON(ctx, key, value, ttl); err != nil {
		s.cfg.Log.Warn("Cache write failed", "key", key, "error", err)
	}
}

// invalidate drops the detail entry and every cached listing page.
func (s *apartmentService) invalidate(ctx context.Context, id string) {
	if err := s.cache.Delete(ctx, detailKey(id)); err != nil {
		s.cfg.Log.Warn("Cache invalidation failed", "key", detailKey(id), "error", err)
	}
	if err := s.cache.DeletePrefix(ctx, listKeyPrefix); err != nil {
		s.cfg.Log.Warn("Cache invalidation failed", "prefix", listKeyPrefix, "error", err)
	}
}

func (s *apartmentService) invalidateAvailability(ctx context.Context, id string) {
	if err := s.cache.DeletePrefix(ctx, availabilityPrefix(id)); err != nil {
		s.cfg.Log.Warn("Cache invalidation failed", "prefix", availabilityPrefix(id), "error", err)
	}
}

func (s *apartmentService) sanitizeInput(in *model.ApartmentInput) {
	in.Title = sanitizer.SanitizeText(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Address = sanitizeAddress(in.Address)
	in.Amenities = sanitizer.SanitizeTags(in.Amenities)
	in.Rules = sanitizer.SanitizeSlice(in.Rules, sanitizer.SanitizeText)
}

func (s *apartmentService) sanitizeUpdate(in *model.ApartmentUpdate) {
	if in.Title != nil {
		*in.Title = sanitizer.SanitizeText(*in.Title)
	}
	if in.Description != nil {
		*in.Description = strings.TrimSpace(*in.Description)
	}
	if in.Address != nil {
		*in.Address = sanitizeAddress(*in.Address)
	}
	if in.Amenities != nil {
		*in.Amenities = sanitizer.SanitizeTags(*in.Amenities)
	}
	if in.Rules != nil {
		*in.Rules = sanitizer.SanitizeSlice(*in.Rules, sanitizer.SanitizeText)
	}
}

func sanitizeAddress(a model.Address) model.Address {
	return model.Address{
		Country: locale.CanonicalCountry(sanitizer.SanitizeText(a.Country)),
		State:   sanitizer.SanitizeText(a.State),
		City:    sanitizer.SanitizeText(a.City),
		Street:  sanitizer.SanitizeText(a.Street),
	}
}

func applyUpdate(a *model.Apartment, in *model.ApartmentUpdate) {
	if in.Title != nil {
		a.Title = *in.Title
	}
	if in.Description != nil {
		a.Description = *in.Description
	}
	if in.PropertyType != nil {
		a.PropertyType = *in.PropertyType
	}
	if in.TotalBedrooms != nil {
		a.TotalBedrooms = *in.TotalBedrooms
	}
	if in.TotalBathrooms != nil {
		a.TotalBathrooms = *in.TotalBathrooms
	}
	if in.MaxGuests != nil {
		a.MaxGuests = *in.MaxGuests
	}
	if in.IsActive != nil {
		a.IsActive = *in.IsActive
	}
	if in.Address != nil {
		a.Address = *in.Address
	}
	if in.Amenities != nil {
		a.Amenities = *in.Amenities
	}
	if in.Rules != nil {
		a.Rules = *in.Rules
	}
}

func expandCalendar(id string, start, end model.Date, overrides []*model.ApartmentAvailability) []*model.ApartmentAvailability {
	byDay := make(map[string]bool, len(overrides))
	for _, o := range overrides {
		byDay[o.Date.String()] = o.IsAvailable
	}

	days := make([]*model.ApartmentAvailability, 0, start.DaysUntil(end))
	for d := start; d.Before(end); d = d.AddDays(1) {
		available, ok := byDay[d.String()]
		if !ok {
			available = true
		}
		days = append(days, &model.ApartmentAvailability{ApartmentID: id, Date: d, IsAvailable: available})
	}
	return days
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
