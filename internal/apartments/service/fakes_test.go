package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	apartmentserrors "aptbook/internal/apartments/errors"
	"aptbook/pkg/model"
)

type memoryApartmentRepository struct {
	mu         sync.Mutex
	apartments map[string]*model.Apartment
	seq        int
	finds      int
	reads      int
}

func newMemoryApartmentRepository(seed ...*model.Apartment) *memoryApartmentRepository {
	r := &memoryApartmentRepository{apartments: map[string]*model.Apartment{}}
	for _, a := range seed {
		cp := *a
		r.apartments[a.ID] = &cp
	}
	return r
}

func (r *memoryApartmentRepository) Create(_ context.Context, a *model.Apartment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	a.ID = fmt.Sprintf("65a0000000000000000000%02d", r.seq+50)
	cp := *a
	r.apartments[a.ID] = &cp
	return nil
}

func (r *memoryApartmentRepository) FindByID(_ context.Context, id string) (*model.Apartment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads++
	a, ok := r.apartments[id]
	if !ok {
		return nil, apartmentserrors.ErrNotFound
	}
	cp := *a
	cp.Images = append([]model.ApartmentImage{}, a.Images...)
	return &cp, nil
}

func (r *memoryApartmentRepository) matching(f model.ApartmentFilter) []*model.Apartment {
	var out []*model.Apartment
	for _, a := range r.apartments {
		if !f.IncludeUnlisted && (!a.IsActive || !a.IsVerified) {
			continue
		}
		if f.HostID != "" && a.HostID != f.HostID {
			continue
		}
		if f.MinGuests > 0 && a.MaxGuests < f.MinGuests {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *memoryApartmentRepository) Find(_ context.Context, f model.ApartmentFilter, limit int, offset int64) ([]*model.Apartment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finds++
	all := r.matching(f)
	if int(offset) >= len(all) {
		return []*model.Apartment{}, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *memoryApartmentRepository) Count(_ context.Context, f model.ApartmentFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.matching(f))), nil
}

func (r *memoryApartmentRepository) Update(_ context.Context, a *model.Apartment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.apartments[a.ID]; !ok {
		return apartmentserrors.ErrNotFound
	}
	cp := *a
	r.apartments[a.ID] = &cp
	return nil
}

func (r *memoryApartmentRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.apartments[id]; !ok {
		return apartmentserrors.ErrNotFound
	}
	delete(r.apartments, id)
	return nil
}

func (r *memoryApartmentRepository) with(id string, fn func(a *model.Apartment)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.apartments[id]
	if !ok {
		return apartmentserrors.ErrNotFound
	}
	fn(a)
	return nil
}

func (r *memoryApartmentRepository) SetVerified(_ context.Context, id string, verified bool) error {
	return r.with(id, func(a *model.Apartment) { a.IsVerified = verified })
}

func (r *memoryApartmentRepository) SetPricing(_ context.Context, id string, p *model.ApartmentPricing) error {
	return r.with(id, func(a *model.Apartment) { a.Pricing = p })
}

func (r *memoryApartmentRepository) AddImage(_ context.Context, id string, image model.ApartmentImage) error {
	return r.with(id, func(a *model.Apartment) {
		if image.IsCover {
			for i := range a.Images {
				a.Images[i].IsCover = false
			}
		}
		a.Images = append(a.Images, image)
	})
}

type memoryAvailability struct {
	mu    sync.Mutex
	days  map[string]map[string]bool
	reads int
}

func newMemoryAvailability() *memoryAvailability {
	return &memoryAvailability{days: map[string]map[string]bool{}}
}

func (m *memoryAvailability) FindRange(_ context.Context, id string, from, to model.Date) ([]*model.ApartmentAvailability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	out := []*model.ApartmentAvailability{}
	for day, available := range m.days[id] {
		d, _ := model.ParseDate(day)
		if !d.Before(from) && d.Before(to) {
			out = append(out, &model.ApartmentAvailability{ApartmentID: id, Date: d, IsAvailable: available})
		}
	}
	return out, nil
}

func (m *memoryAvailability) Upsert(_ context.Context, id string, days []model.AvailabilityDay) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.days[id] == nil {
		m.days[id] = map[string]bool{}
	}
	for _, d := range days {
		m.days[id][d.Date.String()] = d.IsAvailable
	}
	return nil
}

func (m *memoryAvailability) DeleteForApartment(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.days, id)
	return nil
}

type mockImageStore struct {
	uploadFunc func(ctx context.Context, folder, name string, data []byte) (string, error)
	folders    []string
}

func (m *mockImageStore) Upload(ctx context.Context, folder, name string, data []byte) (string, error) {
	m.folders = append(m.folders, folder)
	if m.uploadFunc != nil {
		return m.uploadFunc(ctx, folder, name, data)
	}
	return "https://cdn.example/" + folder + "/" + name + ".jpg", nil
}
