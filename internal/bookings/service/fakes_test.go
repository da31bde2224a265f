package service

import (
	"context"
	"sort"
	"sync"
	"time"

	bookingserrors "aptbook/internal/bookings/errors"
	"aptbook/internal/bookings/repository"
	"aptbook/internal/payments/provider"
	mongotx "aptbook/pkg/db/mongo"
	"aptbook/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

// memoryBookingRepository mimics the store's filters and compare-and-set updates.
type memoryBookingRepository struct {
	mu       sync.Mutex
	bookings map[string]*model.Booking

	transitionFunc func(ctx context.Context, id string, t repository.Transition) (*model.Booking, error)
	// beforeOverlapCheck runs ahead of every conflict lookup.
	beforeOverlapCheck func()
}

func newMemoryBookingRepository(seed ...*model.Booking) *memoryBookingRepository {
	r := &memoryBookingRepository{bookings: map[string]*model.Booking{}}
	for _, b := range seed {
		cp := *b
		r.bookings[b.ID] = &cp
	}
	return r
}

func (r *memoryBookingRepository) get(id string) *model.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil
	}
	cp := *b
	return &cp
}

func (r *memoryBookingRepository) Create(_ context.Context, b *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *b
	r.bookings[b.ID] = &cp
	return nil
}

func (r *memoryBookingRepository) FindByID(_ context.Context, id string) (*model.Booking, error) {
	if b := r.get(id); b != nil {
		return b, nil
	}
	return nil, bookingserrors.ErrNotFound
}

func (r *memoryBookingRepository) FindByProviderTransactionID(_ context.Context, txnID string) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bookings {
		if txnID != "" && b.ProviderTransactionID == txnID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, bookingserrors.ErrNotFound
}

func (r *memoryBookingRepository) matching(f repository.Filter) []*model.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Booking
	for _, b := range r.bookings {
		if (f.ApartmentID == "" || b.ApartmentID == f.ApartmentID) &&
			(f.GuestID == "" || b.GuestID == f.GuestID) &&
			(f.HostID == "" || b.HostID == f.HostID) &&
			(f.Status == "" || b.Status == f.Status) {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *memoryBookingRepository) Find(_ context.Context, f repository.Filter, limit int, offset int64) ([]*model.Booking, error) {
	all := r.matching(f)
	if int(offset) >= len(all) {
		return []*model.Booking{}, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *memoryBookingRepository) Count(_ context.Context, f repository.Filter) (int64, error) {
	return int64(len(r.matching(f))), nil
}

func (r *memoryBookingRepository) FindActiveOverlapping(_ context.Context, apartmentID string, in, out model.Date, excludeID string) ([]*model.Booking, error) {
	if r.beforeOverlapCheck != nil {
		r.beforeOverlapCheck()
	}
	var found []*model.Booking
	for _, b := range r.matching(repository.Filter{ApartmentID: apartmentID}) {
		if b.ID != excludeID && b.Status.IsActive() && b.Overlaps(in, out) {
			found = append(found, b)
		}
	}
	return found, nil
}

func (r *memoryBookingRepository) UpdateStay(_ context.Context, b *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.bookings[b.ID]
	if !ok {
		return bookingserrors.ErrNotFound
	}
	if cur.Status != model.BookingPending {
		return bookingserrors.ErrStatusChanged
	}
	cur.CheckIn, cur.CheckOut = b.CheckIn, b.CheckOut
	cur.Nights, cur.GuestsCount = b.Nights, b.GuestsCount
	cur.TotalPrice, cur.Currency = b.TotalPrice, b.Currency
	return nil
}

func (r *memoryBookingRepository) Transition(ctx context.Context, id string, t repository.Transition) (*model.Booking, error) {
	if r.transitionFunc != nil {
		return r.transitionFunc(ctx, id, t)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	if len(t.From) > 0 && !containsStatus(t.From, cur.Status) {
		return nil, bookingserrors.ErrStatusChanged
	}
	if len(t.FromPayment) > 0 && !containsPayment(t.FromPayment, cur.PaymentStatus) {
		return nil, bookingserrors.ErrStatusChanged
	}
	if t.Status != "" {
		cur.Status = t.Status
	}
	if t.PaymentStatus != "" {
		cur.PaymentStatus = t.PaymentStatus
	}
	if t.ProviderTransactionID != "" {
		cur.ProviderTransactionID = t.ProviderTransactionID
	}
	cp := *cur
	return &cp, nil
}

func (r *memoryBookingRepository) SetCheckoutSession(_ context.Context, id, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.bookings[id]
	if !ok {
		return bookingserrors.ErrNotFound
	}
	cur.CheckoutSessionID = sessionID
	return nil
}

func (r *memoryBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(mongo.NewSessionContext(ctx, nil))
}

func containsStatus(list []model.BookingStatus, s model.BookingStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsPayment(list []model.PaymentStatus, s model.PaymentStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// memoryLockRepository honours lease expiry the way the store does: an expired
// lock can be taken over, and Fence fails once the caller's lease is gone.
type memoryLockRepository struct {
	mu       sync.Mutex
	locks    map[string]model.BookingLock
	acquired int
	fenced   int
}

func newMemoryLockRepository() *memoryLockRepository {
	return &memoryLockRepository{locks: map[string]model.BookingLock{}}
}

func (r *memoryLockRepository) hold(lockID, owner string, ttl time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locks[lockID] = model.BookingLock{ID: lockID, Owner: owner, ExpiresAt: time.Now().Add(ttl)}
}

func (r *memoryLockRepository) owner(lockID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.locks[lockID].Owner
}

func (r *memoryLockRepository) Acquire(_ context.Context, lock *model.BookingLock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, held := r.locks[lock.ID]; held && time.Now().Before(cur.ExpiresAt) {
		return bookingserrors.ErrLockHeld
	}
	lock.CreatedAt = time.Now()
	r.locks[lock.ID] = *lock
	r.acquired++
	return nil
}

func (r *memoryLockRepository) Fence(_ context.Context, lockID, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, held := r.locks[lockID]
	if !held || cur.Owner != owner || !time.Now().Before(cur.ExpiresAt) {
		return bookingserrors.ErrLockLost
	}
	r.fenced++
	return nil
}

func (r *memoryLockRepository) Release(_ context.Context, lockID, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.locks[lockID].Owner == owner {
		delete(r.locks, lockID)
	}
	return nil
}

func (r *memoryLockRepository) held() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.locks)
}

type memoryApartments map[string]*model.Apartment

func (m memoryApartments) FindByID(_ context.Context, id string) (*model.Apartment, error) {
	if a, ok := m[id]; ok {
		return a, nil
	}
	return nil, bookingserrors.ErrApartmentNotFound
}

type mockProvider struct {
	createFunc func(ctx context.Context, req provider.CheckoutRequest) (*provider.CheckoutSession, error)
	last       provider.CheckoutRequest
}

func (m *mockProvider) CreateCheckoutSession(ctx context.Context, req provider.CheckoutRequest) (*provider.CheckoutSession, error) {
	m.last = req
	if m.createFunc != nil {
		return m.createFunc(ctx, req)
	}
	return &provider.CheckoutSession{ID: "cs_test", URL: "https://pay.example/cs_test"}, nil
}
