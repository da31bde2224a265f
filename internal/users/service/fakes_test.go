package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	userserrors "aptbook/internal/users/errors"
	"aptbook/internal/users/repository"
	"aptbook/pkg/mailer"
	"aptbook/pkg/model"
)

type memoryUserRepository struct {
	mu    sync.Mutex
	users map[string]*model.User
	seq   int
}

func newMemoryUserRepository() *memoryUserRepository {
	return &memoryUserRepository{users: map[string]*model.User{}}
}

func (r *memoryUserRepository) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return userserrors.ErrEmailTaken
		}
	}
	r.seq++
	u.ID = fmt.Sprintf("65b0000000000000000000%02d", r.seq+10)
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memoryUserRepository) FindByID(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, userserrors.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memoryUserRepository) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, userserrors.ErrNotFound
}

func (r *memoryUserRepository) matching(f repository.UserFilter) []*model.User {
	var out []*model.User
	for _, u := range r.users {
		if f.Status != "" && u.Status != f.Status {
			continue
		}
		if f.UserType != "" && u.UserType != f.UserType {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	return out
}

func (r *memoryUserRepository) Find(_ context.Context, f repository.UserFilter, limit int, offset int64) ([]*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.matching(f)
	if int(offset) >= len(all) {
		return []*model.User{}, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *memoryUserRepository) Count(_ context.Context, f repository.UserFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.matching(f))), nil
}

func (r *memoryUserRepository) Update(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return userserrors.ErrNotFound
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memoryUserRepository) byEmail(email string) *model.User {
	u, _ := r.FindByEmail(context.Background(), email)
	return u
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (m *recordingMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) last() mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return mailer.Message{}
	}
	return m.sent[len(m.sent)-1]
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
