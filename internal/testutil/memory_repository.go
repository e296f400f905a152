// Package testutil holds fakes shared by handler and service tests.
package testutil

import (
	"context"
	"sync"

	"github.com/bjarke-xyz/course-applications/internal/domain"
	"github.com/google/uuid"
)

// MemoryRepository is an in-memory domain.ApplicationRepository that keeps
// insertion order.
type MemoryRepository struct {
	mu    sync.Mutex
	order []uuid.UUID
	rows  map[uuid.UUID]domain.Application
	err   error
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rows: make(map[uuid.UUID]domain.Application)}
}

// FailWith makes every subsequent call return err. Pass nil to recover.
func (m *MemoryRepository) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Len reports how many applications are stored across all owners.
func (m *MemoryRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func (m *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (domain.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.Application{}, m.err
	}
	app, ok := m.rows[id]
	if !ok {
		return domain.Application{}, domain.ErrNotFound
	}
	return app, nil
}

func (m *MemoryRepository) GetByUserID(_ context.Context, userID string) ([]domain.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	apps := make([]domain.Application, 0)
	for _, id := range m.order {
		if app := m.rows[id]; app.OwnerUserID == userID {
			apps = append(apps, app)
		}
	}
	return apps, nil
}

func (m *MemoryRepository) Create(_ context.Context, app *domain.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.rows[app.ID]; ok {
		return domain.ErrConflict
	}
	m.rows[app.ID] = *app
	m.order = append(m.order, app.ID)
	return nil
}

func (m *MemoryRepository) Update(_ context.Context, app *domain.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	existing, ok := m.rows[app.ID]
	if !ok || existing.OwnerUserID != app.OwnerUserID {
		return domain.ErrNotFound
	}
	m.rows[app.ID] = *app
	return nil
}

func (m *MemoryRepository) Delete(_ context.Context, id uuid.UUID, ownerUserID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	existing, ok := m.rows[id]
	if !ok || existing.OwnerUserID != ownerUserID {
		return domain.ErrNotFound
	}
	delete(m.rows, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

var _ domain.ApplicationRepository = (*MemoryRepository)(nil)
