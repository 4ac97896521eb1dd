package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/hsdfat8/assettrack/internal/domain/models"
)

// UserRepository is an in-memory user store
type UserRepository struct {
	mu   sync.RWMutex
	rows map[string]*models.User
}

// NewUserRepository creates a new in-memory user repository
func NewUserRepository() *UserRepository {
	return &UserRepository{rows: make(map[string]*models.User)}
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if _, exists := r.rows[u.ID]; exists {
		return models.Validation("user %q already exists", u.ID)
	}
	if r.emailTaken(u.Email, u.ID) {
		return models.Validation("email %q is already registered", u.Email)
	}
	stampCreate(&u.Version, &u.CreatedAt, &u.UpdatedAt)
	r.rows[u.ID] = u.Clone()
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.rows[id]
	if !ok {
		return nil, models.NotFound(models.EntityUser, id)
	}
	return u.Clone(), nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.rows {
		if strings.EqualFold(u.Email, email) {
			return u.Clone(), nil
		}
	}
	return nil, models.NotFound(models.EntityUser, email)
}

func (r *UserRepository) List(ctx context.Context, filter models.UserFilter, page models.Page) ([]*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.User, 0)
	for _, u := range r.rows {
		if filter.Matches(u) {
			result = append(result, u.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return models.Paginate(result, page), nil
}

func (r *UserRepository) Update(ctx context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.rows[u.ID]
	if !ok {
		return models.NotFound(models.EntityUser, u.ID)
	}
	if current.Version != u.Version {
		return models.VersionConflict(models.EntityUser, u.ID, u.Version)
	}
	if r.emailTaken(u.Email, u.ID) {
		return models.Validation("email %q is already registered", u.Email)
	}

	u.Version++
	r.rows[u.ID] = u.Clone()
	return nil
}

func (r *UserRepository) emailTaken(email, exceptID string) bool {
	for id, u := range r.rows {
		if id != exceptID && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (r *UserRepository) snapshot(id string) *models.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if u, ok := r.rows[id]; ok {
		return u.Clone()
	}
	return nil
}

func (r *UserRepository) restore(id string, prev *models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev == nil {
		delete(r.rows, id)
		return
	}
	r.rows[id] = prev
}
