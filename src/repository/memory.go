package repository

import (
	"context"
	"fmt"
	app "imghost/src/app"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// MemoryStore keeps the whole catalog in process memory. It owns its
// collections and is handed to handlers explicitly; nothing reaches it
// through package-level state. Guarded by one RWMutex since gin serves
// requests concurrently.
type MemoryStore struct {
	mu         sync.RWMutex
	users      []app.User
	images     []app.Image
	categories []memCategory
	nextID     int64
}

type memCategory struct {
	app.Category
	userID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) GetOrCreateUser(_ context.Context, username string) (int64, error) {
	username, err := normalizeUsername(username)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getOrCreateLocked(username), nil
}

func (m *MemoryStore) Authenticate(_ context.Context, username, password string) (app.User, error) {
	username, err := normalizeUsername(username)
	if err != nil {
		return app.User{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.findUserLocked(username)
	if idx < 0 {
		if password == "" {
			return app.User{}, ErrNotFound
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return app.User{}, fmt.Errorf("%w: hash password: %v", ErrStorage, err)
		}
		user := app.User{
			ID:           m.allocIDLocked(),
			Username:     username,
			PasswordHash: string(hash),
			CreatedAt:    time.Now(),
		}
		m.users = append(m.users, user)
		return user, nil
	}

	user := m.users[idx]
	if password == "" {
		return user, nil
	}
	if user.PasswordHash == "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return app.User{}, fmt.Errorf("%w: hash password: %v", ErrStorage, err)
		}
		m.users[idx].PasswordHash = string(hash)
		return m.users[idx], nil
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return app.User{}, ErrAuth
	}
	return user, nil
}

func (m *MemoryStore) AddImage(_ context.Context, username, ref string) (int64, error) {
	if strings.TrimSpace(ref) == "" {
		return 0, fmt.Errorf("%w: image reference is required", ErrValidation)
	}
	username, err := normalizeUsername(username)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	userID := m.getOrCreateLocked(username)
	image := app.Image{
		ID:        m.allocIDLocked(),
		UserID:    userID,
		Ref:       ref,
		CreatedAt: time.Now(),
	}
	m.images = append(m.images, image)
	return image.ID, nil
}

func (m *MemoryStore) ListImages(_ context.Context, username, category string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	refs := make([]string, 0)
	idx := m.findUserLocked(username)
	if idx < 0 {
		return refs, nil
	}
	userID := m.users[idx].ID
	// Images are appended in creation order; walk backwards for newest first.
	for i := len(m.images) - 1; i >= 0; i-- {
		img := m.images[i]
		if img.UserID != userID {
			continue
		}
		if category != "" && !strings.Contains(img.Ref, "/"+category+"/") {
			continue
		}
		refs = append(refs, img.Ref)
	}
	return refs, nil
}

func (m *MemoryStore) DeleteImage(_ context.Context, username, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.findUserLocked(username)
	if idx < 0 {
		return ErrNotFound
	}
	userID := m.users[idx].ID
	for i, img := range m.images {
		if img.UserID == userID && img.Ref == ref {
			m.images = append(m.images[:i], m.images[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) CategoryExists(_ context.Context, username, name string) (int64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.categoryLocked(username, name)
	return id, ok, nil
}

func (m *MemoryStore) CreateCategory(_ context.Context, username, name string) (app.CategoryResult, error) {
	if strings.TrimSpace(name) == "" {
		return app.CategoryResult{}, fmt.Errorf("%w: category name is required", ErrValidation)
	}
	username, err := normalizeUsername(username)
	if err != nil {
		return app.CategoryResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.categoryLocked(username, name); ok {
		return app.CategoryResult{Success: false, Message: "Category already exists", CategoryID: id}, nil
	}
	userID := m.getOrCreateLocked(username)
	category := memCategory{
		Category: app.Category{
			ID:        m.allocIDLocked(),
			Name:      name,
			CreatedAt: time.Now(),
		},
		userID: userID,
	}
	m.categories = append(m.categories, category)
	return app.CategoryResult{Success: true, Message: "Category created", CategoryID: category.ID}, nil
}

func (m *MemoryStore) ListCategories(_ context.Context, username string) ([]app.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]app.Category, 0)
	idx := m.findUserLocked(username)
	if idx < 0 {
		return result, nil
	}
	userID := m.users[idx].ID
	for _, c := range m.categories {
		if c.userID == userID {
			result = append(result, c.Category)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *MemoryStore) DeleteUser(_ context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.findUserLocked(username)
	if idx < 0 {
		return ErrNotFound
	}
	userID := m.users[idx].ID
	m.users = append(m.users[:idx], m.users[idx+1:]...)

	kept := m.images[:0]
	for _, img := range m.images {
		if img.UserID != userID {
			kept = append(kept, img)
		}
	}
	m.images = kept

	keptCategories := m.categories[:0]
	for _, c := range m.categories {
		if c.userID != userID {
			keptCategories = append(keptCategories, c)
		}
	}
	m.categories = keptCategories
	return nil
}

func (m *MemoryStore) allocIDLocked() int64 {
	m.nextID++
	return m.nextID
}

func (m *MemoryStore) findUserLocked(username string) int {
	for i, u := range m.users {
		if u.Username == username {
			return i
		}
	}
	return -1
}

func (m *MemoryStore) categoryLocked(username, name string) (int64, bool) {
	idx := m.findUserLocked(username)
	if idx < 0 {
		return 0, false
	}
	userID := m.users[idx].ID
	for _, c := range m.categories {
		if c.userID == userID && c.Name == name {
			return c.ID, true
		}
	}
	return 0, false
}

func (m *MemoryStore) getOrCreateLocked(username string) int64 {
	if idx := m.findUserLocked(username); idx >= 0 {
		return m.users[idx].ID
	}
	user := app.User{
		ID:        m.allocIDLocked(),
		Username:  username,
		CreatedAt: time.Now(),
	}
	m.users = append(m.users, user)
	return user.ID
}
