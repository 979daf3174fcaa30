// Package memory provides an in-memory implementation of the storage
// interfaces. It is safe for concurrent use and is primarily intended for
// tests and local development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/docudrive/document-layer/internal/app/domain/account"
	"github.com/docudrive/document-layer/internal/app/domain/credential"
	"github.com/docudrive/document-layer/internal/app/domain/document"
	"github.com/docudrive/document-layer/internal/app/storage"
)

// Store holds every record behind a single lock. Credential versioning relies
// on that lock for its no-skip, no-duplicate guarantee.
type Store struct {
	mu           sync.RWMutex
	nextID       int64
	users        map[string]account.User
	usersByEmail map[string]string
	tenants      map[string]account.Tenant
	tenantByUser map[string]string
	delegations  map[string]map[string]bool
	credentials  map[string]credential.Record
	files        map[string]document.File
	comments     map[string]document.Comment
	events       map[string][]document.CommentEvent
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.TenantStore = (*Store)(nil)
var _ storage.CredentialStore = (*Store)(nil)
var _ storage.FileStore = (*Store)(nil)
var _ storage.CommentStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:       1,
		users:        make(map[string]account.User),
		usersByEmail: make(map[string]string),
		tenants:      make(map[string]account.Tenant),
		tenantByUser: make(map[string]string),
		delegations:  make(map[string]map[string]bool),
		credentials:  make(map[string]credential.Record),
		files:        make(map[string]document.File),
		comments:     make(map[string]document.Comment),
		events:       make(map[string][]document.CommentEvent),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

// UserStore implementation ----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u account.User) (account.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == "" {
		u.ID = s.nextIDLocked()
	} else if _, exists := s.users[u.ID]; exists {
		return account.User{}, fmt.Errorf("user %s already exists", u.ID)
	}
	if _, exists := s.usersByEmail[u.Email]; exists {
		return account.User{}, fmt.Errorf("email %s already registered", u.Email)
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	s.users[u.ID] = u
	s.usersByEmail[u.Email] = u.ID
	return u, nil
}

func (s *Store) UpdateUser(_ context.Context, u account.User) (account.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.users[u.ID]
	if !ok {
		return account.User{}, fmt.Errorf("user %s: %w", u.ID, storage.ErrNotFound)
	}
	if u.Email != original.Email {
		if _, exists := s.usersByEmail[u.Email]; exists {
			return account.User{}, fmt.Errorf("email %s already registered", u.Email)
		}
		delete(s.usersByEmail, original.Email)
		s.usersByEmail[u.Email] = u.ID
	}

	u.CreatedAt = original.CreatedAt
	u.UpdatedAt = time.Now().UTC()

	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (account.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return account.User{}, fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (account.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByEmail[email]
	if !ok {
		return account.User{}, fmt.Errorf("user %s: %w", email, storage.ErrNotFound)
	}
	return s.users[id], nil
}

func (s *Store) ListUsers(_ context.Context) ([]account.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]account.User, 0, len(s.users))
	for _, u := range s.users {
		result = append(result, u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	delete(s.users, id)
	delete(s.usersByEmail, u.Email)
	delete(s.delegations, id)
	return nil
}

// TenantStore implementation --------------------------------------------------

func (s *Store) CreateTenant(_ context.Context, t account.Tenant) (account.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = s.nextIDLocked()
	} else if _, exists := s.tenants[t.ID]; exists {
		return account.Tenant{}, fmt.Errorf("tenant %s already exists", t.ID)
	}
	if _, exists := s.tenantByUser[t.UserID]; exists {
		return account.Tenant{}, fmt.Errorf("user %s already owns a tenant profile", t.UserID)
	}

	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	s.tenants[t.ID] = t
	s.tenantByUser[t.UserID] = t.ID
	return t, nil
}

func (s *Store) UpdateTenant(_ context.Context, t account.Tenant) (account.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.tenants[t.ID]
	if !ok {
		return account.Tenant{}, fmt.Errorf("tenant %s: %w", t.ID, storage.ErrNotFound)
	}

	t.UserID = original.UserID
	t.CreatedAt = original.CreatedAt
	t.UpdatedAt = time.Now().UTC()

	s.tenants[t.ID] = t
	return t, nil
}

func (s *Store) GetTenant(_ context.Context, id string) (account.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tenants[id]
	if !ok {
		return account.Tenant{}, fmt.Errorf("tenant %s: %w", id, storage.ErrNotFound)
	}
	return t, nil
}

func (s *Store) GetTenantByUser(_ context.Context, userID string) (account.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.tenantByUser[userID]
	if !ok {
		return account.Tenant{}, fmt.Errorf("tenant for user %s: %w", userID, storage.ErrNotFound)
	}
	return s.tenants[id], nil
}

func (s *Store) ListTenants(_ context.Context) ([]account.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]account.Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) DeleteTenant(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenants[id]
	if !ok {
		return fmt.Errorf("tenant %s: %w", id, storage.ErrNotFound)
	}
	delete(s.tenants, id)
	delete(s.tenantByUser, t.UserID)
	delete(s.credentials, id)
	for userID := range s.delegations {
		delete(s.delegations[userID], id)
	}
	return nil
}

func (s *Store) AddDelegation(_ context.Context, userID, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return fmt.Errorf("user %s: %w", userID, storage.ErrNotFound)
	}
	if _, ok := s.tenants[tenantID]; !ok {
		return fmt.Errorf("tenant %s: %w", tenantID, storage.ErrNotFound)
	}
	if s.delegations[userID] == nil {
		s.delegations[userID] = make(map[string]bool)
	}
	s.delegations[userID][tenantID] = true
	return nil
}

func (s *Store) RemoveDelegation(_ context.Context, userID, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.delegations[userID][tenantID] {
		return fmt.Errorf("delegation %s->%s: %w", userID, tenantID, storage.ErrNotFound)
	}
	delete(s.delegations[userID], tenantID)
	return nil
}

func (s *Store) ListDelegatedTenants(_ context.Context, userID string) ([]account.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]account.Tenant, 0, len(s.delegations[userID]))
	for tenantID := range s.delegations[userID] {
		if t, ok := s.tenants[tenantID]; ok {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// CredentialStore implementation ----------------------------------------------

func (s *Store) PutCredential(_ context.Context, rec credential.Record) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	rec.Ciphertext = append([]byte(nil), rec.Ciphertext...)
	if prev, ok := s.credentials[rec.TenantID]; ok {
		rec.Version = prev.Version + 1
		rec.CreatedAt = prev.CreatedAt
	} else {
		rec.Version = 1
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	s.credentials[rec.TenantID] = rec
	return rec.Version, nil
}

func (s *Store) GetCredential(_ context.Context, tenantID string) (credential.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.credentials[tenantID]
	if !ok {
		return credential.Record{}, fmt.Errorf("credential for tenant %s: %w", tenantID, storage.ErrNotFound)
	}
	rec.Ciphertext = append([]byte(nil), rec.Ciphertext...)
	return rec, nil
}

func (s *Store) SetCredentialFolder(_ context.Context, tenantID, driveFolderID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.credentials[tenantID]
	if !ok {
		return 0, fmt.Errorf("credential for tenant %s: %w", tenantID, storage.ErrNotFound)
	}
	rec.DriveFolderID = driveFolderID
	rec.Version++
	rec.UpdatedAt = time.Now().UTC()
	s.credentials[tenantID] = rec
	return rec.Version, nil
}

func (s *Store) DeleteCredential(_ context.Context, tenantID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.credentials[tenantID]; !ok {
		return false, nil
	}
	delete(s.credentials, tenantID)
	return true, nil
}

// FileStore implementation ----------------------------------------------------

func (s *Store) CreateFile(_ context.Context, f document.File) (document.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f.ID == "" {
		f.ID = s.nextIDLocked()
	} else if _, exists := s.files[f.ID]; exists {
		return document.File{}, fmt.Errorf("file %s already exists", f.ID)
	}

	now := time.Now().UTC()
	f.CreatedAt = now
	f.UpdatedAt = now

	s.files[f.ID] = f
	return f, nil
}

func (s *Store) GetFile(_ context.Context, id string) (document.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.files[id]
	if !ok {
		return document.File{}, fmt.Errorf("file %s: %w", id, storage.ErrNotFound)
	}
	return f, nil
}

func (s *Store) ListFiles(_ context.Context, tenantID string) ([]document.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]document.File, 0)
	for _, f := range s.files {
		if tenantID == "" || f.TenantID == tenantID {
			result = append(result, f)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) DeleteFile(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[id]; !ok {
		return fmt.Errorf("file %s: %w", id, storage.ErrNotFound)
	}
	delete(s.files, id)
	for commentID, c := range s.comments {
		if c.FileID == id {
			delete(s.comments, commentID)
			delete(s.events, commentID)
		}
	}
	return nil
}

// CommentStore implementation -------------------------------------------------

func (s *Store) CreateComment(_ context.Context, c document.Comment) (document.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = s.nextIDLocked()
	} else if _, exists := s.comments[c.ID]; exists {
		return document.Comment{}, fmt.Errorf("comment %s already exists", c.ID)
	}
	if _, ok := s.files[c.FileID]; !ok {
		return document.Comment{}, fmt.Errorf("file %s: %w", c.FileID, storage.ErrNotFound)
	}

	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	s.comments[c.ID] = c
	return c, nil
}

func (s *Store) UpdateComment(_ context.Context, c document.Comment) (document.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.comments[c.ID]
	if !ok {
		return document.Comment{}, fmt.Errorf("comment %s: %w", c.ID, storage.ErrNotFound)
	}

	c.FileID = original.FileID
	c.UserID = original.UserID
	c.CreatedAt = original.CreatedAt
	c.UpdatedAt = time.Now().UTC()

	s.comments[c.ID] = c
	return c, nil
}

func (s *Store) GetComment(_ context.Context, id string) (document.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[id]
	if !ok {
		return document.Comment{}, fmt.Errorf("comment %s: %w", id, storage.ErrNotFound)
	}
	return c, nil
}

func (s *Store) ListFileComments(_ context.Context, fileID string) ([]document.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]document.Comment, 0)
	for _, c := range s.comments {
		if c.FileID == fileID {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) DeleteComment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comments[id]; !ok {
		return fmt.Errorf("comment %s: %w", id, storage.ErrNotFound)
	}
	delete(s.comments, id)
	return nil
}

func (s *Store) AppendCommentEvent(_ context.Context, ev document.CommentEvent) (document.CommentEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.ID == "" {
		ev.ID = s.nextIDLocked()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	s.events[ev.CommentID] = append(s.events[ev.CommentID], ev)
	return ev, nil
}

func (s *Store) ListCommentEvents(_ context.Context, commentID string) ([]document.CommentEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]document.CommentEvent(nil), s.events[commentID]...), nil
}
