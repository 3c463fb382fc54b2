// Package memory is an in-process store with the same semantics as the
// PostgreSQL repositories. It backs the "memory" database driver used for
// local development and tests; data does not survive a restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gasy-hub-backend/internal/models"
	"gasy-hub-backend/internal/repository"
)

// Store holds every table behind one mutex, so Mutate is atomic the same
// way a row lock makes it atomic in PostgreSQL.
type Store struct {
	mu       sync.Mutex
	users    map[string]*models.User
	alerts   map[string]*models.Alert
	comments []*models.Comment
	audit    []*models.AuditEntry
}

// New creates an empty store
func New() *Store {
	return &Store{
		users:  make(map[string]*models.User),
		alerts: make(map[string]*models.Alert),
	}
}

// Users returns the store as a user repository
func (s *Store) Users() *UserRepository { return &UserRepository{s} }

// Alerts returns the store as an alert repository
func (s *Store) Alerts() *AlertRepository { return &AlertRepository{s} }

// Comments returns the store as a comment repository
func (s *Store) Comments() *CommentRepository { return &CommentRepository{s} }

// Audit returns the store as an audit repository
func (s *Store) Audit() *AuditRepository { return &AuditRepository{s} }

func cloneUser(u *models.User) *models.User {
	c := *u
	return &c
}

// UserRepository is the in-memory user table
type UserRepository struct{ s *Store }

// Create creates a new user
func (r *UserRepository) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[user.ID]; ok {
		return fmt.Errorf("user %w", repository.ErrDuplicate)
	}
	for _, u := range r.s.users {
		if u.Phone == user.Phone {
			return fmt.Errorf("phone %w", repository.ErrDuplicate)
		}
	}
	r.s.users[user.ID] = cloneUser(user)
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %w", repository.ErrNotFound)
	}
	return cloneUser(u), nil
}

// GetByPhone retrieves a user by phone number
func (r *UserRepository) GetByPhone(_ context.Context, phone string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Phone == phone {
			return cloneUser(u), nil
		}
	}
	return nil, fmt.Errorf("user %w", repository.ErrNotFound)
}

// UpdatePushToken updates the push token for a user
func (r *UserRepository) UpdatePushToken(_ context.Context, userID string, pushToken *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return fmt.Errorf("user %w", repository.ErrNotFound)
	}
	if pushToken == nil {
		u.PushToken = nil
		return nil
	}
	token := *pushToken
	u.PushToken = &token
	return nil
}

// SetVerified sets the verified-identity flag
func (r *UserRepository) SetVerified(_ context.Context, userID string, hasCIN bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return fmt.Errorf("user %w", repository.ErrNotFound)
	}
	u.HasCIN = hasCIN
	return nil
}

// ListPushTokens returns every registered push token except the given user's
func (r *UserRepository) ListPushTokens(_ context.Context, excludeUserID string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tokens := []string{}
	for id, u := range r.s.users {
		if id == excludeUserID || u.PushToken == nil || *u.PushToken == "" {
			continue
		}
		tokens = append(tokens, *u.PushToken)
	}
	sort.Strings(tokens)
	return tokens, nil
}

// AlertRepository is the in-memory alert table
type AlertRepository struct{ s *Store }

// Create inserts a new alert and bumps the author's alert count
func (r *AlertRepository) Create(_ context.Context, alert *models.Alert) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	author, ok := r.s.users[alert.AuthorID]
	if !ok {
		return fmt.Errorf("author %w", repository.ErrNotFound)
	}
	if _, exists := r.s.alerts[alert.ID]; exists {
		return fmt.Errorf("alert %w", repository.ErrDuplicate)
	}
	r.s.alerts[alert.ID] = alert.Clone()
	author.AlertsCount++
	return nil
}

// GetByID retrieves an alert by ID
func (r *AlertRepository) GetByID(_ context.Context, id string) (*models.Alert, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.alerts[id]
	if !ok {
		return nil, fmt.Errorf("alert %w", repository.ErrNotFound)
	}
	return a.Clone(), nil
}

// List retrieves alerts newest first, optionally filtered by status
func (r *AlertRepository) List(_ context.Context, status models.AlertStatus, limit, offset int) ([]*models.Alert, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	matched := make([]*models.Alert, 0, len(r.s.alerts))
	for _, a := range r.s.alerts {
		if status == "" || a.Status == status {
			matched = append(matched, a)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	out := make([]*models.Alert, 0, end-offset)
	for _, a := range matched[offset:end] {
		out = append(out, a.Clone())
	}
	return out, total, nil
}

// Mutate edits a copy of the alert under the store lock and commits it with
// fn's effects. Nothing is written when fn returns an error.
func (r *AlertRepository) Mutate(_ context.Context, id string, fn repository.AlertMutation) (*models.Alert, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.alerts[id]
	if !ok {
		return nil, fmt.Errorf("alert %w", repository.ErrNotFound)
	}

	working := current.Clone()
	effects, err := fn(working)
	if err != nil {
		return nil, err
	}

	if effects != nil {
		var voter *models.User
		if effects.VoterID != "" {
			if voter, ok = r.s.users[effects.VoterID]; !ok {
				return nil, fmt.Errorf("voter %w", repository.ErrNotFound)
			}
		}
		if effects.Comment != nil {
			if _, ok := r.s.users[effects.Comment.UserID]; !ok {
				return nil, fmt.Errorf("alert or user %w", repository.ErrNotFound)
			}
		}

		if voter != nil {
			voter.ValidationsCount++
		}
		if effects.Comment != nil {
			c := *effects.Comment
			r.s.comments = append(r.s.comments, &c)
		}
		if effects.Audit != nil {
			e := *effects.Audit
			r.s.audit = append(r.s.audit, &e)
		}
	}

	r.s.alerts[id] = working
	return working.Clone(), nil
}

// Delete removes an alert and its comments. The audit entry, if any, is kept.
func (r *AlertRepository) Delete(_ context.Context, id string, audit *models.AuditEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	alert, ok := r.s.alerts[id]
	if !ok {
		return fmt.Errorf("alert %w", repository.ErrNotFound)
	}
	delete(r.s.alerts, id)

	kept := r.s.comments[:0]
	for _, c := range r.s.comments {
		if c.AlertID != id {
			kept = append(kept, c)
		}
	}
	r.s.comments = kept

	if audit != nil {
		audit.PreviousStatus = alert.Status
		e := *audit
		r.s.audit = append(r.s.audit, &e)
	}
	return nil
}

// CommentRepository is the in-memory comment table
type CommentRepository struct{ s *Store }

// Create appends a comment to an alert's thread
func (r *CommentRepository) Create(_ context.Context, comment *models.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.alerts[comment.AlertID]; !ok {
		return fmt.Errorf("alert or user %w", repository.ErrNotFound)
	}
	if _, ok := r.s.users[comment.UserID]; !ok {
		return fmt.Errorf("alert or user %w", repository.ErrNotFound)
	}
	c := *comment
	r.s.comments = append(r.s.comments, &c)
	return nil
}

// ListByAlert returns an alert's comments in insertion order
func (r *CommentRepository) ListByAlert(_ context.Context, alertID string) ([]*models.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []*models.Comment{}
	for _, c := range r.s.comments {
		if c.AlertID == alertID {
			cc := *c
			out = append(out, &cc)
		}
	}
	return out, nil
}

// AuditRepository is the in-memory audit log
type AuditRepository struct{ s *Store }

// ListByAlert returns an alert's audit entries oldest first
func (r *AuditRepository) ListByAlert(_ context.Context, alertID string) ([]*models.AuditEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []*models.AuditEntry{}
	for _, e := range r.s.audit {
		if e.AlertID == alertID {
			ee := *e
			out = append(out, &ee)
		}
	}
	return out, nil
}
