package session

import (
	"context"
	"errors"
	"time"

	"github.com/noah-isme/toko-pos/internal/lock"
)

// ErrNotOwner is returned when a cashier touches another cashier's session.
var ErrNotOwner = errors.New("session belongs to another cashier")

// Editor serialises read-modify-write cycles on a session across replicas.
type Editor struct {
	Store   Store
	Locker  lock.Locker
	LockTTL time.Duration
	Now     func() time.Time
}

func (e Editor) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

func (e Editor) lockTTL() time.Duration {
	if e.LockTTL <= 0 {
		return 10 * time.Second
	}
	return e.LockTTL
}

// LockKey names the edit lock of a session.
func LockKey(id string) string { return "session:" + id }

// Load returns the session when cashierID owns it.
func (e Editor) Load(ctx context.Context, id, cashierID string) (*Session, error) {
	s, err := e.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.OwnedBy(cashierID) {
		return nil, ErrNotOwner
	}
	return s, nil
}

// Create stores a new empty session for cashierID.
func (e Editor) Create(ctx context.Context, cashierID string) (*Session, error) {
	s := New(cashierID, e.now())
	if err := e.Store.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Update applies fn under the session's edit lock and saves the result. The
// session is left untouched when fn fails.
func (e Editor) Update(ctx context.Context, id, cashierID string, fn func(*Session) error) (*Session, error) {
	var out *Session
	err := e.Locker.WithLock(ctx, LockKey(id), e.lockTTL(), func(ctx context.Context) error {
		s, err := e.Load(ctx, id, cashierID)
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
		s.UpdatedAt = e.now()
		if err := e.Store.Save(ctx, s); err != nil {
			return err
		}
		out = s
		return nil
	})
	return out, err
}

// Remove deletes the session under its edit lock when done reports true for
// it, and reports whether it did.
func (e Editor) Remove(ctx context.Context, id, cashierID string, done func(*Session) bool) (bool, error) {
	removed := false
	err := e.Locker.WithLock(ctx, LockKey(id), e.lockTTL(), func(ctx context.Context) error {
		s, err := e.Load(ctx, id, cashierID)
		if err != nil {
			return err
		}
		if !done(s) {
			return nil
		}
		if err := e.Store.Delete(ctx, id); err != nil {
			return err
		}
		removed = true
		return nil
	})
	return removed, err
}
