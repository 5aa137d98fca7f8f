package repository

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/hackbridge/hackbridge/internal/kv"
	"github.com/hackbridge/hackbridge/internal/models"
)

// SessionRepository stores login sessions.
type SessionRepository struct {
	sessions *Collection[models.Session]
}

func NewSessionRepository(store kv.Store) *SessionRepository {
	return &SessionRepository{
		sessions: NewCollection(store, SessionsPrefix, func(s *models.Session) string { return s.ID }),
	}
}

func (r *SessionRepository) Create(ctx context.Context, s *models.Session) error {
	return r.sessions.Create(ctx, s)
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	return r.sessions.GetByID(ctx, id)
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	return r.sessions.Delete(ctx, id)
}

// DeleteExpired removes sessions expired at now and returns how many were removed.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	all, err := r.sessions.GetAll(ctx)
	if err != nil {
		return 0, err
	}
	removed := 0
	for i := range all {
		if !all[i].IsExpired(now) {
			continue
		}
		err := r.sessions.Delete(ctx, all[i].ID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// CartRepository stores one cart per user.
type CartRepository struct {
	carts *Collection[models.Cart]
}

func NewCartRepository(store kv.Store) *CartRepository {
	return &CartRepository{
		carts: NewCollection(store, CartsPrefix, func(c *models.Cart) string { return c.UserID }),
	}
}

// Get returns an empty cart when the user has none stored.
func (r *CartRepository) Get(ctx context.Context, userID string) (*models.Cart, error) {
	c, err := r.carts.GetByID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return &models.Cart{UserID: userID, Items: []models.CartItem{}}, nil
	}
	return c, err
}

// Modify applies fn to the user's cart, creating it if needed.
func (r *CartRepository) Modify(ctx context.Context, userID string, fn func(c *models.Cart) error) (*models.Cart, error) {
	return r.carts.Upsert(ctx, userID, func(c *models.Cart, exists bool) error {
		if !exists {
			c.UserID = userID
		}
		if c.Items == nil {
			c.Items = []models.CartItem{}
		}
		return fn(c)
	})
}

// Save replaces the user's cart.
func (r *CartRepository) Save(ctx context.Context, c *models.Cart) error {
	_, err := r.Modify(ctx, c.UserID, func(cur *models.Cart) error {
		cur.Items = append([]models.CartItem{}, c.Items...)
		return nil
	})
	return err
}

// Clear removes the cart. Clearing a missing cart is not an error.
func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	err := r.carts.Delete(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// PointerRepository holds the session token of the single local user.
type PointerRepository struct {
	store kv.Store
}

func NewPointerRepository(store kv.Store) *PointerRepository {
	return &PointerRepository{store: store}
}

// Get returns ErrNotFound when nobody is logged in.
func (r *PointerRepository) Get(ctx context.Context) (string, error) {
	e, err := r.store.Get(ctx, CurrentUserKey)
	if errors.Is(err, kv.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", errors.Wrap(err, "load session pointer")
	}
	return string(e.Value), nil
}

func (r *PointerRepository) Set(ctx context.Context, token string) error {
	if _, err := r.store.Set(ctx, CurrentUserKey, []byte(token)); err != nil {
		return errors.Wrap(err, "store session pointer")
	}
	return nil
}

func (r *PointerRepository) Clear(ctx context.Context) error {
	err := r.store.Remove(ctx, CurrentUserKey)
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return errors.Wrap(err, "clear session pointer")
	}
	return nil
}
