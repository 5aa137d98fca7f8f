package service

import (
	"context"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/hackbridge/hackbridge/internal/models"
	"github.com/hackbridge/hackbridge/internal/repository"
)

// CartService manages per-user carts and checkout.
type CartService struct {
	carts   CartStore
	courses CourseStore
	users   UserStore
	log     *zap.Logger
}

func NewCartService(carts CartStore, courses CourseStore, users UserStore, log *zap.Logger) *CartService {
	return &CartService{carts: carts, courses: courses, users: users, log: log}
}

// Items returns the user's cart.
func (s *CartService) Items(ctx context.Context, userID string) (*models.Cart, error) {
	return s.carts.Get(ctx, userID)
}

// Total is the sum of the cart prices.
func (s *CartService) Total(ctx context.Context, userID string) (float64, error) {
	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	return c.Total(), nil
}

// Add puts a course into the cart using the catalog price.
func (s *CartService) Add(ctx context.Context, userID, courseID string) (*models.Cart, error) {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if u.HasPurchased(courseID) {
		return nil, ErrAlreadyPurchased
	}
	return s.carts.Modify(ctx, userID, func(c *models.Cart) error {
		if c.Contains(courseID) {
			return ErrAlreadyInCart
		}
		c.Items = append(c.Items, models.CartItem{
			ID:       course.ID,
			Title:    course.Title,
			Price:    course.Price,
			Type:     models.CartItemCourse,
			ImageURL: course.ImageURL,
		})
		return nil
	})
}

// Remove drops an item; repository.ErrNotFound if it is not in the cart.
func (s *CartService) Remove(ctx context.Context, userID, itemID string) (*models.Cart, error) {
	return s.carts.Modify(ctx, userID, func(c *models.Cart) error {
		for i, it := range c.Items {
			if it.ID == itemID {
				c.Items = append(c.Items[:i], c.Items[i+1:]...)
				return nil
			}
		}
		return repository.ErrNotFound
	})
}

// Checkout charges the cart total to the user's balance, records the
// courses as purchased and removes the charged items from the cart. Items
// added while checkout runs stay in the cart. If the cart cannot be updated
// after the charge, the charge is refunded.
func (s *CartService) Checkout(ctx context.Context, userID string) (*models.User, error) {
	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}
	total := c.Total()
	charged := make(map[string]bool, len(c.Items))
	for _, it := range c.Items {
		charged[it.ID] = true
	}

	u, err := s.users.Modify(ctx, userID, func(u *models.User) error {
		if u.Balance < total {
			return ErrInsufficientFunds
		}
		for _, it := range c.Items {
			if it.Type == models.CartItemCourse && u.HasPurchased(it.ID) {
				return errors.Wrapf(ErrAlreadyPurchased, "course %q", it.ID)
			}
		}
		u.Balance -= total
		for _, it := range c.Items {
			if it.Type == models.CartItemCourse {
				u.PurchasedCourses = append(u.PurchasedCourses, it.ID)
			}
		}
		return nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	_, err = s.carts.Modify(ctx, userID, func(cur *models.Cart) error {
		kept := make([]models.CartItem, 0, len(cur.Items))
		for _, it := range cur.Items {
			if !charged[it.ID] {
				kept = append(kept, it)
			}
		}
		cur.Items = kept
		return nil
	})
	if err != nil {
		s.log.Error("failed to update cart after checkout, refunding",
			zap.String("user_id", userID),
			zap.Float64("total", total),
			zap.Error(err),
		)
		if rerr := s.refund(ctx, userID, charged, total); rerr != nil {
			s.log.Error("refund failed", zap.String("user_id", userID), zap.Float64("total", total), zap.Error(rerr))
		}
		return nil, errors.Wrap(err, "update cart")
	}
	s.log.Info("checkout completed",
		zap.String("user_id", userID),
		zap.Int("items", len(c.Items)),
		zap.Float64("total", total),
	)
	return u, nil
}

// refund undoes a checkout charge. The charged courses were not owned
// before the charge, so all of them are dropped from the purchases.
func (s *CartService) refund(ctx context.Context, userID string, charged map[string]bool, total float64) error {
	_, err := s.users.Modify(ctx, userID, func(u *models.User) error {
		u.Balance += total
		kept := make([]string, 0, len(u.PurchasedCourses))
		for _, id := range u.PurchasedCourses {
			if !charged[id] {
				kept = append(kept, id)
			}
		}
		u.PurchasedCourses = kept
		return nil
	})
	return err
}
