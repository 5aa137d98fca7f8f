package models

import "time"

// Session is a server-side login record referenced by a signed token.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IsExpired reports whether the session is no longer valid at now.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// CartItemCourse is the only item type the catalog sells today.
const CartItemCourse = "course"

// CartItem is a line in a user's cart.
type CartItem struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Type     string  `json:"type"`
	ImageURL string  `json:"imageUrl,omitempty"`
}

// Cart belongs to exactly one user.
type Cart struct {
	UserID string     `json:"userId"`
	Items  []CartItem `json:"items"`
}

// Total is the sum of item prices.
func (c *Cart) Total() float64 {
	var total float64
	for _, it := range c.Items {
		total += it.Price
	}
	return total
}

// Contains reports whether an item with id is already in the cart.
func (c *Cart) Contains(id string) bool {
	for _, it := range c.Items {
		if it.ID == id {
			return true
		}
	}
	return false
}
