// Package cart keeps the ordered, persisted set of cart lines for one session
// and enforces the per-line stock ceiling on every mutation.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/storage"

	"github.com/shopspring/decimal"
)

// StorageKey is the well-known key the line collection is persisted under
const StorageKey = "cart"

var ErrCorrupt = errors.New("persisted cart is corrupt")

// NoticeLevel classifies a user-facing notice
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeInfo    NoticeLevel = "info"
	NoticeError   NoticeLevel = "error"
)

// Notice is a transient message for the shopper
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// Outcome reports whether a mutation changed the cart and what to tell the shopper.
// A rejected mutation is an outcome, not an error.
type Outcome struct {
	Applied bool    `json:"applied"`
	Notice  *Notice `json:"notice,omitempty"`
}

// Item is the product snapshot copied into a line when it is added
type Item struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Stock     int             `json:"count_in_stock"`
}

// ItemFromProduct snapshots the catalog fields a cart line keeps
func ItemFromProduct(product *domain.Product) Item {
	return Item{
		ProductID: product.ID.String(),
		Name:      product.Name,
		Price:     product.Price,
		Image:     product.Image,
		Stock:     product.Stock,
	}
}

// Line is one product and quantity entry. Quantity never exceeds Stock.
type Line struct {
	Item
	Quantity int `json:"quantity"`
}

// Cart is owned by a single session and is not safe for concurrent use
type Cart struct {
	kv    storage.KV
	key   string
	lines []Line
}

// New returns an empty cart bound to kv under key. Nothing is written until
// the first mutation.
func New(kv storage.KV, key string) *Cart {
	return &Cart{kv: kv, key: key, lines: []Line{}}
}

// Load rehydrates the cart persisted under key, or returns an empty cart
func Load(ctx context.Context, kv storage.KV, key string) (*Cart, error) {
	c := New(kv, key)

	data, err := kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c, nil
		}
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	var lines []Line
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if lines != nil {
		c.lines = lines
	}
	return c, nil
}

// Add merges quantity of item into the cart. The whole request is rejected
// when the merged quantity would exceed the snapshot's stock. Merging into an
// existing line refreshes its snapshot.
func (c *Cart) Add(ctx context.Context, item Item, quantity int) (Outcome, error) {
	if quantity < 1 {
		return rejected("Quantity must be at least 1"), nil
	}

	idx := c.index(item.ProductID)
	existing := 0
	if idx >= 0 {
		existing = c.lines[idx].Quantity
	}

	if existing+quantity > item.Stock {
		return rejected(fmt.Sprintf("Sorry, only %d items in stock", item.Stock)), nil
	}

	prev := c.snapshot()

	var notice *Notice
	if idx >= 0 {
		c.lines[idx] = Line{Item: item, Quantity: existing + quantity}
		notice = &Notice{Level: NoticeSuccess, Message: fmt.Sprintf("%s quantity updated in cart", item.Name)}
	} else {
		c.lines = append(c.lines, Line{Item: item, Quantity: quantity})
		notice = &Notice{Level: NoticeSuccess, Message: fmt.Sprintf("%s added to cart", item.Name)}
	}

	if err := c.persist(ctx, prev); err != nil {
		return Outcome{}, err
	}
	return Outcome{Applied: true, Notice: notice}, nil
}

// Remove deletes the line for productID. Removing an absent line is a no-op
// that still persists and notifies.
func (c *Cart) Remove(ctx context.Context, productID string) (Outcome, error) {
	prev := c.snapshot()

	idx := c.index(productID)
	if idx >= 0 {
		c.lines = append(c.lines[:idx:idx], c.lines[idx+1:]...)
	}

	if err := c.persist(ctx, prev); err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Applied: idx >= 0,
		Notice:  &Notice{Level: NoticeInfo, Message: "Item removed from cart"},
	}, nil
}

// UpdateQuantity sets the quantity of an existing line. Quantities below one
// and unknown products are ignored without a notice.
func (c *Cart) UpdateQuantity(ctx context.Context, productID string, quantity int) (Outcome, error) {
	if quantity < 1 {
		return Outcome{}, nil
	}

	idx := c.index(productID)
	if idx < 0 {
		return Outcome{}, nil
	}

	if ceiling := c.lines[idx].Stock; quantity > ceiling {
		return rejected(fmt.Sprintf("Cannot add more. Only %d in stock.", ceiling)), nil
	}

	prev := c.snapshot()
	c.lines[idx].Quantity = quantity

	if err := c.persist(ctx, prev); err != nil {
		return Outcome{}, err
	}
	return Outcome{Applied: true}, nil
}

// Clear empties the cart unconditionally
func (c *Cart) Clear(ctx context.Context) (Outcome, error) {
	prev := c.snapshot()
	c.lines = []Line{}

	if err := c.persist(ctx, prev); err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Applied: true,
		Notice:  &Notice{Level: NoticeInfo, Message: "Cart cleared"},
	}, nil
}

// Lines returns a copy of the lines in insertion order
func (c *Cart) Lines() []Line {
	return c.snapshot()
}

// Line returns the line for productID
func (c *Cart) Line(productID string) (Line, bool) {
	idx := c.index(productID)
	if idx < 0 {
		return Line{}, false
	}
	return c.lines[idx], true
}

// Has reports whether a line exists for productID
func (c *Cart) Has(productID string) bool {
	return c.index(productID) >= 0
}

// Count is the sum of all line quantities
func (c *Cart) Count() int {
	count := 0
	for _, line := range c.lines {
		count += line.Quantity
	}
	return count
}

// Subtotal is the sum of price times quantity over all lines
func (c *Cart) Subtotal() decimal.Decimal {
	subtotal := decimal.Zero
	for _, line := range c.lines {
		subtotal = subtotal.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return subtotal
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

func (c *Cart) index(productID string) int {
	for i, line := range c.lines {
		if line.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) snapshot() []Line {
	lines := make([]Line, len(c.lines))
	copy(lines, c.lines)
	return lines
}

// persist writes the full line collection, restoring prev if the write fails
func (c *Cart) persist(ctx context.Context, prev []Line) error {
	data, err := json.Marshal(c.lines)
	if err != nil {
		c.lines = prev
		return fmt.Errorf("failed to encode cart: %w", err)
	}

	if err := c.kv.Set(ctx, c.key, data); err != nil {
		c.lines = prev
		return fmt.Errorf("failed to persist cart: %w", err)
	}
	return nil
}

func rejected(message string) Outcome {
	return Outcome{Notice: &Notice{Level: NoticeError, Message: message}}
}
