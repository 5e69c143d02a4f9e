package diner

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/appetiteclub/apt"

	"github.com/momomagic/momo/pkg/pricing"
)

// Catalog answers whether a product exists and is orderable.
// MenuItem returns nil, nil for unknown ids.
type Catalog interface {
	MenuItem(ctx context.Context, id string) (*MenuItem, error)
}

// LineKey identifies a cart line: the product id for plain items, the
// product id plus the sorted customization names otherwise.
func LineKey(item CartItem) string {
	if len(item.Customizations) == 0 {
		return item.ProductID
	}
	names := make([]string, 0, len(item.Customizations))
	for _, c := range item.Customizations {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return item.ProductID + "|" + strings.Join(names, ",")
}

// Cart holds the lines of the order being composed.
type Cart struct {
	mu           sync.Mutex
	items        []CartItem
	storage      Storage
	autoAddID    string
	bootstrapped bool
	logger       apt.Logger
}

// NewCart restores the persisted cart. autoAddID names the complimentary
// product, empty disables the rule.
func NewCart(storage Storage, autoAddID string, logger apt.Logger) *Cart {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	c := &Cart{
		storage:   storage,
		autoAddID: autoAddID,
		logger:    logger.With("component", "Cart"),
	}

	var items []CartItem
	if loadState(storage, KeyCart, &items, c.logger) {
		for _, it := range items {
			if it.ProductID != "" && it.Quantity > 0 {
				c.items = append(c.items, it)
			}
		}
	}
	return c
}

// Add merges item into the line with the same key or appends a new line.
func (c *Cart) Add(item CartItem, qty int) {
	if qty <= 0 {
		qty = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := LineKey(item)
	for i := range c.items {
		if LineKey(c.items[i]) == key {
			c.items[i].Quantity += qty
			c.persistLocked()
			return
		}
	}

	item.Quantity = qty
	item.Customizations = append([]Customization(nil), item.Customizations...)
	c.items = append(c.items, item)
	c.persistLocked()
}

// Decrement lowers the first line of productID by one, removing it at one.
func (c *Cart) Decrement(productID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(productID)
	if i < 0 {
		return false
	}
	if c.items[i].Quantity > 1 {
		c.items[i].Quantity--
		c.persistLocked()
		return true
	}
	c.removeLocked(i)
	return true
}

// Delete removes the first line of productID whatever its quantity.
func (c *Cart) Delete(productID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(productID)
	if i < 0 {
		return false
	}
	c.removeLocked(i)
	return true
}

// QuantityOf sums the quantity over every line of productID.
func (c *Cart) QuantityOf(productID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quantityLocked(productID)
}

func (c *Cart) Items() []CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]CartItem, len(c.items))
	for i, it := range c.items {
		it.Customizations = append([]Customization(nil), it.Customizations...)
		out[i] = it
	}
	return out
}

func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cart) Totals() pricing.Totals {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines := make([]pricing.Line, 0, len(c.items))
	for _, it := range c.items {
		lines = append(lines, lineOf(it))
	}
	return pricing.Compute(lines)
}

// Clear empties the cart and drops its snapshot.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = nil
	deleteState(c.storage, KeyCart, c.logger)
}

// AutoAddRemoved reports whether the diner took the complimentary item out.
func (c *Cart) AutoAddRemoved() bool {
	var removed bool
	loadState(c.storage, KeyAutoAddRemoved, &removed, c.logger)
	return removed
}

// Bootstrap applies the auto-add rule. It runs once per cart; later calls
// are no-ops.
func (c *Cart) Bootstrap(ctx context.Context, catalog Catalog) error {
	c.mu.Lock()
	if c.bootstrapped || c.autoAddID == "" || catalog == nil {
		c.bootstrapped = true
		c.mu.Unlock()
		return nil
	}
	c.bootstrapped = true
	present := c.quantityLocked(c.autoAddID) > 0
	c.mu.Unlock()

	if present || c.AutoAddRemoved() {
		return nil
	}

	item, err := catalog.MenuItem(ctx, c.autoAddID)
	if err != nil {
		return fmt.Errorf("cannot check complimentary item: %w", err)
	}
	if item == nil || !item.Available {
		c.logger.Debug("complimentary item not offered", "product_id", c.autoAddID)
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.quantityLocked(c.autoAddID) > 0 {
		return nil
	}
	c.items = append(c.items, CartItem{
		ProductID:   c.autoAddID,
		Name:        item.Name,
		UnitPrice:   item.Price,
		Quantity:    1,
		Description: item.Description,
		ImageRef:    item.ImageLink,
		IsVeg:       item.IsVeg,
		SystemAdded: true,
	})
	c.persistLocked()
	c.logger.Info("complimentary item added", "product_id", c.autoAddID)
	return nil
}

func (c *Cart) indexLocked(productID string) int {
	for i, it := range c.items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) quantityLocked(productID string) int {
	n := 0
	for _, it := range c.items {
		if it.ProductID == productID {
			n += it.Quantity
		}
	}
	return n
}

func (c *Cart) removeLocked(i int) {
	removed := c.items[i]
	c.items = append(c.items[:i], c.items[i+1:]...)
	if c.autoAddID != "" && removed.ProductID == c.autoAddID {
		saveState(c.storage, KeyAutoAddRemoved, true, c.logger)
	}
	c.persistLocked()
}

func (c *Cart) persistLocked() {
	if len(c.items) == 0 {
		deleteState(c.storage, KeyCart, c.logger)
		return
	}
	saveState(c.storage, KeyCart, c.items, c.logger)
}

func lineOf(it CartItem) pricing.Line {
	deltas := make([]float64, 0, len(it.Customizations))
	for _, cz := range it.Customizations {
		deltas = append(deltas, cz.PriceDelta)
	}
	return pricing.Line{UnitPrice: it.UnitPrice, Deltas: deltas, Quantity: it.Quantity}
}

// EffectivePrice is the unit price including customization deltas.
func (it CartItem) EffectivePrice() float64 {
	return pricing.EffectiveUnitPrice(it.UnitPrice, lineOf(it).Deltas).InexactFloat64()
}
