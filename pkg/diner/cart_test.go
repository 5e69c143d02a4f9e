package diner

import (
	"context"
	"errors"
	"testing"
)

func TestCartAddMerges(t *testing.T) {
	c := NewCart(NewMemoryStorage(), "", nil)

	c.Add(momoA, 1)
	c.Add(momoA, 1)
	c.Add(momoB, 0)

	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	if got := c.QuantityOf("A"); got != 2 {
		t.Errorf("QuantityOf(A) = %d, want 2", got)
	}
	if got := c.QuantityOf("B"); got != 1 {
		t.Errorf("QuantityOf(B) = %d, want 1 for a zero quantity add", got)
	}
	if got := c.QuantityOf("missing"); got != 0 {
		t.Errorf("QuantityOf(missing) = %d", got)
	}
}

func TestCartCustomizedLines(t *testing.T) {
	c := NewCart(NewMemoryStorage(), "", nil)

	spicy := momoA
	spicy.Customizations = []Customization{{Name: "extra spicy", PriceDelta: 0.5}, {Name: "cheese", PriceDelta: 1}}
	reordered := momoA
	reordered.Customizations = []Customization{{Name: "cheese", PriceDelta: 1}, {Name: "extra spicy", PriceDelta: 0.5}}

	c.Add(momoA, 1)
	c.Add(spicy, 1)
	c.Add(reordered, 2)

	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want plain and customized lines", c.Len())
	}
	if got := c.QuantityOf("A"); got != 4 {
		t.Errorf("QuantityOf(A) = %d, want 4 across lines", got)
	}

	totals := c.Totals().Rounded()
	// 5.00 + 3 * 6.50
	if totals.Subtotal != 24.5 {
		t.Errorf("Subtotal = %v, want 24.5", totals.Subtotal)
	}
	if got := c.Items()[1].EffectivePrice(); got != 6.5 {
		t.Errorf("EffectivePrice() = %v, want 6.5", got)
	}
}

func TestCartDecrementAndDelete(t *testing.T) {
	tests := []struct {
		name    string
		start   int
		op      func(c *Cart) bool
		wantOK  bool
		wantQty int
	}{
		{name: "decrementAboveOne", start: 3, op: func(c *Cart) bool { return c.Decrement("A") }, wantOK: true, wantQty: 2},
		{name: "decrementAtOneRemoves", start: 1, op: func(c *Cart) bool { return c.Decrement("A") }, wantOK: true, wantQty: 0},
		{name: "deleteIgnoresQuantity", start: 5, op: func(c *Cart) bool { return c.Delete("A") }, wantOK: true, wantQty: 0},
		{name: "decrementMissing", start: 2, op: func(c *Cart) bool { return c.Decrement("Z") }, wantOK: false, wantQty: 2},
		{name: "deleteMissing", start: 2, op: func(c *Cart) bool { return c.Delete("Z") }, wantOK: false, wantQty: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCart(NewMemoryStorage(), "", nil)
			c.Add(momoA, tt.start)

			if got := tt.op(c); got != tt.wantOK {
				t.Errorf("op() = %v, want %v", got, tt.wantOK)
			}
			if got := c.QuantityOf("A"); got != tt.wantQty {
				t.Errorf("QuantityOf(A) = %d, want %d", got, tt.wantQty)
			}
		})
	}
}

func TestCartTotals(t *testing.T) {
	c := NewCart(NewMemoryStorage(), "", nil)
	c.Add(momoA, 2)

	got := c.Totals().Rounded()
	if got.Subtotal != 10.00 || got.Tax != 0.80 || got.Total != 10.80 || got.DeliveryFee != 0 {
		t.Errorf("Totals() = %+v, want 10.00/0.80/10.80", got)
	}
}

func TestCartPersistence(t *testing.T) {
	store := NewMemoryStorage()
	c := NewCart(store, "", nil)
	c.Add(momoA, 2)
	c.Add(momoB, 1)

	restored := NewCart(store, "", nil)
	if restored.QuantityOf("A") != 2 || restored.QuantityOf("B") != 1 {
		t.Errorf("restored cart = %+v", restored.Items())
	}

	restored.Clear()
	if store.Has(KeyCart) {
		t.Error("Clear() should drop the snapshot")
	}
	if NewCart(store, "", nil).Len() != 0 {
		t.Error("cart after Clear() should restore empty")
	}
}

func TestCartBootstrap(t *testing.T) {
	tests := []struct {
		name     string
		catalog  *MockCatalog
		removed  bool
		present  bool
		wantQty  int
		wantCall bool
		wantErr  bool
	}{
		{
			name:     "addsAvailableItem",
			catalog:  &MockCatalog{Items: map[string]*MenuItem{DefaultAutoAddItemID: complimentary(true)}},
			wantQty:  1,
			wantCall: true,
		},
		{
			name:     "skipsUnavailableItem",
			catalog:  &MockCatalog{Items: map[string]*MenuItem{DefaultAutoAddItemID: complimentary(false)}},
			wantCall: true,
		},
		{
			name:     "skipsUnknownItem",
			catalog:  &MockCatalog{Items: map[string]*MenuItem{}},
			wantCall: true,
		},
		{
			name:    "skipsWhenRemovedBefore",
			catalog: &MockCatalog{Items: map[string]*MenuItem{DefaultAutoAddItemID: complimentary(true)}},
			removed: true,
		},
		{
			name:    "skipsWhenPresent",
			catalog: &MockCatalog{Items: map[string]*MenuItem{DefaultAutoAddItemID: complimentary(true)}},
			present: true,
			wantQty: 1,
		},
		{
			name: "catalogError",
			catalog: &MockCatalog{MenuItemFunc: func(ctx context.Context, id string) (*MenuItem, error) {
				return nil, errors.New("menu down")
			}},
			wantCall: true,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStorage()
			if tt.removed {
				_ = store.Save(KeyAutoAddRemoved, true)
			}
			if tt.present {
				_ = store.Save(KeyCart, []CartItem{{ProductID: DefaultAutoAddItemID, Name: "Chutney", Quantity: 1, SystemAdded: true}})
			}
			c := NewCart(store, DefaultAutoAddItemID, nil)

			err := c.Bootstrap(context.Background(), tt.catalog)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Bootstrap() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := c.QuantityOf(DefaultAutoAddItemID); got != tt.wantQty {
				t.Errorf("QuantityOf(auto-add) = %d, want %d", got, tt.wantQty)
			}
			if (tt.catalog.Calls > 0) != tt.wantCall {
				t.Errorf("catalog calls = %d, want call %v", tt.catalog.Calls, tt.wantCall)
			}
			if tt.wantQty == 1 && !c.Items()[0].SystemAdded {
				t.Error("auto-added line should be marked SystemAdded")
			}
		})
	}
}

func TestCartBootstrapRunsOnce(t *testing.T) {
	catalog := &MockCatalog{Items: map[string]*MenuItem{DefaultAutoAddItemID: complimentary(true)}}
	c := NewCart(NewMemoryStorage(), DefaultAutoAddItemID, nil)

	_ = c.Bootstrap(context.Background(), catalog)
	c.Clear()
	_ = c.Bootstrap(context.Background(), catalog)

	if catalog.Calls != 1 {
		t.Errorf("catalog calls = %d, want 1", catalog.Calls)
	}
	if c.Len() != 0 {
		t.Errorf("second Bootstrap() should not re-add, cart = %+v", c.Items())
	}
}

func TestCartRemovingAutoAddSticks(t *testing.T) {
	store := NewMemoryStorage()
	catalog := &MockCatalog{Items: map[string]*MenuItem{DefaultAutoAddItemID: complimentary(true)}}

	c := NewCart(store, DefaultAutoAddItemID, nil)
	_ = c.Bootstrap(context.Background(), catalog)
	if !c.Decrement(DefaultAutoAddItemID) {
		t.Fatal("Decrement() of auto-added line = false")
	}
	if !c.AutoAddRemoved() {
		t.Fatal("AutoAddRemoved() = false after removal")
	}

	next := NewCart(store, DefaultAutoAddItemID, nil)
	_ = next.Bootstrap(context.Background(), catalog)
	if next.QuantityOf(DefaultAutoAddItemID) != 0 {
		t.Error("removed complimentary item came back")
	}
}

func TestLineKey(t *testing.T) {
	tests := []struct {
		name string
		item CartItem
		want string
	}{
		{name: "plain", item: CartItem{ProductID: "A"}, want: "A"},
		{name: "sortedNames", item: CartItem{ProductID: "A", Customizations: []Customization{{Name: "b"}, {Name: "a"}}}, want: "A|a,b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LineKey(tt.item); got != tt.want {
				t.Errorf("LineKey() = %q, want %q", got, tt.want)
			}
		})
	}
}
