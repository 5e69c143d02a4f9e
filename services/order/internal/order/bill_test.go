package order

import (
	"testing"
	"time"
)

func TestBillConsolidate(t *testing.T) {
	first := newSessionOrder("s1", 7, 10, "PENDING")
	second := newSessionOrder("s1", 7, 20, "SERVED")
	second.Items[0].MenuItemID = "momo-chicken"
	second.Items[0].Name = "Chicken Momo"
	cancelled := newSessionOrder("s1", 7, 5, "CANCELLED")

	bill := NewBill("s1")
	bill.Consolidate([]*Order{first, second, cancelled})

	if bill.TableNumber != 7 {
		t.Errorf("TableNumber = %d, want 7", bill.TableNumber)
	}
	if len(bill.OrderIDs) != 2 {
		t.Errorf("OrderIDs = %d, want 2", len(bill.OrderIDs))
	}
	if bill.Subtotal != 30 {
		t.Errorf("Subtotal = %v, want 30", bill.Subtotal)
	}
	if bill.Tax != 2.4 {
		t.Errorf("Tax = %v, want 2.4", bill.Tax)
	}
	if bill.Total != 32.4 {
		t.Errorf("Total = %v, want 32.4", bill.Total)
	}
	if len(bill.Items) != 2 {
		t.Errorf("Items = %d, want 2", len(bill.Items))
	}
}

func TestBillConsolidateMergesIdenticalLines(t *testing.T) {
	tests := []struct {
		name      string
		second    OrderItem
		wantLines int
	}{
		{
			name:      "samePlainItemMerges",
			second:    OrderItem{MenuItemID: "momo-veg", Name: "Veg Momo", Quantity: 2, Price: 5},
			wantLines: 1,
		},
		{
			name: "customizedItemStaysSeparate",
			second: OrderItem{
				MenuItemID:     "momo-veg",
				Name:           "Veg Momo",
				Quantity:       1,
				Price:          5,
				Customizations: []Customization{{Name: "spicy"}},
			},
			wantLines: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newSessionOrder("s1", 3, 5, "PENDING")
			b := newSessionOrder("s1", 3, 5, "PENDING")
			b.Items = []OrderItem{tt.second}
			b.RecalculateTotals()

			bill := NewBill("s1")
			bill.Consolidate([]*Order{a, b})

			if len(bill.Items) != tt.wantLines {
				t.Fatalf("Items = %d, want %d", len(bill.Items), tt.wantLines)
			}
			if tt.wantLines == 1 && bill.Items[0].Quantity != 3 {
				t.Errorf("merged Quantity = %d, want 3", bill.Items[0].Quantity)
			}
		})
	}
}

func TestBillConsolidateDoesNotAliasOrderItems(t *testing.T) {
	a := newSessionOrder("s1", 1, 5, "PENDING")
	b := newSessionOrder("s1", 1, 5, "PENDING")

	bill := NewBill("s1")
	bill.Consolidate([]*Order{a, b})

	if a.Items[0].Quantity != 1 {
		t.Errorf("source order quantity mutated to %d", a.Items[0].Quantity)
	}
}

func TestGenerateBillNumber(t *testing.T) {
	at := time.Date(2026, 10, 14, 15, 30, 12, 0, time.UTC)
	if got := GenerateBillNumber(at); got != "BILL-20261014-153012" {
		t.Errorf("GenerateBillNumber() = %q, want BILL-20261014-153012", got)
	}
}
