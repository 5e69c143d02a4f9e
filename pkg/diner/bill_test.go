package diner

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestComputeSessionTotals(t *testing.T) {
	orders := []Order{
		{Status: "PENDING", Subtotal: 10, Tax: 0.8, Total: 10.8},
		{Status: "SERVED", Subtotal: 7.5, Tax: 0.6, Total: 8.1},
		{Status: "CANCELLED", Subtotal: 100, Tax: 8, Total: 108},
	}

	got := ComputeSessionTotals(orders)
	want := SessionTotals{Subtotal: 17.5, Tax: 1.4, Total: 18.9, OrderCount: 2}
	if got != want {
		t.Errorf("ComputeSessionTotals() = %+v, want %+v", got, want)
	}

	if got := ComputeSessionTotals(nil); got != (SessionTotals{}) {
		t.Errorf("ComputeSessionTotals(nil) = %+v", got)
	}
}

func newBillsFixture(t *testing.T) (*Bills, *History, *MockOrderAPI, Session) {
	t.Helper()
	store := NewMemoryStorage()
	sessions := NewSessionManager(store, nil, nil)
	if _, err := sessions.GetOrCreate(6); err != nil {
		t.Fatal(err)
	}
	s, _ := sessions.Current()
	api := &MockOrderAPI{}
	history := NewHistory(sessions, api, store, time.Second, nil)
	return NewBills(api, history, sessions, time.Second, nil), history, api, s
}

func TestConsolidatedBillFromHistory(t *testing.T) {
	bills, history, _, s := newBillsFixture(t)
	history.Prepend(Order{ID: "o1", SessionID: s.ID, Status: "SERVED", Subtotal: 10, Tax: 0.8, Total: 10.8,
		Items: []OrderItem{{MenuItemID: "A", Quantity: 2, Price: 5}}})
	history.Prepend(Order{ID: "o2", SessionID: s.ID, Status: "CANCELLED", Subtotal: 7.5, Tax: 0.6, Total: 8.1,
		Items: []OrderItem{{MenuItemID: "B", Quantity: 1, Price: 7.5}}})
	history.MarkOptimistic("pending_payment")

	view, err := bills.GetConsolidatedBill(context.Background())
	if err != nil {
		t.Fatalf("GetConsolidatedBill() error = %v", err)
	}
	if view.FromServer {
		t.Error("FromServer = true without a server bill")
	}
	if want := "BILL-" + strings.ToUpper(s.Suffix()); view.ReferenceNumber != want {
		t.Errorf("ReferenceNumber = %q, want %q", view.ReferenceNumber, want)
	}
	if len(view.Items) != 1 || view.Items[0].MenuItemID != "A" {
		t.Errorf("Items = %+v, want only non-cancelled lines", view.Items)
	}
	if view.Total != 10.8 || view.OrderCount != 1 || view.TableNumber != 6 {
		t.Errorf("view = %+v", view)
	}
	if view.Billing.Status != "pending_payment" || !view.Billing.Optimistic {
		t.Errorf("Billing = %+v, want History's value", view.Billing)
	}
}

func TestConsolidatedBillFromServer(t *testing.T) {
	bills, history, api, s := newBillsFixture(t)
	history.Prepend(Order{ID: "o1", SessionID: s.ID, Status: "SERVED", Subtotal: 10, Tax: 0.8, Total: 10.8})
	history.SetConfirmedBilling("paid")
	api.Bill = &ServerBill{
		BillNumber:    "INV-0007",
		SessionID:     s.ID,
		Items:         []OrderItem{{MenuItemID: "A", Quantity: 2, Price: 5}},
		Subtotal:      10,
		Tax:           0.8,
		Total:         10.8,
		BillingStatus: "pending_payment",
		CreatedAt:     time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC),
	}

	view, err := bills.GetConsolidatedBill(context.Background())
	if err != nil {
		t.Fatalf("GetConsolidatedBill() error = %v", err)
	}
	if !view.FromServer || view.ReferenceNumber != "INV-0007" || view.Total != 10.8 {
		t.Errorf("view = %+v", view)
	}
	if view.Billing.Status != "paid" {
		t.Errorf("Billing = %+v, want History's paid over the bill record", view.Billing)
	}

	// A failed fetch falls back to the last good server bill.
	api.SessionBillFunc = func(ctx context.Context, sessionID string) (*ServerBill, error) {
		return nil, errors.New("offline")
	}
	view, err = bills.GetConsolidatedBill(context.Background())
	if err != nil || !view.FromServer {
		t.Errorf("GetConsolidatedBill() offline = %+v, %v; want cached server bill", view, err)
	}

	bills.DropCache()
	view, _ = bills.GetConsolidatedBill(context.Background())
	if view.FromServer {
		t.Error("GetConsolidatedBill() after DropCache() should aggregate locally")
	}
}

func TestConsolidatedBillWithoutSession(t *testing.T) {
	store := NewMemoryStorage()
	sessions := NewSessionManager(store, nil, nil)
	api := &MockOrderAPI{}
	bills := NewBills(api, NewHistory(sessions, api, store, time.Second, nil), sessions, time.Second, nil)

	if _, err := bills.GetConsolidatedBill(context.Background()); !errors.Is(err, ErrNoSession) {
		t.Errorf("GetConsolidatedBill() error = %v, want ErrNoSession", err)
	}
}
