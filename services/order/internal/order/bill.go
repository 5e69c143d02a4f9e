package order

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
	"github.com/momomagic/momo/pkg/enums/billingstatus"
	"github.com/momomagic/momo/pkg/pricing"
)

// Bill is the persisted consolidated view of a dining session.
type Bill struct {
	ID            uuid.UUID   `json:"id" bson:"_id"`
	BillNumber    string      `json:"bill_number" bson:"bill_number"`
	SessionID     string      `json:"session_id" bson:"session_id"`
	TableNumber   int         `json:"table_number" bson:"table_number"`
	Items         []OrderItem `json:"items" bson:"items"`
	OrderIDs      []uuid.UUID `json:"order_ids" bson:"order_ids"`
	Subtotal      float64     `json:"subtotal" bson:"subtotal"`
	Tax           float64     `json:"tax" bson:"tax"`
	Total         float64     `json:"total" bson:"total"`
	BillingStatus string      `json:"billing_status" bson:"billing_status"`
	CreatedAt     time.Time   `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at" bson:"updated_at"`
}

func (b *Bill) GetID() uuid.UUID {
	return b.ID
}

func (b *Bill) ResourceType() string {
	return "bill"
}

func NewBill(sessionID string) *Bill {
	now := time.Now()
	return &Bill{
		ID:            apt.GenerateNewID(),
		BillNumber:    GenerateBillNumber(now),
		SessionID:     sessionID,
		BillingStatus: billingstatus.Statuses.Unpaid.Code(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Consolidate rebuilds items and totals from every non-cancelled order of the
// session. Identical lines across orders are merged by quantity.
func (b *Bill) Consolidate(orders []*Order) {
	merged := make(map[string]*OrderItem)
	var keys []string
	var ids []uuid.UUID
	var parts []pricing.Totals

	for _, o := range orders {
		if o == nil || o.IsCancelled() {
			continue
		}
		if b.TableNumber == 0 {
			b.TableNumber = o.TableNumber
		}
		ids = append(ids, o.ID)
		parts = append(parts, pricing.Totals{Subtotal: o.Subtotal, Tax: o.Tax, Total: o.Total})

		for _, item := range o.Items {
			key := billLineKey(item)
			if existing, ok := merged[key]; ok {
				existing.Quantity += item.Quantity
				continue
			}
			copied := item
			copied.Customizations = append([]Customization(nil), item.Customizations...)
			merged[key] = &copied
			keys = append(keys, key)
		}
	}

	items := make([]OrderItem, 0, len(keys))
	for _, k := range keys {
		items = append(items, *merged[k])
	}

	totals := pricing.Sum(parts...).Rounded()
	b.Items = items
	b.OrderIDs = ids
	b.Subtotal = totals.Subtotal
	b.Tax = totals.Tax
	b.Total = totals.Total
	b.UpdatedAt = time.Now()
}

func billLineKey(item OrderItem) string {
	names := make([]string, 0, len(item.Customizations))
	for _, c := range item.Customizations {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return fmt.Sprintf("%s|%s|%.2f", item.MenuItemID, strings.Join(names, ","), item.Price)
}

// GenerateBillNumber builds a reference such as BILL-20261014-153012.
func GenerateBillNumber(at time.Time) string {
	return "BILL-" + at.Format("20060102-150405")
}
