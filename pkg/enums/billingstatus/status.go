package billingstatus

import (
	"strings"
)

// Status is the session-wide payment state shared by every order of a dining session.
type Status struct {
	Name string
	rank int
}

func (s Status) Code() string {
	return s.Name
}

func (s Status) Label() string {
	parts := strings.Split(s.Name, "_")
	for i := range parts {
		if len(parts[i]) > 0 {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, " ")
}

// Rank orders statuses along unpaid -> pending_payment -> paid.
func (s Status) Rank() int {
	return s.rank
}

// Allows reports whether moving from s to next keeps the handshake moving forward.
// Staying in place is allowed so repeated requests stay idempotent.
func (s Status) Allows(next Status) bool {
	return next.rank >= s.rank
}

type Enum struct {
	Unpaid         Status
	PendingPayment Status
	Paid           Status
}

var Statuses = Enum{
	Unpaid:         Status{Name: "unpaid", rank: 0},
	PendingPayment: Status{Name: "pending_payment", rank: 1},
	Paid:           Status{Name: "paid", rank: 2},
}

var All = []Status{
	Statuses.Unpaid,
	Statuses.PendingPayment,
	Statuses.Paid,
}

// ByName returns the status for a given name, or nil if not found
func ByName(name string) *Status {
	for _, s := range All {
		if s.Name == strings.ToLower(strings.TrimSpace(name)) {
			return &s
		}
	}
	return nil
}

// Normalize maps an empty or unknown value to unpaid.
func Normalize(name string) Status {
	if s := ByName(name); s != nil {
		return *s
	}
	return Statuses.Unpaid
}
