package orderstatus

import (
	"strings"
)

type Status struct {
	Name string
}

func (s Status) Code() string {
	return s.Name
}

func (s Status) Label() string {
	lower := strings.ToLower(s.Name)
	if lower == "" {
		return ""
	}
	return strings.ToUpper(lower[:1]) + lower[1:]
}

// Terminal reports whether the kitchen is done with an order in this status.
func (s Status) Terminal() bool {
	return s == Statuses.Served || s == Statuses.Cancelled
}

// InProgress reports whether the order is still being worked on.
func (s Status) InProgress() bool {
	return s == Statuses.Pending || s == Statuses.Preparing
}

type Enum struct {
	Pending   Status
	Preparing Status
	Served    Status
	Cancelled Status
}

var Statuses = Enum{
	Pending:   Status{Name: "PENDING"},
	Preparing: Status{Name: "PREPARING"},
	Served:    Status{Name: "SERVED"},
	Cancelled: Status{Name: "CANCELLED"},
}

var All = []Status{
	Statuses.Pending,
	Statuses.Preparing,
	Statuses.Served,
	Statuses.Cancelled,
}

// ByName returns the status for a given name, or nil if not found.
// Matching is case-insensitive so "preparing" and "PREPARING" resolve alike.
func ByName(name string) *Status {
	for _, s := range All {
		if strings.EqualFold(s.Name, name) {
			return &s
		}
	}
	return nil
}

func IsTerminal(name string) bool {
	s := ByName(name)
	return s != nil && s.Terminal()
}

func IsInProgress(name string) bool {
	s := ByName(name)
	return s != nil && s.InProgress()
}
