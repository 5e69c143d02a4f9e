package diner

import (
	"sync"

	"github.com/appetiteclub/apt"
)

// DefaultGuestName labels orders placed without any identity.
const DefaultGuestName = "Guest"

type storedIdentity struct {
	Customer Customer `json:"customer"`
	Token    string   `json:"token,omitempty"`
}

// Identity holds the authenticated customer across restarts.
type Identity struct {
	mu      sync.Mutex
	storage Storage
	logger  apt.Logger
}

func NewIdentity(storage Storage, logger apt.Logger) *Identity {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Identity{storage: storage, logger: logger.With("component", "Identity")}
}

// Customer returns the stored customer, if any.
func (i *Identity) Customer() (Customer, bool) {
	id, ok := i.load()
	return id.Customer, ok
}

// Token returns the stored customer token.
func (i *Identity) Token() string {
	id, _ := i.load()
	return id.Token
}

func (i *Identity) Set(c Customer, token string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	saveState(i.storage, KeyCustomer, storedIdentity{Customer: c, Token: token}, i.logger)
}

func (i *Identity) Clear() {
	i.mu.Lock()
	defer i.mu.Unlock()
	deleteState(i.storage, KeyCustomer, i.logger)
}

func (i *Identity) load() (storedIdentity, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	var id storedIdentity
	if !loadState(i.storage, KeyCustomer, &id, i.logger) {
		return storedIdentity{}, false
	}
	if id.Customer.Phone == "" && id.Customer.ID == "" {
		return storedIdentity{}, false
	}
	return id, true
}
