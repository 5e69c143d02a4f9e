package menu

import (
	"net/http"
	"strings"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Handler serves the read only catalog.
type Handler struct {
	itemRepo MenuItemRepo
	logger   apt.Logger
	tlm      *telemetry.HTTP
}

func NewHandler(itemRepo MenuItemRepo, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Handler{
		itemRepo: itemRepo,
		logger:   logger,
		tlm:      telemetry.NewHTTP(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/menu-items", func(r chi.Router) {
		r.Get("/", h.ListMenuItems)
		r.Get("/{id}", h.GetMenuItem)
	})
}

// GetMenuItem handles GET /menu-items/{id}
func (h *Handler) GetMenuItem(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetMenuItem")
	defer finish()
	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	item, err := h.itemRepo.Get(r.Context(), id)
	if err != nil {
		log.Error("error loading menu item", "error", err, "id", id.String())
		apt.RespondError(w, http.StatusInternalServerError, "Could not load menu item")
		return
	}

	if item == nil {
		apt.RespondError(w, http.StatusNotFound, "Menu item not found")
		return
	}

	links := apt.RESTfulLinksFor(item)
	apt.RespondSuccess(w, item, links...)
}

// ListMenuItems handles GET /menu-items with optional available and category filters.
func (h *Handler) ListMenuItems(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListMenuItems")
	defer finish()
	log := h.log(r)
	ctx := r.Context()

	availableOnly := r.URL.Query().Get("available") == "true"
	category := strings.TrimSpace(r.URL.Query().Get("category"))

	var items []*MenuItem
	var err error

	switch {
	case category != "":
		items, err = h.itemRepo.ListByCategory(ctx, category)
		if err == nil && availableOnly {
			items = onlyAvailable(items)
		}
	case availableOnly:
		items, err = h.itemRepo.ListAvailable(ctx)
	default:
		items, err = h.itemRepo.List(ctx)
	}

	if err != nil {
		log.Error("cannot list menu items", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not list menu items")
		return
	}

	if items == nil {
		items = []*MenuItem{}
	}
	apt.RespondCollection(w, items, "menu-items")
}

func (h *Handler) log(r *http.Request) apt.Logger {
	return h.logger.With("request_id", apt.RequestIDFrom(r.Context()))
}

func (h *Handler) parseIDParam(w http.ResponseWriter, r *http.Request, log apt.Logger) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, "id")
	if idStr == "" {
		log.Debug("missing id parameter")
		apt.RespondError(w, http.StatusBadRequest, "Missing id parameter")
		return uuid.Nil, false
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		log.Debug("invalid id parameter", "id", idStr, "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Invalid id parameter")
		return uuid.Nil, false
	}

	return id, true
}

func onlyAvailable(items []*MenuItem) []*MenuItem {
	out := items[:0:0]
	for _, it := range items {
		if it.Available {
			out = append(out, it)
		}
	}
	return out
}
