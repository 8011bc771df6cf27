// Package audithttp exposes the administrator view over the audit ledger.
package audithttp

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/skolara/skolara/internal/audit"
	"github.com/skolara/skolara/internal/platform/httpx"
)

const (
	defaultPageSize = 20
	maxDateRange    = 90 * 24 * time.Hour
)

// Handler serves the read-only audit listing.
type Handler struct {
	logger *slog.Logger
	ledger audit.Ledger
	now    func() time.Time
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, ledger audit.Ledger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, ledger: ledger, now: time.Now}
}

type entryView struct {
	ID           string         `json:"id"`
	ActorID      *string        `json:"actorId"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resourceType"`
	ResourceID   *string        `json:"resourceId"`
	Data         map[string]any `json:"data,omitempty"`
	IPAddress    *string        `json:"ipAddress"`
	CreatedAt    string         `json:"createdAt"`
}

type pageView struct {
	Entries  []entryView `json:"entries"`
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
	HasNext  bool        `json:"hasNext"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, err.Error())
		return
	}

	page, err := h.ledger.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list audit entries", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	view := pageView{
		Entries:  make([]entryView, 0, len(page.Entries)),
		Page:     page.Page,
		PageSize: page.PageSize,
		HasNext:  page.HasNext,
	}
	for _, entry := range page.Entries {
		view.Entries = append(view.Entries, entryView{
			ID:           entry.ID,
			ActorID:      entry.ActorID,
			Action:       entry.Action,
			ResourceType: entry.ResourceType,
			ResourceID:   entry.ResourceID,
			Data:         entry.Data,
			IPAddress:    entry.IPAddress,
			CreatedAt:    entry.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	entry, err := h.ledger.GetByID(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entryView{
		ID:           entry.ID,
		ActorID:      entry.ActorID,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		Data:         entry.Data,
		IPAddress:    entry.IPAddress,
		CreatedAt:    entry.CreatedAt.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) parseFilters(r *http.Request) (audit.Filters, error) {
	q := r.URL.Query()
	filters := audit.Filters{
		Actor:        strings.TrimSpace(q.Get("actor")),
		Action:       strings.TrimSpace(q.Get("action")),
		ResourceType: strings.TrimSpace(q.Get("resourceType")),
		PageSize:     defaultPageSize,
	}
	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return filters, errInvalidFilter("page")
		}
		filters.Page = page
	}
	if raw := q.Get("pageSize"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			return filters, errInvalidFilter("pageSize")
		}
		filters.PageSize = size
	}
	if raw := q.Get("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filters, errInvalidFilter("from")
		}
		filters.From = from
	}
	if raw := q.Get("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filters, errInvalidFilter("to")
		}
		filters.To = to
	}
	if !filters.From.IsZero() && !filters.To.IsZero() {
		if filters.To.Before(filters.From) {
			return filters, errInvalidFilter("to")
		}
		if filters.To.Sub(filters.From) > maxDateRange {
			return filters, errInvalidFilter("from")
		}
	}
	return filters, nil
}

type filterError string

func errInvalidFilter(field string) error {
	return filterError(field)
}

func (e filterError) Error() string {
	return "invalid value for filter " + string(e)
}
