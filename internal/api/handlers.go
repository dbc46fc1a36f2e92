package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/billing"
	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/engine"
	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/models"
	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/store"
)

// Handlers holds the API's collaborators.
type Handlers struct {
	Engine  *engine.Engine
	Store   store.Store
	Tariff  billing.Tariff
	Usage   UsageFn
	Devices string // devices path in the store
}

// UsageFn serves historical per-day energy, normally backed by the
// ClickHouse historian. Nil when no historian is configured.
type UsageFn func(ctx context.Context, outlet string, from, to time.Time) (map[string]float64, error)

// NewHandlers builds the handler set. usage may be nil when no historian is
// configured; the endpoint then answers 503.
func NewHandlers(eng *engine.Engine, st store.Store, tariff billing.Tariff, usage UsageFn, devicesPath string) *Handlers {
	if devicesPath == "" {
		devicesPath = "devices"
	}
	return &Handlers{Engine: eng, Store: st, Tariff: tariff, Usage: usage, Devices: devicesPath}
}

func (h *Handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Engine.Stats())
}

type deviceView struct {
	Outlet string `json:"outlet"`
	State  string `json:"state"`
	Reason string `json:"reason"`
	Regime string `json:"regime"`
	Group  string `json:"group,omitempty"`
	At     string `json:"at"`
}

func (h *Handlers) devices(w http.ResponseWriter, _ *http.Request) {
	decisions := h.Engine.LastDecisions()
	views := make([]deviceView, 0, len(decisions))
	for _, d := range decisions {
		views = append(views, deviceView{
			Outlet: d.Outlet,
			State:  string(d.Next),
			Reason: d.Reason,
			Regime: d.Regime.String(),
			Group:  d.GroupKey,
			At:     d.At.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handlers) billing(w http.ResponseWriter, r *http.Request) {
	raw, err := h.Store.Fetch(r.Context(), h.Devices)
	if err != nil {
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	devices := make(map[string]models.Device)
	if _, err := store.Decode(raw, &devices); err != nil {
		http.Error(w, "malformed device tree", http.StatusInternalServerError)
		return
	}

	per, total := h.Tariff.Fleet(devices, time.Now())
	writeJSON(w, http.StatusOK, map[string]any{
		"outlets": per,
		"total":   total,
	})
}

func (h *Handlers) usage(w http.ResponseWriter, r *http.Request) {
	if h.Usage == nil {
		http.Error(w, "historian not configured", http.StatusServiceUnavailable)
		return
	}
	outletKey := mux.Vars(r)["outlet"]

	to := time.Now()
	from := to.AddDate(0, -1, 0)
	if v := r.URL.Query().Get("from"); v != "" {
		if parsed, err := time.Parse("2006-01-02", v); err == nil {
			from = parsed
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if parsed, err := time.Parse("2006-01-02", v); err == nil {
			to = parsed
		}
	}

	days, err := h.Usage(r.Context(), outletKey, from, to)
	if err != nil {
		log.Printf("Error querying usage for %s: %v", outletKey, err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"outlet": outletKey,
		"days":   days,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
