package api

import (
	"github.com/gorilla/mux"
)

// NewRouter wires the read-only status surface. Control is never exposed
// over HTTP; the engine owns all writes.
func NewRouter(h *Handlers) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", h.health).Methods("GET")
	r.HandleFunc("/status", h.status).Methods("GET")
	r.HandleFunc("/devices", h.devices).Methods("GET")
	r.HandleFunc("/billing", h.billing).Methods("GET")
	r.HandleFunc("/outlets/{outlet}/usage", h.usage).Methods("GET")

	return r
}
