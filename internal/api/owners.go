package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleLookupOwner returns owner profiles.
//
// Query parameters:
//   - email: return the single profile for this address (any case)
//
// Without a filter, all profiles are returned.
func (s *Server) handleLookupOwner(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if email := r.URL.Query().Get("email"); email != "" {
		o, err := s.owners.GetByEmail(ctx, email)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, o)
		return
	}

	owners, err := s.owners.List(ctx)
	if err != nil {
		writeInternalError(w, "failed to list owners")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"owners": owners, "count": len(owners)})
}

// handleGetOwner returns a single owner profile by ID.
func (s *Server) handleGetOwner(w http.ResponseWriter, r *http.Request) {
	o, err := s.owners.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, o)
}

// handleListOwnerDevices returns the devices claimed by an owner.
func (s *Server) handleListOwnerDevices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	// 404 on unknown owner rather than an empty list.
	o, err := s.owners.GetByID(ctx, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	devices, err := s.inventory.ListByOwner(ctx, o.ID)
	if err != nil {
		writeInternalError(w, "failed to list devices")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}
