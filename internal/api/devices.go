package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/verdantgrid/verdant-core/internal/device"
)

// createDeviceRequest is the JSON body for POST /devices, used by
// warehouse tooling to provision nodes ahead of field registration.
type createDeviceRequest struct {
	MAC  string `json:"mac" validate:"required"`
	Name string `json:"deviceName" validate:"omitempty,max=100"`
}

// handleCreateDevice provisions an unclaimed device.
//
// Responses:
//   - 201 with the created device
//   - 400 on malformed body, failed field validation, or a bad MAC
//   - 409 when the MAC is already provisioned
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var req createDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, validationMessage(err))
		return
	}

	mac, err := device.NormalizeMAC(req.MAC)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dev := &device.Device{ID: mac, Name: req.Name, Status: device.StatusUnclaimed}
	if err := s.inventory.CreateDevice(r.Context(), dev); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dev)
}

// handleListDevices returns devices from the inventory, with optional
// query filters.
//
// Query parameters:
//   - unclaimed: "true" to return only devices awaiting registration
//   - owner_id: filter by owning profile
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if unclaimed, _ := strconv.ParseBool(r.URL.Query().Get("unclaimed")); unclaimed { //nolint:errcheck // absent or malformed means no filter
		devices, err := s.inventory.ListUnclaimed(ctx)
		if err != nil {
			writeInternalError(w, "failed to list devices")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
		return
	}

	if ownerID := r.URL.Query().Get("owner_id"); ownerID != "" {
		devices, err := s.inventory.ListByOwner(ctx, ownerID)
		if err != nil {
			writeInternalError(w, "failed to list devices")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
		return
	}

	devices, err := s.inventory.ListDevices(ctx)
	if err != nil {
		writeInternalError(w, "failed to list devices")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns a single device by MAC address. Any common
// MAC separator style is accepted in the URL.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id, err := device.NormalizeMAC(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dev, err := s.inventory.GetDevice(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dev)
}
