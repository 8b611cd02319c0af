package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/verdantgrid/verdant-core/internal/registration"
)

// validate checks registration request payloads before they reach the
// service. Shared across requests; the validator is safe for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

// registrationRequest is the JSON body for POST /registrations.
type registrationRequest struct {
	MAC        string `json:"mac" validate:"required"`
	DeviceName string `json:"deviceName" validate:"omitempty,max=100"`
	Email      string `json:"email" validate:"required,email"`
	FirstName  string `json:"firstName" validate:"omitempty,max=100"`
	MiddleName string `json:"middleName" validate:"omitempty,max=100"`
	LastName   string `json:"lastName" validate:"omitempty,max=100"`
	Mobile     string `json:"mobileNumber" validate:"omitempty,max=20"`
	Barangay   string `json:"barangay" validate:"omitempty,max=100"`
	Street     string `json:"street" validate:"omitempty,max=200"`
}

// handleRegister executes the registration transaction.
//
// Responses:
//   - 201 with the claimed device and owner profile on success
//   - 400 on malformed body, failed field validation, or a bad MAC
//   - 404 when the MAC is not a provisioned device
//   - 409 when the device is already claimed
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, validationMessage(err))
		return
	}

	result, err := s.registration.Register(r.Context(), registration.Input{
		MAC:        req.MAC,
		DeviceName: req.DeviceName,
		Email:      req.Email,
		FirstName:  req.FirstName,
		MiddleName: req.MiddleName,
		LastName:   req.LastName,
		Mobile:     req.Mobile,
		Barangay:   req.Barangay,
		Street:     req.Street,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// handleListAttempts returns the registration audit trail, most recent
// first.
//
// Query parameters:
//   - device_id: filter by device MAC
//   - outcome: filter by outcome (success, not_found, ...)
//   - limit, offset: pagination
func (s *Server) handleListAttempts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := registration.AttemptFilter{
		DeviceID: q.Get("device_id"),
		Outcome:  registration.Outcome(q.Get("outcome")),
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))   //nolint:errcheck // zero falls back to the default page size
	filter.Offset, _ = strconv.Atoi(q.Get("offset")) //nolint:errcheck // zero is the first page

	list, err := s.attempts.List(r.Context(), filter)
	if err != nil {
		writeInternalError(w, "failed to list registration attempts")
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// validationMessage flattens validator errors into a single readable line.
func validationMessage(err error) string {
	errs, ok := err.(validator.ValidationErrors) //nolint:errcheck // non-ValidationErrors fall through to Error()
	if !ok {
		return err.Error()
	}

	msg := ""
	for i, fe := range errs {
		if i > 0 {
			msg += "; "
		}
		msg += fe.Field() + " failed " + fe.Tag() + " validation"
	}
	return msg
}
