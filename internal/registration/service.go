package registration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verdantgrid/verdant-core/internal/device"
	"github.com/verdantgrid/verdant-core/internal/infrastructure/database"
	"github.com/verdantgrid/verdant-core/internal/owner"
)

// DefaultDeviceName is used when a registration arrives without a name.
const DefaultDeviceName = "Unnamed Device"

// Logger defines the logging interface used by the Service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// EventPublisher receives claim events after a registration commits.
// Implementations must not block; publish failures are logged, never
// propagated to the caller.
type EventPublisher interface {
	DeviceClaimed(dev device.Device, o owner.Owner) error
}

// Input is a registration request from a field technician.
type Input struct {
	// MAC is the device identifier from the enclosure label. Any common
	// separator style is accepted; it is normalised before lookup.
	MAC string

	// DeviceName is the technician-assigned label. Optional; falls back
	// to DefaultDeviceName.
	DeviceName string

	// Email identifies the owner profile. Required.
	Email string

	// Owner profile fields. Optional; non-empty values overwrite an
	// existing profile for the same email.
	FirstName  string
	MiddleName string
	LastName   string
	Mobile     string
	Barangay   string
	Street     string
}

// Result is the committed outcome of a successful registration.
type Result struct {
	Device device.Device `json:"device"`
	Owner  owner.Owner   `json:"owner"`
}

// Service executes the registration transaction.
//
// A registration runs in a single SQLite transaction: the owner profile
// is created or merged, then the device claim is applied as a
// conditional update. Either everything commits or nothing does, so a
// failed registration leaves no partial writes.
type Service struct {
	db        *database.DB
	inventory *device.Inventory
	attempts  AttemptsRepository
	publisher EventPublisher
	logger    Logger

	// now is the clock, swappable for tests.
	now func() time.Time
}

// NewService creates a registration service.
func NewService(db *database.DB, inv *device.Inventory, attempts AttemptsRepository) *Service {
	return &Service{
		db:        db,
		inventory: inv,
		attempts:  attempts,
		logger:    noopLogger{},
		now:       time.Now,
	}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// SetPublisher sets the post-commit event publisher.
func (s *Service) SetPublisher(p EventPublisher) {
	s.publisher = p
}

// Register claims a device for an owner.
//
// The flow: validate and normalise input, then in one transaction look
// up the device, create or merge the owner profile keyed by normalised
// email, and conditionally claim the device. On commit the inventory
// cache is updated, an audit attempt is recorded, and a claim event is
// published.
//
// Error taxonomy, all checkable with errors.Is():
//   - ErrValidation: bad MAC or missing email; nothing was written
//   - device.ErrDeviceNotFound: the MAC is not provisioned
//   - device.ErrDeviceClaimed: the device already has an owner
//   - ErrStore: storage failed mid-flight; the transaction rolled back
func (s *Service) Register(ctx context.Context, in Input) (*Result, error) {
	mac, err := device.NormalizeMAC(in.MAC)
	if err != nil {
		s.recordAttempt(ctx, strings.TrimSpace(in.MAC), "", OutcomeValidation, err.Error())
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	email := owner.NormalizeEmail(in.Email)
	if email == "" {
		s.recordAttempt(ctx, mac, "", OutcomeValidation, "email is required")
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}

	result, err := s.registerTx(ctx, mac, email, in)
	if err != nil {
		s.recordFailure(ctx, mac, err)
		return nil, err
	}

	// Post-commit side effects. The registration has already succeeded;
	// none of these can fail it.
	s.inventory.ApplyUpdate(&result.Device)
	s.recordAttempt(ctx, mac, result.Owner.ID, OutcomeSuccess, "")

	if s.publisher != nil {
		if err := s.publisher.DeviceClaimed(result.Device, result.Owner); err != nil {
			s.logger.Warn("claim event publish failed", "device_id", mac, "error", err)
		}
	}

	s.logger.Info("device registered",
		"device_id", mac,
		"owner_id", result.Owner.ID,
		"device_name", result.Device.Name,
	)

	return result, nil
}

// registerTx runs the transactional core of a registration.
func (s *Service) registerTx(ctx context.Context, mac, email string, in Input) (*Result, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	devices := device.NewSQLiteRepository(tx)
	owners := owner.NewSQLiteRepository(tx)

	// Device must exist and be unclaimed. The conditional Claim below is
	// the authority under concurrency; this early check gives precise
	// errors without burning an owner write.
	dev, err := devices.GetByID(ctx, mac)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	if dev.IsClaimed() {
		return nil, device.ErrDeviceClaimed
	}

	// Display name precedence: submitted nickname, then the factory name
	// already on the device, then the fixed fallback.
	name := strings.TrimSpace(in.DeviceName)
	if name == "" {
		name = dev.Name
	}
	if name == "" {
		name = DefaultDeviceName
	}

	o, err := s.resolveOwner(ctx, owners, email, in)
	if err != nil {
		return nil, err
	}

	registeredAt := s.now().UTC()
	if err := devices.Claim(ctx, mac, o.ID, name, registeredAt); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) || errors.Is(err, device.ErrDeviceClaimed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}

	claimed, err := devices.GetByID(ctx, mac)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: committing registration: %w", ErrStore, err)
	}

	return &Result{Device: *claimed, Owner: *o}, nil
}

// resolveOwner finds or creates the owner profile for a normalised email.
// An existing profile absorbs the submitted fields via merge semantics;
// a new profile gets a minted ID.
func (s *Service) resolveOwner(ctx context.Context, owners owner.Repository, email string, in Input) (*owner.Owner, error) {
	update := owner.Owner{
		Email:      email,
		FirstName:  strings.TrimSpace(in.FirstName),
		MiddleName: strings.TrimSpace(in.MiddleName),
		LastName:   strings.TrimSpace(in.LastName),
		Mobile:     strings.TrimSpace(in.Mobile),
		Address: owner.Address{
			Barangay: strings.TrimSpace(in.Barangay),
			Street:   strings.TrimSpace(in.Street),
		},
	}

	existing, err := owners.GetByEmail(ctx, email)
	switch {
	case err == nil:
		existing.Merge(update)
		if err := owners.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStore, err)
		}
		return existing, nil

	case errors.Is(err, owner.ErrOwnerNotFound):
		o := update
		o.ID = s.mintOwnerID()
		o.FullName = owner.DeriveFullName(o.FirstName, o.MiddleName, o.LastName)

		createErr := owners.Create(ctx, &o)
		if createErr == nil {
			return &o, nil
		}
		// Lost an insert race on the unique email index: the profile now
		// exists, merge into it instead.
		if errors.Is(createErr, owner.ErrOwnerExists) {
			winner, getErr := owners.GetByEmail(ctx, email)
			if getErr != nil {
				return nil, fmt.Errorf("%w: %w", ErrStore, getErr)
			}
			winner.Merge(update)
			if err := owners.Update(ctx, winner); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrStore, err)
			}
			return winner, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrStore, createErr)

	default:
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
}

// mintOwnerID generates a new owner identifier.
func (s *Service) mintOwnerID() string {
	return "user_" + uuid.NewString()[:8]
}

// recordFailure writes an audit attempt classifying the error.
func (s *Service) recordFailure(ctx context.Context, mac string, err error) {
	switch {
	case errors.Is(err, device.ErrDeviceNotFound):
		s.recordAttempt(ctx, mac, "", OutcomeNotFound, err.Error())
	case errors.Is(err, device.ErrDeviceClaimed):
		s.recordAttempt(ctx, mac, "", OutcomeAlreadyClaimed, err.Error())
	case errors.Is(err, ErrValidation):
		s.recordAttempt(ctx, mac, "", OutcomeValidation, err.Error())
	default:
		s.recordAttempt(ctx, mac, "", OutcomeStoreError, err.Error())
	}
}

// recordAttempt writes to the audit trail. Audit failures are logged,
// never propagated: they must not change a registration outcome.
func (s *Service) recordAttempt(ctx context.Context, mac, ownerID string, outcome Outcome, message string) {
	if s.attempts == nil {
		return
	}

	attempt := &Attempt{
		DeviceID: mac,
		OwnerID:  ownerID,
		Outcome:  outcome,
		Message:  message,
	}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		s.logger.Warn("recording registration attempt failed", "device_id", mac, "error", err)
	}
}
