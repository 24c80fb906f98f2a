// property.go - Catalog of investment properties with public metadata and a
// public running funding total.
//
// Identifiers are dense and monotonically assigned from 0. Records are never
// deleted; closing a property is a one-way transition that stops further
// contributions.
//
// NOTE: Registry is not thread-safe by itself; the command processor
// serializes access.

package property

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Validation and state errors surfaced to command callers.
var (
	ErrInvalidAmount   = errors.New("target amount must be positive")
	ErrInvalidROI      = errors.New("roi must be between 1 and 100")
	ErrInvalidName     = errors.New("name must not be empty")
	ErrInvalidLocation = errors.New("location must not be empty")
	ErrInvalidImageURL = errors.New("image url must not be empty")
	ErrDoesNotExist    = errors.New("property does not exist")
	ErrNotActive       = errors.New("property is not active")
	ErrAlreadyClosed   = errors.New("property already closed")
	ErrOnlyOwner       = errors.New("caller is not the property owner")
)

// Property is one investment target. CurrentAmount is the public cumulative
// total of contributions, in the same minor currency unit as deposits, and
// is only mutated by successful stake commands.
type Property struct {
	ID            uint64         `json:"id"`
	Name          string         `json:"name"`
	Location      string         `json:"location"`
	ImageURL      string         `json:"image_url"`
	TargetAmount  uint64         `json:"target_amount"`
	CurrentAmount uint64         `json:"current_amount"`
	ROI           uint64         `json:"roi"`
	Active        bool           `json:"active"`
	Owner         common.Address `json:"owner"`
}

// Registry is the dense, append-only property table.
type Registry struct {
	props []*Property
}

// NewRegistry creates an empty property registry.
func NewRegistry() *Registry {
	return &Registry{props: make([]*Property, 0)}
}

// ValidateParams checks creation parameters without mutating anything, so
// the command processor can reject before consuming a nonce.
func ValidateParams(name, location, imageURL string, targetAmount, roi uint64) error {
	if targetAmount == 0 {
		return ErrInvalidAmount
	}
	if roi < 1 || roi > 100 {
		return fmt.Errorf("%w: got %d", ErrInvalidROI, roi)
	}
	if name == "" {
		return ErrInvalidName
	}
	if location == "" {
		return ErrInvalidLocation
	}
	if imageURL == "" {
		return ErrInvalidImageURL
	}
	return nil
}

// Create validates the parameters, assigns the next sequential id and stores
// the record with a zero total, active, owned by the creator.
func (r *Registry) Create(name, location, imageURL string, targetAmount, roi uint64, owner common.Address) (uint64, error) {
	if err := ValidateParams(name, location, imageURL, targetAmount, roi); err != nil {
		return 0, err
	}
	id := uint64(len(r.props))
	r.props = append(r.props, &Property{
		ID:           id,
		Name:         name,
		Location:     location,
		ImageURL:     imageURL,
		TargetAmount: targetAmount,
		ROI:          roi,
		Active:       true,
		Owner:        owner,
	})
	return id, nil
}

// Get returns a copy of the record.
func (r *Registry) Get(id uint64) (Property, error) {
	if id >= uint64(len(r.props)) {
		return Property{}, fmt.Errorf("%w: id %d", ErrDoesNotExist, id)
	}
	return *r.props[id], nil
}

// Exists reports whether the id has been assigned.
func (r *Registry) Exists(id uint64) bool {
	return id < uint64(len(r.props))
}

// Count returns the number of properties ever created.
func (r *Registry) Count() uint64 {
	return uint64(len(r.props))
}

// RecordContribution adds a successful stake's public value to the running
// total. The property must exist and be active.
func (r *Registry) RecordContribution(id, amount uint64) error {
	if id >= uint64(len(r.props)) {
		return fmt.Errorf("%w: id %d", ErrDoesNotExist, id)
	}
	p := r.props[id]
	if !p.Active {
		return fmt.Errorf("%w: id %d", ErrNotActive, id)
	}
	p.CurrentAmount += amount
	return nil
}

// Close flips the property inactive. Only the owner may close, and only
// once; the transition is irreversible.
func (r *Registry) Close(id uint64, caller common.Address) error {
	if id >= uint64(len(r.props)) {
		return fmt.Errorf("%w: id %d", ErrDoesNotExist, id)
	}
	p := r.props[id]
	if caller != p.Owner {
		return fmt.Errorf("%w: caller %s, owner %s", ErrOnlyOwner, caller.Hex(), p.Owner.Hex())
	}
	if !p.Active {
		return fmt.Errorf("%w: id %d", ErrAlreadyClosed, id)
	}
	p.Active = false
	return nil
}

// ListActive returns the ids of all active properties in ascending order.
// An empty slice, not an error, when none are active.
func (r *Registry) ListActive() []uint64 {
	active := make([]uint64, 0, len(r.props))
	for _, p := range r.props {
		if p.Active {
			active = append(active, p.ID)
		}
	}
	return active
}

// BatchCheckActive reports the active flag for each id; out-of-range ids
// report false rather than erroring.
func (r *Registry) BatchCheckActive(ids []uint64) []bool {
	out := make([]bool, len(ids))
	for i, id := range ids {
		out[i] = id < uint64(len(r.props)) && r.props[id].Active
	}
	return out
}

// MarshalJSON encodes the registry as its ordered record list.
func (r *Registry) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.props)
}

// UnmarshalJSON restores the registry, checking that ids stay dense.
func (r *Registry) UnmarshalJSON(data []byte) error {
	var props []*Property
	if err := json.Unmarshal(data, &props); err != nil {
		return err
	}
	for i, p := range props {
		if p.ID != uint64(i) {
			return fmt.Errorf("property table is not dense: record %d has id %d", i, p.ID)
		}
	}
	r.props = props
	return nil
}
