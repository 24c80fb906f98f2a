// ledger.go - Confidential balance ledger: per-(property, holder) encrypted
// accumulators with per-principal access grants.
//
// The ledger only ever combines ciphertexts homomorphically; it never holds
// or derives plaintext. Grants do not survive value replacement, so every
// mutation rebuilds the grant set for the new stored value.
//
// NOTE: BalanceLedger is not thread-safe by itself; the command processor
// serializes access.

package confidential

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Entry is one stored accumulator together with the principals currently
// granted access to its decryption.
type Entry struct {
	PropertyID uint64                  `json:"property_id"`
	Holder     common.Address          `json:"holder"`
	Value      Ciphertext              `json:"value"`
	Grants     map[common.Address]bool `json:"grants"`
}

// BalanceLedger maps (property, holder) to an encrypted stake accumulator.
type BalanceLedger struct {
	Entries map[string]*Entry `json:"entries"`
}

// NewBalanceLedger creates an empty balance ledger.
func NewBalanceLedger() *BalanceLedger {
	return &BalanceLedger{Entries: make(map[string]*Entry)}
}

func balanceKey(propertyID uint64, holder common.Address) string {
	return fmt.Sprintf("%d/%s", propertyID, holder.Hex())
}

func (l *BalanceLedger) entry(propertyID uint64, holder common.Address) *Entry {
	key := balanceKey(propertyID, holder)
	e, ok := l.Entries[key]
	if !ok {
		// Initial balance for an unseen holder is the encryption of zero.
		e = &Entry{
			PropertyID: propertyID,
			Holder:     holder,
			Value:      Zero(),
			Grants:     make(map[common.Address]bool),
		}
		l.Entries[key] = e
	}
	return e
}

// regrant rebuilds the grant set on a freshly computed value. Grants are
// idempotent and must be re-asserted on every state change.
func (e *Entry) regrant(grantees []common.Address) {
	e.Grants = make(map[common.Address]bool, len(grantees))
	for _, g := range grantees {
		e.Grants[g] = true
	}
}

// Accumulate homomorphically adds delta to the holder's balance for the
// property and re-grants access on the resulting value to the grantees.
func (l *BalanceLedger) Accumulate(propertyID uint64, holder common.Address, delta Ciphertext, grantees ...common.Address) {
	e := l.entry(propertyID, holder)
	e.Value = e.Value.Add(delta)
	e.regrant(grantees)
}

// Reduce homomorphically subtracts delta from the holder's balance and
// re-grants access. No plaintext comparison against delta is possible, so
// over-subtraction cannot be rejected at this layer.
func (l *BalanceLedger) Reduce(propertyID uint64, holder common.Address, delta Ciphertext, grantees ...common.Address) {
	e := l.entry(propertyID, holder)
	e.Value = e.Value.Sub(delta)
	e.regrant(grantees)
}

// Read returns the current accumulator value unchanged. It does not mutate
// and does not touch grants; an unseen pair reads as the encryption of zero.
func (l *BalanceLedger) Read(propertyID uint64, holder common.Address) Ciphertext {
	e, ok := l.Entries[balanceKey(propertyID, holder)]
	if !ok {
		return Zero()
	}
	return e.Value
}

// Granted reports whether the principal holds a decryption grant on the
// current value of the holder's accumulator.
func (l *BalanceLedger) Granted(propertyID uint64, holder, principal common.Address) bool {
	e, ok := l.Entries[balanceKey(propertyID, holder)]
	if !ok {
		return false
	}
	return e.Grants[principal]
}
