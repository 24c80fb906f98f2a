// nonce.go - Per-identity one-time-value registry for replay protection.
//
// A nonce is scoped to the identity that consumes it: two different signers
// may use the same literal value independently, but a signer can never reuse
// one of its own. Consumed nonces are never expired or cleaned up.
//
// NOTE: Registry is not thread-safe by itself; the command processor
// serializes access.

package nonce

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// ErrAlreadyUsed is returned when an identity attempts to consume a nonce it
// has consumed before.
var ErrAlreadyUsed = errors.New("nonce already used")

// Registry tracks consumed nonces per identity.
type Registry struct {
	used map[common.Address]map[uint64]struct{}
}

// NewRegistry creates an empty nonce registry.
func NewRegistry() *Registry {
	return &Registry{used: make(map[common.Address]map[uint64]struct{})}
}

// Used reports whether the identity has already consumed the nonce.
func (r *Registry) Used(identity common.Address, nonce uint64) bool {
	set, ok := r.used[identity]
	if !ok {
		return false
	}
	_, consumed := set[nonce]
	return consumed
}

// Consume marks the nonce as consumed for the identity. Once consumed it is
// permanently consumed; a second attempt fails with ErrAlreadyUsed.
func (r *Registry) Consume(identity common.Address, nonce uint64) error {
	set, ok := r.used[identity]
	if !ok {
		set = make(map[uint64]struct{})
		r.used[identity] = set
	}
	if _, consumed := set[nonce]; consumed {
		return fmt.Errorf("%w: nonce %d for %s", ErrAlreadyUsed, nonce, identity.Hex())
	}
	set[nonce] = struct{}{}
	return nil
}

// MarshalJSON encodes the registry as identity -> sorted list of consumed
// nonces, so contract state files stay diffable.
func (r *Registry) MarshalJSON() ([]byte, error) {
	out := make(map[string][]uint64, len(r.used))
	for identity, set := range r.used {
		nonces := make([]uint64, 0, len(set))
		for n := range set {
			nonces = append(nonces, n)
		}
		sort.Slice(nonces, func(i, j int) bool { return nonces[i] < nonces[j] })
		out[identity.Hex()] = nonces
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores the registry from its MarshalJSON form.
func (r *Registry) UnmarshalJSON(data []byte) error {
	var in map[string][]uint64
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	r.used = make(map[common.Address]map[uint64]struct{}, len(in))
	for hexAddr, nonces := range in {
		if !common.IsHexAddress(hexAddr) {
			return fmt.Errorf("invalid identity in nonce registry: %q", hexAddr)
		}
		set := make(map[uint64]struct{}, len(nonces))
		for _, n := range nonces {
			set[n] = struct{}{}
		}
		r.used[common.HexToAddress(hexAddr)] = set
	}
	return nil
}
