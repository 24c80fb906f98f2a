package nonce

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestNonceRegistry(t *testing.T) {
	alice := common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob := common.HexToAddress("0x2222222222222222222222222222222222222222")

	t.Run("Fresh Nonce Consumes Once", func(t *testing.T) {
		r := NewRegistry()
		if r.Used(alice, 42) {
			t.Error("fresh nonce reported as used")
		}
		if err := r.Consume(alice, 42); err != nil {
			t.Fatalf("first consume failed: %v", err)
		}
		if !r.Used(alice, 42) {
			t.Error("consumed nonce not reported as used")
		}
		err := r.Consume(alice, 42)
		if !errors.Is(err, ErrAlreadyUsed) {
			t.Errorf("second consume: got %v, want ErrAlreadyUsed", err)
		}
	})

	t.Run("Nonces Are Identity Scoped", func(t *testing.T) {
		r := NewRegistry()
		if err := r.Consume(alice, 7); err != nil {
			t.Fatalf("alice consume failed: %v", err)
		}
		// Same literal value, different identity: independent.
		if r.Used(bob, 7) {
			t.Error("bob's fresh nonce reported as used")
		}
		if err := r.Consume(bob, 7); err != nil {
			t.Errorf("bob consume of same literal failed: %v", err)
		}
	})

	t.Run("Consumed Nonces Never Expire", func(t *testing.T) {
		r := NewRegistry()
		for n := uint64(0); n < 100; n++ {
			if err := r.Consume(alice, n); err != nil {
				t.Fatalf("consume %d failed: %v", n, err)
			}
		}
		for n := uint64(0); n < 100; n++ {
			if !r.Used(alice, n) {
				t.Errorf("nonce %d forgotten", n)
			}
		}
	})

	t.Run("JSON Round Trip", func(t *testing.T) {
		r := NewRegistry()
		for _, n := range []uint64{5, 3, 99} {
			if err := r.Consume(alice, n); err != nil {
				t.Fatalf("consume failed: %v", err)
			}
		}
		if err := r.Consume(bob, 3); err != nil {
			t.Fatalf("consume failed: %v", err)
		}

		data, err := json.Marshal(r)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		restored := NewRegistry()
		if err := json.Unmarshal(data, restored); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		for _, n := range []uint64{5, 3, 99} {
			if !restored.Used(alice, n) {
				t.Errorf("restored registry lost alice nonce %d", n)
			}
		}
		if !restored.Used(bob, 3) {
			t.Error("restored registry lost bob nonce 3")
		}
		if restored.Used(bob, 5) {
			t.Error("restored registry invented bob nonce 5")
		}
	})

	t.Run("Rejects Malformed Identity", func(t *testing.T) {
		r := NewRegistry()
		if err := json.Unmarshal([]byte(`{"not-an-address":[1]}`), r); err == nil {
			t.Error("unmarshal accepted a malformed identity")
		}
	})
}
