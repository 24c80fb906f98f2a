package deposit

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/ethereum/go-ethereum/common"

	"github.com/DickTrevelyan/shield-stake-estate/internal/confidential"
)

var (
	setupOnce sync.Once
	setupCCS  constraint.ConstraintSystem
	setupPK   groth16.ProvingKey
	setupVK   groth16.VerifyingKey
	setupErr  error
)

// proofSetup compiles the circuit and runs the Groth16 setup once for the
// whole package; compilation over BW6-761 is too slow to repeat per test.
func proofSetup(t *testing.T) (constraint.ConstraintSystem, groth16.ProvingKey, groth16.VerifyingKey) {
	t.Helper()
	setupOnce.Do(func() {
		setupCCS, setupErr = Compile()
		if setupErr != nil {
			return
		}
		setupPK, setupVK, setupErr = groth16.Setup(setupCCS)
	})
	if setupErr != nil {
		t.Fatalf("proof setup failed: %v", setupErr)
	}
	return setupCCS, setupPK, setupVK
}

var (
	holder   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	contract = common.HexToAddress("0x00000000000000000000000000000000e57a7ed1")
)

func TestDepositProveVerify(t *testing.T) {
	ccs, pk, vk := proofSetup(t)
	keys, err := confidential.GenerateKeyPair()
	if err != nil {
		t.Fatalf("keypair generation failed: %v", err)
	}

	t.Run("Valid Deposit Verifies", func(t *testing.T) {
		dep, err := New(1200, &keys.Pk, holder, contract, pk, ccs)
		if err != nil {
			t.Fatalf("deposit creation failed: %v", err)
		}
		if err := Verify(dep, &keys.Pk, vk); err != nil {
			t.Errorf("valid deposit rejected: %v", err)
		}
		// The carried ciphertext must decrypt to the deposited value.
		m := confidential.Decrypt(&keys.Sk, dep.Ciphertext())
		v, err := confidential.RecoverValue(&m, 5000)
		if err != nil {
			t.Fatalf("value recovery failed: %v", err)
		}
		if v != 1200 {
			t.Errorf("deposit carries %d, want 1200", v)
		}
	})

	t.Run("Tampered Ciphertext Rejected", func(t *testing.T) {
		dep, err := New(1200, &keys.Pk, holder, contract, pk, ccs)
		if err != nil {
			t.Fatalf("deposit creation failed: %v", err)
		}
		other, err := New(9999, &keys.Pk, holder, contract, pk, ccs)
		if err != nil {
			t.Fatalf("deposit creation failed: %v", err)
		}
		// Proof for one ciphertext, points from another.
		dep.C1 = other.C1
		dep.C2 = other.C2
		if err := Verify(dep, &keys.Pk, vk); !errors.Is(err, ErrInvalidCiphertext) {
			t.Errorf("tampered ciphertext: got %v, want ErrInvalidCiphertext", err)
		}
	})

	t.Run("Rebound Holder Rejected", func(t *testing.T) {
		dep, err := New(1200, &keys.Pk, holder, contract, pk, ccs)
		if err != nil {
			t.Fatalf("deposit creation failed: %v", err)
		}
		dep.Holder = common.HexToAddress("0x2222222222222222222222222222222222222222")
		if err := Verify(dep, &keys.Pk, vk); !errors.Is(err, ErrInvalidCiphertext) {
			t.Errorf("rebound holder: got %v, want ErrInvalidCiphertext", err)
		}
	})

	t.Run("Rebound Contract Rejected", func(t *testing.T) {
		dep, err := New(1200, &keys.Pk, holder, contract, pk, ccs)
		if err != nil {
			t.Fatalf("deposit creation failed: %v", err)
		}
		dep.Contract = common.HexToAddress("0x00000000000000000000000000000000deadbeef")
		if err := Verify(dep, &keys.Pk, vk); !errors.Is(err, ErrInvalidCiphertext) {
			t.Errorf("rebound contract: got %v, want ErrInvalidCiphertext", err)
		}
	})

	t.Run("Wrong Encryption Key Rejected", func(t *testing.T) {
		otherKeys, err := confidential.GenerateKeyPair()
		if err != nil {
			t.Fatalf("keypair generation failed: %v", err)
		}
		dep, err := New(1200, &otherKeys.Pk, holder, contract, pk, ccs)
		if err != nil {
			t.Fatalf("deposit creation failed: %v", err)
		}
		if err := Verify(dep, &keys.Pk, vk); !errors.Is(err, ErrInvalidCiphertext) {
			t.Errorf("wrong key: got %v, want ErrInvalidCiphertext", err)
		}
	})

	t.Run("Garbage Proof Rejected", func(t *testing.T) {
		dep, err := New(1200, &keys.Pk, holder, contract, pk, ccs)
		if err != nil {
			t.Fatalf("deposit creation failed: %v", err)
		}
		dep.Proof = []byte{0x01, 0x02, 0x03}
		if err := Verify(dep, &keys.Pk, vk); !errors.Is(err, ErrInvalidCiphertext) {
			t.Errorf("garbage proof: got %v, want ErrInvalidCiphertext", err)
		}
	})

	t.Run("JSON Round Trip Preserves Verifiability", func(t *testing.T) {
		dep, err := New(321, &keys.Pk, holder, contract, pk, ccs)
		if err != nil {
			t.Fatalf("deposit creation failed: %v", err)
		}
		data, err := json.Marshal(dep)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		var restored Deposit
		if err := json.Unmarshal(data, &restored); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		if err := Verify(&restored, &keys.Pk, vk); err != nil {
			t.Errorf("round-tripped deposit rejected: %v", err)
		}
	})
}

func TestKeyPersistence(t *testing.T) {
	ccs, pk, vk := proofSetup(t)
	dir := t.TempDir()
	pkPath := filepath.Join(dir, "deposit_pk.bin")
	vkPath := filepath.Join(dir, "deposit_vk.bin")

	if err := SaveProvingKey(pkPath, pk); err != nil {
		t.Fatalf("proving key save failed: %v", err)
	}
	if err := SaveVerifyingKey(vkPath, vk); err != nil {
		t.Fatalf("verifying key save failed: %v", err)
	}

	loadedPK, loadedVK, err := SetupOrLoadKeys(ccs, pkPath, vkPath)
	if err != nil {
		t.Fatalf("key load failed: %v", err)
	}

	keys, err := confidential.GenerateKeyPair()
	if err != nil {
		t.Fatalf("keypair generation failed: %v", err)
	}
	dep, err := New(50, &keys.Pk, holder, contract, loadedPK, ccs)
	if err != nil {
		t.Fatalf("deposit with loaded proving key failed: %v", err)
	}
	if err := Verify(dep, &keys.Pk, loadedVK); err != nil {
		t.Errorf("proof against loaded verifying key rejected: %v", err)
	}
}
