// keys.go - Keypair persistence for the ledger's encryption capability.

package confidential

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
)

type keyPairJSON struct {
	Sk string `json:"sk"`
	Pk string `json:"pk"`
}

// SaveKeyPair writes the keypair to a JSON file, secret scalar included, so
// the file must be protected like any other key material.
func SaveKeyPair(kp *KeyPair, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	skBytes := kp.Sk.Bytes()
	pkBytes := kp.Pk.Bytes()
	data, err := json.MarshalIndent(keyPairJSON{
		Sk: hex.EncodeToString(skBytes[:]),
		Pk: hex.EncodeToString(pkBytes[:]),
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// LoadKeyPair reads a keypair saved by SaveKeyPair and checks that the
// public half matches the secret scalar.
func LoadKeyPair(path string) (*KeyPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var enc keyPairJSON
	if err := json.Unmarshal(data, &enc); err != nil {
		return nil, err
	}
	skBytes, err := hex.DecodeString(enc.Sk)
	if err != nil {
		return nil, fmt.Errorf("invalid secret scalar: %w", err)
	}
	pkBytes, err := hex.DecodeString(enc.Pk)
	if err != nil {
		return nil, fmt.Errorf("invalid public key: %w", err)
	}
	var kp KeyPair
	kp.Sk.SetBytes(skBytes)
	if _, err := kp.Pk.SetBytes(pkBytes); err != nil {
		return nil, fmt.Errorf("invalid public key: %w", err)
	}
	var check bls12377.G1Affine
	check.ScalarMultiplication(&g1Gen, kp.Sk.BigInt(new(big.Int)))
	if !check.Equal(&kp.Pk) {
		return nil, fmt.Errorf("keypair file corrupt: public key does not match secret scalar")
	}
	return &kp, nil
}
