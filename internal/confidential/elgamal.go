// elgamal.go - Additively homomorphic EC-ElGamal over BLS12-377 G1.
//
// A ciphertext is the pair (C1, C2) = (r·G, v·G + r·P) for value v,
// randomness r and encryption key P. Adding two ciphertexts pointwise adds
// the underlying values; subtracting subtracts them. The ledger combines
// ciphertexts without ever holding plaintext: decryption recovers v·G, and
// the value itself is only recoverable by whoever holds the secret key, via
// a bounded discrete-log search over the 64-bit accumulator domain.

package confidential

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
)

// ErrValueOutOfRange is returned when a decrypted point does not correspond
// to any value within the searched range.
var ErrValueOutOfRange = errors.New("decrypted value outside searched range")

// g1Gen is the fixed G1 generator all ciphertexts are built over.
var g1Gen bls12377.G1Affine

func init() {
	g1Jac, _, _, _ := bls12377.Generators()
	g1Gen.FromJacobian(&g1Jac)
}

// Generator returns the fixed G1 generator.
func Generator() bls12377.G1Affine {
	return g1Gen
}

// KeyPair is an ElGamal keypair. The ledger holds one; its public half is
// the encryption key callers encrypt stakes under.
type KeyPair struct {
	Sk fr.Element        // Private scalar
	Pk bls12377.G1Affine // Public key (G1 point)
}

// GenerateKeyPair generates a fresh ElGamal keypair.
func GenerateKeyPair() (*KeyPair, error) {
	var sk fr.Element
	if _, err := sk.SetRandom(); err != nil {
		return nil, err
	}
	var pk bls12377.G1Affine
	pk.ScalarMultiplication(&g1Gen, sk.BigInt(new(big.Int)))
	return &KeyPair{Sk: sk, Pk: pk}, nil
}

// RandomScalar draws encryption randomness from the scalar field.
func RandomScalar() (*fr.Element, error) {
	var r fr.Element
	if _, err := r.SetRandom(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Ciphertext is an opaque encrypted accumulator value. The zero value is the
// encryption of zero (both points at infinity), which is the initial balance
// of every unseen (property, holder) pair.
type Ciphertext struct {
	C1 bls12377.G1Affine
	C2 bls12377.G1Affine
}

// Zero returns the encryption of zero.
func Zero() Ciphertext {
	return Ciphertext{}
}

// Encrypt encrypts a 64-bit value under pk with randomness r.
func Encrypt(pk *bls12377.G1Affine, value uint64, r *fr.Element) Ciphertext {
	rBig := r.BigInt(new(big.Int))
	var ct Ciphertext
	ct.C1.ScalarMultiplication(&g1Gen, rBig)
	var vG, rPk bls12377.G1Affine
	vG.ScalarMultiplication(&g1Gen, new(big.Int).SetUint64(value))
	rPk.ScalarMultiplication(pk, rBig)
	ct.C2.Add(&vG, &rPk)
	return ct
}

// Add homomorphically adds the values of two ciphertexts.
func (c Ciphertext) Add(other Ciphertext) Ciphertext {
	var out Ciphertext
	out.C1.Add(&c.C1, &other.C1)
	out.C2.Add(&c.C2, &other.C2)
	return out
}

// Sub homomorphically subtracts other's value from c's. No underflow check
// is possible at this layer: the ledger cannot compare encrypted magnitudes.
func (c Ciphertext) Sub(other Ciphertext) Ciphertext {
	var out Ciphertext
	out.C1.Sub(&c.C1, &other.C1)
	out.C2.Sub(&c.C2, &other.C2)
	return out
}

// Equal reports whether two ciphertexts are identical point pairs. Distinct
// encryptions of the same value are not equal.
func (c Ciphertext) Equal(other Ciphertext) bool {
	return c.C1.Equal(&other.C1) && c.C2.Equal(&other.C2)
}

// Decrypt strips the randomness, returning v·G. Only the secret key holder
// can do this; the ledger never calls it on behalf of anyone.
func Decrypt(sk *fr.Element, ct Ciphertext) bls12377.G1Affine {
	var mask, m bls12377.G1Affine
	mask.ScalarMultiplication(&ct.C1, sk.BigInt(new(big.Int)))
	m.Sub(&ct.C2, &mask)
	return m
}

// RecoverValue solves the discrete log of m = v·G by linear search up to
// max inclusive. Intended for tests and demos where values are small; a
// production decryption oracle would use a baby-step giant-step table.
func RecoverValue(m *bls12377.G1Affine, max uint64) (uint64, error) {
	var acc bls12377.G1Affine // starts at infinity, i.e. 0·G
	for v := uint64(0); ; v++ {
		if acc.Equal(m) {
			return v, nil
		}
		if v == max {
			return 0, fmt.Errorf("%w: max %d", ErrValueOutOfRange, max)
		}
		acc.Add(&acc, &g1Gen)
	}
}

type ciphertextJSON struct {
	C1 string `json:"c1"`
	C2 string `json:"c2"`
}

// MarshalJSON encodes both points in compressed hex form.
func (c Ciphertext) MarshalJSON() ([]byte, error) {
	c1 := c.C1.Bytes()
	c2 := c.C2.Bytes()
	return json.Marshal(ciphertextJSON{
		C1: hex.EncodeToString(c1[:]),
		C2: hex.EncodeToString(c2[:]),
	})
}

// UnmarshalJSON decodes and validates both points.
func (c *Ciphertext) UnmarshalJSON(data []byte) error {
	var enc ciphertextJSON
	if err := json.Unmarshal(data, &enc); err != nil {
		return err
	}
	c1, err := hex.DecodeString(enc.C1)
	if err != nil {
		return fmt.Errorf("invalid ciphertext c1: %w", err)
	}
	c2, err := hex.DecodeString(enc.C2)
	if err != nil {
		return fmt.Errorf("invalid ciphertext c2: %w", err)
	}
	if _, err := c.C1.SetBytes(c1); err != nil {
		return fmt.Errorf("invalid ciphertext c1: %w", err)
	}
	if _, err := c.C2.SetBytes(c2); err != nil {
		return fmt.Errorf("invalid ciphertext c2: %w", err)
	}
	return nil
}
