// deposit.go - External ciphertext import with a Groth16 validity proof.
//
// A caller encrypts a stake amount off-ledger under the ledger's encryption
// key and submits the ciphertext together with a proof that it is a
// well-formed encryption of a 64-bit value, bound to the (holder, ledger)
// pair. The ledger verifies the proof before folding the ciphertext into the
// holder's confidential accumulator; it never learns the amount.

package deposit

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/consensys/gnark/std/algebra/native/sw_bls12377"
	"github.com/ethereum/go-ethereum/common"

	"github.com/DickTrevelyan/shield-stake-estate/internal/confidential"
)

// ErrInvalidCiphertext is returned when a submitted ciphertext fails its
// validity proof against the expected holder/ledger binding.
var ErrInvalidCiphertext = errors.New("invalid ciphertext")

// Deposit is a caller-supplied encrypted amount plus its validity proof.
type Deposit struct {
	C1       bls12377.G1Affine
	C2       bls12377.G1Affine
	Holder   common.Address
	Contract common.Address
	Proof    []byte // Groth16 proof (opaque)
}

// Ciphertext returns the accumulator-compatible value carried by the deposit.
func (d *Deposit) Ciphertext() confidential.Ciphertext {
	return confidential.Ciphertext{C1: d.C1, C2: d.C2}
}

// Compile compiles the deposit circuit. The circuit operates over BW6-761 so
// BLS12-377 point arithmetic is native in-circuit.
func Compile() (constraint.ConstraintSystem, error) {
	var circuit CircuitDeposit
	return frontend.Compile(ecc.BW6_761.ScalarField(), r1cs.NewBuilder, &circuit)
}

// toGnarkPoint converts a native BLS12-377 point to its in-circuit form.
func toGnarkPoint(p *bls12377.G1Affine) sw_bls12377.G1Affine {
	xBytes := p.X.Bytes()
	yBytes := p.Y.Bytes()
	return sw_bls12377.G1Affine{
		X: new(big.Int).SetBytes(xBytes[:]).String(),
		Y: new(big.Int).SetBytes(yBytes[:]).String(),
	}
}

// addressScalar embeds a 20-byte identity into the proof statement field.
func addressScalar(addr common.Address) *big.Int {
	return new(big.Int).SetBytes(addr.Bytes())
}

// New encrypts value under encPk and proves well-formedness, binding the
// proof to the (holder, contract) pair. This is the caller-side half of the
// import: the ledger only ever sees the resulting Deposit.
func New(value uint64, encPk *bls12377.G1Affine, holder, contract common.Address, pk groth16.ProvingKey, ccs constraint.ConstraintSystem) (*Deposit, error) {
	r, err := confidential.RandomScalar()
	if err != nil {
		return nil, err
	}
	ct := confidential.Encrypt(encPk, value, r)
	gen := confidential.Generator()

	assignment := &CircuitDeposit{
		C1:       toGnarkPoint(&ct.C1),
		C2:       toGnarkPoint(&ct.C2),
		EncPk:    toGnarkPoint(encPk),
		G:        toGnarkPoint(&gen),
		Holder:   addressScalar(holder),
		Contract: addressScalar(contract),
		Value:    new(big.Int).SetUint64(value),
		R:        r.BigInt(new(big.Int)),
	}
	witness, err := frontend.NewWitness(assignment, ecc.BW6_761.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("deposit witness: %w", err)
	}
	proof, err := groth16.Prove(ccs, pk, witness)
	if err != nil {
		return nil, fmt.Errorf("deposit proof: %w", err)
	}
	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, err
	}
	return &Deposit{
		C1:       ct.C1,
		C2:       ct.C2,
		Holder:   holder,
		Contract: contract,
		Proof:    buf.Bytes(),
	}, nil
}

// Verify checks the validity proof against the expected encryption key and
// the binding carried by the deposit itself. The public witness is rebuilt
// from the submitted ciphertext, so a proof produced for a different
// ciphertext, holder, ledger or key fails here.
func Verify(dep *Deposit, encPk *bls12377.G1Affine, vk groth16.VerifyingKey) error {
	gen := confidential.Generator()
	public := &CircuitDeposit{
		C1:       toGnarkPoint(&dep.C1),
		C2:       toGnarkPoint(&dep.C2),
		EncPk:    toGnarkPoint(encPk),
		G:        toGnarkPoint(&gen),
		Holder:   addressScalar(dep.Holder),
		Contract: addressScalar(dep.Contract),
	}
	w, err := frontend.NewWitness(public, ecc.BW6_761.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return fmt.Errorf("%w: cannot build public witness", ErrInvalidCiphertext)
	}
	proof := groth16.NewProof(ecc.BW6_761)
	if _, err := proof.ReadFrom(bytes.NewReader(dep.Proof)); err != nil {
		return fmt.Errorf("%w: cannot unmarshal proof", ErrInvalidCiphertext)
	}
	if err := groth16.Verify(proof, vk, w); err != nil {
		return fmt.Errorf("%w: proof verification failed", ErrInvalidCiphertext)
	}
	return nil
}

type depositJSON struct {
	C1       string         `json:"c1"`
	C2       string         `json:"c2"`
	Holder   common.Address `json:"holder"`
	Contract common.Address `json:"contract"`
	Proof    string         `json:"proof"`
}

// MarshalJSON encodes the deposit for transport, points compressed.
func (d *Deposit) MarshalJSON() ([]byte, error) {
	c1 := d.C1.Bytes()
	c2 := d.C2.Bytes()
	return json.Marshal(depositJSON{
		C1:       hex.EncodeToString(c1[:]),
		C2:       hex.EncodeToString(c2[:]),
		Holder:   d.Holder,
		Contract: d.Contract,
		Proof:    hex.EncodeToString(d.Proof),
	})
}

// UnmarshalJSON decodes and validates the transported deposit.
func (d *Deposit) UnmarshalJSON(data []byte) error {
	var enc depositJSON
	if err := json.Unmarshal(data, &enc); err != nil {
		return err
	}
	c1, err := hex.DecodeString(enc.C1)
	if err != nil {
		return fmt.Errorf("%w: bad c1 encoding", ErrInvalidCiphertext)
	}
	c2, err := hex.DecodeString(enc.C2)
	if err != nil {
		return fmt.Errorf("%w: bad c2 encoding", ErrInvalidCiphertext)
	}
	if _, err := d.C1.SetBytes(c1); err != nil {
		return fmt.Errorf("%w: c1 is not a valid point", ErrInvalidCiphertext)
	}
	if _, err := d.C2.SetBytes(c2); err != nil {
		return fmt.Errorf("%w: c2 is not a valid point", ErrInvalidCiphertext)
	}
	proof, err := hex.DecodeString(enc.Proof)
	if err != nil {
		return fmt.Errorf("%w: bad proof encoding", ErrInvalidCiphertext)
	}
	d.Holder = enc.Holder
	d.Contract = enc.Contract
	d.Proof = proof
	return nil
}
