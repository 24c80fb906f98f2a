package deposit

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/native/sw_bls12377"
)

// CircuitDeposit proves that an externally produced ciphertext is a
// well-formed EC-ElGamal encryption of a 64-bit value under the ledger's
// encryption key:
//
//	C1 = r·G
//	C2 = v·G + r·P
//
// Holder and Contract carry no constraints; they are part of the public
// statement so a proof is pinned to one (holder, ledger) binding and cannot
// be replayed for another.
type CircuitDeposit struct {
	// ====== PUBLIC VARIABLES ======
	C1       sw_bls12377.G1Affine `gnark:",public"`
	C2       sw_bls12377.G1Affine `gnark:",public"`
	EncPk    sw_bls12377.G1Affine `gnark:",public"`
	G        sw_bls12377.G1Affine `gnark:",public"`
	Holder   frontend.Variable    `gnark:",public"`
	Contract frontend.Variable    `gnark:",public"`

	// ====== PRIVATE VARIABLES ======
	Value frontend.Variable
	R     frontend.Variable
}

// Define implements the well-formedness constraints.
func (c *CircuitDeposit) Define(api frontend.API) error {
	// 1) Value fits the 64-bit accumulator domain.
	api.ToBinary(c.Value, 64)

	// 2) C1 = r·G
	c1 := new(sw_bls12377.G1Affine)
	c1.ScalarMul(api, c.G, c.R)
	api.AssertIsEqual(c.C1.X, c1.X)
	api.AssertIsEqual(c.C1.Y, c1.Y)

	// 3) C2 = v·G + r·P
	vG := new(sw_bls12377.G1Affine)
	vG.ScalarMul(api, c.G, c.Value)
	rPk := new(sw_bls12377.G1Affine)
	rPk.ScalarMul(api, c.EncPk, c.R)
	vG.AddAssign(api, *rPk)
	api.AssertIsEqual(c.C2.X, vG.X)
	api.AssertIsEqual(c.C2.Y, vG.Y)

	return nil
}
