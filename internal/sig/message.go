// message.go - Canonical message construction for mutating commands.
//
// Every mutating command is signed over a deterministic digest of: a fixed
// command tag, the command's semantic parameters in a fixed order, the
// caller-supplied nonce, the ledger's own address, and the chain identifier.
// Binding the ledger address and chain id prevents cross-contract and
// cross-network replay; binding the economic parameters prevents a signature
// from authorizing any command other than the exact one it was produced for.
//
// Field orders must match bit-for-bit between signer and verifier.

package sig

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Command tags. Literal strings, part of the signed payload.
const (
	TagCreateProperty = "Create property"
	TagStake          = "Stake in property"
	TagUnstake        = "Unstake from property"
	TagDecryptStake   = "Decrypt stake"
)

// u256 encodes an unsigned integer as a 32-byte big-endian word, matching
// tightly-packed uint256 encoding.
func u256(v uint64) []byte {
	return common.BigToHash(new(big.Int).SetUint64(v)).Bytes()
}

// u256Big encodes a non-negative big integer as a 32-byte big-endian word.
func u256Big(v *big.Int) []byte {
	return common.BigToHash(v).Bytes()
}

// CreatePropertyDigest builds the digest a caller signs to authorize
// property creation.
func CreatePropertyDigest(name string, targetAmount, roi, nonce uint64, contract common.Address, chainID *big.Int) common.Hash {
	return crypto.Keccak256Hash(
		[]byte(TagCreateProperty),
		[]byte(name),
		u256(targetAmount),
		u256(roi),
		u256(nonce),
		contract.Bytes(),
		u256Big(chainID),
	)
}

// StakeDigest builds the digest a caller signs to authorize a stake of
// value into a property.
func StakeDigest(propertyID, value, nonce uint64, contract common.Address, chainID *big.Int) common.Hash {
	return crypto.Keccak256Hash(
		[]byte(TagStake),
		u256(propertyID),
		u256(value),
		u256(nonce),
		contract.Bytes(),
		u256Big(chainID),
	)
}

// UnstakeDigest builds the digest a caller signs to authorize a reduction of
// their confidential stake in a property.
func UnstakeDigest(propertyID, nonce uint64, contract common.Address, chainID *big.Int) common.Hash {
	return crypto.Keccak256Hash(
		[]byte(TagUnstake),
		u256(propertyID),
		u256(nonce),
		contract.Bytes(),
		u256Big(chainID),
	)
}

// DecryptStakeDigest builds the digest a holder signs to authorize a
// third-party read of their encrypted stake handle.
func DecryptStakeDigest(propertyID, nonce uint64, contract common.Address, chainID *big.Int) common.Hash {
	return crypto.Keccak256Hash(
		[]byte(TagDecryptStake),
		u256(propertyID),
		u256(nonce),
		contract.Bytes(),
		u256Big(chainID),
	)
}
