// wallet.go - Caller-side key holding and command signing.
//
// A Wallet owns a secp256k1 key and produces the recoverable signatures the
// ledger validates. It is the "message-signing capability" of the protocol
// boundary; the ledger never sees the private key.

package client

import (
	"crypto/ecdsa"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/DickTrevelyan/shield-stake-estate/internal/sig"
)

// Wallet holds a participant's signing key.
type Wallet struct {
	priv *ecdsa.PrivateKey
}

// NewWallet generates a fresh signing key.
func NewWallet() (*Wallet, error) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return &Wallet{priv: priv}, nil
}

// LoadWallet reads a hex-encoded private key file.
func LoadWallet(path string) (*Wallet, error) {
	priv, err := crypto.LoadECDSA(path)
	if err != nil {
		return nil, err
	}
	return &Wallet{priv: priv}, nil
}

// Save writes the private key to a hex-encoded file.
func (w *Wallet) Save(path string) error {
	return crypto.SaveECDSA(path, w.priv)
}

// Address returns the wallet's public identity.
func (w *Wallet) Address() common.Address {
	return crypto.PubkeyToAddress(w.priv.PublicKey)
}

// FreshNonce returns a wall-clock-derived nonce. Nonces only need to be
// unique per identity; two calls within the same nanosecond would collide,
// a residual risk the protocol accepts.
func (w *Wallet) FreshNonce() uint64 {
	return uint64(time.Now().UnixNano())
}

// SignCreateProperty signs the canonical create-property digest.
func (w *Wallet) SignCreateProperty(name string, targetAmount, roi, nonce uint64, contract common.Address, chainID *big.Int) ([]byte, error) {
	return sig.Sign(w.priv, sig.CreatePropertyDigest(name, targetAmount, roi, nonce, contract, chainID))
}

// SignStake signs the canonical stake digest.
func (w *Wallet) SignStake(propertyID, value, nonce uint64, contract common.Address, chainID *big.Int) ([]byte, error) {
	return sig.Sign(w.priv, sig.StakeDigest(propertyID, value, nonce, contract, chainID))
}

// SignUnstake signs the canonical unstake digest.
func (w *Wallet) SignUnstake(propertyID, nonce uint64, contract common.Address, chainID *big.Int) ([]byte, error) {
	return sig.Sign(w.priv, sig.UnstakeDigest(propertyID, nonce, contract, chainID))
}

// SignDecryptStake signs the canonical authorized-read digest.
func (w *Wallet) SignDecryptStake(propertyID, nonce uint64, contract common.Address, chainID *big.Int) ([]byte, error) {
	return sig.Sign(w.priv, sig.DecryptStakeDigest(propertyID, nonce, contract, chainID))
}
