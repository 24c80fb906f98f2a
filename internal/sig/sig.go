// sig.go - Recoverable secp256k1 signatures over prefixed command digests.
//
// The verifier is pure: it recovers the signer identity from a digest and a
// 65-byte r||s||v signature. Enforcing that the recovered identity matches an
// expected caller is the command processor's job, not the verifier's.

package sig

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrMalformedSignature is returned when a signature cannot be decoded or
// does not recover to any public key.
var ErrMalformedSignature = errors.New("malformed signature")

// SignatureLength is the expected encoded signature size (r||s||v).
const SignatureLength = 65

// personalPrefix is the canonical message-prefixing convention applied to
// every command digest before signing. It domain-separates ledger commands
// from raw transaction signatures so a signature can never be reused across
// protocols.
const personalPrefix = "\x19Ethereum Signed Message:\n32"

// prefixedDigest applies the personal-message prefix to a command digest and
// rehashes. Signing and recovery both operate on this final digest.
func prefixedDigest(msgHash common.Hash) common.Hash {
	return crypto.Keccak256Hash([]byte(personalPrefix), msgHash.Bytes())
}

// Sign produces a recoverable signature over the prefixed command digest.
// This is the caller-side capability; the ledger itself never signs.
func Sign(priv *ecdsa.PrivateKey, msgHash common.Hash) ([]byte, error) {
	return crypto.Sign(prefixedDigest(msgHash).Bytes(), priv)
}

// RecoverSigner recovers the signer identity from a command digest and a
// signature. Both recovery-id conventions (0/1 and 27/28) are accepted.
func RecoverSigner(msgHash common.Hash, signature []byte) (common.Address, error) {
	if len(signature) != SignatureLength {
		return common.Address{}, fmt.Errorf("%w: length %d, want %d", ErrMalformedSignature, len(signature), SignatureLength)
	}
	sig := make([]byte, SignatureLength)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	pub, err := crypto.SigToPub(prefixedDigest(msgHash).Bytes(), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
