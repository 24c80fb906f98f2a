package sig

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

func TestSignAndRecover(t *testing.T) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("key generation failed: %v", err)
	}
	signer := crypto.PubkeyToAddress(priv.PublicKey)
	contract := common.HexToAddress("0x00000000000000000000000000000000e57a7ed1")
	chainID := big.NewInt(1337)

	t.Run("Recovers Signer", func(t *testing.T) {
		digest := StakeDigest(3, 1000, 77, contract, chainID)
		signature, err := Sign(priv, digest)
		if err != nil {
			t.Fatalf("sign failed: %v", err)
		}
		recovered, err := RecoverSigner(digest, signature)
		if err != nil {
			t.Fatalf("recover failed: %v", err)
		}
		if recovered != signer {
			t.Errorf("recovered %s, want %s", recovered.Hex(), signer.Hex())
		}
	})

	t.Run("Accepts Legacy Recovery Id", func(t *testing.T) {
		digest := StakeDigest(3, 1000, 78, contract, chainID)
		signature, err := Sign(priv, digest)
		if err != nil {
			t.Fatalf("sign failed: %v", err)
		}
		legacy := make([]byte, len(signature))
		copy(legacy, signature)
		legacy[64] += 27
		recovered, err := RecoverSigner(digest, legacy)
		if err != nil {
			t.Fatalf("recover with v=27/28 failed: %v", err)
		}
		if recovered != signer {
			t.Errorf("recovered %s, want %s", recovered.Hex(), signer.Hex())
		}
	})

	t.Run("Rejects Wrong Length", func(t *testing.T) {
		digest := StakeDigest(3, 1000, 79, contract, chainID)
		_, err := RecoverSigner(digest, make([]byte, 64))
		if !errors.Is(err, ErrMalformedSignature) {
			t.Errorf("got %v, want ErrMalformedSignature", err)
		}
	})

	t.Run("Different Digest Recovers Different Signer", func(t *testing.T) {
		digest := StakeDigest(3, 1000, 80, contract, chainID)
		signature, err := Sign(priv, digest)
		if err != nil {
			t.Fatalf("sign failed: %v", err)
		}
		// A valid signature over another digest must not recover the
		// original signer: that is the entire replay defence.
		other := StakeDigest(3, 2000, 80, contract, chainID)
		recovered, err := RecoverSigner(other, signature)
		if err == nil && recovered == signer {
			t.Error("signature over one digest authorized another")
		}
	})
}

func TestDigestBinding(t *testing.T) {
	contract := common.HexToAddress("0x00000000000000000000000000000000e57a7ed1")
	otherContract := common.HexToAddress("0x00000000000000000000000000000000deadbeef")
	chainID := big.NewInt(1337)
	otherChain := big.NewInt(1)

	base := StakeDigest(1, 500, 9, contract, chainID)

	variants := map[string]common.Hash{
		"property id": StakeDigest(2, 500, 9, contract, chainID),
		"value":       StakeDigest(1, 501, 9, contract, chainID),
		"nonce":       StakeDigest(1, 500, 10, contract, chainID),
		"contract":    StakeDigest(1, 500, 9, otherContract, chainID),
		"chain id":    StakeDigest(1, 500, 9, contract, otherChain),
	}
	for field, digest := range variants {
		if digest == base {
			t.Errorf("changing %s did not change the stake digest", field)
		}
	}

	t.Run("Commands Are Domain Separated", func(t *testing.T) {
		// Same parameters, different command: digests must differ.
		unstake := UnstakeDigest(1, 9, contract, chainID)
		read := DecryptStakeDigest(1, 9, contract, chainID)
		if unstake == read {
			t.Error("unstake and authorized-read digests collide")
		}
	})

	t.Run("Create Digest Binds Economic Fields", func(t *testing.T) {
		base := CreatePropertyDigest("Harbor Lofts", 500000, 12, 1, contract, chainID)
		if CreatePropertyDigest("Harbor Lofts", 500000, 13, 1, contract, chainID) == base {
			t.Error("roi not bound")
		}
		if CreatePropertyDigest("Harbor Lofts", 400000, 12, 1, contract, chainID) == base {
			t.Error("target amount not bound")
		}
		if CreatePropertyDigest("Harbor Flats", 500000, 12, 1, contract, chainID) == base {
			t.Error("name not bound")
		}
	})

	t.Run("Deterministic", func(t *testing.T) {
		again := StakeDigest(1, 500, 9, contract, chainID)
		if again != base {
			t.Error("stake digest is not deterministic")
		}
	})
}
