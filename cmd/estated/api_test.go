package main

import (
	"math/big"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/DickTrevelyan/shield-stake-estate/api"
	"github.com/DickTrevelyan/shield-stake-estate/client"
	"github.com/DickTrevelyan/shield-stake-estate/internal/confidential"
	"github.com/DickTrevelyan/shield-stake-estate/internal/estate"
)

// newTestServer spins up the REST API over a fresh contract. The deposit
// verifying key is left nil: these tests only exercise endpoints that never
// touch proof verification.
func newTestServer(t *testing.T) (*httptest.Server, *estate.Contract, *confidential.KeyPair) {
	t.Helper()
	keys, err := confidential.GenerateKeyPair()
	if err != nil {
		t.Fatalf("keypair generation failed: %v", err)
	}
	contract, err := estate.New(estate.Config{
		Address: common.HexToAddress("0x00000000000000000000000000000000e57a7ed1"),
		ChainID: big.NewInt(1337),
		Keys:    keys,
	})
	if err != nil {
		t.Fatalf("contract creation failed: %v", err)
	}
	logger, err := NewLogger("error", "", "")
	if err != nil {
		t.Fatalf("logger creation failed: %v", err)
	}
	srv := &server{
		cfg:      DefaultConfig(),
		logger:   logger,
		metrics:  NewMetricsCollector(),
		limiter:  NewRateLimiter(1000, 1000, time.Second),
		health:   NewHealthChecker(version),
		contract: contract,
	}
	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)
	return ts, contract, keys
}

func TestAPIEndToEnd(t *testing.T) {
	ts, contract, keys := newTestServer(t)
	cl := client.New(ts.URL)
	owner, _ := client.NewWallet()

	t.Run("Info", func(t *testing.T) {
		info, err := cl.Info()
		if err != nil {
			t.Fatalf("info failed: %v", err)
		}
		if info.Address != contract.Address() {
			t.Errorf("address %s, want %s", info.Address.Hex(), contract.Address().Hex())
		}
		if info.ChainID.Cmp(contract.ChainID()) != 0 {
			t.Errorf("chain id %s, want %s", info.ChainID, contract.ChainID())
		}
		pk, err := cl.EncryptionKey()
		if err != nil {
			t.Fatalf("encryption key decode failed: %v", err)
		}
		contractPk := contract.EncryptionKey()
		if !pk.Equal(&contractPk) {
			t.Error("encryption key mismatch")
		}
	})

	var propertyID uint64
	t.Run("Create Property", func(t *testing.T) {
		n := owner.FreshNonce()
		signature, err := owner.SignCreateProperty("Harbor Lofts", 500000, 12, n, contract.Address(), contract.ChainID())
		if err != nil {
			t.Fatalf("sign failed: %v", err)
		}
		propertyID, err = cl.CreateProperty(api.CreatePropertyRequest{
			From:         owner.Address(),
			Name:         "Harbor Lofts",
			Location:     "Rotterdam",
			ImageURL:     "ipfs://QmHarborLofts",
			TargetAmount: 500000,
			ROI:          12,
			Nonce:        n,
			Signature:    signature,
		})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		p, err := cl.Property(propertyID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if p.Name != "Harbor Lofts" || !p.Active {
			t.Errorf("unexpected record: %+v", p)
		}
	})

	t.Run("Forged Create Rejected", func(t *testing.T) {
		mallory, _ := client.NewWallet()
		n := mallory.FreshNonce()
		signature, err := mallory.SignCreateProperty("Fake", 1000, 10, n, contract.Address(), contract.ChainID())
		if err != nil {
			t.Fatalf("sign failed: %v", err)
		}
		_, err = cl.CreateProperty(api.CreatePropertyRequest{
			From:         owner.Address(), // claims the owner, signed by mallory
			Name:         "Fake",
			Location:     "Nowhere",
			ImageURL:     "ipfs://QmFake",
			TargetAmount: 1000,
			ROI:          10,
			Nonce:        n,
			Signature:    signature,
		})
		if err == nil {
			t.Error("forged create accepted")
		}
	})

	t.Run("Queries", func(t *testing.T) {
		count, err := cl.PropertyCount()
		if err != nil {
			t.Fatalf("count failed: %v", err)
		}
		if count != 1 {
			t.Errorf("count %d, want 1", count)
		}
		active, err := cl.ActiveProperties()
		if err != nil {
			t.Fatalf("active failed: %v", err)
		}
		if len(active) != 1 || active[0] != propertyID {
			t.Errorf("active = %v, want [%d]", active, propertyID)
		}
		flags, err := cl.BatchCheckActive([]uint64{propertyID, 99})
		if err != nil {
			t.Fatalf("batch failed: %v", err)
		}
		if !flags[0] || flags[1] {
			t.Errorf("batch = %v, want [true false]", flags)
		}
		if _, err := cl.Property(99); err == nil {
			t.Error("unknown property id did not error")
		}
	})

	t.Run("Stake Handle Round Trip", func(t *testing.T) {
		// No stake yet: the handle is the encryption of zero and must
		// survive the wire encoding.
		ct, err := cl.UserStake(propertyID, owner.Address())
		if err != nil {
			t.Fatalf("stake read failed: %v", err)
		}
		m := confidential.Decrypt(&keys.Sk, ct)
		v, err := confidential.RecoverValue(&m, 10)
		if err != nil {
			t.Fatalf("recovery failed: %v", err)
		}
		if v != 0 {
			t.Errorf("empty handle decrypted to %d", v)
		}
	})

	t.Run("Authorized Read Consumes Nonce", func(t *testing.T) {
		n := owner.FreshNonce()
		signature, err := owner.SignDecryptStake(propertyID, n, contract.Address(), contract.ChainID())
		if err != nil {
			t.Fatalf("sign failed: %v", err)
		}
		if _, err := cl.UserStakeWithSignature(propertyID, n, signature); err != nil {
			t.Fatalf("authorized read failed: %v", err)
		}
		if _, err := cl.UserStakeWithSignature(propertyID, n, signature); err == nil {
			t.Error("replayed authorized read accepted")
		}
	})

	t.Run("Close Property", func(t *testing.T) {
		if err := cl.CloseProperty(propertyID, owner.Address()); err != nil {
			t.Fatalf("close failed: %v", err)
		}
		active, err := cl.ActiveProperties()
		if err != nil {
			t.Fatalf("active failed: %v", err)
		}
		if len(active) != 0 {
			t.Errorf("active = %v after close, want empty", active)
		}
	})
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}

	broken := []func(*Config){
		func(c *Config) { c.ListenPort = 0 },
		func(c *Config) { c.ChainID = 0 },
		func(c *Config) { c.ContractAddress = "" },
		func(c *Config) { c.StatePath = "" },
		func(c *Config) { c.RateLimitBurst = 0 },
		func(c *Config) { c.SaveIntervalSeconds = 0 },
	}
	for i, mutate := range broken {
		c := DefaultConfig()
		mutate(c)
		if err := c.Validate(); err == nil {
			t.Errorf("case %d: broken config validated", i)
		}
	}
}
