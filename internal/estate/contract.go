// contract.go - Command processor for the confidential property staking
// ledger.
//
// Every mutating command runs under one mutex, giving the strict sequential
// execution the protocol requires: a command either fully commits or leaves
// no trace. All fallible checks run before the first state mutation, so no
// rollback machinery is needed - by the time state changes, nothing can
// fail.
//
// Authorization: a command is accepted only when its signature recovers to
// the claimed caller over the canonical digest binding the exact command
// parameters, a fresh caller-scoped nonce, this contract's address and the
// chain id.

package estate

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/ethereum/go-ethereum/common"

	"github.com/DickTrevelyan/shield-stake-estate/internal/confidential"
	"github.com/DickTrevelyan/shield-stake-estate/internal/nonce"
	"github.com/DickTrevelyan/shield-stake-estate/internal/property"
	"github.com/DickTrevelyan/shield-stake-estate/internal/sig"
	"github.com/DickTrevelyan/shield-stake-estate/internal/transactions/deposit"
)

var (
	// ErrInvalidSignature is returned when a signature does not recover to
	// the expected caller.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrInvalidValue is returned when a stake carries no deposited value.
	ErrInvalidValue = errors.New("deposited value must be positive")
)

// SeedProperty is a property registered at ledger initialization.
type SeedProperty struct {
	Name         string         `json:"name"`
	Location     string         `json:"location"`
	ImageURL     string         `json:"image_url"`
	TargetAmount uint64         `json:"target_amount"`
	ROI          uint64         `json:"roi"`
	Owner        common.Address `json:"owner"`
}

// Config carries everything a fresh contract needs. Keys may be nil, in
// which case a fresh encryption keypair is generated.
type Config struct {
	Address   common.Address
	ChainID   *big.Int
	Keys      *confidential.KeyPair
	DepositVK groth16.VerifyingKey
	Seed      []SeedProperty
}

// Contract owns all shared mutable state: the property table, the nonce
// registry and the confidential balance ledger. Lifecycle is the entire
// system lifetime; nothing is ever torn down.
type Contract struct {
	mu sync.Mutex

	address common.Address
	chainID *big.Int
	keys    *confidential.KeyPair

	properties *property.Registry
	nonces     *nonce.Registry
	balances   *confidential.BalanceLedger

	depositVK groth16.VerifyingKey
	events    []Event
}

// New creates a contract with empty registries and registers any seed
// properties.
func New(cfg Config) (*Contract, error) {
	keys := cfg.Keys
	if keys == nil {
		var err error
		keys, err = confidential.GenerateKeyPair()
		if err != nil {
			return nil, err
		}
	}
	chainID := cfg.ChainID
	if chainID == nil {
		chainID = big.NewInt(1)
	}
	c := &Contract{
		address:    cfg.Address,
		chainID:    new(big.Int).Set(chainID),
		keys:       keys,
		properties: property.NewRegistry(),
		nonces:     nonce.NewRegistry(),
		balances:   confidential.NewBalanceLedger(),
		depositVK:  cfg.DepositVK,
	}
	for _, s := range cfg.Seed {
		id, err := c.properties.Create(s.Name, s.Location, s.ImageURL, s.TargetAmount, s.ROI, s.Owner)
		if err != nil {
			return nil, fmt.Errorf("seed property %q: %w", s.Name, err)
		}
		c.emit(Event{
			Type:         EventPropertyCreated,
			PropertyID:   id,
			Name:         s.Name,
			Location:     s.Location,
			TargetAmount: s.TargetAmount,
			ROI:          s.ROI,
		})
	}
	return c, nil
}

// Address returns the contract's own identity, bound into every digest.
func (c *Contract) Address() common.Address {
	return c.address
}

// ChainID returns the network identity bound into every digest.
func (c *Contract) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// EncryptionKey returns the public key callers encrypt stake amounts under.
func (c *Contract) EncryptionKey() bls12377.G1Affine {
	return c.keys.Pk
}

func (c *Contract) emit(e Event) {
	e.Time = time.Now().UTC()
	c.events = append(c.events, e)
}

// Events returns a copy of the notification log.
func (c *Contract) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// authorize recovers the signer of digest and requires it to be caller.
func authorize(digest common.Hash, signature []byte, caller common.Address) error {
	recovered, err := sig.RecoverSigner(digest, signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if recovered != caller {
		return fmt.Errorf("%w: expected %s, recovered %s", ErrInvalidSignature, caller.Hex(), recovered.Hex())
	}
	return nil
}

// checkDeposit validates a deposit's binding and proof without mutating.
func (c *Contract) checkDeposit(dep *deposit.Deposit, holder common.Address) error {
	if dep == nil {
		return fmt.Errorf("%w: missing deposit", deposit.ErrInvalidCiphertext)
	}
	if dep.Holder != holder || dep.Contract != c.address {
		return fmt.Errorf("%w: bound to (%s, %s), want (%s, %s)",
			deposit.ErrInvalidCiphertext, dep.Holder.Hex(), dep.Contract.Hex(), holder.Hex(), c.address.Hex())
	}
	return deposit.Verify(dep, &c.keys.Pk, c.depositVK)
}

// CreatePropertyParams are the inputs of the create-property command.
type CreatePropertyParams struct {
	From         common.Address
	Name         string
	Location     string
	ImageURL     string
	TargetAmount uint64
	ROI          uint64
	Nonce        uint64
	Signature    []byte
}

// CreateProperty registers a new investment property. The signature covers
// name, target amount and roi; location and image reference are public
// metadata outside the economic binding.
func (c *Contract) CreateProperty(p CreatePropertyParams) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := property.ValidateParams(p.Name, p.Location, p.ImageURL, p.TargetAmount, p.ROI); err != nil {
		return 0, err
	}
	digest := sig.CreatePropertyDigest(p.Name, p.TargetAmount, p.ROI, p.Nonce, c.address, c.chainID)
	if err := authorize(digest, p.Signature, p.From); err != nil {
		return 0, err
	}
	if err := c.nonces.Consume(p.From, p.Nonce); err != nil {
		return 0, err
	}

	id, err := c.properties.Create(p.Name, p.Location, p.ImageURL, p.TargetAmount, p.ROI, p.From)
	if err != nil {
		// Unreachable: parameters were validated above, before the nonce
		// was consumed.
		return 0, err
	}
	c.emit(Event{
		Type:         EventPropertyCreated,
		PropertyID:   id,
		Name:         p.Name,
		Location:     p.Location,
		TargetAmount: p.TargetAmount,
		ROI:          p.ROI,
	})
	return id, nil
}

// StakeParams are the inputs of the stake command. Value is the public
// deposited amount counted into the property's running total; Deposit
// carries the confidential encryption of the holder's stake.
type StakeParams struct {
	From       common.Address
	PropertyID uint64
	Value      uint64
	Deposit    *deposit.Deposit
	Nonce      uint64
	Signature  []byte
}

// Stake folds an externally encrypted amount into the caller's confidential
// balance and adds the public value to the property's total.
func (c *Contract) Stake(p StakeParams) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	prop, err := c.properties.Get(p.PropertyID)
	if err != nil {
		return err
	}
	if !prop.Active {
		return fmt.Errorf("%w: id %d", property.ErrNotActive, p.PropertyID)
	}
	if p.Value == 0 {
		return ErrInvalidValue
	}
	digest := sig.StakeDigest(p.PropertyID, p.Value, p.Nonce, c.address, c.chainID)
	if err := authorize(digest, p.Signature, p.From); err != nil {
		return err
	}
	if c.nonces.Used(p.From, p.Nonce) {
		return fmt.Errorf("%w: nonce %d for %s", nonce.ErrAlreadyUsed, p.Nonce, p.From.Hex())
	}
	if err := c.checkDeposit(p.Deposit, p.From); err != nil {
		return err
	}

	// Commit. Nothing below can fail.
	if err := c.nonces.Consume(p.From, p.Nonce); err != nil {
		return err
	}
	if err := c.properties.RecordContribution(p.PropertyID, p.Value); err != nil {
		return err
	}
	c.balances.Accumulate(p.PropertyID, p.From, p.Deposit.Ciphertext(), c.address, p.From)
	c.emit(Event{
		Type:       EventStaked,
		PropertyID: p.PropertyID,
		Holder:     p.From,
		Value:      p.Value,
	})
	return nil
}

// UnstakeParams are the inputs of the unstake command. The reduced amount is
// confidential; only its encryption travels.
type UnstakeParams struct {
	From       common.Address
	PropertyID uint64
	Deposit    *deposit.Deposit
	Nonce      uint64
	Signature  []byte
}

// Unstake homomorphically subtracts an externally encrypted amount from the
// caller's confidential balance. The property need not be active: holders
// can always reduce. Unlike the public total on stake, nothing public moves.
//
// Unstake carries the same signature+nonce discipline as stake. Sufficiency
// of funds is not validated: the ledger cannot compare encrypted magnitudes,
// and an over-subtraction only surfaces at decryption time.
func (c *Contract) Unstake(p UnstakeParams) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.properties.Exists(p.PropertyID) {
		return fmt.Errorf("%w: id %d", property.ErrDoesNotExist, p.PropertyID)
	}
	digest := sig.UnstakeDigest(p.PropertyID, p.Nonce, c.address, c.chainID)
	if err := authorize(digest, p.Signature, p.From); err != nil {
		return err
	}
	if c.nonces.Used(p.From, p.Nonce) {
		return fmt.Errorf("%w: nonce %d for %s", nonce.ErrAlreadyUsed, p.Nonce, p.From.Hex())
	}
	if err := c.checkDeposit(p.Deposit, p.From); err != nil {
		return err
	}

	if err := c.nonces.Consume(p.From, p.Nonce); err != nil {
		return err
	}
	c.balances.Reduce(p.PropertyID, p.From, p.Deposit.Ciphertext(), c.address, p.From)
	c.emit(Event{
		Type:       EventUnstaked,
		PropertyID: p.PropertyID,
		Holder:     p.From,
		Value:      0,
	})
	return nil
}

// CloseProperty flips the property inactive. Only the owner may close; the
// transition is one-way.
func (c *Contract) CloseProperty(propertyID uint64, caller common.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.properties.Close(propertyID, caller); err != nil {
		return err
	}
	c.emit(Event{
		Type:       EventPropertyClosed,
		PropertyID: propertyID,
	})
	return nil
}

// GetUserStakeWithSignature returns the encrypted stake handle of whichever
// holder produced the signature. Despite being advertised as a read, it
// consumes a nonce: it is a command with a result, not a pure query, and
// callers must not treat it as idempotent.
func (c *Contract) GetUserStakeWithSignature(propertyID, n uint64, signature []byte) (confidential.Ciphertext, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.properties.Exists(propertyID) {
		return confidential.Ciphertext{}, fmt.Errorf("%w: id %d", property.ErrDoesNotExist, propertyID)
	}
	digest := sig.DecryptStakeDigest(propertyID, n, c.address, c.chainID)
	holder, err := sig.RecoverSigner(digest, signature)
	if err != nil {
		return confidential.Ciphertext{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if err := c.nonces.Consume(holder, n); err != nil {
		return confidential.Ciphertext{}, err
	}
	return c.balances.Read(propertyID, holder), nil
}

// GetUserStake returns the holder's encrypted stake handle without mutating.
func (c *Contract) GetUserStake(propertyID uint64, holder common.Address) confidential.Ciphertext {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balances.Read(propertyID, holder)
}

// StakeGranted reports whether principal holds a decryption grant on the
// holder's accumulator.
func (c *Contract) StakeGranted(propertyID uint64, holder, principal common.Address) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balances.Granted(propertyID, holder, principal)
}

// GetProperty returns a copy of the property record.
func (c *Contract) GetProperty(propertyID uint64) (property.Property, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.properties.Get(propertyID)
}

// GetActiveProperties returns the ascending id list of active properties.
func (c *Contract) GetActiveProperties() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.properties.ListActive()
}

// GetPropertyCount returns the number of properties ever created.
func (c *Contract) GetPropertyCount() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.properties.Count()
}

// BatchCheckActive reports the active flag per id; out-of-range ids report
// false.
func (c *Contract) BatchCheckActive(ids []uint64) []bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.properties.BatchCheckActive(ids)
}
