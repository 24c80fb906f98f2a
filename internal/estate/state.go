// state.go - JSON persistence of the contract's shared state.
//
// The state file holds everything except the encryption keypair and the
// deposit verifying key, which are capabilities supplied at load time and
// stored separately.

package estate

import (
	"encoding/json"
	"math/big"
	"os"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/ethereum/go-ethereum/common"

	"github.com/DickTrevelyan/shield-stake-estate/internal/confidential"
	"github.com/DickTrevelyan/shield-stake-estate/internal/nonce"
	"github.com/DickTrevelyan/shield-stake-estate/internal/property"
)

type contractState struct {
	Address    common.Address              `json:"address"`
	ChainID    *big.Int                    `json:"chain_id"`
	Properties *property.Registry          `json:"properties"`
	Nonces     *nonce.Registry             `json:"nonces"`
	Balances   *confidential.BalanceLedger `json:"balances"`
	Events     []Event                     `json:"events"`
}

// SaveToFile writes the contract state to a JSON file, overwriting any
// existing file.
func (c *Contract) SaveToFile(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(contractState{
		Address:    c.address,
		ChainID:    c.chainID,
		Properties: c.properties,
		Nonces:     c.nonces,
		Balances:   c.balances,
		Events:     c.events,
	})
}

// LoadFromFile restores a contract from a state file, reattaching the
// encryption keypair and deposit verifying key.
func LoadFromFile(path string, keys *confidential.KeyPair, depositVK groth16.VerifyingKey) (*Contract, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st := contractState{
		Properties: property.NewRegistry(),
		Nonces:     nonce.NewRegistry(),
		Balances:   confidential.NewBalanceLedger(),
	}
	if err := json.NewDecoder(f).Decode(&st); err != nil {
		return nil, err
	}
	return &Contract{
		address:    st.Address,
		chainID:    st.ChainID,
		keys:       keys,
		properties: st.Properties,
		nonces:     st.Nonces,
		balances:   st.Balances,
		depositVK:  depositVK,
		events:     st.Events,
	}, nil
}
