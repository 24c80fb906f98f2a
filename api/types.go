// types.go - Wire types shared by the estated REST API and its client.

package api

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/DickTrevelyan/shield-stake-estate/internal/confidential"
	"github.com/DickTrevelyan/shield-stake-estate/internal/transactions/deposit"
)

// InfoResponse describes the ledger a client is talking to: the identities
// bound into every signed digest and the key stake amounts are encrypted
// under (compressed point, hex).
type InfoResponse struct {
	Address       common.Address `json:"address"`
	ChainID       *big.Int       `json:"chain_id"`
	EncryptionKey string         `json:"encryption_key"`
	Version       string         `json:"version"`
}

// CreatePropertyRequest submits the create-property command.
type CreatePropertyRequest struct {
	From         common.Address `json:"from"`
	Name         string         `json:"name"`
	Location     string         `json:"location"`
	ImageURL     string         `json:"image_url"`
	TargetAmount uint64         `json:"target_amount"`
	ROI          uint64         `json:"roi"`
	Nonce        uint64         `json:"nonce"`
	Signature    hexutil.Bytes  `json:"signature"`
}

// CreatePropertyResponse returns the assigned property id.
type CreatePropertyResponse struct {
	ID uint64 `json:"id"`
}

// StakeRequest submits the stake command. Value is the public deposited
// amount; Deposit carries the confidential encryption plus validity proof.
type StakeRequest struct {
	From       common.Address   `json:"from"`
	PropertyID uint64           `json:"property_id"`
	Value      uint64           `json:"value"`
	Deposit    *deposit.Deposit `json:"deposit"`
	Nonce      uint64           `json:"nonce"`
	Signature  hexutil.Bytes    `json:"signature"`
}

// UnstakeRequest submits the unstake command. No public value travels.
type UnstakeRequest struct {
	From       common.Address   `json:"from"`
	PropertyID uint64           `json:"property_id"`
	Deposit    *deposit.Deposit `json:"deposit"`
	Nonce      uint64           `json:"nonce"`
	Signature  hexutil.Bytes    `json:"signature"`
}

// ClosePropertyRequest submits the close-property command.
type ClosePropertyRequest struct {
	PropertyID uint64         `json:"property_id"`
	Caller     common.Address `json:"caller"`
}

// AuthorizedReadRequest fetches an encrypted stake handle on behalf of
// whichever holder signed. Consumes the nonce.
type AuthorizedReadRequest struct {
	PropertyID uint64        `json:"property_id"`
	Nonce      uint64        `json:"nonce"`
	Signature  hexutil.Bytes `json:"signature"`
}

// StakeResponse carries an opaque encrypted stake handle.
type StakeResponse struct {
	Stake confidential.Ciphertext `json:"stake"`
}

// BatchActiveRequest asks for the active flag of each listed id.
type BatchActiveRequest struct {
	IDs []uint64 `json:"ids"`
}

// BatchActiveResponse mirrors BatchActiveRequest order; out-of-range ids
// report false.
type BatchActiveResponse struct {
	Active []bool `json:"active"`
}

// CountResponse returns the total number of properties ever created.
type CountResponse struct {
	Count uint64 `json:"count"`
}

// ActiveResponse returns the ascending id list of active properties.
type ActiveResponse struct {
	IDs []uint64 `json:"ids"`
}

// ErrorResponse carries a command rejection back to the caller.
type ErrorResponse struct {
	Error string `json:"error"`
}
