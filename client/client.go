// client.go - Typed HTTP client for the estated REST API.

package client

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	"github.com/ethereum/go-ethereum/common"

	"github.com/DickTrevelyan/shield-stake-estate/api"
	"github.com/DickTrevelyan/shield-stake-estate/internal/confidential"
	"github.com/DickTrevelyan/shield-stake-estate/internal/property"
)

// Client talks to one estated instance.
type Client struct {
	base string
	http *http.Client
}

// New creates a client for the given base URL, e.g. "http://localhost:8480".
func New(base string) *Client {
	return &Client{
		base: base,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var apiErr api.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("ledger rejected request: %s", apiErr.Error)
		}
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Info fetches the ledger's identity and encryption key.
func (c *Client) Info() (*api.InfoResponse, error) {
	var info api.InfoResponse
	if err := c.do(http.MethodGet, "/info", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// EncryptionKey fetches and decodes the ledger's encryption key.
func (c *Client) EncryptionKey() (*bls12377.G1Affine, error) {
	info, err := c.Info()
	if err != nil {
		return nil, err
	}
	raw, err := hex.DecodeString(info.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key: %w", err)
	}
	var pk bls12377.G1Affine
	if _, err := pk.SetBytes(raw); err != nil {
		return nil, fmt.Errorf("invalid encryption key: %w", err)
	}
	return &pk, nil
}

// CreateProperty submits the create-property command and returns the new id.
func (c *Client) CreateProperty(req api.CreatePropertyRequest) (uint64, error) {
	var resp api.CreatePropertyResponse
	if err := c.do(http.MethodPost, "/property/create", req, &resp); err != nil {
		return 0, err
	}
	return resp.ID, nil
}

// Stake submits the stake command.
func (c *Client) Stake(req api.StakeRequest) error {
	return c.do(http.MethodPost, "/property/stake", req, nil)
}

// Unstake submits the unstake command.
func (c *Client) Unstake(req api.UnstakeRequest) error {
	return c.do(http.MethodPost, "/property/unstake", req, nil)
}

// CloseProperty submits the close-property command.
func (c *Client) CloseProperty(propertyID uint64, caller common.Address) error {
	return c.do(http.MethodPost, "/property/close", api.ClosePropertyRequest{
		PropertyID: propertyID,
		Caller:     caller,
	}, nil)
}

// Property fetches one property record.
func (c *Client) Property(id uint64) (property.Property, error) {
	var p property.Property
	err := c.do(http.MethodGet, fmt.Sprintf("/property?id=%d", id), nil, &p)
	return p, err
}

// ActiveProperties fetches the ascending id list of active properties.
func (c *Client) ActiveProperties() ([]uint64, error) {
	var resp api.ActiveResponse
	if err := c.do(http.MethodGet, "/properties/active", nil, &resp); err != nil {
		return nil, err
	}
	return resp.IDs, nil
}

// PropertyCount fetches the number of properties ever created.
func (c *Client) PropertyCount() (uint64, error) {
	var resp api.CountResponse
	if err := c.do(http.MethodGet, "/properties/count", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// BatchCheckActive checks the active flag for each id.
func (c *Client) BatchCheckActive(ids []uint64) ([]bool, error) {
	var resp api.BatchActiveResponse
	if err := c.do(http.MethodPost, "/properties/batch-active", api.BatchActiveRequest{IDs: ids}, &resp); err != nil {
		return nil, err
	}
	return resp.Active, nil
}

// UserStake fetches the holder's encrypted stake handle.
func (c *Client) UserStake(propertyID uint64, holder common.Address) (confidential.Ciphertext, error) {
	var resp api.StakeResponse
	err := c.do(http.MethodGet, fmt.Sprintf("/stake?property_id=%d&holder=%s", propertyID, holder.Hex()), nil, &resp)
	return resp.Stake, err
}

// UserStakeWithSignature fetches an encrypted stake handle on behalf of the
// holder who signed. The ledger consumes the nonce, so this is not an
// idempotent read.
func (c *Client) UserStakeWithSignature(propertyID, nonce uint64, signature []byte) (confidential.Ciphertext, error) {
	var resp api.StakeResponse
	err := c.do(http.MethodPost, "/stake/authorized", api.AuthorizedReadRequest{
		PropertyID: propertyID,
		Nonce:      nonce,
		Signature:  signature,
	}, &resp)
	return resp.Stake, err
}
