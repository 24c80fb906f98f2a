// main.go - Demo scenario: one owner and two investors on the confidential
// staking ledger.
//
// This demonstrates the full command surface in-process:
//   - the owner creates a property via a signed, nonce-protected command
//   - two investors stake confidential amounts; each stake carries an
//     externally encrypted ciphertext plus a Groth16 well-formedness proof
//   - the public running total tracks the deposited values exactly, while
//     individual stakes stay encrypted on the ledger
//   - an investor unstakes part of their position, the owner closes the
//     property, and a late stake is rejected
//
// Decryption happens here only because the demo holds the ledger keypair;
// the contract itself never decrypts anything.
//
// Usage:
//
//	go run main.go

package main

import (
	"fmt"
	"log"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/DickTrevelyan/shield-stake-estate/client"
	"github.com/DickTrevelyan/shield-stake-estate/internal/confidential"
	"github.com/DickTrevelyan/shield-stake-estate/internal/estate"
	"github.com/DickTrevelyan/shield-stake-estate/internal/transactions/deposit"
)

func main() {
	log.Println("=== Confidential Property Staking: Demo Scenario ===")

	// 1. Setup: compile the deposit circuit and generate/load ZKP keys.
	ccs, err := deposit.Compile()
	if err != nil {
		log.Printf("ERROR: deposit circuit compilation failed: %v", err)
		return
	}
	pk, vk, err := deposit.SetupOrLoadKeys(ccs, "keys/deposit_pk.bin", "keys/deposit_vk.bin")
	if err != nil {
		log.Printf("ERROR: Groth16 key setup failed: %v", err)
		return
	}

	keys, err := confidential.GenerateKeyPair()
	if err != nil {
		log.Printf("ERROR: encryption keypair generation failed: %v", err)
		return
	}

	contractAddr := common.HexToAddress("0x00000000000000000000000000000000e57a7ed1")
	chainID := big.NewInt(1337)
	contract, err := estate.New(estate.Config{
		Address:   contractAddr,
		ChainID:   chainID,
		Keys:      keys,
		DepositVK: vk,
	})
	if err != nil {
		log.Printf("ERROR: contract initialization failed: %v", err)
		return
	}

	// 2. Participants: one property owner, two investors.
	owner, _ := client.NewWallet()
	alice, _ := client.NewWallet()
	bob, _ := client.NewWallet()
	encPk := contract.EncryptionKey()

	// 3. Owner creates a property.
	nonce := owner.FreshNonce()
	signature, err := owner.SignCreateProperty("Harbor Lofts", 500000, 12, nonce, contractAddr, chainID)
	if err != nil {
		log.Printf("ERROR: signing failed: %v", err)
		return
	}
	propertyID, err := contract.CreateProperty(estate.CreatePropertyParams{
		From:         owner.Address(),
		Name:         "Harbor Lofts",
		Location:     "Rotterdam",
		ImageURL:     "ipfs://QmHarborLofts",
		TargetAmount: 500000,
		ROI:          12,
		Nonce:        nonce,
		Signature:    signature,
	})
	if err != nil {
		log.Printf("ERROR: create property failed: %v", err)
		return
	}
	log.Printf("property %d created by %s", propertyID, owner.Address().Hex())

	// 4. Investors stake confidential amounts.
	stake := func(w *client.Wallet, value uint64) error {
		dep, err := deposit.New(value, &encPk, w.Address(), contractAddr, pk, ccs)
		if err != nil {
			return err
		}
		n := w.FreshNonce()
		s, err := w.SignStake(propertyID, value, n, contractAddr, chainID)
		if err != nil {
			return err
		}
		return contract.Stake(estate.StakeParams{
			From:       w.Address(),
			PropertyID: propertyID,
			Value:      value,
			Deposit:    dep,
			Nonce:      n,
			Signature:  s,
		})
	}
	if err := stake(alice, 1200); err != nil {
		log.Printf("ERROR: alice stake failed: %v", err)
		return
	}
	if err := stake(bob, 800); err != nil {
		log.Printf("ERROR: bob stake failed: %v", err)
		return
	}
	if err := stake(alice, 300); err != nil {
		log.Printf("ERROR: alice second stake failed: %v", err)
		return
	}

	prop, _ := contract.GetProperty(propertyID)
	log.Printf("public running total: %d (target %d)", prop.CurrentAmount, prop.TargetAmount)

	// 5. Decrypt the investors' balances with the ledger keypair (demo only).
	showBalance := func(name string, holder common.Address) {
		ct := contract.GetUserStake(propertyID, holder)
		point := confidential.Decrypt(&keys.Sk, ct)
		value, err := confidential.RecoverValue(&point, 1_000_000)
		if err != nil {
			log.Printf("ERROR: balance recovery for %s failed: %v", name, err)
			return
		}
		log.Printf("%s holds an encrypted stake of %d", name, value)
	}
	showBalance("alice", alice.Address())
	showBalance("bob", bob.Address())

	// 6. Authorized read: bob proves he may fetch his own handle.
	n := bob.FreshNonce()
	s, _ := bob.SignDecryptStake(propertyID, n, contractAddr, chainID)
	if _, err := contract.GetUserStakeWithSignature(propertyID, n, s); err != nil {
		log.Printf("ERROR: authorized read failed: %v", err)
		return
	}
	log.Println("authorized read succeeded (nonce consumed)")

	// 7. Alice unstakes part of her position.
	unstakeDep, err := deposit.New(500, &encPk, alice.Address(), contractAddr, pk, ccs)
	if err != nil {
		log.Printf("ERROR: unstake deposit failed: %v", err)
		return
	}
	n = alice.FreshNonce()
	s, _ = alice.SignUnstake(propertyID, n, contractAddr, chainID)
	if err := contract.Unstake(estate.UnstakeParams{
		From:       alice.Address(),
		PropertyID: propertyID,
		Deposit:    unstakeDep,
		Nonce:      n,
		Signature:  s,
	}); err != nil {
		log.Printf("ERROR: unstake failed: %v", err)
		return
	}
	showBalance("alice after unstake", alice.Address())

	// 8. Owner closes the property; a late stake must be rejected.
	if err := contract.CloseProperty(propertyID, owner.Address()); err != nil {
		log.Printf("ERROR: close failed: %v", err)
		return
	}
	if err := stake(bob, 100); err != nil {
		log.Printf("late stake rejected as expected: %v", err)
	}

	fmt.Printf("\n=== Ledger Summary ===\n")
	fmt.Printf("properties: %d, active: %v\n", contract.GetPropertyCount(), contract.GetActiveProperties())
	for _, e := range contract.Events() {
		fmt.Printf("event %-15s property=%d holder=%s value=%d\n", e.Type, e.PropertyID, e.Holder.Hex(), e.Value)
	}
}
