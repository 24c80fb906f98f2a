// events.go - Notification events emitted by committed commands.
//
// Events form an append-only in-memory log; a committed command appends
// exactly one. The Unstaked event carries a zero public value because the
// reduced amount is confidential and never known to the ledger.

package estate

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// EventType identifies what a committed command did.
type EventType string

const (
	EventPropertyCreated EventType = "PropertyCreated"
	EventStaked          EventType = "Staked"
	EventUnstaked        EventType = "Unstaked"
	EventPropertyClosed  EventType = "PropertyClosed"
)

// Event is one ledger notification. Fields irrelevant to the event type are
// left at their zero values.
type Event struct {
	Type         EventType      `json:"type"`
	PropertyID   uint64         `json:"property_id"`
	Name         string         `json:"name,omitempty"`
	Location     string         `json:"location,omitempty"`
	TargetAmount uint64         `json:"target_amount,omitempty"`
	ROI          uint64         `json:"roi,omitempty"`
	Holder       common.Address `json:"holder,omitempty"`
	Value        uint64         `json:"value,omitempty"`
	Time         time.Time      `json:"time"`
}
