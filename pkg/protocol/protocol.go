package protocol

import (
	"encoding/json"
)

// Client to server verbs.
const (
	MsgProposeSet    = "propose-set"
	MsgProposeDelete = "propose-delete"
	MsgQueryRange    = "query-range"
)

// Server to client events.
const (
	MsgRangeResult   = "range-result"
	MsgSetApplied    = "set-applied"
	MsgDeleteApplied = "delete-applied"
)

const (
	// Coordinates are bounded to 32 bits so every backend can key them the same way.
	MinCoordinate = -1 << 31
	MaxCoordinate = 1<<31 - 1
	MaxColorLen   = 64
)

// Envelope wraps every message: t names the verb, p carries its JSON payload.
type Envelope struct {
	T string          `json:"t"`
	P json.RawMessage `json:"p"`
}
