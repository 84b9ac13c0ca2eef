package louvain

import (
	"encoding/json"
	"io"
)

// MoveEvent is one node move during local optimization.
type MoveEvent struct {
	MoveNumber int     `json:"move"`
	Level      int     `json:"level"`
	Node       int     `json:"node"`
	FromComm   int     `json:"from_comm"`
	ToComm     int     `json:"to_comm"`
	Gain       float64 `json:"gain"`
}

// MoveTracker writes move events as JSON lines. A nil tracker discards them.
type MoveTracker struct {
	encoder *json.Encoder
	moves   int
	err     error
}

// NewMoveTracker returns a tracker writing to w, or nil when w is nil.
func NewMoveTracker(w io.Writer) *MoveTracker {
	if w == nil {
		return nil
	}
	return &MoveTracker{encoder: json.NewEncoder(w)}
}

// LogMove records one move. The first write error stops further output.
func (mt *MoveTracker) LogMove(level, node, fromComm, toComm int, gain float64) {
	if mt == nil || mt.err != nil {
		return
	}
	mt.moves++
	mt.err = mt.encoder.Encode(MoveEvent{
		MoveNumber: mt.moves,
		Level:      level,
		Node:       node,
		FromComm:   fromComm,
		ToComm:     toComm,
		Gain:       gain,
	})
}

// Err returns the first write error, if any.
func (mt *MoveTracker) Err() error {
	if mt == nil {
		return nil
	}
	return mt.err
}
