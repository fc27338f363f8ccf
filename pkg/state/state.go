// Package state persists batch iteration progress between executions. Each
// batch node keeps one record: the loaded prompts, the cursor, and the input
// signature used to detect when a reload is needed. Records survive host
// restarts; the relay's in-memory registry does not.
package state

import (
	"context"
)

// Record is the persisted progress of a single batch node.
type Record struct {
	Prompts           []string `json:"prompts"`
	CurrentIndex      int      `json:"current_index"`
	LastInput         string   `json:"last_input"`
	LastInputMode     string   `json:"last_input_mode"`
	LastSeparator     string   `json:"last_separator"`
	LastSeparatorType string   `json:"last_separator_type"`
	LastStartIndex    int      `json:"last_start_index"`
	Completed         bool     `json:"completed"`
}

// NewRecord returns the zero progress record.
func NewRecord() *Record {
	return &Record{
		Prompts:           []string{},
		LastSeparatorType: "newline",
	}
}

// Signature captures the inputs whose change forces a batch reload.
type Signature struct {
	Input         string
	InputMode     string
	Separator     string
	SeparatorType string
}

// Matches reports whether the record was produced from the same inputs.
func (r *Record) Matches(sig Signature) bool {
	return r.LastInput == sig.Input &&
		r.LastInputMode == sig.InputMode &&
		r.LastSeparator == sig.Separator &&
		r.LastSeparatorType == sig.SeparatorType
}

// SetSignature stamps the record with the inputs it was produced from.
func (r *Record) SetSignature(sig Signature) {
	r.LastInput = sig.Input
	r.LastInputMode = sig.InputMode
	r.LastSeparator = sig.Separator
	r.LastSeparatorType = sig.SeparatorType
}

// Store persists progress records keyed by node. Load returns the zero
// record, not an error, when no record exists or the stored one cannot be
// parsed; iteration must always be able to start over.
type Store interface {
	Load(ctx context.Context, key string) (*Record, error)
	Save(ctx context.Context, key string, rec *Record) error
}
