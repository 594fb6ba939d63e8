package domain

import "time"

// Outcome classifies how a fetch cycle obtained its data.
type Outcome string

const (
	// OutcomeRemoteOK means the live source returned at least one element.
	OutcomeRemoteOK Outcome = "remote_ok"
	// OutcomeRemoteEmpty means the live source answered with no elements and
	// the static dataset was used instead.
	OutcomeRemoteEmpty Outcome = "remote_empty"
	// OutcomeRemoteError means the live source failed and the static dataset
	// was used instead.
	OutcomeRemoteError Outcome = "remote_error"
	// OutcomeFallbackError means both sources failed; the batch is empty.
	OutcomeFallbackError Outcome = "fallback_error"
)

// DataSource names where a batch's records came from.
type DataSource string

const (
	SourceRemote   DataSource = "remote"
	SourceFallback DataSource = "fallback"
	SourceNone     DataSource = "none"
)

// ReferenceSource names where the reference point came from.
type ReferenceSource string

const (
	ReferenceDevice  ReferenceSource = "device"
	ReferenceDefault ReferenceSource = "default"
)

// Batch is the complete, ranked result of one fetch cycle.
type Batch struct {
	ID              string          `json:"id"`
	Reference       Point           `json:"reference"`
	ReferenceSource ReferenceSource `json:"reference_source"`
	Source          DataSource      `json:"source"`
	Outcome         Outcome         `json:"outcome"`
	Records         []ServiceRecord `json:"records"`
	FetchedAt       time.Time       `json:"fetched_at"`
}
