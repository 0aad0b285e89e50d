package close

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/oklog/ulid/v2"
)

// ActionType enumerates audited lifecycle actions.
type ActionType string

const (
	ActionCreated             ActionType = "Created"
	ActionClosed              ActionType = "Closed"
	ActionReopened            ActionType = "Reopened"
	ActionPermanentlyClosed   ActionType = "Permanently Closed"
	ActionTransactionModified ActionType = "Transaction Modified"
)

// Valid reports whether the action type is known.
func (a ActionType) Valid() bool {
	switch a {
	case ActionCreated, ActionClosed, ActionReopened, ActionPermanentlyClosed, ActionTransactionModified:
		return true
	default:
		return false
	}
}

// Label returns a stable lower-case identifier for metrics and job payloads.
func (a ActionType) Label() string {
	switch a {
	case ActionCreated:
		return "create"
	case ActionClosed:
		return "close"
	case ActionReopened:
		return "reopen"
	case ActionPermanentlyClosed:
		return "permanent_close"
	case ActionTransactionModified:
		return "transaction_modified"
	default:
		return "unknown"
	}
}

// PeriodSnapshot captures a period at a transition boundary.
type PeriodSnapshot struct {
	Name                string       `json:"name"`
	PeriodName          string       `json:"period_name"`
	Company             string       `json:"company"`
	StartDate           time.Time    `json:"start_date"`
	EndDate             time.Time    `json:"end_date"`
	PeriodType          PeriodType   `json:"period_type"`
	Status              PeriodStatus `json:"status"`
	ClosedBy            string       `json:"closed_by,omitempty"`
	ClosedOn            *time.Time   `json:"closed_on,omitempty"`
	ClosingJournalEntry string       `json:"closing_journal_entry,omitempty"`
	PermanentlyClosedBy string       `json:"permanently_closed_by,omitempty"`
	PermanentlyClosedOn *time.Time   `json:"permanently_closed_on,omitempty"`
	Version             int64        `json:"version"`
}

// SnapshotOf copies the audited fields of p.
func SnapshotOf(p Period) *PeriodSnapshot {
	return &PeriodSnapshot{
		Name:                p.Name,
		PeriodName:          p.PeriodName,
		Company:             p.Company,
		StartDate:           p.StartDate,
		EndDate:             p.EndDate,
		PeriodType:          p.PeriodType,
		Status:              p.Status,
		ClosedBy:            p.ClosedBy,
		ClosedOn:            p.ClosedOn,
		ClosingJournalEntry: p.ClosingJournalEntry,
		PermanentlyClosedBy: p.PermanentlyClosedBy,
		PermanentlyClosedOn: p.PermanentlyClosedOn,
		Version:             p.Version,
	}
}

// Log is one immutable PeriodClosingLog record.
type Log struct {
	Name                string          `json:"name"`
	Period              string          `json:"accounting_period"`
	Company             string          `json:"company"`
	ActionType          ActionType      `json:"action_type"`
	ActionBy            string          `json:"action_by"`
	ActionDate          time.Time       `json:"action_date"`
	Reason              string          `json:"reason,omitempty"`
	Before              *PeriodSnapshot `json:"before_snapshot,omitempty"`
	After               *PeriodSnapshot `json:"after_snapshot,omitempty"`
	AffectedTransaction string          `json:"affected_transaction,omitempty"`
	TransactionDoctype  string          `json:"transaction_doctype,omitempty"`
	Details             []string        `json:"details,omitempty"`
	IPAddress           string          `json:"ip_address,omitempty"`
	UserAgent           string          `json:"user_agent,omitempty"`
}

// NewLogName returns a sortable unique log identifier.
func NewLogName() string {
	return "PCL-" + ulid.Make().String()
}

// AuditFilter narrows audit log listings.
type AuditFilter struct {
	Period     string
	Company    string
	ActionType ActionType
	ActionBy   string
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

const (
	defaultAuditLimit = 20
	maxAuditLimit     = 500
)

// Normalize clamps paging values to sane bounds.
func (f AuditFilter) Normalize() AuditFilter {
	if f.Limit <= 0 {
		f.Limit = defaultAuditLimit
	}
	if f.Limit > maxAuditLimit {
		f.Limit = maxAuditLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// DefaultSnapshotThreshold is the encoded size above which snapshots are compressed.
const DefaultSnapshotThreshold = 10 * 1024

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// SnapshotCodec serialises snapshots into the opaque stored form: JSON,
// zstd-compressed when larger than the threshold.
type SnapshotCodec struct {
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	threshold int
}

// NewSnapshotCodec builds a codec. A non-positive threshold uses the default.
func NewSnapshotCodec(threshold int) (*SnapshotCodec, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("close: create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("close: create zstd decoder: %w", err)
	}
	if threshold <= 0 {
		threshold = DefaultSnapshotThreshold
	}
	return &SnapshotCodec{encoder: encoder, decoder: decoder, threshold: threshold}, nil
}

// Encode returns nil for a nil snapshot.
func (c *SnapshotCodec) Encode(s *PeriodSnapshot) ([]byte, error) {
	if s == nil {
		return nil, nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("close: encode snapshot: %w", err)
	}
	if len(raw) <= c.threshold {
		return raw, nil
	}
	return c.encoder.EncodeAll(raw, nil), nil
}

// Decode accepts both plain and compressed forms.
func (c *SnapshotCodec) Decode(data []byte) (*PeriodSnapshot, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if bytes.HasPrefix(data, zstdMagic) {
		raw, err := c.decoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("close: decompress snapshot: %w", err)
		}
		data = raw
	}
	var s PeriodSnapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("close: decode snapshot: %w", err)
	}
	return &s, nil
}
