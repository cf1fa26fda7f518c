package dao

import (
	"time"

	"github.com/chainsafe/stacks-relayer/pkg/bridge"
	"github.com/uptrace/bun"
)

// ProcessedMessageDao maps to the 'processed_messages' table. One row per message id holds
// the latest attempt.
type ProcessedMessageDao struct {
	bun.BaseModel     `bun:"table:processed_messages"`
	MessageID         string    `json:"message_id" bun:",pk,type:varchar(66)"`
	Success           bool      `json:"success" bun:",notnull,use_zero"`
	Error             *string   `json:"error,omitempty" bun:",type:text"`
	DestinationTxHash *string   `json:"destination_tx_hash,omitempty" bun:",type:varchar(66)"`
	RetryCount        int       `json:"retry_count" bun:",notnull,use_zero,default:0"`
	ProcessedAt       time.Time `json:"processed_at" bun:",notnull"`
}

// FromRecord converts a domain record
func FromRecord(r *bridge.ProcessedMessageRecord) *ProcessedMessageDao {
	d := &ProcessedMessageDao{
		MessageID:   r.MessageID,
		Success:     r.Success,
		RetryCount:  r.RetryCount,
		ProcessedAt: r.Timestamp.UTC(),
	}
	if r.Error != "" {
		d.Error = &r.Error
	}
	if r.DestinationTxHash != "" {
		d.DestinationTxHash = &r.DestinationTxHash
	}
	return d
}

// ToRecord converts back to the domain record
func (d *ProcessedMessageDao) ToRecord() *bridge.ProcessedMessageRecord {
	r := &bridge.ProcessedMessageRecord{
		MessageID:  d.MessageID,
		Success:    d.Success,
		RetryCount: d.RetryCount,
		Timestamp:  d.ProcessedAt,
	}
	if d.Error != nil {
		r.Error = *d.Error
	}
	if d.DestinationTxHash != nil {
		r.DestinationTxHash = *d.DestinationTxHash
	}
	return r
}
