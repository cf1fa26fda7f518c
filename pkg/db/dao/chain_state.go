package dao

import (
	"time"

	"github.com/uptrace/bun"
)

// ChainStateDao maps to the 'chain_state' table: the last fully scanned height per chain.
type ChainStateDao struct {
	bun.BaseModel `bun:"table:chain_state"`
	Chain         string    `json:"chain" bun:",pk,type:varchar(64)"`
	LastHeight    int64     `json:"last_height" bun:",notnull"`
	UpdatedAt     time.Time `json:"updated_at" bun:",notnull,nullzero,default:current_timestamp"`
}
