package record

import (
	"time"

	"github.com/uptrace/bun"
)

// CollectedRecord is the durable result of a confirmed call: the final
// field map a caller said yes to.
type CollectedRecord struct {
	bun.BaseModel `bun:"table:collected_records,alias:cr"`

	ID        int64             `bun:"id,pk,autoincrement"`
	CallID    string            `bun:"call_id,notnull"`
	AgentID   string            `bun:"agent_id,notnull"`
	Fields    map[string]string `bun:"fields,type:jsonb,notnull"`
	CreatedAt time.Time         `bun:"created_at,notnull,default:current_timestamp"`
}
