package idgen

import (
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Epoch is the custom snowflake epoch (2025-01-01T00:00:00Z). Ids stay
// time-sortable and fit comfortably in a signed 64-bit column.
var Epoch = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

var epochOnce sync.Once

type Generator interface {
	NewID() int64
}

type SnowflakeGenerator struct {
	node *snowflake.Node
}

func NewSnowflakeGenerator(nodeID int64) (*SnowflakeGenerator, error) {
	epochOnce.Do(func() {
		snowflake.Epoch = Epoch.UnixMilli()
	})
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("create snowflake node %d: %w", nodeID, err)
	}
	return &SnowflakeGenerator{node: node}, nil
}

func (g *SnowflakeGenerator) NewID() int64 {
	return g.node.Generate().Int64()
}
