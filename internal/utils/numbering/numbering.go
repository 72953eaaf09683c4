package numbering

import (
	"fmt"
	"strings"

	portssvc "github.com/SscSPs/insurance_platform/internal/core/ports/services"
	"github.com/bwmarrin/snowflake"
)

const (
	quotePrefix  = "Q-"
	policyPrefix = "P-"
)

// SnowflakeNumbers issues quote and policy numbers that are unique across nodes
// as long as every process runs with its own node ID.
type SnowflakeNumbers struct {
	node *snowflake.Node
}

var _ portssvc.NumberGenerator = (*SnowflakeNumbers)(nil)

// NewSnowflakeNumbers creates a generator for the node (0 to 1023).
func NewSnowflakeNumbers(nodeID int64) (*SnowflakeNumbers, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("invalid snowflake node %d: %w", nodeID, err)
	}
	return &SnowflakeNumbers{node: node}, nil
}

func (n *SnowflakeNumbers) NextQuoteNumber() string {
	return quotePrefix + n.next()
}

func (n *SnowflakeNumbers) NextPolicyNumber() string {
	return policyPrefix + n.next()
}

func (n *SnowflakeNumbers) next() string {
	return strings.ToUpper(n.node.Generate().Base36())
}
