// Package ids generates message identifiers.
package ids

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

// Generator hands out UUIDs for locally authored messages and time-ordered
// snowflake ids for frames that arrive without one.
type Generator struct {
	node *snowflake.Node
}

// New creates a Generator for the given snowflake node (0-1023).
func New(node int64) (*Generator, error) {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", node, err)
	}
	return &Generator{node: n}, nil
}

// MustNew is New for node ids known to be valid.
func MustNew(node int64) *Generator {
	g, err := New(node)
	if err != nil {
		panic(err)
	}
	return g
}

// MessageID returns a new random UUID.
func (g *Generator) MessageID() string {
	return uuid.NewString()
}

// FrameID returns a new snowflake id in decimal form.
func (g *Generator) FrameID() string {
	return g.node.Generate().String()
}
