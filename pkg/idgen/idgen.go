// Package idgen generates unique, time-ordered identifiers for delivery
// log entries.
package idgen

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init configures the generator with a machine ID. Optional: the first
// NewID call falls back to node 1.
func Init(machine int64) error {
	n, err := snowflake.NewNode(machine)
	if err != nil {
		return err
	}
	node = n
	return nil
}

// NewID returns a new time-ordered ID as a decimal string
func NewID() string {
	once.Do(func() {
		if node == nil {
			node, _ = snowflake.NewNode(1)
		}
	})
	return node.Generate().String()
}
