package migrations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmbeddedSchema(t *testing.T) {
	for _, table := range []string{"items", "user_behavior"} {
		assert.Contains(t, upSQL, "CREATE TABLE IF NOT EXISTS "+table)
		assert.Contains(t, downSQL, "DROP TABLE IF EXISTS "+table)
	}
	// user_behavior references items, so it must be dropped first.
	assert.Less(t, strings.Index(downSQL, "user_behavior"), strings.Index(downSQL, "items"))
}
