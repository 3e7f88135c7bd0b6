package dbengine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidDatabaseObjectName(t *testing.T) {
	valid := []string{"a", "A", "_", "_a1", "table_1", "SYS_TABLES", "t1"}
	for _, name := range valid {
		assert.True(t, isValidDatabaseObjectName(name), "expected %q to be valid", name)
	}

	invalid := []string{"", "1a", "-x", "a-b", "a b", "a.b", "имя", "a\n",
		strings.Repeat("x", maxDatabaseObjectNameLength+1)}
	for _, name := range invalid {
		assert.False(t, isValidDatabaseObjectName(name), "expected %q to be invalid", name)
	}

	assert.True(t, isValidDatabaseObjectName(strings.Repeat("x", maxDatabaseObjectNameLength)))
}
