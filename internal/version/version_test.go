package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	oldV, oldSHA, oldTime := Version, GitSHA, BuildTime
	defer func() { Version, GitSHA, BuildTime = oldV, oldSHA, oldTime }()

	assert.Equal(t, "arctic-bridge dev (unknown, built unknown)", String())

	Version, GitSHA, BuildTime = "1.2.0", "0123456789abcdef0123", "2025-06-01T20:00:00Z"
	assert.Equal(t, "arctic-bridge 1.2.0 (0123456789ab, built 2025-06-01T20:00:00Z)", String())
}
