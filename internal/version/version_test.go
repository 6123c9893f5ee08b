package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func withVersion(t *testing.T, v, c string) {
	t.Helper()
	oldV, oldC := Version, Commit
	Version, Commit = v, c
	t.Cleanup(func() { Version, Commit = oldV, oldC })
}

func TestPopulateFromVCS(t *testing.T) {
	withVersion(t, "", "")

	populate(map[string]string{
		"vcs.revision": "0123456789abcdef",
		"vcs.modified": "true",
		"vcs.time":     "2026-03-14T09:26:53Z",
	})

	assert.Equal(t, "0123456-dirty", Commit)
	assert.Equal(t, "dev-20260314", Version)
}

func TestPopulateKeepsLinkerValues(t *testing.T) {
	withVersion(t, "v1.2.3", "abc123")

	populate(map[string]string{"vcs.revision": "0123456789abcdef", "vcs.time": "2026-03-14T09:26:53Z"})

	assert.Equal(t, "v1.2.3", Version)
	assert.Equal(t, "abc123", Commit)
}

func TestPopulateWithoutVCS(t *testing.T) {
	withVersion(t, "", "")

	populate(nil)

	assert.Empty(t, Version)
	assert.Empty(t, Commit)
}

func TestFull(t *testing.T) {
	withVersion(t, "v1.2.3", "abc123")
	assert.Equal(t, "v1.2.3 (commit: abc123)", Full())
}
