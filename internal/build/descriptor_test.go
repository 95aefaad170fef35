package build

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDescriptor(t *testing.T) {
	d, err := DefaultDescriptor()
	require.NoError(t, err)
	assert.Equal(t, ".github/workflows/android.yml", d.Path)
	assert.Equal(t, []string{"app-debug"}, d.Artifacts)
	assert.Contains(t, d.Content, "npx cap add android")
	assert.Contains(t, d.Content, "./gradlew assembleDebug")
}

func TestParseDescriptor_RequiresArtifact(t *testing.T) {
	_, err := ParseDescriptor("ci.yml", "name: x\njobs:\n  build:\n    steps:\n      - run: echo hi\n")
	assert.ErrorContains(t, err, "uploads no named artifact")

	_, err = ParseDescriptor("ci.yml", "jobs: [unclosed")
	assert.Error(t, err)
}

func TestPushSet_DescriptorLastAndProtected(t *testing.T) {
	d := Descriptor{Path: DescriptorPath, Content: "fixed"}
	entries := pushSet(map[string]string{
		"main.js":                        "js",
		"./index.html":                   "html",
		"/.github/workflows/android.yml": "tampered",
		"  ":                             "blank",
	}, d)

	require.Len(t, entries, 3)
	assert.Equal(t, pushEntry{Path: "index.html", Content: "html"}, entries[0])
	assert.Equal(t, pushEntry{Path: "main.js", Content: "js"}, entries[1])
	assert.Equal(t, pushEntry{Path: DescriptorPath, Content: "fixed"}, entries[2])
}
