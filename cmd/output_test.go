package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOutputFormat(t *testing.T) {
	for in, want := range map[string]outputFormat{"": outputTable, "TABLE": outputTable, " json ": outputJSON, "yaml": outputYAML} {
		got, err := parseOutputFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := parseOutputFormat("xml")
	assert.Error(t, err)
}

func TestPrintOutput(t *testing.T) {
	data := []map[string]string{{"provider": "gemini"}}
	rows := [][]string{{"gemini", "gemini API key"}}

	var buf bytes.Buffer
	require.NoError(t, printOutput(&buf, outputTable, data, []string{"provider", "label"}, rows))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "PROVIDER"))
	assert.Contains(t, lines[1], "gemini API key")

	buf.Reset()
	require.NoError(t, printOutput(&buf, outputJSON, data, nil, nil))
	assert.Contains(t, buf.String(), `"provider": "gemini"`)

	buf.Reset()
	require.NoError(t, printOutput(&buf, outputYAML, data, nil, nil))
	assert.Equal(t, "- provider: gemini\n", buf.String())
}
