package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JnliaH/ChromaQuant/internal/errs"
	"github.com/JnliaH/ChromaQuant/internal/frame"
)

func sampleFrame(t *testing.T) *frame.Frame {
	t.Helper()
	f, err := frame.FromColumns([]string{"RT", "Component"}, map[string][]frame.Value{
		"RT":        {1.5, 2.25},
		"Component": {"Methane", frame.Missing},
	})
	require.NoError(t, err)
	return f
}

func TestFprintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FprintJSON(&buf, "match", map[string]int{"matched": 2}))

	var got JSONResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.True(t, got.OK)
	assert.Equal(t, "match", got.Command)
	assert.Empty(t, got.Error)
}

func TestFprintJSONError(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FprintJSONError(&buf, "run", errors.New("boom"), ExitSystemError))

	var got JSONResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.False(t, got.OK)
	assert.Equal(t, "boom", got.Error)
	assert.Equal(t, ExitSystemError, got.Code)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitUserError, ExitCode(fmt.Errorf("step: %w", errs.Config("match", "tolerance", -1, "must not be negative"))))
	assert.Equal(t, ExitSystemError, ExitCode(errors.New("disk full")))
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatJSON, ParseFormat("JSON"))
	assert.Equal(t, FormatMarkdown, ParseFormat("md"))
	assert.Equal(t, FormatText, ParseFormat("anything"))
}

func TestWriteFrameText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriterTo(&buf, FormatText).WriteFrame(sampleFrame(t)))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "RT"))
	assert.Contains(t, lines[0], "Component")
	assert.Contains(t, lines[1], "Methane")
}

func TestWriteFrameMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriterTo(&buf, FormatMarkdown).WriteFrame(sampleFrame(t)))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "| RT | Component |", lines[0])
	assert.Equal(t, "| --- | --- |", lines[1])
}

func TestWriteFrameJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriterTo(&buf, FormatJSON).WriteFrame(sampleFrame(t)))

	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "Methane", rows[0]["Component"])
	assert.Nil(t, rows[1]["Component"])
	assert.Equal(t, 2.25, rows[1]["RT"])
}
