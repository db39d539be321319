package report

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestWriteStampsAndPersists checks the tool and generated_at stamps and the
// on-disk JSON contents.
func TestWriteStampsAndPersists(t *testing.T) {
	t.Parallel()

	w := NewWriter(t.TempDir())
	payload := map[string]any{"run_id": "abc"}

	path, err := w.Write(context.Background(), "x_make_pip_updates_x", payload)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, ".json"))
	require.Contains(t, path, "x_make_pip_updates_x_")

	// Stamps applied in place.
	require.Equal(t, "x_make_pip_updates_x", payload["tool"])
	require.NotEmpty(t, payload["generated_at"])

	contents, err := os.ReadFile(path)
	require.NoError(t, err)

	var loaded map[string]any
	require.NoError(t, json.Unmarshal(contents, &loaded))
	require.Equal(t, "abc", loaded["run_id"])
	require.Equal(t, "x_make_pip_updates_x", loaded["tool"])
}

// TestWriteNilPayload rejects nil payloads.
func TestWriteNilPayload(t *testing.T) {
	t.Parallel()

	w := NewWriter(t.TempDir())

	_, err := w.Write(context.Background(), "x_make_pip_updates_x", nil)
	require.Error(t, err)
}
