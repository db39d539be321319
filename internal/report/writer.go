package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/x4357/pip-updates/internal/config"
	"github.com/x4357/pip-updates/internal/logger"
)

// filenameTimeLayout keeps report filenames sortable and unique per run.
const filenameTimeLayout = "20060102T150405.000000000Z"

// errNilPayload is returned when a nil payload is passed to Write.
var errNilPayload = errors.New("report payload is nil")

// Writer persists run reports to a directory on disk.
type Writer struct {
	// dir is the directory reports are written into, created on demand.
	dir string
	// mu serializes writes from a single process.
	mu sync.Mutex
}

// NewWriter creates a report writer rooted at the provided directory.
func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = config.DefaultReportDirectory
	}

	return &Writer{dir: filepath.Clean(dir)}
}

// Write stamps the payload with the tool name and generation timestamp and
// persists it as <tool>_<timestamp>.json, returning the full path.
// The payload is mutated in place, mirroring how the run assembles it.
func (w *Writer) Write(ctx context.Context, tool string, payload map[string]any) (string, error) {
	if payload == nil {
		return "", errNilPayload
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now().UTC()
	payload["tool"] = tool
	payload["generated_at"] = now.Format(time.RFC3339)

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}

	if err = os.MkdirAll(w.dir, 0o750); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}

	path := filepath.Join(w.dir, fmt.Sprintf("%s_%s.json", tool, now.Format(filenameTimeLayout)))
	if err = os.WriteFile(path, data, config.DefaultFilePermissions); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}

	logger.InfoKV(ctx, "Run report written", "path", path)

	return path, nil
}
