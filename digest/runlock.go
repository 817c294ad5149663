package digest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrAlreadyPublished means a digest for this channel and day was already
// published (or another run for the same key is in flight).
var ErrAlreadyPublished = errors.New("digest already published for this channel and day")

// RunMarker is a per-channel-per-day marker file that suppresses duplicate
// publication when a scheduler triggers the job twice. The marker is created
// exclusively before the run proceeds and removed when the run finishes
// without publishing, so a later retry can go through.
type RunMarker struct {
	Path string
}

// AcquireRunMarker creates the marker for channel+day under dir. It fails with
// ErrAlreadyPublished if the marker already exists.
func AcquireRunMarker(dir, channel string, day time.Time) (*RunMarker, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create marker dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("digest_%s_%s.done", channel, day.Format("20060102")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, ErrAlreadyPublished
		}
		return nil, fmt.Errorf("create run marker: %w", err)
	}
	_, werr := fmt.Fprintln(f, time.Now().UTC().Format(time.RFC3339))
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("write run marker: %w", werr)
	}
	return &RunMarker{Path: path}, nil
}

// Release removes the marker so a later run for the same day may publish.
func (m *RunMarker) Release() error {
	if err := os.Remove(m.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove run marker: %w", err)
	}
	return nil
}
