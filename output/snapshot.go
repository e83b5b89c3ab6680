package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuan12345678900/Bilibili-user-dynamic-content-crawler/models"
)

// SnapshotPaths lists the files one persisted snapshot produced.
type SnapshotPaths struct {
	HTML     string
	Metadata string
	Report   string
}

// WriteSnapshot persists the raw document plus its metadata record into dir.
// File names derive from the uid and capture time, never from the display
// name (which can contain characters unsuitable for paths).
func WriteSnapshot(dir string, snap *models.Snapshot) (SnapshotPaths, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return SnapshotPaths{}, models.NewCrawlError(models.ErrCodeIOFailure,
			"failed to create output directory", err)
	}

	stem := fmt.Sprintf("%s_%s", snap.UID, snap.CapturedAt.Format(timeStampFn))
	paths := SnapshotPaths{
		HTML:     filepath.Join(dir, stem+"_raw.html"),
		Metadata: filepath.Join(dir, stem+"_metadata.json"),
		Report:   filepath.Join(dir, stem+"_report.txt"),
	}

	if err := os.WriteFile(paths.HTML, []byte(snap.HTML), 0o644); err != nil {
		return paths, models.NewCrawlError(models.ErrCodeIOFailure,
			"failed to write raw snapshot", err)
	}

	meta := models.SnapshotMeta{
		UID:         snap.UID,
		DisplayName: snap.DisplayName,
		CapturedAt:  snap.CapturedAt,
		SourceURL:   snap.SourceURL,
		ByteSize:    len(snap.HTML),
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return paths, models.NewCrawlError(models.ErrCodeIOFailure,
			"failed to encode snapshot metadata", err)
	}
	if err := os.WriteFile(paths.Metadata, data, 0o644); err != nil {
		return paths, models.NewCrawlError(models.ErrCodeIOFailure,
			"failed to write snapshot metadata", err)
	}
	return paths, nil
}
