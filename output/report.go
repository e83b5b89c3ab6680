// Package output persists harvest results: the raw snapshot with its
// metadata record, and a human-readable report of the extracted records.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/xuan12345678900/Bilibili-user-dynamic-content-crawler/models"
)

const (
	blockRule   = "================================================================================"
	recordRule  = "----------------------------------------"
	timeStampFn = "20060102_150405"
	timeStampHd = "2006-01-02 15:04:05"
)

// RenderReport writes one block per record: ordinal, author, date, type,
// text, one media link per line, the three counters and, for video entries,
// the video fields. Blocks are separated by a fixed rule line.
func RenderReport(w io.Writer, snap *models.Snapshot, records []models.DynamicRecord, now time.Time) error {
	var b strings.Builder

	b.WriteString("Bilibili dynamic feed report\n")
	fmt.Fprintf(&b, "User: %s (UID %s)\n", snap.DisplayName, snap.UID)
	fmt.Fprintf(&b, "Source: %s\n", snap.SourceURL)
	fmt.Fprintf(&b, "Generated: %s\n", now.Format(timeStampHd))
	b.WriteString(blockRule + "\n\n")

	for i, rec := range records {
		fmt.Fprintf(&b, "Dynamic #%d\n", i+1)
		b.WriteString(recordRule + "\n")
		fmt.Fprintf(&b, "Author: %s\n", rec.Author)
		fmt.Fprintf(&b, "Published: %s\n", rec.PublishedDate)
		fmt.Fprintf(&b, "Type: %s\n", rec.Type.Label())
		fmt.Fprintf(&b, "Text: %s\n", rec.Text)

		if len(rec.Images) > 0 {
			b.WriteString("Images:\n")
			for _, img := range rec.Images {
				fmt.Fprintf(&b, "  - %s\n", img)
			}
		}

		fmt.Fprintf(&b, "Likes: %d\n", rec.LikeCount)
		fmt.Fprintf(&b, "Comments: %d\n", rec.CommentCount)
		fmt.Fprintf(&b, "Shares: %d\n", rec.ShareCount)

		if rec.Video != nil && rec.Video.Title != "" {
			fmt.Fprintf(&b, "Video title: %s\n", rec.Video.Title)
			fmt.Fprintf(&b, "Video link: %s\n", rec.Video.Link)
			fmt.Fprintf(&b, "Video cover: %s\n", rec.Video.Cover)
			fmt.Fprintf(&b, "Video duration: %s\n", rec.Video.Duration)
		}

		b.WriteString("\n" + blockRule + "\n\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteReport renders the report to a file. A write fault is reported as an
// IOFailure; the in-memory records stay valid for the caller.
func WriteReport(path string, snap *models.Snapshot, records []models.DynamicRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return models.NewCrawlError(models.ErrCodeIOFailure,
			"failed to create report file", err)
	}
	defer f.Close()

	if err := RenderReport(f, snap, records, time.Now()); err != nil {
		return models.NewCrawlError(models.ErrCodeIOFailure,
			"failed to write report file", err)
	}
	return nil
}
