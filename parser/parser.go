// Package parser turns one captured page snapshot into an ordered sequence
// of typed dynamic records. Extraction is defensive: every field rule
// tolerates missing markup, and a malformed item is logged and skipped
// without aborting the pass.
package parser

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/xuan12345678900/Bilibili-user-dynamic-content-crawler/config"
	"github.com/xuan12345678900/Bilibili-user-dynamic-content-crawler/models"
)

// Extractor parses snapshots. The pinned-entry sentinels and the
// submitted-video marker are injected because they vary per account.
type Extractor struct {
	pinnedDate   string
	pinnedText   string
	submitMarker string
}

// New creates an Extractor from the parser configuration.
func New(cfg config.ParserConfig) *Extractor {
	e := &Extractor{
		pinnedDate:   cfg.PinnedDate,
		pinnedText:   cfg.PinnedText,
		submitMarker: cfg.SubmitMarker,
	}
	if e.submitMarker == "" {
		e.submitMarker = "投稿了视频"
	}
	return e
}

// Extract parses the snapshot into records in document order. Extracting the
// same snapshot twice yields identical sequences; the snapshot is never
// mutated.
func (e *Extractor) Extract(snap *models.Snapshot, excl ExclusionList) ([]models.DynamicRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snap.HTML))
	if err != nil {
		return nil, models.NewCrawlError(models.ErrCodeInvalidInput,
			"snapshot document is not parseable", err)
	}

	records := make([]models.DynamicRecord, 0)
	doc.FindMatcher(itemMatcher).Each(func(i int, item *goquery.Selection) {
		rec, itemErr := e.extractItem(item, excl)
		if itemErr != nil {
			slog.Warn("skipping malformed feed item", "index", i, "error", itemErr)
			return
		}
		records = append(records, *rec)
	})

	slog.Info("extraction complete", "uid", snap.UID, "records", len(records))
	return records, nil
}

// extractItem evaluates every field rule independently and assembles one
// record. A panic inside a rule is confined to this item.
func (e *Extractor) extractItem(item *goquery.Selection, excl ExclusionList) (rec *models.DynamicRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = models.NewCrawlError(models.ErrCodeMalformedItem,
				fmt.Sprintf("item extraction panicked: %v", r), nil)
		}
	}()

	date, rawTime := extractDate(item)
	richText := extractRichText(item)
	text := extractText(item, richText)
	like, comment, share := extractCounts(item)

	record := models.DynamicRecord{
		Author:        extractAuthor(item),
		PublishedDate: date,
		Type:          e.classify(item, rawTime, date, richText),
		Text:          text,
		Images:        extractImages(item, excl),
		LikeCount:     like,
		CommentCount:  comment,
		ShareCount:    share,
	}
	if record.Type == models.TypeSubmittedVideo || record.Type == models.TypeDynamicVideo {
		record.Video = extractVideo(item, excl)
	}
	return &record, nil
}

// classify assigns exactly one type per record via a strict precedence:
// pinned, then video card, then gallery, then plain text. Pinned requires
// the conjunction of both sentinels so a coincidental date match alone never
// classifies as pinned. Video beats gallery because a video card can carry
// gallery-like thumbnails.
func (e *Extractor) classify(item *goquery.Selection, rawTime, date, richText string) models.DynamicType {
	if e.pinnedDate != "" && e.pinnedText != "" &&
		date == e.pinnedDate && strings.Contains(richText, e.pinnedText) {
		return models.TypePinned
	}
	if item.FindMatcher(videoCardMatcher).Length() > 0 {
		if strings.Contains(rawTime, e.submitMarker) {
			return models.TypeSubmittedVideo
		}
		return models.TypeDynamicVideo
	}
	if item.FindMatcher(albumMatcher).Length() > 0 {
		return models.TypeImagePost
	}
	return models.TypeTextPost
}
