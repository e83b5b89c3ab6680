package parser

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/xuan12345678900/Bilibili-user-dynamic-content-crawler/config"
	"github.com/xuan12345678900/Bilibili-user-dynamic-content-crawler/models"
)

func testConfig() config.ParserConfig {
	return config.ParserConfig{
		PinnedDate:   "2022年05月14日",
		PinnedText:   "永远要相信自己",
		SubmitMarker: "投稿了视频",
	}
}

func snapshotOf(items ...string) *models.Snapshot {
	var b strings.Builder
	b.WriteString(`<html><body><div class="bili-dyn-list">`)
	for _, it := range items {
		b.WriteString(`<div class="bili-dyn-list__item"><div class="bili-dyn-item">`)
		b.WriteString(it)
		b.WriteString(`</div></div>`)
	}
	b.WriteString(`</div></body></html>`)
	return &models.Snapshot{
		UID:        "42",
		SourceURL:  "https://space.bilibili.com/42/dynamic",
		CapturedAt: time.Now(),
		HTML:       b.String(),
	}
}

const textItem = `
<div class="bili-dyn-title__text"> 测试用户 </div>
<div class="bili-dyn-time">2024年1月2日 12:00</div>
<div class="bili-rich-text__content">今天天气不错<img src="//i0.hdslb.com/emoji/smile.png">继续加油</div>
<div class="bili-dyn-action like">3.5万</div>
<div class="bili-dyn-action comment">12</div>
<div class="bili-dyn-action forward">3</div>`

const videoItem = `
<div class="bili-dyn-title__text">测试用户</div>
<div class="bili-dyn-time">2024年3月4日 · 投稿了视频</div>
<a class="bili-dyn-card-video" href="//www.bilibili.com/video/BV1xx411c7mD">
  <div class="bili-dyn-card-video__cover"><img src="//i1.hdslb.com/cover/abc.jpg"></div>
  <div class="bili-dyn-card-video__title">新视频来了</div>
  <div class="bili-dyn-card-video__desc">这是视频简介</div>
  <span class="duration-time">12:34</span>
</a>
<div class="bili-dyn-action like">128</div>
<div class="bili-dyn-action comment">7</div>
<div class="bili-dyn-action forward">2</div>`

const galleryItem = `
<div class="bili-dyn-title__text">测试用户</div>
<div class="bili-dyn-time">2024年5月6日</div>
<div class="bili-rich-text__content">两张图</div>
<div class="bili-album">
  <img src="//i2.hdslb.com/album/one.jpg">
  <img src="//i2.hdslb.com/banner/blocked.png">
</div>
<div class="bili-dyn-action like">9</div>`

func TestExtract_EndToEnd(t *testing.T) {
	snap := snapshotOf(textItem, videoItem, galleryItem)
	excl := ExclusionList{"banner/blocked"}

	records, err := New(testConfig()).Extract(snap, excl)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	text, video, gallery := records[0], records[1], records[2]

	if text.Type != models.TypeTextPost {
		t.Errorf("record 0 type = %s, want text post", text.Type)
	}
	if text.Author != "测试用户" {
		t.Errorf("author = %q", text.Author)
	}
	if text.PublishedDate != "2024年1月2日" {
		t.Errorf("date = %q", text.PublishedDate)
	}
	if text.Text != "今天天气不错继续加油" {
		t.Errorf("text = %q, emoji image should be stripped", text.Text)
	}
	if text.LikeCount != 35000 {
		t.Errorf("like count = %d, want 35000", text.LikeCount)
	}
	if text.CommentCount != 12 || text.ShareCount != 3 {
		t.Errorf("counts = %d/%d, want 12/3", text.CommentCount, text.ShareCount)
	}
	if text.Video != nil {
		t.Error("text post must not carry video info")
	}

	if video.Type != models.TypeSubmittedVideo {
		t.Errorf("record 1 type = %s, want submitted video", video.Type)
	}
	if video.Video == nil || video.Video.Title != "新视频来了" {
		t.Fatalf("video info = %+v, want non-empty title", video.Video)
	}
	if video.Video.Link != "https://www.bilibili.com/video/BV1xx411c7mD" {
		t.Errorf("video link = %q, want scheme-qualified", video.Video.Link)
	}
	if video.Video.Cover != "https://i1.hdslb.com/cover/abc.jpg" {
		t.Errorf("video cover = %q", video.Video.Cover)
	}
	if video.Video.Duration != "12:34" {
		t.Errorf("video duration = %q", video.Video.Duration)
	}
	if video.Text != "这是视频简介" {
		t.Errorf("video text = %q, want the description fallback", video.Text)
	}
	if video.LikeCount != 128 {
		t.Errorf("video like count = %d, want 128", video.LikeCount)
	}

	if gallery.Type != models.TypeImagePost {
		t.Errorf("record 2 type = %s, want image post", gallery.Type)
	}
	if len(gallery.Images) != 1 {
		t.Fatalf("gallery images = %v, want exactly 1 after exclusion", gallery.Images)
	}
	if gallery.Images[0] != "https://i2.hdslb.com/album/one.jpg" {
		t.Errorf("gallery image = %q", gallery.Images[0])
	}
}

func TestExtract_Idempotent(t *testing.T) {
	snap := snapshotOf(textItem, videoItem, galleryItem)
	e := New(testConfig())

	first, err := e.Extract(snap, nil)
	if err != nil {
		t.Fatalf("first extract failed: %v", err)
	}
	second, err := e.Extract(snap, nil)
	if err != nil {
		t.Fatalf("second extract failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("extracting the same snapshot twice produced different sequences")
	}
}

func TestExtract_NoExclusionEverMatches(t *testing.T) {
	snap := snapshotOf(textItem, videoItem, galleryItem)
	excl := ExclusionList{"hdslb.com/emoji", "banner/blocked"}

	records, err := New(testConfig()).Extract(snap, excl)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	for _, rec := range records {
		for _, img := range rec.Images {
			for _, sub := range excl {
				if strings.Contains(img, sub) {
					t.Errorf("image %q matches exclusion %q", img, sub)
				}
			}
		}
		if rec.Video != nil {
			for _, sub := range excl {
				if rec.Video.Cover != "" && strings.Contains(rec.Video.Cover, sub) {
					t.Errorf("cover %q matches exclusion %q", rec.Video.Cover, sub)
				}
			}
		}
	}
}

func TestClassify_VideoBeatsGallery(t *testing.T) {
	// A video card alongside gallery-like thumbnails must classify as video.
	item := `
<div class="bili-dyn-time">2024年3月4日</div>
<a class="bili-dyn-card-video" href="//www.bilibili.com/video/BV1yy">
  <div class="bili-dyn-card-video__title">视频</div>
</a>
<div class="bili-album"><img src="//i2.hdslb.com/a.jpg"></div>`

	records, err := New(testConfig()).Extract(snapshotOf(item), nil)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if got := records[0].Type; got != models.TypeDynamicVideo {
		t.Errorf("type = %s, want dynamic video (never image post)", got)
	}
}

func TestClassify_PinnedRequiresBothSentinels(t *testing.T) {
	dateOnly := `
<div class="bili-dyn-time">2022年05月14日</div>
<div class="bili-rich-text__content">完全无关的内容</div>`

	both := `
<div class="bili-dyn-time">2022年05月14日</div>
<div class="bili-rich-text__content">永远要相信自己 并且坚定地前进</div>`

	records, err := New(testConfig()).Extract(snapshotOf(dateOnly, both), nil)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Type == models.TypePinned {
		t.Error("a coincidental date match alone must never classify as pinned")
	}
	if records[1].Type != models.TypePinned {
		t.Errorf("type = %s, want pinned when both sentinels match", records[1].Type)
	}
}

func TestExtract_MissingEverythingGetsDefaults(t *testing.T) {
	records, err := New(testConfig()).Extract(snapshotOf(`<div class="bili-dyn-content"></div>`), nil)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.Author != "unknown" || rec.PublishedDate != "unknown" {
		t.Errorf("defaults = %q/%q, want unknown/unknown", rec.Author, rec.PublishedDate)
	}
	if rec.Text != "" || len(rec.Images) != 0 {
		t.Errorf("expected empty text and images, got %q / %v", rec.Text, rec.Images)
	}
	if rec.LikeCount != 0 || rec.CommentCount != 0 || rec.ShareCount != 0 {
		t.Error("counters must default to zero")
	}
	if rec.Type != models.TypeTextPost {
		t.Errorf("type = %s, want text post", rec.Type)
	}
}
