package parser

import (
	"os"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func selectionOf(t *testing.T, html string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("fixture parse failed: %v", err)
	}
	return doc.Find("body")
}

func TestParseLikeCount(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"plain integer", "128", 128},
		{"ten-thousand magnitude", "3.5万", 35000},
		{"integer magnitude", "2万", 20000},
		{"label prefix", "点赞 1.2万", 12000},
		{"fraction below one", "0.5万", 5000},
		{"inexact float victim", "1.2万", 12000},
		{"two fraction digits", "3.57万", 35700},
		{"no digits", "点赞", 0},
		{"empty", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseLikeCount(tt.text); got != tt.want {
				t.Errorf("parseLikeCount(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestParsePlainCount(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"12", 12},
		{"评论 7", 7},
		{"转发", 0},
		{"", 0},
	}

	for _, tt := range tests {
		if got := parsePlainCount(tt.text); got != tt.want {
			t.Errorf("parsePlainCount(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"//i0.hdslb.com/a.jpg", "https://i0.hdslb.com/a.jpg"},
		{"https://i0.hdslb.com/a.jpg", "https://i0.hdslb.com/a.jpg"},
		{"http://example.com/x", "http://example.com/x"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := normalizeURL(tt.in); got != tt.want {
			t.Errorf("normalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFirstSrcsetCandidate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"//i0.hdslb.com/a@1x.jpg 1x, //i0.hdslb.com/a@2x.jpg 2x", "//i0.hdslb.com/a@1x.jpg"},
		{"//i0.hdslb.com/a.jpg", "//i0.hdslb.com/a.jpg"},
		{"  ", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := firstSrcsetCandidate(tt.in); got != tt.want {
			t.Errorf("firstSrcsetCandidate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractDate(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		wantDate string
	}{
		{
			"date substring",
			`<div class="bili-dyn-time"> 2023年12月1日 08:30 · 投稿了视频 </div>`,
			"2023年12月1日",
		},
		{
			"raw fallback",
			`<div class="bili-dyn-time">昨天</div>`,
			"昨天",
		},
		{
			"missing node",
			`<div></div>`,
			"unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			date, _ := extractDate(selectionOf(t, tt.html))
			if date != tt.wantDate {
				t.Errorf("extractDate = %q, want %q", date, tt.wantDate)
			}
		})
	}
}

func TestExtractImages_SrcsetAndDedup(t *testing.T) {
	sel := selectionOf(t, `
<img src="//i0.hdslb.com/a.jpg">
<img src="https://i0.hdslb.com/a.jpg">
<picture><source srcset="//i0.hdslb.com/b.webp 1x, //i0.hdslb.com/b@2x.webp 2x"></picture>`)

	got := extractImages(sel, nil)
	want := []string{"https://i0.hdslb.com/a.jpg", "https://i0.hdslb.com/b.webp"}
	if len(got) != len(want) {
		t.Fatalf("images = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("images[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExclusionList(t *testing.T) {
	excl := ExclusionList{"hdslb.com/banner", "emoji"}

	if !excl.Excluded("https://i0.hdslb.com/banner/x.png") {
		t.Error("substring containment should exclude")
	}
	if !excl.Excluded("https://cdn.example.com/emoji/smile.png") {
		t.Error("any entry may match anywhere in the URL")
	}
	if excl.Excluded("https://i0.hdslb.com/album/x.png") {
		t.Error("non-matching URL must not be excluded")
	}
	if excl.Excluded("") {
		t.Error("empty URL is never excluded")
	}
	if (ExclusionList)(nil).Excluded("https://anything") {
		t.Error("empty list excludes nothing")
	}
}

func TestLoadExclusions_MissingFileIsNonFatal(t *testing.T) {
	if got := LoadExclusions("definitely/not/here.txt"); len(got) != 0 {
		t.Errorf("missing file should yield an empty list, got %v", got)
	}
}

func TestLoadExclusions_SkipsBlankLines(t *testing.T) {
	path := t.TempDir() + "/excluded.txt"
	content := "hdslb.com/banner\n\n  \nemoji/smile\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("fixture write failed: %v", err)
	}

	got := LoadExclusions(path)
	if len(got) != 2 || got[0] != "hdslb.com/banner" || got[1] != "emoji/smile" {
		t.Errorf("exclusions = %v", got)
	}
}
