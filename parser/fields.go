package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/xuan12345678900/Bilibili-user-dynamic-content-crawler/models"
)

// Precompiled matchers for the dynamic-list markup. The feed interleaves
// structurally distinct item shapes, so every rule below tolerates missing
// structure and falls back to a stated default.
var (
	itemMatcher       = cascadia.MustCompile(".bili-dyn-list__item")
	authorMatcher     = cascadia.MustCompile(".bili-dyn-title__text")
	timeMatcher       = cascadia.MustCompile(".bili-dyn-time")
	richTextMatcher   = cascadia.MustCompile(".bili-rich-text__content")
	videoDescMatcher  = cascadia.MustCompile(".bili-dyn-card-video__desc")
	imgMatcher        = cascadia.MustCompile("img[src]")
	sourceMatcher     = cascadia.MustCompile("source[srcset]")
	likeMatcher       = cascadia.MustCompile(".bili-dyn-action.like")
	commentMatcher    = cascadia.MustCompile(".bili-dyn-action.comment")
	forwardMatcher    = cascadia.MustCompile(".bili-dyn-action.forward")
	videoCardMatcher  = cascadia.MustCompile(".bili-dyn-card-video")
	videoTitleMatcher = cascadia.MustCompile(".bili-dyn-card-video__title")
	videoCoverMatcher = cascadia.MustCompile(".bili-dyn-card-video__cover img[src]")
	durationMatcher   = cascadia.MustCompile(".duration-time")
	albumMatcher      = cascadia.MustCompile(".bili-album")
)

var (
	dateRe  = regexp.MustCompile(`\d{4}年\d{1,2}月\d{1,2}日`)
	likeRe  = regexp.MustCompile(`(\d+(?:\.\d+)?)(万)?`)
	countRe = regexp.MustCompile(`\d+`)
)

const unknownField = "unknown"

// extractAuthor reads the entry author from the title node.
func extractAuthor(item *goquery.Selection) string {
	name := strings.TrimSpace(item.FindMatcher(authorMatcher).First().Text())
	if name == "" {
		return unknownField
	}
	return name
}

// extractDate returns the year-month-day substring of the time node, falling
// back to the raw trimmed text. The raw text is returned as well because
// classification needs its markers (e.g. the submitted-video phrase).
func extractDate(item *goquery.Selection) (date, raw string) {
	raw = strings.TrimSpace(item.FindMatcher(timeMatcher).First().Text())
	if m := dateRe.FindString(raw); m != "" {
		return m, raw
	}
	if raw != "" {
		return raw, raw
	}
	return unknownField, ""
}

// extractRichText reads the rich-text content node with inline emoji images
// and icons skipped. Returns "" when the node is absent or empty.
func extractRichText(item *goquery.Selection) string {
	rich := item.FindMatcher(richTextMatcher).First()
	if rich.Length() == 0 {
		return ""
	}
	var b strings.Builder
	for _, n := range rich.Nodes {
		appendVisibleText(&b, n)
	}
	return strings.TrimSpace(b.String())
}

// appendVisibleText collects text content, skipping img and svg subtrees
// (emoji and decorative icons render as text garbage otherwise).
func appendVisibleText(b *strings.Builder, n *html.Node) {
	if n.Type == html.ElementNode && (n.Data == "img" || n.Data == "svg") {
		return
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		appendVisibleText(b, c)
	}
}

// extractText resolves the record body: rich text first, video description
// as the fallback, "" as the default.
func extractText(item *goquery.Selection, richText string) string {
	if richText != "" {
		return richText
	}
	return strings.TrimSpace(item.FindMatcher(videoDescMatcher).First().Text())
}

// extractImages gathers every image source and the first candidate of every
// srcset, normalizes protocol-relative URLs, drops exclusions and
// deduplicates while keeping document order of first occurrence.
func extractImages(item *goquery.Selection, excl ExclusionList) []string {
	seen := make(map[string]struct{})
	var out []string

	add := func(raw string) {
		u := normalizeURL(raw)
		if u == "" || excl.Excluded(u) {
			return
		}
		if _, dup := seen[u]; dup {
			return
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}

	item.FindMatcher(imgMatcher).Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		add(src)
	})
	item.FindMatcher(sourceMatcher).Each(func(_ int, s *goquery.Selection) {
		srcset, _ := s.Attr("srcset")
		add(firstSrcsetCandidate(srcset))
	})
	return out
}

// firstSrcsetCandidate extracts the URL of the first srcset entry
// ("url1 1x, url2 2x" → "url1").
func firstSrcsetCandidate(srcset string) string {
	first := strings.TrimSpace(strings.SplitN(srcset, ",", 2)[0])
	if fields := strings.Fields(first); len(fields) > 0 {
		return fields[0]
	}
	return ""
}

// normalizeURL rewrites protocol-relative URLs to https. All produced links
// are scheme-qualified.
func normalizeURL(u string) string {
	if strings.HasPrefix(u, "//") {
		return "https:" + u
	}
	return u
}

// parseLikeCount parses the like-action counter. A trailing 万 marker
// multiplies the decimal prefix by ten thousand, truncated to an integer;
// anything unparsable counts as zero.
func parseLikeCount(text string) int {
	m := likeRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	if m[2] != "" {
		return scaleTenThousand(m[1])
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return int(n)
}

// scaleTenThousand multiplies a decimal string by 10000 exactly, truncating
// fractional digits finer than the marker's precision. Floating point would
// turn 1.2万 into 11999.
func scaleTenThousand(s string) int {
	intPart, fracPart, _ := strings.Cut(s, ".")
	n, err := strconv.Atoi(intPart)
	if err != nil {
		return 0
	}
	if len(fracPart) > 4 {
		fracPart = fracPart[:4]
	}
	for len(fracPart) < 4 {
		fracPart += "0"
	}
	frac, err := strconv.Atoi(fracPart)
	if err != nil {
		return n * 10000
	}
	return n*10000 + frac
}

// parsePlainCount parses a plain integer counter, defaulting to zero.
func parsePlainCount(text string) int {
	m := countRe.FindString(text)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

// extractCounts reads the like/comment/share action counters.
func extractCounts(item *goquery.Selection) (like, comment, share int) {
	like = parseLikeCount(strings.TrimSpace(item.FindMatcher(likeMatcher).First().Text()))
	comment = parsePlainCount(strings.TrimSpace(item.FindMatcher(commentMatcher).First().Text()))
	share = parsePlainCount(strings.TrimSpace(item.FindMatcher(forwardMatcher).First().Text()))
	return like, comment, share
}

// extractVideo reads the video-card fields, each independently defaulting to
// "". The cover is subject to the exclusion list like any other media URL.
func extractVideo(item *goquery.Selection, excl ExclusionList) *models.VideoInfo {
	v := &models.VideoInfo{
		Title:    strings.TrimSpace(item.FindMatcher(videoTitleMatcher).First().Text()),
		Duration: strings.TrimSpace(item.FindMatcher(durationMatcher).First().Text()),
	}
	if href, ok := item.FindMatcher(videoCardMatcher).First().Attr("href"); ok {
		v.Link = normalizeURL(href)
	}
	if src, ok := item.FindMatcher(videoCoverMatcher).First().Attr("src"); ok {
		if cover := normalizeURL(src); !excl.Excluded(cover) {
			v.Cover = cover
		}
	}
	return v
}
