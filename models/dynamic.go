package models

import "time"

// DynamicType classifies one feed entry. Exactly one type is assigned per
// record; see parser.classify for the precedence order.
type DynamicType string

const (
	TypePinned         DynamicType = "pinned"
	TypeSubmittedVideo DynamicType = "submitted_video"
	TypeDynamicVideo   DynamicType = "dynamic_video"
	TypeImagePost      DynamicType = "image_post"
	TypeTextPost       DynamicType = "text_post"
)

// Label returns the human-readable report label for the type.
func (t DynamicType) Label() string {
	switch t {
	case TypePinned:
		return "pinned dynamic"
	case TypeSubmittedVideo:
		return "submitted video"
	case TypeDynamicVideo:
		return "dynamic video"
	case TypeImagePost:
		return "image post"
	case TypeTextPost:
		return "text post"
	}
	return string(t)
}

// VideoInfo carries the video-card fields of a video dynamic.
// Each field independently defaults to "" when the card lacks it.
type VideoInfo struct {
	Title    string `json:"title"`
	Link     string `json:"link"`
	Cover    string `json:"cover"`
	Duration string `json:"duration"`
}

// DynamicRecord is one parsed feed entry.
type DynamicRecord struct {
	Author        string      `json:"author"`
	PublishedDate string      `json:"published_date"`
	Type          DynamicType `json:"type"`
	Text          string      `json:"text"`
	// Images holds absolute, deduplicated media URLs. Order is not
	// significant but is kept stable (document order of first occurrence).
	Images       []string   `json:"images,omitempty"`
	LikeCount    int        `json:"like_count"`
	CommentCount int        `json:"comment_count"`
	ShareCount   int        `json:"share_count"`
	// Video is populated only for TypeSubmittedVideo and TypeDynamicVideo.
	Video *VideoInfo `json:"video,omitempty"`
}

// Snapshot is the single immutable capture of a fully loaded dynamic page.
// Exactly one Snapshot is produced per harvest attempt; it is never mutated
// after construction.
type Snapshot struct {
	UID             string        `json:"uid"`
	DisplayName     string        `json:"display_name"`
	CapturedAt      time.Time     `json:"captured_at"`
	SourceURL       string        `json:"source_url"`
	HTML            string        `json:"-"`
	CaptureDuration time.Duration `json:"capture_duration"`
}

// SnapshotMeta is the persisted metadata record accompanying a raw snapshot.
type SnapshotMeta struct {
	UID         string    `json:"uid"`
	DisplayName string    `json:"display_name"`
	CapturedAt  time.Time `json:"captured_at"`
	SourceURL   string    `json:"source_url"`
	ByteSize    int       `json:"byte_size"`
}
