package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventRecommend  EventType = "recommend"
	EventIndexBook  EventType = "index_book"
	EventBadPattern EventType = "bad_pattern"
)

// Search modes.
const (
	ModeTerm     = "term"
	ModePattern  = "pattern"
	ModeAdvanced = "advanced"
)

// SearchEvent describes one answered (or rejected) search.
type SearchEvent struct {
	Type      EventType `json:"type"`
	Mode      string    `json:"mode"`
	Pattern   string    `json:"pattern"`
	Order     string    `json:"order"`
	Results   int       `json:"results"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// RecommendEvent describes one recommendation lookup.
type RecommendEvent struct {
	Type      EventType `json:"type"`
	BookID    int64     `json:"book_id"`
	Results   int       `json:"results"`
	LatencyMs int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// IndexEvent is emitted by the indexer after an occurrence index is written.
type IndexEvent struct {
	Type      EventType `json:"type"`
	BookID    int64     `json:"book_id"`
	Words     int       `json:"words"`
	LatencyMs int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
}

// envelope is decoded first to pick the concrete event type.
type envelope struct {
	Type EventType `json:"type"`
}
