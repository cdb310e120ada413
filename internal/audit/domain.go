package audit

import "time"

// TrailFilters narrows audit trail queries.
type TrailFilters struct {
	From     time.Time
	To       time.Time
	ActorID  int64
	Entity   string
	Action   string
	Page     int
	PageSize int
}

// TrailEntry is one row of the audit trail.
type TrailEntry struct {
	ID       int64          `json:"id"`
	At       time.Time      `json:"occurred_at"`
	ActorID  int64          `json:"actor_id"`
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entity_id"`
	Meta     map[string]any `json:"meta,omitempty"`
}

// PagingInfo carries simple pagination metadata.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// Result bundles trail rows with paging information.
type Result struct {
	Rows   []TrailEntry `json:"rows"`
	Paging PagingInfo   `json:"paging"`
}
