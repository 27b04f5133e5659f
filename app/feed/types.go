package feed

// Content types consumed and produced by the personalization pipeline

// ContentItem is one entry of an incoming content listing. The engine
// reads it; it never mutates or owns it.
type ContentItem struct {
	GUID        string   `json:"guid"`
	Title       string   `json:"title"`
	Link        string   `json:"link,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Author      string   `json:"author,omitempty"`
	Published   string   `json:"published,omitempty"`
}

// Decision is the outcome of filtering one item against a preference
// snapshot. RelevanceDelta is meaningless when Visible is false.
type Decision struct {
	Item           ContentItem `json:"item"`
	Visible        bool        `json:"visible"`
	RelevanceDelta int         `json:"relevance_delta"`
	BlockedBy      string      `json:"blocked_by,omitempty"`
}
