package models

import "strings"

// BoardKind identifies a board family.
type BoardKind string

const (
	KindNotice  BoardKind = "notice"
	KindFAQ     BoardKind = "faq"
	KindInquiry BoardKind = "inquiry"
)

// ParseBoardKind maps a path segment onto a board family.
func ParseBoardKind(s string) (BoardKind, bool) {
	switch BoardKind(strings.ToLower(strings.TrimSpace(s))) {
	case KindNotice:
		return KindNotice, true
	case KindFAQ:
		return KindFAQ, true
	case KindInquiry:
		return KindInquiry, true
	}
	return "", false
}

// BoardKey addresses one independently seeded collection. An empty EventID
// denotes the site-wide board.
type BoardKey struct {
	EventID string
	Kind    BoardKind
}

// GlobalBoard returns the key of the site-wide board of a family.
func GlobalBoard(kind BoardKind) BoardKey {
	return BoardKey{Kind: kind}
}

// EventBoard returns the key of an event-scoped board.
func EventBoard(eventID string, kind BoardKind) BoardKey {
	return BoardKey{EventID: eventID, Kind: kind}
}

// IsGlobal reports whether the key names a site-wide board.
func (k BoardKey) IsGlobal() bool { return k.EventID == "" }

func (k BoardKey) String() string {
	if k.IsGlobal() {
		return "global:" + string(k.Kind)
	}
	return "event:" + k.EventID + ":" + string(k.Kind)
}

// SearchMode selects the field a keyword is matched against.
type SearchMode string

const (
	SearchByTitle  SearchMode = "by-title"
	SearchByAuthor SearchMode = "by-author"
)

// SortOrder selects list ordering.
type SortOrder string

const (
	SortNewest     SortOrder = "newest"
	SortOldest     SortOrder = "oldest"
	SortMostViewed SortOrder = "most-viewed"
	SortByAuthor   SortOrder = "by-author"
)

// Filter holds the optional list query parameters.
type Filter struct {
	Keyword    string     `json:"keyword" form:"keyword"`
	SearchMode SearchMode `json:"searchMode" form:"search_mode"`
	Sort       SortOrder  `json:"sort" form:"sort"`
}

// Page is one slice of a list result. Total counts the filtered records the
// page was cut from.
type Page struct {
	Rows  []Thread `json:"rows"`
	Total int      `json:"total"`
}
