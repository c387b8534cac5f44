package board

import (
	"regexp"
	"slices"
	"strings"

	"github.com/cppla/eventboard/models"
)

// ReplyMarker is the title prefix that turns a post into a reply.
const ReplyMarker = "[RE]"

var replyPrefix = regexp.MustCompile(`(?i)^\s*\[re\]\s*`)

// IsReply reports whether title carries the reply marker.
func IsReply(title string) bool {
	return replyPrefix.MatchString(title)
}

// StripReplyMarker removes every leading reply marker from title.
func StripReplyMarker(title string) string {
	for replyPrefix.MatchString(title) {
		title = replyPrefix.ReplaceAllString(title, "")
	}
	return title
}

// SubjectKey is the form of a title used to match replies to questions:
// marker stripped, whitespace collapsed, lower-cased.
func SubjectKey(title string) string {
	return strings.ToLower(strings.Join(strings.Fields(StripReplyMarker(title)), " "))
}

// Collapse folds reply posts into the questions they answer and returns the
// questions newest first. The input is not modified.
func Collapse(posts []models.Post) []models.Thread {
	threads, _ := collapse(posts)
	return threads
}

// collapse also reports which reply post was folded into each question,
// keyed by question id.
func collapse(posts []models.Post) ([]models.Thread, map[int]int) {
	ordered := make([]models.Post, len(posts))
	for i, p := range posts {
		ordered[i] = p.Clone()
	}
	// oldest first, so a reply meets the questions posted before it and the
	// latest of those owns the subject
	slices.SortStableFunc(ordered, compareOldest)

	threads := make([]models.Thread, 0, len(ordered))
	byID := make(map[int]int)
	for _, p := range ordered {
		if !IsReply(p.Title) {
			byID[p.ID] = len(threads)
			threads = append(threads, p)
		}
	}

	absorbed := make(map[int]int)
	bySubject := make(map[string]int)
	for _, p := range ordered {
		if !IsReply(p.Title) {
			bySubject[SubjectKey(p.Title)] = byID[p.ID]
			continue
		}
		if p.Retired {
			continue
		}

		idx, ok := -1, false
		if p.ParentID != 0 {
			idx, ok = byID[p.ParentID]
		}
		if !ok {
			idx, ok = bySubject[SubjectKey(p.Title)]
		}
		if !ok {
			// orphan
			continue
		}

		q := &threads[idx]
		if q.Answer != nil {
			continue
		}
		q.Answer = &models.Answer{
			Content: p.Content,
			Author:  p.Author,
			Date:    p.Date,
			Files:   p.Files,
		}
		absorbed[q.ID] = p.ID
	}

	slices.SortStableFunc(threads, compareNewest)
	return threads, absorbed
}
