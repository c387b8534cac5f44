package models

// DateLayout is the calendar format used for post and answer dates (YYYY.MM.DD).
const DateLayout = "2006.01.02"

// Attachment is a file linked to a post or an answer.
type Attachment struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	SizeMB float64 `json:"sizeMB"`
	URL    string  `json:"url,omitempty"`
	Mime   string  `json:"mime,omitempty"`
}

// Answer is the staff reply embedded in a question.
type Answer struct {
	Content string       `json:"content"`
	Author  string       `json:"author"`
	Date    string       `json:"date"`
	Files   []Attachment `json:"files,omitempty"`
}

// AnswerDraft is what a caller submits for an answer; author and date are
// stamped by the board when it is stored.
type AnswerDraft struct {
	Content string       `json:"content"`
	Files   []Attachment `json:"files,omitempty"`
}

// Post is the stored unit of every board. A post whose title starts with the
// reply marker is a reply post and is folded into its question on read.
type Post struct {
	ID      int          `json:"id"`
	Title   string       `json:"title"`
	Author  string       `json:"author"`
	Date    string       `json:"date"`
	Views   int          `json:"views"`
	Content string       `json:"content"`
	Files   []Attachment `json:"files,omitempty"`
	Pinned  bool         `json:"pinned,omitempty"`
	// ParentID optionally names the question a reply post belongs to.
	ParentID int     `json:"parentId,omitempty"`
	Answer   *Answer `json:"answer"`
	// Retired marks a reply post whose answer was cleared. It stays stored
	// but is no longer folded into its question.
	Retired bool `json:"-"`
}

// Thread is the externally visible record: a question with at most one
// embedded answer and never a reply-marked title.
type Thread = Post

// Clone returns a copy that shares no slices or pointers with p.
func (p Post) Clone() Post {
	out := p
	out.Files = cloneFiles(p.Files)
	if p.Answer != nil {
		a := *p.Answer
		a.Files = cloneFiles(p.Answer.Files)
		out.Answer = &a
	}
	return out
}

func cloneFiles(files []Attachment) []Attachment {
	if files == nil {
		return nil
	}
	out := make([]Attachment, len(files))
	copy(out, files)
	return out
}
