package models

// CreateInput is the payload of a new post.
type CreateInput struct {
	Title   string       `json:"title" binding:"required"`
	Content string       `json:"content"`
	Date    string       `json:"date"`
	Files   []Attachment `json:"files"`
	Pinned  bool         `json:"pinned"`
	Answer  *AnswerDraft `json:"answer"`
}

// UpdateInput is a partial update. Nil fields are left untouched. When
// SetAnswer is true the answer is replaced by Answer, or cleared if Answer
// is nil.
type UpdateInput struct {
	Title     *string
	Content   *string
	Pinned    *bool
	SetAnswer bool
	Answer    *AnswerDraft
}
