package board

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/cppla/eventboard/models"
)

// Options tune a Service. Zero values fall back to the defaults below.
type Options struct {
	// PinnedCap bounds how many pinned notices precede every page of the
	// site-wide notice board. Negative disables pinning.
	PinnedCap int
	// FallbackAuthor stamps posts whose actor is blank.
	FallbackAuthor string
	// Language drives the by-author collation.
	Language language.Tag
	// Sanitize cleans rich-text bodies before they are stored.
	Sanitize func(string) string
	Now      func() time.Time
}

const (
	DefaultPinnedCap      = 3
	DefaultFallbackAuthor = "admin"
)

// Service serves list, detail and mutations over a Store.
type Service struct {
	store *Store
	opts  Options
}

// NewService wraps store.
func NewService(store *Store, opts Options) *Service {
	if opts.PinnedCap == 0 {
		opts.PinnedCap = DefaultPinnedCap
	}
	if strings.TrimSpace(opts.FallbackAuthor) == "" {
		opts.FallbackAuthor = DefaultFallbackAuthor
	}
	if opts.Language == language.Und {
		opts.Language = language.Korean
	}
	if opts.Sanitize == nil {
		opts.Sanitize = func(s string) string { return s }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{store: store, opts: opts}
}

// Store returns the underlying store.
func (s *Service) Store() *Store { return s.store }

// view is the board as readers see it: inquiry boards collapsed, the rest
// copied as stored with any reply marker dropped from the title.
func (s *Service) view(key models.BoardKey) []models.Thread {
	posts := s.store.Posts(key)
	if key.Kind == models.KindInquiry {
		return Collapse(posts)
	}
	out := make([]models.Thread, len(posts))
	for i, p := range posts {
		out[i] = p.Clone()
		out[i].Title = StripReplyMarker(p.Title)
	}
	return out
}

// cleanTitle trims title. Only inquiry boards have reply posts, so elsewhere
// the reply marker is removed as well.
func cleanTitle(key models.BoardKey, title string) string {
	if key.Kind != models.KindInquiry {
		title = StripReplyMarker(title)
	}
	return strings.TrimSpace(title)
}

func pinsNotices(key models.BoardKey) bool {
	return key.Kind == models.KindNotice && key.IsGlobal()
}

// List returns one page of the board after filtering and sorting.
func (s *Service) List(key models.BoardKey, page, pageSize int, f models.Filter) models.Page {
	rows := Query(s.view(key), f, s.opts.Language)
	if pinsNotices(key) && s.opts.PinnedCap > 0 {
		return PaginatePinned(rows, page, pageSize, s.opts.PinnedCap)
	}
	return Paginate(rows, page, pageSize)
}

// Detail returns the thread with id. Reply posts of inquiry boards are not
// addressable on their own.
func (s *Service) Detail(key models.BoardKey, id int) (models.Thread, bool) {
	for _, t := range s.view(key) {
		if t.ID == id {
			return t, true
		}
	}
	return models.Thread{}, false
}

// Create stores a new post at the head of the board and returns it.
func (s *Service) Create(key models.BoardKey, in models.CreateInput, actor string) models.Thread {
	author := s.author(actor)
	date, ok := NormalizeDate(in.Date)
	if !ok {
		date = s.today()
	}

	post := models.Post{
		ID:      s.store.NextID(key),
		Title:   cleanTitle(key, in.Title),
		Author:  author,
		Date:    date,
		Views:   0,
		Content: s.opts.Sanitize(in.Content),
		Files:   normalizeFiles(in.Files),
	}
	if key.Kind == models.KindNotice {
		post.Pinned = in.Pinned
	}
	if in.Answer != nil {
		post.Answer = s.stampAnswer(*in.Answer, author, date)
	}

	s.store.Insert(key, post)
	return post.Clone()
}

// Update applies in to the post with id and reports whether it exists.
// Unknown ids are ignored.
func (s *Service) Update(key models.BoardKey, id int, in models.UpdateInput, actor string) bool {
	post, ok := s.store.Lookup(key, id)
	if !ok {
		return false
	}
	if in.Title != nil {
		post.Title = cleanTitle(key, *in.Title)
	}
	if in.Content != nil {
		post.Content = s.opts.Sanitize(*in.Content)
	}
	if in.Pinned != nil && key.Kind == models.KindNotice {
		post.Pinned = *in.Pinned
	}
	if !in.SetAnswer {
		return true
	}
	if in.Answer != nil {
		post.Answer = s.stampAnswer(*in.Answer, s.author(actor), s.today())
		return true
	}
	post.Answer = nil
	s.retireReplies(key, id)
	return true
}

// retireReplies marks the reply posts that would otherwise be folded back
// into question id once its stored answer is cleared. They stay in the store
// until deleted.
func (s *Service) retireReplies(key models.BoardKey, id int) {
	if key.Kind != models.KindInquiry {
		return
	}
	for {
		_, absorbed := collapse(s.store.Posts(key))
		replyID, ok := absorbed[id]
		if !ok {
			return
		}
		reply, found := s.store.Lookup(key, replyID)
		if !found || reply.Retired {
			return
		}
		reply.Retired = true
	}
}

// Delete removes the post with id, if any.
func (s *Service) Delete(key models.BoardKey, id int) bool {
	return s.store.Remove(key, id)
}

// Reply sets the answer of post id, replacing any existing one.
func (s *Service) Reply(key models.BoardKey, id int, draft models.AnswerDraft, actor string) bool {
	post, ok := s.store.Lookup(key, id)
	if !ok {
		return false
	}
	post.Answer = s.stampAnswer(draft, s.author(actor), s.today())
	return true
}

func (s *Service) stampAnswer(draft models.AnswerDraft, author, date string) *models.Answer {
	return &models.Answer{
		Content: s.opts.Sanitize(draft.Content),
		Author:  author,
		Date:    date,
		Files:   normalizeFiles(draft.Files),
	}
}

func (s *Service) author(actor string) string {
	if a := strings.TrimSpace(actor); a != "" {
		return a
	}
	return s.opts.FallbackAuthor
}

func (s *Service) today() string {
	return s.opts.Now().Format(models.DateLayout)
}

// normalizeFiles copies files, giving every attachment a non-empty id that
// is unique within the list and a non-negative size.
func normalizeFiles(files []models.Attachment) []models.Attachment {
	if len(files) == 0 {
		return nil
	}
	out := make([]models.Attachment, 0, len(files))
	seen := make(map[string]struct{}, len(files))
	for _, f := range files {
		f.ID = strings.TrimSpace(f.ID)
		if _, dup := seen[f.ID]; f.ID == "" || dup {
			f.ID = uuid.NewString()
		}
		seen[f.ID] = struct{}{}
		if f.SizeMB < 0 {
			f.SizeMB = 0
		}
		out = append(out, f)
	}
	return out
}

var dateLayouts = []string{models.DateLayout, "2006-01-02", "2006/01/02"}

// NormalizeDate parses a YYYY.MM.DD date (dashes and slashes are accepted
// too) and returns it in the canonical layout.
func NormalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(models.DateLayout), true
		}
	}
	return "", false
}
