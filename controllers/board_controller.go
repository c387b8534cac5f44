package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/cppla/eventboard/board"
	"github.com/cppla/eventboard/config"
	"github.com/cppla/eventboard/middleware"
	"github.com/cppla/eventboard/models"
	"github.com/cppla/eventboard/utils"
)

// ListCache stores encoded list pages outside the engine.
type ListCache interface {
	Get(key string) ([]byte, bool)
	Set(key string, b []byte)
	InvalidateByPrefix(prefix string)
}

// BoardController serves the notice, FAQ and inquiry boards, site-wide and
// per event. The board engine is not safe for concurrent use, so every call
// into it happens under mu.
type BoardController struct {
	mu    sync.Mutex
	svc   *board.Service
	cache ListCache
	// maxEventBoards caps materialized event boards; zero means no cap
	maxEventBoards int
}

// NewBoardController creates a controller over svc. cache may be nil.
func NewBoardController(svc *board.Service, cache ListCache) *BoardController {
	return &BoardController{
		svc:            svc,
		cache:          cache,
		maxEventBoards: config.Get().MaxEventBoards,
	}
}

// locked runs fn with mu held.
func (b *BoardController) locked(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn()
}

// openBoard materializes the board before the engine reads it. The seed may
// come from a remote source, so it is fetched without holding mu and
// installed afterwards. A new event board past the cap is refused.
func (b *BoardController) openBoard(ctx *gin.Context, key models.BoardKey) bool {
	store := b.svc.Store()

	var seeded, full bool
	b.locked(func() {
		seeded = store.Seeded(key)
		full = !seeded && b.boardLimitReached(key)
	})
	if !seeded && !full {
		posts := store.Seeder().Seed(key)
		b.locked(func() {
			switch {
			case store.Seeded(key):
			case b.boardLimitReached(key):
				full = true
			default:
				store.Seed(key, posts)
			}
		})
	}
	if full {
		utils.Sugar.Warnf("refusing board %s: %d event boards open", key, b.maxEventBoards)
		utils.Error(ctx, http.StatusServiceUnavailable, 50301, "too many event boards")
		return false
	}
	return true
}

// boardLimitReached must be called with mu held.
func (b *BoardController) boardLimitReached(key models.BoardKey) bool {
	return !key.IsGlobal() && b.maxEventBoards > 0 && b.svc.Store().EventBoards() >= b.maxEventBoards
}

type updateRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
	Pinned  *bool   `json:"pinned"`
	// absent leaves the answer alone, null clears it
	Answer json.RawMessage `json:"answer"`
}

func (r updateRequest) toInput() (models.UpdateInput, error) {
	in := models.UpdateInput{Title: r.Title, Content: r.Content, Pinned: r.Pinned}
	if len(r.Answer) == 0 {
		return in, nil
	}
	in.SetAnswer = true
	if bytes.Equal(bytes.TrimSpace(r.Answer), []byte("null")) {
		return in, nil
	}
	var draft models.AnswerDraft
	if err := json.Unmarshal(r.Answer, &draft); err != nil {
		return in, err
	}
	in.Answer = &draft
	return in, nil
}

// List returns one page of a board.
func (b *BoardController) List(ctx *gin.Context) {
	key, ok := boardKey(ctx)
	if !ok {
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	var f models.Filter
	if err := ctx.ShouldBindQuery(&f); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, "invalid query parameters")
		return
	}
	f = board.NormalizeFilter(f)

	cacheKey := utils.BoardCacheKey(key.String(), page, pageSize, url.Values{
		"keyword":     {f.Keyword},
		"search_mode": {string(f.SearchMode)},
		"sort":        {string(f.Sort)},
	})
	if b.cache != nil {
		if raw, ok := b.cache.Get(cacheKey); ok {
			utils.SuccessRaw(ctx, raw)
			return
		}
	}

	if !b.openBoard(ctx, key) {
		return
	}

	var payload gin.H
	b.locked(func() {
		result := b.svc.List(key, page, pageSize, f)
		payload = gin.H{
			"rows":        result.Rows,
			"total":       result.Total,
			"page":        page,
			"page_size":   pageSize,
			"total_pages": board.TotalPages(result.Total, pageSize),
		}
		// cached under mu so a mutation's invalidation always comes after
		if b.cache != nil {
			if raw, err := json.Marshal(payload); err == nil {
				b.cache.Set(cacheKey, raw)
			}
		}
	})
	utils.Success(ctx, payload)
}

// Detail returns a single thread.
func (b *BoardController) Detail(ctx *gin.Context) {
	key, ok := boardKey(ctx)
	if !ok {
		return
	}
	id, ok := postID(ctx)
	if !ok {
		return
	}

	if !b.openBoard(ctx, key) {
		return
	}

	var (
		thread models.Thread
		found  bool
	)
	b.locked(func() { thread, found = b.svc.Detail(key, id) })

	if !found {
		utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
		return
	}
	utils.Success(ctx, gin.H{"post": thread})
}

// Create adds a post. Notices and FAQ entries are staff only; anyone signed
// in may ask on an inquiry board.
func (b *BoardController) Create(ctx *gin.Context) {
	key, ok := boardKey(ctx)
	if !ok {
		return
	}
	admin := isAdmin(ctx)
	if key.Kind != models.KindInquiry && !admin {
		utils.Error(ctx, http.StatusForbidden, 40302, "only staff can post on this board")
		return
	}

	var in models.CreateInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40002, "invalid request payload")
		return
	}
	if strings.TrimSpace(board.StripReplyMarker(in.Title)) == "" {
		utils.Error(ctx, http.StatusBadRequest, 40005, "title cannot be empty")
		return
	}
	if !admin {
		if board.IsReply(in.Title) {
			utils.Error(ctx, http.StatusBadRequest, 40007, "only staff can post replies")
			return
		}
		in.Answer = nil
		in.Pinned = false
	}
	if !b.openBoard(ctx, key) {
		return
	}

	var created models.Thread
	b.locked(func() { created = b.svc.Create(key, in, actor(ctx)) })

	b.afterMutation(key, "create", true)
	utils.Success(ctx, gin.H{"post": created})
}

// Update patches a post. Unknown ids succeed without effect.
func (b *BoardController) Update(ctx *gin.Context) {
	key, ok := boardKey(ctx)
	if !ok {
		return
	}
	id, ok := postID(ctx)
	if !ok {
		return
	}

	var req updateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40002, "invalid request payload")
		return
	}
	in, err := req.toInput()
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40006, "invalid answer payload")
		return
	}
	admin := isAdmin(ctx)
	if !admin {
		if in.Title != nil && board.IsReply(*in.Title) {
			utils.Error(ctx, http.StatusBadRequest, 40007, "only staff can post replies")
			return
		}
		// answers and pinning are staff business
		in.SetAnswer = false
		in.Answer = nil
		in.Pinned = nil
	}
	if !b.openBoard(ctx, key) {
		return
	}

	var allowed, found bool
	b.locked(func() {
		if allowed = b.mayModify(key, id, ctx, admin); allowed {
			found = b.svc.Update(key, id, in, actor(ctx))
		}
	})
	if !allowed {
		utils.Error(ctx, http.StatusForbidden, 40303, "you can only modify your own posts")
		return
	}

	b.afterMutation(key, "update", found)
	utils.Success(ctx, gin.H{"id": id})
}

// Delete removes a post. Unknown ids succeed without effect.
func (b *BoardController) Delete(ctx *gin.Context) {
	key, ok := boardKey(ctx)
	if !ok {
		return
	}
	id, ok := postID(ctx)
	if !ok {
		return
	}
	admin := isAdmin(ctx)
	if !b.openBoard(ctx, key) {
		return
	}

	var allowed, found bool
	b.locked(func() {
		if allowed = b.mayModify(key, id, ctx, admin); allowed {
			found = b.svc.Delete(key, id)
		}
	})
	if !allowed {
		utils.Error(ctx, http.StatusForbidden, 40303, "you can only modify your own posts")
		return
	}

	b.afterMutation(key, "delete", found)
	utils.Success(ctx, gin.H{"id": id})
}

// Reply sets the staff answer of a post, replacing any existing one.
func (b *BoardController) Reply(ctx *gin.Context) {
	key, ok := boardKey(ctx)
	if !ok {
		return
	}
	id, ok := postID(ctx)
	if !ok {
		return
	}

	var draft models.AnswerDraft
	if err := ctx.ShouldBindJSON(&draft); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40002, "invalid request payload")
		return
	}

	if !b.openBoard(ctx, key) {
		return
	}

	var found bool
	b.locked(func() { found = b.svc.Reply(key, id, draft, actor(ctx)) })

	b.afterMutation(key, "reply", found)
	utils.Success(ctx, gin.H{"id": id})
}

// mayModify reports whether the caller may update or delete post id. Staff
// may touch anything; members only their own inquiries. Unknown ids pass so
// the mutation can no-op. Must be called with mu held.
func (b *BoardController) mayModify(key models.BoardKey, id int, ctx *gin.Context, admin bool) bool {
	if admin {
		return true
	}
	post, found := b.svc.Store().Lookup(key, id)
	if !found {
		return true
	}
	return key.Kind == models.KindInquiry && post.Author == actor(ctx)
}

func (b *BoardController) afterMutation(key models.BoardKey, op string, found bool) {
	middleware.BoardMutationsTotal.WithLabelValues(string(key.Kind), op, strconv.FormatBool(found)).Inc()
	if b.cache != nil {
		b.cache.InvalidateByPrefix(utils.BoardCachePrefix(key.String()))
	}
	if !found {
		utils.Sugar.Debugf("%s on %s matched no post", op, key)
	}
}

// boardKey resolves the board addressed by the route, answering 404 when the
// kind or event id is not acceptable.
func boardKey(ctx *gin.Context) (models.BoardKey, bool) {
	kind, ok := models.ParseBoardKind(ctx.Param("kind"))
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40402, "board not found")
		return models.BoardKey{}, false
	}
	eventID, scoped := ctx.Params.Get("eventId")
	if !scoped {
		return models.GlobalBoard(kind), true
	}
	if !validEventID(eventID) {
		utils.Error(ctx, http.StatusNotFound, 40402, "board not found")
		return models.BoardKey{}, false
	}
	return models.EventBoard(eventID, kind), true
}

func validEventID(s string) bool {
	if s == "" || len(s) > 64 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

func postID(ctx *gin.Context) (int, bool) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid post id")
		return 0, false
	}
	return id, true
}

// parsePagination reads page and page_size, falling back to the configured
// default size for missing or out-of-range values.
func parsePagination(pageStr, sizeStr string) (int, int) {
	cfg := config.Get()
	page := 1
	pageSize := cfg.DefaultPageSize
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= cfg.MaxPageSize {
		pageSize = s
	}
	return page, pageSize
}

func actor(ctx *gin.Context) string {
	return ctx.GetString(middleware.ContextUsernameKey)
}

func isAdmin(ctx *gin.Context) bool {
	return ctx.GetBool(middleware.ContextAdminKey)
}
