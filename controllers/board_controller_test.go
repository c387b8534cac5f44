package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/eventboard/board"
	"github.com/cppla/eventboard/config"
	"github.com/cppla/eventboard/middleware"
	"github.com/cppla/eventboard/models"
	"github.com/cppla/eventboard/utils"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type listData struct {
	Rows       []models.Thread `json:"rows"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalPages int             `json:"total_pages"`
}

type MockCache struct {
	entries     map[string][]byte
	invalidated []string
	onSet       func(key string)
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	b, ok := m.entries[key]
	return b, ok
}

func (m *MockCache) Set(key string, b []byte) {
	if m.onSet != nil {
		m.onSet(key)
	}
	if m.entries == nil {
		m.entries = map[string][]byte{}
	}
	m.entries[key] = b
}

func (m *MockCache) InvalidateByPrefix(prefix string) {
	m.invalidated = append(m.invalidated, prefix)
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
}

// fakeIdentity stands in for AuthRequired: X-User names the actor and
// "office" is staff.
func fakeIdentity(ctx *gin.Context) {
	user := ctx.GetHeader("X-User")
	if user == "" {
		ctx.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	ctx.Set(middleware.ContextUsernameKey, user)
	ctx.Set(middleware.ContextAdminKey, user == "office")
	ctx.Next()
}

func setupBoardRouter(t *testing.T, cache ListCache) *gin.Engine {
	t.Helper()
	return boardRouter(newTestController(t, nil, cache))
}

func newTestController(t *testing.T, seeder board.Seeder, cache ListCache) *BoardController {
	t.Helper()
	gin.SetMode(gin.TestMode)
	config.Override(config.AppConfig{JWTSecret: "test_secret", AdminUsernames: []string{"office"}})

	now := func() time.Time { return time.Date(2025, time.October, 16, 0, 0, 0, 0, time.UTC) }
	svc := board.NewService(board.NewStore(seeder), board.Options{Now: now, Sanitize: utils.Sanitize})
	return NewBoardController(svc, cache)
}

func boardRouter(c *BoardController) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	for _, prefix := range []string{"/boards/:kind", "/events/:eventId/boards/:kind"} {
		g := r.Group(prefix)
		g.GET("", c.List)
		g.GET("/:id", c.Detail)
		g.POST("", fakeIdentity, c.Create)
		g.PUT("/:id", fakeIdentity, c.Update)
		g.DELETE("/:id", fakeIdentity, c.Delete)
		g.POST("/:id/reply", fakeIdentity, c.Reply)
	}
	return r
}

func do(t *testing.T, r *gin.Engine, method, path, user, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User", user)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	var env envelope
	if rr.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	}
	return rr, env
}

func decodeList(t *testing.T, env envelope) listData {
	t.Helper()
	var d listData
	require.NoError(t, json.Unmarshal(env.Data, &d))
	return d
}

func decodePost(t *testing.T, env envelope) models.Thread {
	t.Helper()
	var d struct {
		Post models.Thread `json:"post"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &d))
	return d.Post
}

func TestListBoard(t *testing.T) {
	r := setupBoardRouter(t, nil)

	t.Run("pinned notices lead every page", func(t *testing.T) {
		rr, env := do(t, r, http.MethodGet, "/boards/notice?page=2&page_size=5", "", "")
		require.Equal(t, http.StatusOK, rr.Code)
		d := decodeList(t, env)

		assert.Equal(t, 21, d.Total)
		assert.Equal(t, 5, d.TotalPages)
		assert.Equal(t, 2, d.Page)
		require.Len(t, d.Rows, 8)
		assert.True(t, d.Rows[0].Pinned)
	})

	t.Run("oversized page size falls back to default", func(t *testing.T) {
		_, env := do(t, r, http.MethodGet, "/boards/faq?page_size=1000", "", "")
		d := decodeList(t, env)

		assert.Equal(t, 10, d.PageSize)
		assert.Equal(t, 8, d.Total)
	})

	t.Run("inquiries are collapsed", func(t *testing.T) {
		_, env := do(t, r, http.MethodGet, "/boards/inquiry", "", "")
		d := decodeList(t, env)

		assert.Equal(t, 6, d.Total)
		for _, row := range d.Rows {
			assert.False(t, board.IsReply(row.Title))
		}
	})

	t.Run("keyword and sort", func(t *testing.T) {
		_, env := do(t, r, http.MethodGet, "/boards/inquiry?keyword=PARKING&sort=oldest", "", "")
		d := decodeList(t, env)

		require.Len(t, d.Rows, 2)
		assert.Equal(t, 1, d.Rows[0].ID)
		assert.Equal(t, 8, d.Rows[1].ID)
	})

	t.Run("page past the end", func(t *testing.T) {
		_, env := do(t, r, http.MethodGet, "/boards/faq?page=9", "", "")
		d := decodeList(t, env)

		assert.Empty(t, d.Rows)
		assert.Equal(t, 8, d.Total)
	})

	t.Run("unknown board", func(t *testing.T) {
		rr, env := do(t, r, http.MethodGet, "/boards/gallery", "", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, 40402, env.Code)
	})

	t.Run("invalid event id", func(t *testing.T) {
		rr, _ := do(t, r, http.MethodGet, "/events/a.b/boards/faq", "", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestDetailBoard(t *testing.T) {
	r := setupBoardRouter(t, nil)

	rr, env := do(t, r, http.MethodGet, "/boards/inquiry/1", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	post := decodePost(t, env)
	assert.Equal(t, "Parking at the venue?", post.Title)
	require.NotNil(t, post.Answer)
	assert.Equal(t, "운영팀", post.Answer.Author)

	rr, env = do(t, r, http.MethodGet, "/boards/inquiry/2", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, 40401, env.Code)

	rr, env = do(t, r, http.MethodGet, "/boards/inquiry/abc", "", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, 40001, env.Code)
}

func TestCreateBoardPost(t *testing.T) {
	r := setupBoardRouter(t, nil)

	t.Run("members cannot post notices", func(t *testing.T) {
		rr, env := do(t, r, http.MethodPost, "/boards/notice", "kim", `{"title":"hi"}`)
		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Equal(t, 40302, env.Code)
	})

	t.Run("staff post a FAQ entry with answer", func(t *testing.T) {
		rr, env := do(t, r, http.MethodPost, "/boards/faq", "office",
			`{"title":"Lost and found?","content":"<p>Where?</p><script>x()</script>","answer":{"content":"At the info desk"}}`)
		require.Equal(t, http.StatusOK, rr.Code)
		post := decodePost(t, env)

		assert.Equal(t, 9, post.ID)
		assert.Equal(t, "office", post.Author)
		assert.Equal(t, "2025.10.16", post.Date)
		assert.Equal(t, "<p>Where?</p>", post.Content)
		require.NotNil(t, post.Answer)
		assert.Equal(t, "office", post.Answer.Author)

		_, env = do(t, r, http.MethodGet, "/boards/faq", "", "")
		d := decodeList(t, env)
		assert.Equal(t, 9, d.Total)
		assert.Equal(t, 9, d.Rows[0].ID)
	})

	t.Run("member inquiry drops answer", func(t *testing.T) {
		rr, env := do(t, r, http.MethodPost, "/boards/inquiry", "kim", `{"title":"Lockers?","answer":{"content":"self answer"}}`)
		require.Equal(t, http.StatusOK, rr.Code)
		post := decodePost(t, env)

		assert.Equal(t, 13, post.ID)
		assert.Equal(t, "kim", post.Author)
		assert.Nil(t, post.Answer)
	})

	t.Run("missing title", func(t *testing.T) {
		rr, _ := do(t, r, http.MethodPost, "/boards/inquiry", "kim", `{"content":"no title"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("anonymous", func(t *testing.T) {
		rr, _ := do(t, r, http.MethodPost, "/boards/inquiry", "", `{"title":"x"}`)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestUpdateBoardPost(t *testing.T) {
	r := setupBoardRouter(t, nil)

	t.Run("absent answer is kept", func(t *testing.T) {
		rr, _ := do(t, r, http.MethodPut, "/boards/inquiry/3", "office", `{"content":"<p>edited</p>"}`)
		require.Equal(t, http.StatusOK, rr.Code)

		_, env := do(t, r, http.MethodGet, "/boards/inquiry/3", "", "")
		post := decodePost(t, env)
		assert.Equal(t, "<p>edited</p>", post.Content)
		assert.NotNil(t, post.Answer)
	})

	t.Run("null answer clears", func(t *testing.T) {
		rr, _ := do(t, r, http.MethodPut, "/boards/inquiry/1", "office", `{"answer":null}`)
		require.Equal(t, http.StatusOK, rr.Code)

		_, env := do(t, r, http.MethodGet, "/boards/inquiry/1", "", "")
		assert.Nil(t, decodePost(t, env).Answer)
	})

	t.Run("answer replaced", func(t *testing.T) {
		do(t, r, http.MethodPut, "/boards/inquiry/6", "office", `{"answer":{"content":"From 9am"}}`)

		_, env := do(t, r, http.MethodGet, "/boards/inquiry/6", "", "")
		post := decodePost(t, env)
		require.NotNil(t, post.Answer)
		assert.Equal(t, "From 9am", post.Answer.Content)
		assert.Equal(t, "office", post.Answer.Author)
	})

	t.Run("members edit only their own inquiries", func(t *testing.T) {
		_, env := do(t, r, http.MethodPost, "/boards/inquiry", "kim", `{"title":"Mine"}`)
		id := decodePost(t, env).ID
		path := "/boards/inquiry/" + strconv.Itoa(id)

		rr, env := do(t, r, http.MethodPut, "/boards/inquiry/12", "kim", `{"title":"hijack"}`)
		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Equal(t, 40303, env.Code)

		rr, _ = do(t, r, http.MethodPut, path, "kim", `{"title":"Mine, edited","answer":{"content":"self"}}`)
		require.Equal(t, http.StatusOK, rr.Code)

		_, env = do(t, r, http.MethodGet, path, "", "")
		post := decodePost(t, env)
		assert.Equal(t, "Mine, edited", post.Title)
		assert.Nil(t, post.Answer)
	})

	t.Run("unknown id succeeds silently", func(t *testing.T) {
		rr, env := do(t, r, http.MethodPut, "/boards/faq/999", "office", `{"title":"x"}`)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, 0, env.Code)
	})

	t.Run("bad answer payload", func(t *testing.T) {
		rr, _ := do(t, r, http.MethodPut, "/boards/faq/1", "office", `{"answer":"text"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestDeleteBoardPost(t *testing.T) {
	r := setupBoardRouter(t, nil)

	rr, _ := do(t, r, http.MethodDelete, "/boards/notice/24", "kim", "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr, _ = do(t, r, http.MethodDelete, "/boards/notice/24", "office", "")
	require.Equal(t, http.StatusOK, rr.Code)
	rr, _ = do(t, r, http.MethodDelete, "/boards/notice/24", "office", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr, _ = do(t, r, http.MethodGet, "/boards/notice/24", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	_, env := do(t, r, http.MethodPost, "/boards/notice", "office", `{"title":"after delete"}`)
	assert.Equal(t, 25, decodePost(t, env).ID)
}

func TestReplyBoardPost(t *testing.T) {
	r := setupBoardRouter(t, nil)

	rr, _ := do(t, r, http.MethodPost, "/events/7/boards/inquiry/12/reply", "office",
		`{"content":"Yes, until the 10th.","files":[{"name":"form.pdf","sizeMB":0.2}]}`)
	require.Equal(t, http.StatusOK, rr.Code)

	_, env := do(t, r, http.MethodGet, "/events/7/boards/inquiry/12", "", "")
	post := decodePost(t, env)
	require.NotNil(t, post.Answer)
	assert.Equal(t, "Yes, until the 10th.", post.Answer.Content)
	require.Len(t, post.Answer.Files, 1)
	assert.NotEmpty(t, post.Answer.Files[0].ID)

	_, env = do(t, r, http.MethodGet, "/boards/inquiry/12", "", "")
	assert.Nil(t, decodePost(t, env).Answer, "event boards are independent")

	rr, _ = do(t, r, http.MethodPost, "/boards/inquiry/999/reply", "office", `{"content":"nobody"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestListCache(t *testing.T) {
	cache := &MockCache{}
	r := setupBoardRouter(t, cache)

	rr, _ := do(t, r, http.MethodGet, "/boards/faq?page_size=3", "", "")
	assert.Empty(t, rr.Header().Get("X-Cache"))
	require.Len(t, cache.entries, 1)

	rr, env := do(t, r, http.MethodGet, "/boards/faq?page_size=3", "", "")
	assert.Equal(t, "HIT", rr.Header().Get("X-Cache"))
	assert.Equal(t, 8, decodeList(t, env).Total)

	do(t, r, http.MethodDelete, "/boards/faq/1", "office", "")
	assert.Equal(t, []string{"board:list:global:faq|"}, cache.invalidated)
	assert.Empty(t, cache.entries)

	rr, env = do(t, r, http.MethodGet, "/boards/faq?page_size=3", "", "")
	assert.Empty(t, rr.Header().Get("X-Cache"))
	assert.Equal(t, 7, decodeList(t, env).Total)
}

func TestListCacheWrittenUnderLock(t *testing.T) {
	cache := &MockCache{}
	c := newTestController(t, nil, cache)
	r := boardRouter(c)

	var held []bool
	cache.onSet = func(string) {
		free := c.mu.TryLock()
		if free {
			c.mu.Unlock()
		}
		held = append(held, !free)
	}

	do(t, r, http.MethodGet, "/boards/faq?page_size=3", "", "")
	do(t, r, http.MethodDelete, "/boards/faq/8", "office", "")
	rr, env := do(t, r, http.MethodGet, "/boards/faq?page_size=3", "", "")

	assert.Equal(t, []bool{true, true}, held)
	assert.Empty(t, rr.Header().Get("X-Cache"))
	d := decodeList(t, env)
	assert.Equal(t, 7, d.Total)
	assert.NotEqual(t, 8, d.Rows[0].ID)
}

func TestListHugePageKeepsServing(t *testing.T) {
	r := setupBoardRouter(t, nil)

	rr, env := do(t, r, http.MethodGet, "/boards/faq?page=9223372036854775807&page_size=10", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	d := decodeList(t, env)
	assert.Empty(t, d.Rows)
	assert.Equal(t, 8, d.Total)

	done := make(chan int, 1)
	go func() {
		req := httptest.NewRequest(http.MethodGet, "/boards/faq", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		done <- rec.Code
	}()
	select {
	case code := <-done:
		assert.Equal(t, http.StatusOK, code)
	case <-time.After(2 * time.Second):
		t.Fatal("board requests blocked after a huge page")
	}
}

func TestMembersCannotPostReplies(t *testing.T) {
	r := setupBoardRouter(t, nil)

	t.Run("create", func(t *testing.T) {
		rr, env := do(t, r, http.MethodPost, "/boards/inquiry", "mallory",
			`{"title":"[RE] Bib pickup time","content":"Bibs are cancelled."}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, 40007, env.Code)

		_, env = do(t, r, http.MethodGet, "/boards/inquiry/6", "", "")
		assert.Nil(t, decodePost(t, env).Answer)
	})

	t.Run("update title", func(t *testing.T) {
		_, env := do(t, r, http.MethodPost, "/boards/inquiry", "mallory", `{"title":"Lost and found?"}`)
		own := decodePost(t, env)

		rr, env := do(t, r, http.MethodPut, fmt.Sprintf("/boards/inquiry/%d", own.ID), "mallory",
			`{"title":"[re] Bib pickup time"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, 40007, env.Code)

		_, env = do(t, r, http.MethodGet, "/boards/inquiry/6", "", "")
		assert.Nil(t, decodePost(t, env).Answer)
	})

	t.Run("staff may", func(t *testing.T) {
		rr, _ := do(t, r, http.MethodPost, "/boards/inquiry", "office",
			`{"title":"[RE] Bib pickup time","content":"From 9am at gate 1."}`)
		require.Equal(t, http.StatusOK, rr.Code)

		_, env := do(t, r, http.MethodGet, "/boards/inquiry/6", "", "")
		answer := decodePost(t, env).Answer
		require.NotNil(t, answer)
		assert.Equal(t, "office", answer.Author)
	})

	t.Run("bare marker is an empty title", func(t *testing.T) {
		rr, env := do(t, r, http.MethodPost, "/boards/inquiry", "office", `{"title":" [RE] "}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, 40005, env.Code)
	})
}

func TestSeedFetchedOutsideLock(t *testing.T) {
	slow := models.EventBoard("slow", models.KindFAQ)
	started := make(chan struct{})
	release := make(chan struct{})
	seeder := board.SeederFunc(func(key models.BoardKey) []models.Post {
		if key == slow {
			close(started)
			<-release
		}
		return board.StaticSeed(key)
	})
	r := boardRouter(newTestController(t, seeder, nil))

	slowDone := make(chan int, 1)
	go func() {
		req := httptest.NewRequest(http.MethodGet, "/events/slow/boards/faq", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		slowDone <- rec.Code
	}()
	<-started

	fastDone := make(chan int, 1)
	go func() {
		req := httptest.NewRequest(http.MethodGet, "/boards/faq", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		fastDone <- rec.Code
	}()
	select {
	case code := <-fastDone:
		assert.Equal(t, http.StatusOK, code)
	case <-time.After(2 * time.Second):
		t.Fatal("global board waited on a slow event seed")
	}

	close(release)
	assert.Equal(t, http.StatusOK, <-slowDone)
}

func TestEventBoardLimit(t *testing.T) {
	c := newTestController(t, nil, nil)
	c.maxEventBoards = 2
	r := boardRouter(c)

	for _, path := range []string{"/events/1/boards/faq", "/events/1/boards/notice", "/boards/inquiry"} {
		rr, _ := do(t, r, http.MethodGet, path, "", "")
		require.Equal(t, http.StatusOK, rr.Code, path)
	}

	rr, env := do(t, r, http.MethodGet, "/events/2/boards/faq", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, 50301, env.Code)

	rr, _ = do(t, r, http.MethodPost, "/events/3/boards/inquiry", "kim", `{"title":"Hello?"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr, _ = do(t, r, http.MethodGet, "/events/1/boards/faq", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 2, c.svc.Store().EventBoards())
}

func TestUpdateRequestToInput(t *testing.T) {
	var absent updateRequest
	require.NoError(t, json.Unmarshal([]byte(`{"title":"t"}`), &absent))
	in, err := absent.toInput()
	require.NoError(t, err)
	assert.False(t, in.SetAnswer)

	var null updateRequest
	require.NoError(t, json.Unmarshal([]byte(`{"answer": null}`), &null))
	in, err = null.toInput()
	require.NoError(t, err)
	assert.True(t, in.SetAnswer)
	assert.Nil(t, in.Answer)

	var set updateRequest
	require.NoError(t, json.Unmarshal([]byte(`{"answer":{"content":"a"}}`), &set))
	in, err = set.toInput()
	require.NoError(t, err)
	assert.True(t, in.SetAnswer)
	require.NotNil(t, in.Answer)
	assert.Equal(t, "a", in.Answer.Content)
}

func TestParsePagination(t *testing.T) {
	config.Override(config.AppConfig{JWTSecret: "test_secret"})

	tests := []struct {
		page, size         string
		wantPage, wantSize int
	}{
		{"", "", 1, 10},
		{"3", "25", 3, 25},
		{"0", "0", 1, 10},
		{"-2", "101", 1, 10},
		{"x", "100", 1, 100},
	}
	for _, tt := range tests {
		page, size := parsePagination(tt.page, tt.size)
		assert.Equal(t, tt.wantPage, page, "page %q", tt.page)
		assert.Equal(t, tt.wantSize, size, "size %q", tt.size)
	}
}

