package hydrate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/eventboard/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func strp(s string) *string { return &s }

func TestSQLSourceFetch(t *testing.T) {
	db := openTestDB(t)
	src := NewSQLSource(db)
	require.NoError(t, src.Migrate())
	require.NoError(t, src.Migrate(), "migrate is idempotent")

	rows := []boardPostRow{
		{EventID: "", Kind: "faq", PostID: 1, Title: "How to register?", Author: "사무국", PostedOn: "2025.05.01",
			AnswerContent: strp("Use the form."), AnswerAuthor: "사무국", AnswerDate: "2025.05.01"},
		{EventID: "", Kind: "faq", PostID: 2, Title: "Refunds?", Author: "운영팀", PostedOn: "2025.05.03",
			Files: `[{"id":"a","name":"policy.pdf","sizeMB":1.5}]`},
		{EventID: "9", Kind: "faq", PostID: 1, Title: "Event only", PostedOn: "2025.05.02"},
		{EventID: "", Kind: "notice", PostID: 1, Title: "Notice", PostedOn: "2025.05.02", Pinned: true},
	}
	require.NoError(t, db.Create(&rows).Error)

	posts, err := src.Fetch(context.Background(), models.GlobalBoard(models.KindFAQ))
	require.NoError(t, err)
	require.Len(t, posts, 2)

	assert.Equal(t, 2, posts[0].ID)
	assert.Equal(t, []models.Attachment{{ID: "a", Name: "policy.pdf", SizeMB: 1.5}}, posts[0].Files)
	assert.Nil(t, posts[0].Answer)

	assert.Equal(t, 1, posts[1].ID)
	require.NotNil(t, posts[1].Answer)
	assert.Equal(t, models.Answer{Content: "Use the form.", Author: "사무국", Date: "2025.05.01"}, *posts[1].Answer)

	event, err := src.Fetch(context.Background(), models.EventBoard("9", models.KindFAQ))
	require.NoError(t, err)
	require.Len(t, event, 1)
	assert.Equal(t, "Event only", event[0].Title)

	empty, err := src.Fetch(context.Background(), models.EventBoard("9", models.KindInquiry))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSQLSourceBadAttachments(t *testing.T) {
	db := openTestDB(t)
	src := NewSQLSource(db)
	require.NoError(t, src.Migrate())
	require.NoError(t, db.Create(&boardPostRow{Kind: "notice", PostID: 1, Title: "x", Files: "not json"}).Error)

	_, err := src.Fetch(context.Background(), models.GlobalBoard(models.KindNotice))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode attachments")
}
