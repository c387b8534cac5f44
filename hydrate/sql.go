package hydrate

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"github.com/cppla/eventboard/models"
)

// boardPostRow maps the legacy board_posts table. Global boards use an empty
// event_id.
type boardPostRow struct {
	RowID         uint    `gorm:"column:row_id;primaryKey;autoIncrement"`
	EventID       string  `gorm:"column:event_id;size:64;not null;default:'';index:idx_board_posts_board"`
	Kind          string  `gorm:"column:kind;size:16;not null;index:idx_board_posts_board"`
	PostID        int     `gorm:"column:post_id;not null"`
	Title         string  `gorm:"column:title;size:255;not null"`
	Author        string  `gorm:"column:author;size:64"`
	PostedOn      string  `gorm:"column:posted_on;size:10"`
	Views         int     `gorm:"column:views;not null;default:0"`
	Content       string  `gorm:"column:content;type:text"`
	Files         string  `gorm:"column:files;type:text"`
	Pinned        bool    `gorm:"column:pinned;not null;default:false"`
	ParentID      int     `gorm:"column:parent_id;not null;default:0"`
	AnswerContent *string `gorm:"column:answer_content;type:text"`
	AnswerAuthor  string  `gorm:"column:answer_author;size:64"`
	AnswerDate    string  `gorm:"column:answer_date;size:10"`
	AnswerFiles   string  `gorm:"column:answer_files;type:text"`
}

func (boardPostRow) TableName() string { return "board_posts" }

// SQLSource reads boards from the legacy MySQL schema.
type SQLSource struct {
	db *gorm.DB
}

var _ Source = (*SQLSource)(nil)

// NewSQLSource wraps an open database.
func NewSQLSource(db *gorm.DB) *SQLSource {
	return &SQLSource{db: db}
}

// Migrate creates the board_posts table when it does not exist.
func (s *SQLSource) Migrate() error {
	if s.db.Migrator().HasTable(&boardPostRow{}) {
		return nil
	}
	return s.db.AutoMigrate(&boardPostRow{})
}

// Fetch implements Source.
func (s *SQLSource) Fetch(ctx context.Context, key models.BoardKey) ([]models.Post, error) {
	var rows []boardPostRow
	err := s.db.WithContext(ctx).
		Where("event_id = ? AND kind = ?", key.EventID, string(key.Kind)).
		Order("posted_on DESC, post_id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", key, err)
	}

	posts := make([]models.Post, 0, len(rows))
	for _, r := range rows {
		p, err := r.toPost()
		if err != nil {
			return nil, fmt.Errorf("row %d of %s: %w", r.RowID, key, err)
		}
		posts = append(posts, p)
	}
	return posts, nil
}

func (r boardPostRow) toPost() (models.Post, error) {
	files, err := decodeFiles(r.Files)
	if err != nil {
		return models.Post{}, err
	}
	p := models.Post{
		ID:       r.PostID,
		Title:    r.Title,
		Author:   r.Author,
		Date:     r.PostedOn,
		Views:    r.Views,
		Content:  r.Content,
		Files:    files,
		Pinned:   r.Pinned,
		ParentID: r.ParentID,
	}
	if r.AnswerContent != nil {
		answerFiles, err := decodeFiles(r.AnswerFiles)
		if err != nil {
			return models.Post{}, err
		}
		p.Answer = &models.Answer{
			Content: *r.AnswerContent,
			Author:  r.AnswerAuthor,
			Date:    r.AnswerDate,
			Files:   answerFiles,
		}
	}
	return p, nil
}

func decodeFiles(raw string) ([]models.Attachment, error) {
	if raw == "" {
		return nil, nil
	}
	var files []models.Attachment
	if err := json.Unmarshal([]byte(raw), &files); err != nil {
		return nil, fmt.Errorf("decode attachments: %w", err)
	}
	return files, nil
}
