// Package hydrate loads the initial records of a board from an external
// system: the legacy association API over HTTP, or its MySQL tables. Boards
// fall back to the built-in static seed when the source fails.
package hydrate

import (
	"cmp"
	"context"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/eventboard/board"
	"github.com/cppla/eventboard/models"
	"github.com/cppla/eventboard/utils"
)

// Source fetches the raw records of one board.
type Source interface {
	Fetch(ctx context.Context, key models.BoardKey) ([]models.Post, error)
}

// Seeder seeds boards from a Source, bounded by a timeout.
type Seeder struct {
	source   Source
	timeout  time.Duration
	fallback board.Seeder
}

var _ board.Seeder = (*Seeder)(nil)

// NewSeeder wraps source. A non-positive timeout means 5 seconds.
func NewSeeder(source Source, timeout time.Duration) *Seeder {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Seeder{
		source:   source,
		timeout:  timeout,
		fallback: board.SeederFunc(board.StaticSeed),
	}
}

// Seed returns the source's records for key in storage order, or the static
// seed when the source fails. An empty result is a legitimately empty board.
func (s *Seeder) Seed(key models.BoardKey) []models.Post {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	posts, err := s.source.Fetch(ctx, key)
	if err != nil {
		utils.Logger.Warn("board hydration failed, using static seed",
			zap.String("board", key.String()),
			zap.Error(err),
		)
		return s.fallback.Seed(key)
	}
	return normalize(key, posts)
}

// normalize drops records without a usable id or date and repeated ids,
// canonicalizes dates, sanitizes bodies and orders the rest newest first.
func normalize(key models.BoardKey, posts []models.Post) []models.Post {
	out := make([]models.Post, 0, len(posts))
	seen := make(map[int]struct{}, len(posts))
	for _, p := range posts {
		if p.ID <= 0 {
			dropped(key, p, "missing id")
			continue
		}
		if _, dup := seen[p.ID]; dup {
			dropped(key, p, "duplicate id")
			continue
		}
		d, ok := board.NormalizeDate(p.Date)
		if !ok {
			dropped(key, p, "invalid date")
			continue
		}
		seen[p.ID] = struct{}{}

		p = p.Clone()
		p.Date = d
		p.Content = utils.Sanitize(p.Content)
		if p.Answer != nil {
			if ad, ok := board.NormalizeDate(p.Answer.Date); ok {
				p.Answer.Date = ad
			} else {
				p.Answer.Date = d
			}
			p.Answer.Content = utils.Sanitize(p.Answer.Content)
		}
		if key.Kind != models.KindNotice {
			p.Pinned = false
		}
		out = append(out, p)
	}
	slices.SortStableFunc(out, func(a, b models.Post) int {
		return cmp.Or(cmp.Compare(b.Date, a.Date), cmp.Compare(b.ID, a.ID))
	})
	return out
}

func dropped(key models.BoardKey, p models.Post, reason string) {
	utils.Logger.Warn("dropping hydrated post",
		zap.String("board", key.String()),
		zap.Int("id", p.ID),
		zap.String("title", p.Title),
		zap.String("reason", reason),
	)
}
