// Package board implements the notice, FAQ and inquiry boards: an in-memory
// record store per board, the collapsing of reply posts into their
// questions, and the list/detail/mutation operations served to the API.
//
// Nothing in this package locks. Callers serialize access.
package board

import (
	"github.com/cppla/eventboard/models"
)

// Seeder supplies the initial records of a board the first time it is read.
type Seeder interface {
	Seed(key models.BoardKey) []models.Post
}

// SeederFunc adapts a function to Seeder.
type SeederFunc func(key models.BoardKey) []models.Post

func (f SeederFunc) Seed(key models.BoardKey) []models.Post { return f(key) }

type collection struct {
	posts []models.Post
	// highest id ever held by this board, including deleted posts
	highWater int
}

func (c *collection) reset(posts []models.Post) {
	c.posts = make([]models.Post, 0, len(posts))
	for _, p := range posts {
		c.posts = append(c.posts, p.Clone())
		c.highWater = max(c.highWater, p.ID)
	}
}

// Store owns one ordered post collection per board key. Boards are seeded
// lazily on first access and never reseeded.
type Store struct {
	seeder Seeder
	boards map[models.BoardKey]*collection
}

// NewStore creates a store seeding boards from seeder, or from StaticSeed
// when seeder is nil.
func NewStore(seeder Seeder) *Store {
	if seeder == nil {
		seeder = SeederFunc(StaticSeed)
	}
	return &Store{
		seeder: seeder,
		boards: make(map[models.BoardKey]*collection),
	}
}

func (s *Store) board(key models.BoardKey) *collection {
	c, ok := s.boards[key]
	if !ok {
		c = &collection{}
		c.reset(s.seeder.Seed(key))
		s.boards[key] = c
	}
	return c
}

// Seed installs posts for key unless the board already holds data, and
// reports whether it did. Together with Seeder it lets a caller fetch the
// seed without holding its own lock and install it afterwards.
func (s *Store) Seed(key models.BoardKey, posts []models.Post) bool {
	c, ok := s.boards[key]
	if ok && len(c.posts) > 0 {
		return false
	}
	if !ok {
		c = &collection{}
		s.boards[key] = c
	}
	c.reset(posts)
	return true
}

// Seeder returns the source boards are seeded from.
func (s *Store) Seeder() Seeder { return s.seeder }

// EventBoards counts the materialized event-scoped boards.
func (s *Store) EventBoards() int {
	n := 0
	for key := range s.boards {
		if !key.IsGlobal() {
			n++
		}
	}
	return n
}

// Seeded reports whether key has been materialized.
func (s *Store) Seeded(key models.BoardKey) bool {
	_, ok := s.boards[key]
	return ok
}

// Posts returns the board's collection in storage order. The slice belongs
// to the store and must not be retained or modified.
func (s *Store) Posts(key models.BoardKey) []models.Post {
	return s.board(key).posts
}

// NextID returns the id the next created post receives. Ids are never
// reused, even after the current maximum has been deleted.
func (s *Store) NextID(key models.BoardKey) int {
	c := s.board(key)
	top := c.highWater
	for _, p := range c.posts {
		top = max(top, p.ID)
	}
	return top + 1
}

// Insert puts post at the head of the board.
func (s *Store) Insert(key models.BoardKey, post models.Post) {
	c := s.board(key)
	c.posts = append([]models.Post{post}, c.posts...)
	c.highWater = max(c.highWater, post.ID)
}

// Lookup returns a pointer to the first post with id, valid until the next
// insert or removal on the same board.
func (s *Store) Lookup(key models.BoardKey, id int) (*models.Post, bool) {
	c := s.board(key)
	for i := range c.posts {
		if c.posts[i].ID == id {
			return &c.posts[i], true
		}
	}
	return nil, false
}

// Remove deletes the first post with id and reports whether one was found.
func (s *Store) Remove(key models.BoardKey, id int) bool {
	c := s.board(key)
	for i := range c.posts {
		if c.posts[i].ID == id {
			c.posts = append(c.posts[:i], c.posts[i+1:]...)
			return true
		}
	}
	return false
}
