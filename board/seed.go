package board

import (
	"fmt"
	"time"

	"github.com/cppla/eventboard/models"
)

// seedAnchor is the newest date in the static seed.
var seedAnchor = time.Date(2025, time.September, 30, 0, 0, 0, 0, time.UTC)

var noticeTitles = []string{
	"Registration opens for the autumn season",
	"Venue change for the regional qualifiers",
	"Updated anti-doping regulations",
	"Volunteer recruitment",
	"Results of the board election",
	"Holiday office hours",
	"Course map published",
	"Insurance coverage for participants",
	"Photo gallery from the spring meet",
	"Membership fee adjustment",
	"Referee workshop schedule",
	"Sponsor announcement",
}

var faqEntries = [][2]string{
	{"How do I register for an event?", "Sign in, open the event page and use the registration form."},
	{"Can I transfer my entry to someone else?", "Transfers are accepted until two weeks before the event."},
	{"When will I receive my bib number?", "Bib numbers are sent by e-mail three days before race day."},
	{"Is there a refund if I cannot attend?", "Entries cancelled before the deadline are refunded minus a handling fee."},
	{"What documents do minors need?", "A signed guardian consent form is required for every participant under 19."},
	{"Where can I find the results?", "Results are posted on the event page within 24 hours."},
	{"Are pets allowed at the venue?", "Only assistance animals are allowed inside the course area."},
	{"How do I update my membership details?", "Use the profile page or contact the office."},
}

var staffNames = []string{"사무국", "운영팀", "관리자"}

var memberNames = []string{"김민수", "이서연", "박지훈", "최유진", "정하늘", "Alex Park"}

func seedDate(daysBack int) string {
	return seedAnchor.AddDate(0, 0, -daysBack).Format(models.DateLayout)
}

func eventSuffix(key models.BoardKey) string {
	if key.IsGlobal() {
		return ""
	}
	return fmt.Sprintf(" (event %s)", key.EventID)
}

// StaticSeed returns the built-in example records of a board, newest first.
// The result depends only on key.
func StaticSeed(key models.BoardKey) []models.Post {
	var posts []models.Post
	switch key.Kind {
	case models.KindNotice:
		posts = seedNotices(key)
	case models.KindFAQ:
		posts = seedFAQ(key)
	case models.KindInquiry:
		posts = seedInquiries(key)
	}
	// storage order is newest first
	for i, j := 0, len(posts)-1; i < j; i, j = i+1, j-1 {
		posts[i], posts[j] = posts[j], posts[i]
	}
	return posts
}

func seedNotices(key models.BoardKey) []models.Post {
	n := 24
	if !key.IsGlobal() {
		n = 8
	}
	posts := make([]models.Post, 0, n)
	for i := 0; i < n; i++ {
		id := i + 1
		title := noticeTitles[i%len(noticeTitles)]
		if i >= len(noticeTitles) {
			title = fmt.Sprintf("%s (%d)", title, i/len(noticeTitles)+1)
		}
		p := models.Post{
			ID:      id,
			Title:   title + eventSuffix(key),
			Author:  staffNames[i%len(staffNames)],
			Date:    seedDate(2 * (n - id)),
			Views:   (id * 37) % 211,
			Content: "<p>" + title + ".</p>",
			// four pinned notices, one more than the default cap
			Pinned: id%6 == 0,
		}
		if id%5 == 0 {
			p.Files = []models.Attachment{{
				ID:     fmt.Sprintf("%d-1", id),
				Name:   fmt.Sprintf("notice-%d.pdf", id),
				SizeMB: 0.4 + float64(id%3),
				Mime:   "application/pdf",
			}}
		}
		posts = append(posts, p)
	}
	return posts
}

func seedFAQ(key models.BoardKey) []models.Post {
	posts := make([]models.Post, 0, len(faqEntries))
	for i, e := range faqEntries {
		id := i + 1
		date := seedDate(5 * (len(faqEntries) - id))
		staff := staffNames[i%len(staffNames)]
		posts = append(posts, models.Post{
			ID:     id,
			Title:  e[0] + eventSuffix(key),
			Author: staff,
			Date:   date,
			Views:  (id * 53) % 307,
			Answer: &models.Answer{
				Content: "<p>" + e[1] + "</p>",
				Author:  staff,
				Date:    date,
			},
		})
	}
	return posts
}

type inquirySeed struct {
	title    string
	author   string
	daysBack int
	content  string
}

// The inquiry seed exercises every collapsing rule: matched replies, a second
// reply to an answered question, an orphan reply, and a question title asked
// twice.
var inquirySeeds = []inquirySeed{
	{"Parking at the venue?", "김민수", 29, "Is there parking near the start line?"},
	{"[RE] Parking at the venue?", "운영팀", 28, "Parking lot B is reserved for participants."},
	{"Refund policy for late withdrawal", "이서연", 27, "I registered but cannot attend anymore."},
	{"[RE] Refund policy for late withdrawal", "사무국", 26, "Late withdrawals are refunded at 50%."},
	{"[re]  refund policy for LATE withdrawal", "관리자", 25, "Please disregard the previous answer."},
	{"Bib pickup time", "박지훈", 24, "When can we pick up our bibs?"},
	{"[RE] Shuttle bus schedule", "운영팀", 23, "Shuttles leave every 20 minutes."},
	{"Parking at the venue?", "최유진", 20, "Is parking free on the second day too?"},
	{"[RE] Parking at the venue?", "사무국", 19, "Yes, parking is free on both days."},
	{"Team registration with minors", "정하늘", 15, "Can a team include members under 19?"},
	{"[RE] Team registration with minors", "운영팀", 15, "Yes, with guardian consent forms."},
	{"Can I change my course category?", "Alex Park", 10, "I would like to switch from 10K to half."},
}

func seedInquiries(key models.BoardKey) []models.Post {
	posts := make([]models.Post, 0, len(inquirySeeds))
	for i, s := range inquirySeeds {
		id := i + 1
		posts = append(posts, models.Post{
			ID:      id,
			Title:   s.title + eventSuffix(key),
			Author:  s.author,
			Date:    seedDate(s.daysBack),
			Views:   (id * 29) % 97,
			Content: "<p>" + s.content + "</p>",
		})
	}
	return posts
}
