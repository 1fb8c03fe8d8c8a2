package feed

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"shiplog/internal/models"
	"shiplog/internal/routes"
	"shiplog/internal/timeago"
)

// EmptyMessage is shown for a loaded feed with no posts.
const EmptyMessage = "No posts yet. Be the first to share what you've shipped!"

// Link is a rendered in-app link.
type Link struct {
	Href  string `json:"href"`
	Label string `json:"label"`
}

// Card is the display form of one post.
type Card struct {
	ID           string    `json:"id"`
	Content      string    `json:"content"`
	AuthorName   string    `json:"author_name"`
	AuthorAvatar string    `json:"author_avatar,omitempty"`
	AuthorLink   Link      `json:"author_link"`
	Streak       int       `json:"streak"`
	ShowStreak   bool      `json:"show_streak"`
	ProjectLink  *Link     `json:"project_link,omitempty"`
	ImageURL     string    `json:"image_url,omitempty"`
	Age          string    `json:"age"`
	CreatedAt    time.Time `json:"created_at"`
}

// Page is a rendered list. Message is set when the list is empty.
type Page struct {
	Cards   []Card `json:"cards"`
	Empty   bool   `json:"empty"`
	Message string `json:"message,omitempty"`
}

// RenderCard renders p as of now. A missing author renders as anonymous.
func RenderCard(p models.Post, now time.Time) Card {
	card := Card{
		ID:         p.ID,
		Content:    p.Content,
		AuthorName: models.AnonymousName,
		CreatedAt:  p.CreatedAt,
		Age:        timeago.Format(now, &p.CreatedAt),
	}

	if u := p.User; u != nil {
		if name := strings.TrimSpace(u.FullName); name != "" {
			card.AuthorName = name
		}
		if u.AvatarURL != nil {
			card.AuthorAvatar = *u.AvatarURL
		}
		card.Streak = u.CurrentStreak
		card.ShowStreak = u.CurrentStreak > 0
	}
	card.AuthorLink = Link{Href: routes.ProfilePath(p.UserID), Label: card.AuthorName}

	if pr := p.Project; pr != nil && pr.Name != "" {
		card.Content = StripProjectTag(p.Content, pr.Name)
		card.ProjectLink = &Link{Href: routes.ProjectPath(pr.ID), Label: "#" + pr.Name}
	}
	if p.ImageURL != nil {
		card.ImageURL = *p.ImageURL
	}
	return card
}

// RenderList renders posts in order.
func RenderList(posts []models.Post, now time.Time) Page {
	cards := make([]Card, 0, len(posts))
	for _, p := range posts {
		cards = append(cards, RenderCard(p, now))
	}
	page := Page{Cards: cards}
	if len(cards) == 0 {
		page.Empty = true
		page.Message = EmptyMessage
	}
	return page
}

// StripProjectTag removes the first whole "#name" from content along with one
// following space. "#name-two" does not match "#name".
func StripProjectTag(content, name string) string {
	tag := "#" + name
	offset := 0
	for {
		i := strings.Index(content[offset:], tag)
		if i < 0 {
			return strings.TrimSpace(content)
		}
		start := offset + i
		end := start + len(tag)
		if end < len(content) {
			r, _ := utf8.DecodeRuneInString(content[end:])
			if r == '-' || r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
				offset = end
				continue
			}
			if r == ' ' {
				end++
			}
		}
		return strings.TrimSpace(content[:start] + content[end:])
	}
}
