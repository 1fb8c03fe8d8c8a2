package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ShipMarker prefixes the content of every stored post.
const ShipMarker = "✅ "

// MaxPostContentLength is measured in runes.
const MaxPostContentLength = 5000

// Post is a single shipped update. Rows are immutable once written.
// User and Project are filled by the joined reads and may be nil.
type Post struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    string    `gorm:"type:varchar(36);index;not null" json:"user_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	ProjectID *string   `gorm:"type:varchar(36);index" json:"project_id"`
	ImageURL  *string   `json:"image_url"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User    *PostAuthor  `gorm:"foreignKey:UserID" json:"user"`
	Project *PostProject `gorm:"foreignKey:ProjectID" json:"project"`
}

func (p *Post) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// PostAuthor is the slice of a user row joined onto a post.
type PostAuthor struct {
	ID            string  `json:"id"`
	FullName      string  `json:"full_name"`
	AvatarURL     *string `json:"avatar_url"`
	CurrentStreak int     `json:"current_streak"`
}

func (PostAuthor) TableName() string { return "users" }

// PostAuthorColumns are selected when a post is joined with its author.
var PostAuthorColumns = []string{"id", "full_name", "avatar_url", "current_streak"}

// PostProject is the slice of a project row joined onto a post.
type PostProject struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	UserID      string `json:"user_id"`
}

func (PostProject) TableName() string { return "projects" }

// PostProjectColumns are selected when a post is joined with its project.
var PostProjectColumns = []string{"id", "name", "description", "user_id"}
