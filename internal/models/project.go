package models

import (
	"database/sql/driver"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusArchived  ProjectStatus = "archived"
)

// MaxProjectTopics caps the topics attached to a project.
const MaxProjectTopics = 5

// ProjectNamePattern is the shape a project name must have to be usable as a #tag.
var ProjectNamePattern = regexp.MustCompile(`^[\w-]+$`)

// Topics is stored as a Postgres text[] and as its text form elsewhere.
type Topics []string

func (t Topics) Value() (driver.Value, error) {
	return pq.StringArray(t).Value()
}

func (t *Topics) Scan(src any) error {
	var arr pq.StringArray
	if err := arr.Scan(src); err != nil {
		return err
	}
	*t = Topics(arr)
	return nil
}

// GormDataType lets gorm parse the field; GormDBDataType picks the column type.
func (Topics) GormDataType() string { return "text" }

func (Topics) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

// Project is something a user is building. Posts link to it by #name.
type Project struct {
	ID          string        `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID      string        `gorm:"type:varchar(36);index;not null" json:"user_id"`
	Name        string        `gorm:"size:64;index;not null" json:"name"`
	Hashtag     *string       `gorm:"size:64" json:"hashtag,omitempty"`
	Slug        string        `gorm:"size:80;index" json:"slug"`
	Description string        `gorm:"type:text" json:"description"`
	Pitch       string        `gorm:"size:280" json:"pitch"`
	Website     string        `json:"website"`
	Emoji       string        `gorm:"size:16" json:"emoji"`
	LogoURL     *string       `json:"logo_url,omitempty"`
	HeaderURL   *string       `json:"header_url,omitempty"`
	IsPrivate   bool          `gorm:"not null;default:false" json:"is_private"`
	Status      ProjectStatus `gorm:"type:varchar(16);not null;default:active;index" json:"status"`
	Topics      Topics        `json:"topics"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`

	Owner       *PublicUser `gorm:"foreignKey:UserID" json:"owner,omitempty"`
	UpdateCount int64       `gorm:"-" json:"update_count"`
}

func (p *Project) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = ProjectStatusActive
	}
	return nil
}

// VisibleTo reports whether viewerID may see the project.
func (p *Project) VisibleTo(viewerID string) bool {
	return !p.IsPrivate || (viewerID != "" && p.UserID == viewerID)
}

// Linkable reports whether posts by viewerID may be tagged with the project.
func (p *Project) Linkable(viewerID string) bool {
	return p.Status != ProjectStatusArchived && p.VisibleTo(viewerID)
}
