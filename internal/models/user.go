// Package models defines the persisted entities and shared error types.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AnonymousName is shown wherever a user has no usable display name.
const AnonymousName = "Anonymous"

// User is a signed-in builder. Rows are created lazily on first sign-in.
type User struct {
	ID            string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	FullName      string     `gorm:"not null;default:''" json:"full_name"`
	AvatarURL     *string    `json:"avatar_url"`
	Email         string     `gorm:"uniqueIndex;not null" json:"email"`
	CurrentStreak int        `gorm:"not null;default:0;index" json:"current_streak"`
	LongestStreak int        `gorm:"not null;default:0" json:"longest_streak"`
	LastPostDate  *time.Time `json:"last_post_date,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// PublicUser is the part of a user row shown to anyone.
type PublicUser struct {
	ID            string  `json:"id"`
	FullName      string  `json:"full_name"`
	AvatarURL     *string `json:"avatar_url"`
	CurrentStreak int     `json:"current_streak"`
	LongestStreak int     `json:"longest_streak"`
}

func (PublicUser) TableName() string { return "users" }

// PublicUserColumns are selected when users are listed publicly.
var PublicUserColumns = []string{"id", "full_name", "avatar_url", "current_streak", "longest_streak"}

// Public returns the publicly visible fields of u.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:            u.ID,
		FullName:      u.FullName,
		AvatarURL:     u.AvatarURL,
		CurrentStreak: u.CurrentStreak,
		LongestStreak: u.LongestStreak,
	}
}

func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// DisplayNameFromEmail derives the default full name: the local part of the
// address, or AnonymousName when there is none.
func DisplayNameFromEmail(email string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	if local == "" {
		return AnonymousName
	}
	return local
}

// RecordPost advances the streak counters for a post made at the given time.
// Posting again on the same calendar day leaves the streak unchanged, posting on
// the following day extends it and any longer gap restarts it at one.
func (u *User) RecordPost(at time.Time) {
	today := startOfDay(at)

	switch {
	case u.LastPostDate == nil:
		u.CurrentStreak = 1
	default:
		last := startOfDay(u.LastPostDate.In(at.Location()))
		switch {
		case last.Equal(today):
			if u.CurrentStreak == 0 {
				u.CurrentStreak = 1
			}
		case last.AddDate(0, 0, 1).Equal(today):
			u.CurrentStreak++
		default:
			u.CurrentStreak = 1
		}
	}

	if u.CurrentStreak > u.LongestStreak {
		u.LongestStreak = u.CurrentStreak
	}
	u.LastPostDate = &today
}

// StreakBroken reports whether the current streak has lapsed as of now, i.e.
// the last post is older than yesterday.
func (u *User) StreakBroken(now time.Time) bool {
	if u.CurrentStreak == 0 || u.LastPostDate == nil {
		return false
	}
	return startOfDay(u.LastPostDate.In(now.Location())).Before(StreakCutoff(now))
}

// StreakCutoff is the start of yesterday; streaks whose last post is before it are broken.
func StreakCutoff(now time.Time) time.Time {
	return startOfDay(now).AddDate(0, 0, -1)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
