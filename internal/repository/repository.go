// Package repository implements the data access layer over gorm.
package repository

import (
	"errors"
	"strings"

	"shiplog/internal/models"

	"gorm.io/gorm"
)

// ErrDuplicate is returned when an insert collides with an existing key.
var ErrDuplicate = errors.New("repository: duplicate key")

func mapError(err error, resource string, id any) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return models.NewNotFoundError(resource, id)
	case isDuplicate(err):
		return ErrDuplicate
	default:
		return models.NewInternalError(err)
	}
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint failed")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// visibleTo restricts projects to public ones and those owned by viewerID.
func visibleTo(db *gorm.DB, viewerID string) *gorm.DB {
	if viewerID == "" {
		return db.Where("projects.is_private = ?", false)
	}
	return db.Where("(projects.is_private = ? OR projects.user_id = ?)", false, viewerID)
}

func notArchived(db *gorm.DB) *gorm.DB {
	return db.Where("projects.status <> ?", models.ProjectStatusArchived)
}

func ownerColumns(tx *gorm.DB) *gorm.DB {
	return tx.Select(models.PublicUserColumns)
}

func withAuthor(db *gorm.DB) *gorm.DB {
	return db.Preload("User", func(tx *gorm.DB) *gorm.DB {
		return tx.Select(models.PostAuthorColumns)
	})
}

func withAuthorAndProject(db *gorm.DB) *gorm.DB {
	return withAuthor(db).Preload("Project", func(tx *gorm.DB) *gorm.DB {
		return tx.Select(models.PostProjectColumns)
	})
}
