// Package routes builds the client-side paths cards link to.
package routes

import (
	"net/url"
	"strings"

	"shiplog/internal/models"
)

const (
	Feed     = "/"
	Streaks  = "/streaks"
	Projects = "/projects"
)

// ProfilePath is the profile page of a user.
func ProfilePath(userID string) string {
	return "/profile/" + url.PathEscape(userID)
}

// ProjectPath is the detail page of a project.
func ProjectPath(projectID string) string {
	return Projects + "/" + url.PathEscape(projectID)
}

// ResolveProfileTarget picks whose profile to show: the user named in the
// route, otherwise the signed-in user.
func ResolveProfileTarget(routeUserID, sessionUserID string) (string, error) {
	if id := strings.TrimSpace(routeUserID); id != "" {
		return id, nil
	}
	if sessionUserID != "" {
		return sessionUserID, nil
	}
	return "", models.ErrNoIdentity
}
