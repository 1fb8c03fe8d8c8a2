package auth

import (
	"strings"

	"github.com/google/uuid"
)

var devNamespace = uuid.MustParse("9b6f2d4a-1c7e-4e55-8d0b-3a9f6c2e8b71")

// DevUserID maps an email to the user id used by development sign-in.
func DevUserID(email string) string {
	return uuid.NewSHA1(devNamespace, []byte("dev:"+strings.ToLower(strings.TrimSpace(email)))).String()
}
