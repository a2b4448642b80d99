package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// EncodeCredentials packs a username/password pair into the access-token
// form CalDAV adapters expect: base64(username:password), per
// SPEC_FULL.md's "the access token is base64(appleId:appPassword)".
func EncodeCredentials(username, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}

// DecodeCredentials reverses EncodeCredentials.
func DecodeCredentials(accessToken string) (username, password string, err error) {
	raw, err := base64.StdEncoding.DecodeString(accessToken)
	if err != nil {
		return "", "", fmt.Errorf("invalid caldav access token: %w", err)
	}
	parts := strings.SplitN(string(raw), ":", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid caldav access token: expected username:password")
	}
	return parts[0], parts[1], nil
}
