// Package validate holds the small syntactic checks applied to values that
// arrive over the wire before they reach the game engine.
package validate

import "regexp"

const (
	// MinUsernameLength is the shortest username a player may join with.
	MinUsernameLength = 4
	// MaxUsernameLength is the longest username a player may join with.
	MaxUsernameLength = 20
	// InviteCodeLength is the fixed length of a game invite code.
	InviteCodeLength = 6
)

var inviteCodeRegex = regexp.MustCompile(`^[0-9]{6}$`)

// IsValidUsernameLength returns true if username is within the bounds
// players are allowed to join a game with.
func IsValidUsernameLength(username string) bool {
	n := len(username)
	return n >= MinUsernameLength && n <= MaxUsernameLength
}

// IsValidInviteCode returns true if code has the shape of a game invite
// code: exactly six decimal digits.
func IsValidInviteCode(code string) bool {
	return inviteCodeRegex.MatchString(code)
}
