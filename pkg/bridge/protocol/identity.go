package protocol

import (
	"errors"
	"fmt"
	"regexp"
)

// addressRe matches a 20-byte hex address with 0x prefix. Checksum casing is
// not enforced here; the resolver service owns that.
var addressRe = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// Identity is the validated result of a successful authentication. The
// bridge validates shape only; it never derives or resolves identities.
type Identity struct {
	Address  string `json:"address"`
	Nickname string `json:"nickname"`
	Avatar   Avatar `json:"avatar"`
}

// Avatar describes a generated avatar: a style from the registered set plus
// a free-form seed.
type Avatar struct {
	Style string `json:"style"`
	Seed  string `json:"seed"`
}

// avatarStyles is the registered style set. Kept in sync with the styles the
// embedded page offers.
var avatarStyles = map[string]struct{}{
	"adventurer": {},
	"avataaars":  {},
	"bottts":     {},
	"lorelei":    {},
	"notionists": {},
	"pixel-art":  {},
	"shapes":     {},
	"thumbs":     {},
}

// KnownStyle reports whether s is a registered avatar style.
func KnownStyle(s string) bool {
	_, ok := avatarStyles[s]
	return ok
}

// ValidAddress reports whether s is a well-formed 0x address.
func ValidAddress(s string) bool {
	return addressRe.MatchString(s)
}

// Validate checks the identity shape. It is called by the codec before an
// identity ever reaches a consumer callback.
func (id *Identity) Validate() error {
	if !ValidAddress(id.Address) {
		return fmt.Errorf("invalid address %q", id.Address)
	}
	if id.Nickname == "" {
		return errors.New("missing nickname")
	}
	if !KnownStyle(id.Avatar.Style) {
		return fmt.Errorf("unregistered avatar style %q", id.Avatar.Style)
	}
	return nil
}
