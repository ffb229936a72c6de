package mode

import "github.com/thinkscotty/postmuse/internal/models"

// Context is the resolved persona and platform for one pipeline run. It is a
// plain value; nothing downstream reads the resolver directly.
type Context struct {
	Dark     bool            `json:"dark"`
	Platform models.Platform `json:"platform"`
}

func (c Context) AppName() string {
	if c.Dark {
		return "PostDemon"
	}
	return "PostAngel"
}

func (c Context) PlatformName() string {
	if c.Platform == models.PlatformLinkedIn {
		return "LinkedIn"
	}
	return "X"
}

func (c Context) CharacterLimit() int {
	if c.Platform == models.PlatformLinkedIn {
		return 3000
	}
	return 280
}

// Flipped returns the same platform with the opposite persona.
func (c Context) Flipped() Context {
	return Context{Dark: !c.Dark, Platform: c.Platform}
}
