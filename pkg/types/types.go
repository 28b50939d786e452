package types

import "time"

// Tweet is one non-reply status from a user's timeline.
type Tweet struct {
	// Text is the status text with URLs, mentions and hashtags anchored.
	Text string `json:"text"`

	// CreatedAt is when the status was posted (UTC).
	CreatedAt time.Time `json:"date_created"`
}

// Activity is one entry from a user's public GitHub Atom feed.
type Activity struct {
	// Summary is the entry's HTML summary with root-relative links made absolute.
	Summary string `json:"summary"`

	// UpdatedAt is the entry's last-updated time.
	UpdatedAt time.Time `json:"date_updated"`
}
