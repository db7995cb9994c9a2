package model

import "time"

// Article is a posted link that users vote on.
type Article struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Link     string    `json:"link"`
	Poster   string    `json:"poster"`
	PostedAt time.Time `json:"posted_at"`
	Votes    int64     `json:"votes"`
}
