package model

import "time"

// View is one entry of a session's recently viewed history.
type View struct {
	ItemID   string    `json:"item_id"`
	ViewedAt time.Time `json:"viewed_at"`
}

// CartLine is one item in a shopping cart.
type CartLine struct {
	ItemID string `json:"item_id"`
	Count  int64  `json:"count"`
}
