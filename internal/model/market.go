package model

// Listing is an item offered on the market.
type Listing struct {
	ItemID   string `json:"item_id"`
	SellerID string `json:"seller_id"`
	Price    int64  `json:"price"`
}

// Account is a user's balance record.
type Account struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Funds  int64  `json:"funds"`
}
