// Package keys names every Redis key the service reads or writes.
package keys

const (
	// Market is the ZSET of listings, member "item.seller", score = price.
	Market = "market:"
	// Login maps session token to user id.
	Login = "login:"
	// Recent ranks session tokens by last touch time.
	Recent = "recent:"
	// Viewed ranks items by (negated) view count.
	Viewed = "viewed:"
	// Delay holds the refresh delay of each scheduled row.
	Delay = "delay:"
	// Schedule holds the next due time of each scheduled row.
	Schedule = "schedule:"
	// ArticleCounter is the id sequence for articles.
	ArticleCounter = "article:"
	// ArticleScore ranks articles by vote score.
	ArticleScore = "score:"
	// ArticleTime ranks articles by post time.
	ArticleTime = "time:"
)

// Inventory is the SET of items owned by a user.
func Inventory(userID string) string { return "inventory:" + userID }

// Account is the HASH holding a user's funds.
func Account(userID string) string { return "users:" + userID }

// Listing is the market member for an item offered by a seller.
func Listing(itemID, sellerID string) string { return itemID + "." + sellerID }

// History is the per-session ZSET of recently viewed items.
func History(token string) string { return Viewed + token }

// Cart is the per-session HASH of item counts.
func Cart(token string) string { return "cart:" + token }

// Row is the cached JSON snapshot of a backing row.
func Row(rowID string) string { return "inv:" + rowID }

// Page is a cached response.
func Page(hash string) string { return "cache:" + hash }

// Article is the HASH of a single article.
func Article(id string) string { return ArticleCounter + id }

// Voted is the SET of users that voted for an article.
func Voted(id string) string { return "voted:" + id }

// Group is the SET of articles in a group.
func Group(name string) string { return "group:" + name }
