package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"storefront-api/internal/keys"
	"storefront-api/internal/logger"
	"storefront-api/internal/model"
	"storefront-api/internal/txn"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Reasons a market transaction is rejected. All of them wrap
// txn.ErrPreconditionFailed so callers may treat them as one outcome.
var (
	ErrItemNotOwned      = fmt.Errorf("%w: item not in seller inventory", txn.ErrPreconditionFailed)
	ErrItemNotListed     = fmt.Errorf("%w: item not listed", txn.ErrPreconditionFailed)
	ErrPriceChanged      = fmt.Errorf("%w: price changed", txn.ErrPreconditionFailed)
	ErrInsufficientFunds = fmt.Errorf("%w: insufficient funds", txn.ErrPreconditionFailed)
)

// ErrInvalidUserID is returned for user ids that cannot appear in a listing.
var ErrInvalidUserID = errors.New("invalid user id")

// ValidateUserID checks that id can be used as a seller in a market listing.
// The listing member is "item.seller", so seller ids must not contain a dot.
func ValidateUserID(id string) error {
	if id == "" || strings.Contains(id, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidUserID, id)
	}
	return nil
}

// MarketConfig holds the transaction deadlines.
type MarketConfig struct {
	ListTimeout     time.Duration
	PurchaseTimeout time.Duration
}

// DefaultMarketConfig returns the standard deadlines.
func DefaultMarketConfig() MarketConfig {
	return MarketConfig{
		ListTimeout:     5 * time.Second,
		PurchaseTimeout: 10 * time.Second,
	}
}

// MarketService moves items between inventories and the market.
type MarketService struct {
	redis  *redis.Client
	txn    *txn.Executor
	config MarketConfig
	log    *logrus.Entry
}

// NewMarketService creates a market service.
func NewMarketService(client *redis.Client, executor *txn.Executor, config MarketConfig, log logrus.FieldLogger) *MarketService {
	if config.ListTimeout <= 0 {
		config.ListTimeout = 5 * time.Second
	}
	if config.PurchaseTimeout <= 0 {
		config.PurchaseTimeout = 10 * time.Second
	}
	return &MarketService{
		redis:  client,
		txn:    executor,
		config: config,
		log:    logger.Component(log, "market"),
	}
}

// ListItem moves itemID from the seller's inventory onto the market at price.
func (s *MarketService) ListItem(ctx context.Context, itemID, sellerID string, price int64) error {
	if err := ValidateUserID(sellerID); err != nil {
		return err
	}
	inventory := keys.Inventory(sellerID)
	listing := keys.Listing(itemID, sellerID)

	err := s.txn.Run(ctx, s.config.ListTimeout, []string{inventory},
		func(ctx context.Context, tx *redis.Tx) error {
			owned, err := tx.SIsMember(ctx, inventory, itemID).Result()
			if err != nil {
				return err
			}
			if !owned {
				return fmt.Errorf("%w: %s", ErrItemNotOwned, itemID)
			}
			return nil
		},
		func(pipe redis.Pipeliner) error {
			pipe.ZAdd(ctx, keys.Market, redis.Z{Score: float64(price), Member: listing})
			pipe.SRem(ctx, inventory, itemID)
			return nil
		})
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{"item": itemID, "seller": sellerID, "price": price}).Info("item listed")
	return nil
}

// PurchaseItem buys the listing of itemID by sellerID for expectedPrice.
func (s *MarketService) PurchaseItem(ctx context.Context, buyerID, itemID, sellerID string, expectedPrice int64) error {
	if err := ValidateUserID(sellerID); err != nil {
		return err
	}
	if err := ValidateUserID(buyerID); err != nil {
		return err
	}
	buyer := keys.Account(buyerID)
	seller := keys.Account(sellerID)
	inventory := keys.Inventory(buyerID)
	listing := keys.Listing(itemID, sellerID)

	var price int64
	err := s.txn.Run(ctx, s.config.PurchaseTimeout, []string{keys.Market, buyer},
		func(ctx context.Context, tx *redis.Tx) error {
			score, err := tx.ZScore(ctx, keys.Market, listing).Result()
			if errors.Is(err, redis.Nil) {
				return fmt.Errorf("%w: %s", ErrItemNotListed, listing)
			}
			if err != nil {
				return err
			}
			price = int64(score)

			funds, err := tx.HGet(ctx, buyer, "funds").Int64()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}

			if price != expectedPrice {
				return fmt.Errorf("%w: listed at %d, expected %d", ErrPriceChanged, price, expectedPrice)
			}
			if funds < price {
				return fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, funds, price)
			}
			return nil
		},
		func(pipe redis.Pipeliner) error {
			pipe.HIncrBy(ctx, seller, "funds", price)
			pipe.HIncrBy(ctx, buyer, "funds", -price)
			pipe.SAdd(ctx, inventory, itemID)
			pipe.ZRem(ctx, keys.Market, listing)
			return nil
		})
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"item": itemID, "seller": sellerID, "buyer": buyerID, "price": price,
	}).Info("item purchased")
	return nil
}

// GrantItem adds itemID to a user's inventory.
func (s *MarketService) GrantItem(ctx context.Context, userID, itemID string) error {
	if err := s.redis.SAdd(ctx, keys.Inventory(userID), itemID).Err(); err != nil {
		return fmt.Errorf("failed to grant item: %w", err)
	}
	return nil
}

// Deposit adds amount to a user's funds and returns the new balance.
func (s *MarketService) Deposit(ctx context.Context, userID string, amount int64) (int64, error) {
	funds, err := s.redis.HIncrBy(ctx, keys.Account(userID), "funds", amount).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to deposit funds: %w", err)
	}
	return funds, nil
}

// Account returns a user's account. Unknown users have zero funds.
func (s *MarketService) Account(ctx context.Context, userID string) (*model.Account, error) {
	fields, err := s.redis.HGetAll(ctx, keys.Account(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	acct := &model.Account{UserID: userID, Name: fields["name"]}
	if v, ok := fields["funds"]; ok {
		acct.Funds, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse funds: %w", err)
		}
	}
	return acct, nil
}

// Inventory returns the items a user owns.
func (s *MarketService) Inventory(ctx context.Context, userID string) ([]string, error) {
	items, err := s.redis.SMembers(ctx, keys.Inventory(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory: %w", err)
	}
	return items, nil
}

// Listings returns up to limit listings, cheapest first.
func (s *MarketService) Listings(ctx context.Context, limit int64) ([]model.Listing, error) {
	if limit <= 0 {
		limit = 100
	}
	entries, err := s.redis.ZRangeWithScores(ctx, keys.Market, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get listings: %w", err)
	}

	listings := make([]model.Listing, 0, len(entries))
	for _, z := range entries {
		member, _ := z.Member.(string)
		// item ids may contain dots; the seller id is everything after the last one
		idx := strings.LastIndex(member, ".")
		if idx < 0 {
			continue
		}
		listings = append(listings, model.Listing{
			ItemID:   member[:idx],
			SellerID: member[idx+1:],
			Price:    int64(z.Score),
		})
	}
	return listings, nil
}
