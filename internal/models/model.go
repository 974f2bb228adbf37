package models

import "github.com/shopspring/decimal"

// AuctionStatus is the lifecycle state of an auction. ACTIVE -> INACTIVE is the only transition.
type AuctionStatus string

const (
	AuctionActive   AuctionStatus = "ACTIVE"
	AuctionInactive AuctionStatus = "INACTIVE"
)

// SettlementOutcome records what happened when an auction was closed
type SettlementOutcome string

const (
	SettlementPaid      SettlementOutcome = "PAID"
	SettlementNoBids    SettlementOutcome = "NO_BIDS"
	SettlementDefaulted SettlementOutcome = "DEFAULTED"
)

// User represents a registered identity bound to an RSA public key
type User struct {
	ID           int64           `json:"id" gorm:"primaryKey;autoIncrement"`
	Username     string          `json:"username" gorm:"uniqueIndex;not null"`
	PasswordHash string          `json:"-" gorm:"not null"`
	Balance      decimal.Decimal `json:"balance" gorm:"type:numeric;not null;default:0"`
	PublicKeyE   string          `json:"public_key_e" gorm:"type:text;not null"`
	PublicKeyN   string          `json:"public_key_n" gorm:"type:text;not null"`
	CreatedAt    int64           `json:"created_at" gorm:"not null"`
}

// Auction represents an item put up for sale by a seller
type Auction struct {
	ID          int64           `json:"id" gorm:"primaryKey;autoIncrement"`
	SellerID    int64           `json:"seller_id" gorm:"index;not null"`
	Title       string          `json:"title" gorm:"not null"`
	Description string          `json:"description" gorm:"not null"`
	BasePrice   decimal.Decimal `json:"base_price" gorm:"type:numeric;not null"`
	CreatedAt   int64           `json:"created_at" gorm:"not null"`
	EndAt       int64           `json:"end_at" gorm:"index;not null"`
	Status      AuctionStatus   `json:"status" gorm:"type:varchar(16);index;not null"`
}

// Bid represents a user's offer on an auction
type Bid struct {
	ID        int64           `json:"id" gorm:"primaryKey;autoIncrement"`
	AuctionID int64           `json:"auction_id" gorm:"index;not null"`
	UserID    int64           `json:"user_id" gorm:"index;not null"`
	CreatedAt int64           `json:"created_at" gorm:"not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:numeric;not null"`
}

// Settlement is written exactly once per closed auction, in the same
// transaction as the status flip and the fund transfer.
type Settlement struct {
	ID        int64             `json:"id" gorm:"primaryKey;autoIncrement"`
	AuctionID int64             `json:"auction_id" gorm:"uniqueIndex;not null"`
	SellerID  int64             `json:"seller_id" gorm:"not null"`
	BidID     *int64            `json:"bid_id"`
	WinnerID  *int64            `json:"winner_id"`
	Amount    decimal.Decimal   `json:"amount" gorm:"type:numeric;not null;default:0"`
	Outcome   SettlementOutcome `json:"outcome" gorm:"type:varchar(16);not null"`
	SettledAt int64             `json:"settled_at" gorm:"not null"`
}

// Better returns true when b outranks other as the winning bid:
// higher price first, then earlier creation, then lower id.
func (b Bid) Better(other Bid) bool {
	if c := b.Price.Cmp(other.Price); c != 0 {
		return c > 0
	}
	if b.CreatedAt != other.CreatedAt {
		return b.CreatedAt < other.CreatedAt
	}
	return b.ID < other.ID
}

// Newer returns true when b was placed after other on the same auction
func (b Bid) Newer(other Bid) bool {
	if b.CreatedAt != other.CreatedAt {
		return b.CreatedAt > other.CreatedAt
	}
	return b.ID > other.ID
}
