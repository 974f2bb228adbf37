package auction

import (
	"regexp"
	"unicode/utf8"

	"secured-auction/internal/auctionerrors"

	"github.com/shopspring/decimal"
)

const (
	minAuctionDuration = 120   // seconds
	maxAuctionDuration = 86400 // seconds
)

var (
	titlePattern       = regexp.MustCompile(`^[A-Za-zÀ-ÖØ-öø-ÿ0-9 ]*$`)
	descriptionPattern = regexp.MustCompile(`^[\p{L}\p{N}_\s\-',.]*$`)
	minBasePrice       = decimal.NewFromInt(5)
)

// NewAuction holds the seller-supplied fields of an auction
type NewAuction struct {
	Title       string
	Description string
	BasePrice   decimal.Decimal
	EndAt       int64 // unix seconds
}

// validate applies the listing rules at time now (unix seconds)
func (a NewAuction) validate(now int64) error {
	if n := utf8.RuneCountInString(a.Title); n <= 3 || n >= 15 || !titlePattern.MatchString(a.Title) {
		return auctionerrors.ErrInvalidTitle
	}
	if n := utf8.RuneCountInString(a.Description); n <= 3 || n >= 80 || !descriptionPattern.MatchString(a.Description) {
		return auctionerrors.ErrInvalidDescription
	}
	if a.BasePrice.LessThan(minBasePrice) {
		return auctionerrors.ErrInvalidPrice
	}
	if d := a.EndAt - now; d < minAuctionDuration || d > maxAuctionDuration {
		return auctionerrors.ErrInvalidWindow
	}
	return nil
}
