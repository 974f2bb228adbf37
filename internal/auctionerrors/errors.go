package auctionerrors

import "errors"

// Kind classifies a domain error. The transport layer maps kinds to status classes.
type Kind int

const (
	KindInternal Kind = iota
	KindIdentity
	KindIntegrity
	KindValidation
	KindOwnership
	KindNotFound
	KindState
	KindInsufficientFunds
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindIdentity:
		return "identity"
	case KindIntegrity:
		return "integrity"
	case KindValidation:
		return "validation"
	case KindOwnership:
		return "ownership"
	case KindNotFound:
		return "not_found"
	case KindState:
		return "state"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a sentinel domain error carrying its wire code
type Error struct {
	Kind    Kind
	Code    int
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(kind Kind, code int, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// KindOf returns the kind of the first domain error in err's chain
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// Identity errors
var (
	ErrNotAuthenticated = newError(KindIdentity, 13, "user not identified")
	ErrTokenExpired     = newError(KindIdentity, 14, "token expired")
	ErrTokenInvalid     = newError(KindIdentity, 15, "invalid token")
	ErrTokenNoSubject   = newError(KindIdentity, 16, "user id not found in token")
	ErrTokenBadSubject  = newError(KindIdentity, 17, "invalid user id in token")
	ErrLoginFailed      = newError(KindIdentity, 20, "authentication failed")
)

// Integrity errors. The message stays generic whatever check failed.
var (
	ErrSignatureInvalid = newError(KindIntegrity, 18, "signature verification failed")
)

// Validation errors
var (
	ErrMalformedMessage   = newError(KindValidation, 19, "invalid JSON in message")
	ErrDecode             = newError(KindValidation, 21, "credential could not be decoded")
	ErrInvalidPublicKey   = newError(KindValidation, 22, "invalid public key")
	ErrInvalidPassword    = newError(KindValidation, 24, "password must be between 6 and 32 characters")
	ErrInvalidUsername    = newError(KindValidation, 11, "username must be between 3 and 25 characters")
	ErrInvalidAmount      = newError(KindValidation, 25, "amount is not valid")
	ErrInvalidWindow      = newError(KindValidation, 30, "auction must last between 2 minutes and 24 hours")
	ErrInvalidPrice       = newError(KindValidation, 31, "price must be at least 5.00")
	ErrInvalidTitle       = newError(KindValidation, 32, "title is not valid")
	ErrInvalidDescription = newError(KindValidation, 38, "description is not valid")
	ErrInvalidBidPrice    = newError(KindValidation, 48, "bid price must be positive")
	ErrPlaintextTooLarge  = newError(KindValidation, 26, "plaintext too large for modulus")
)

// Conflict errors
var (
	ErrUsernameTaken = newError(KindConflict, 23, "username is already taken")
)

// Ledger errors
var (
	ErrAuctionNotFound       = newError(KindNotFound, 40, "auction not found")
	ErrNotSeller             = newError(KindOwnership, 41, "you are not the seller of this auction")
	ErrAuctionFinished       = newError(KindState, 42, "auction already finished")
	ErrBidNotFound           = newError(KindNotFound, 43, "bid not found")
	ErrNotOwner              = newError(KindOwnership, 44, "you are not the owner of this bid")
	ErrCancelWindowExpired   = newError(KindState, 45, "bid can no longer be cancelled")
	ErrNotLatestBid          = newError(KindState, 46, "only the latest bid can be cancelled")
	ErrInsufficientBalance   = newError(KindInsufficientFunds, 47, "insufficient credit")
	ErrUserNotFound          = newError(KindNotFound, 49, "user not found")
	ErrAuctionAlreadySettled = newError(KindState, 50, "auction already settled")
)

// Repository-level errors
var (
	ErrNoBids             = errors.New("no bids found for auction")
	ErrSettlementNotFound = errors.New("settlement not found")
)

// Settlement errors, never shown to clients
var (
	ErrAuctionOpen = errors.New("auction has not ended yet")
)
