package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"secured-auction/internal/auctionerrors"
	model "secured-auction/internal/models"
)

var errReadOnlyTx = errors.New("write attempted in read-only transaction")

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=repository

// AuctionDB defines the transactional store for identities, auctions, bids and settlements.
// Update runs fn inside one serializing transaction: fn's writes are committed together
// when it returns nil and discarded otherwise.
type AuctionDB interface {
	View(ctx context.Context, fn func(tx Tx) error) error
	Update(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the row-level view of the store inside one transaction.
// Reads made inside Update hold the rows they touch until commit.
type Tx interface {
	CreateUser(u *model.User) error
	UserByID(id int64) (model.User, error)
	UserByUsername(username string) (model.User, error)
	SaveUser(u *model.User) error

	CreateAuction(a *model.Auction) error
	AuctionByID(id int64) (model.Auction, error)
	ListAuctions() ([]model.Auction, error)
	ExpiredAuctions(now int64) ([]model.Auction, error)
	SaveAuction(a *model.Auction) error
	DeleteAuction(id int64) error

	CreateBid(b *model.Bid) error
	BidByID(id int64) (model.Bid, error)
	BidsByAuction(auctionID int64) ([]model.Bid, error)
	LatestBid(auctionID int64) (model.Bid, error)
	WinningBid(auctionID int64) (model.Bid, error)
	DeleteBid(id int64) error

	CreateSettlement(s *model.Settlement) error
	SettlementByAuction(auctionID int64) (model.Settlement, error)
}

// memState is the full dataset of a MemoryRepo
type memState struct {
	users       map[int64]model.User
	usernames   map[string]int64
	auctions    map[int64]model.Auction
	bids        map[int64]model.Bid
	auctionBids map[int64][]int64 // key: auctionID -> value: bid ids in insertion order
	settlements map[int64]model.Settlement

	nextUserID       int64
	nextAuctionID    int64
	nextBidID        int64
	nextSettlementID int64
}

func newMemState() *memState {
	return &memState{
		users:       make(map[int64]model.User),
		usernames:   make(map[string]int64),
		auctions:    make(map[int64]model.Auction),
		bids:        make(map[int64]model.Bid),
		auctionBids: make(map[int64][]int64),
		settlements: make(map[int64]model.Settlement),
	}
}

// remember journals the current value of m[k] so a failed Update can put it back
func remember[K comparable, V any](t *memTx, m map[K]V, k K) {
	prev, had := m[k]
	t.undo = append(t.undo, func() {
		if had {
			m[k] = prev
		} else {
			delete(m, k)
		}
	})
}

// rememberCounter journals an id sequence
func (t *memTx) rememberCounter(c *int64) {
	prev := *c
	t.undo = append(t.undo, func() { *c = prev })
}

func (t *memTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionDB.
// Update transactions are fully serialized behind the write lock.
type MemoryRepo struct {
	mu    sync.RWMutex
	state *memState
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{state: newMemState()}
}

// View runs fn against a consistent read-only snapshot
func (r *MemoryRepo) View(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	return fn(&memTx{state: r.state, readOnly: true})
}

// Update runs fn under the write lock. Writes land in place and are undone from the
// journal if fn fails.
func (r *MemoryRepo) Update(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &memTx{state: r.state}
	committed := false
	defer func() {
		if !committed {
			tx.rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	committed = true
	return nil
}

type memTx struct {
	state    *memState
	readOnly bool
	undo     []func()
}

func (t *memTx) writable() error {
	if t.readOnly {
		return errReadOnlyTx
	}
	return nil
}

func (t *memTx) CreateUser(u *model.User) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, taken := t.state.usernames[u.Username]; taken {
		return fmt.Errorf("create user %q: %w", u.Username, auctionerrors.ErrUsernameTaken)
	}
	t.rememberCounter(&t.state.nextUserID)
	t.state.nextUserID++
	u.ID = t.state.nextUserID
	remember(t, t.state.users, u.ID)
	remember(t, t.state.usernames, u.Username)
	t.state.users[u.ID] = *u
	t.state.usernames[u.Username] = u.ID
	return nil
}

func (t *memTx) UserByID(id int64) (model.User, error) {
	u, ok := t.state.users[id]
	if !ok {
		return model.User{}, fmt.Errorf("get user %d: %w", id, auctionerrors.ErrUserNotFound)
	}
	return u, nil
}

func (t *memTx) UserByUsername(username string) (model.User, error) {
	id, ok := t.state.usernames[username]
	if !ok {
		return model.User{}, fmt.Errorf("get user %q: %w", username, auctionerrors.ErrUserNotFound)
	}
	return t.state.users[id], nil
}

func (t *memTx) SaveUser(u *model.User) error {
	if err := t.writable(); err != nil {
		return err
	}
	old, ok := t.state.users[u.ID]
	if !ok {
		return fmt.Errorf("save user %d: %w", u.ID, auctionerrors.ErrUserNotFound)
	}
	if old.Username != u.Username {
		if _, taken := t.state.usernames[u.Username]; taken {
			return fmt.Errorf("save user %d: %w", u.ID, auctionerrors.ErrUsernameTaken)
		}
		remember(t, t.state.usernames, old.Username)
		remember(t, t.state.usernames, u.Username)
		delete(t.state.usernames, old.Username)
		t.state.usernames[u.Username] = u.ID
	}
	remember(t, t.state.users, u.ID)
	t.state.users[u.ID] = *u
	return nil
}

func (t *memTx) CreateAuction(a *model.Auction) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.state.users[a.SellerID]; !ok {
		return fmt.Errorf("create auction for seller %d: %w", a.SellerID, auctionerrors.ErrUserNotFound)
	}
	t.rememberCounter(&t.state.nextAuctionID)
	t.state.nextAuctionID++
	a.ID = t.state.nextAuctionID
	remember(t, t.state.auctions, a.ID)
	t.state.auctions[a.ID] = *a
	return nil
}

func (t *memTx) AuctionByID(id int64) (model.Auction, error) {
	a, ok := t.state.auctions[id]
	if !ok {
		return model.Auction{}, fmt.Errorf("get auction %d: %w", id, auctionerrors.ErrAuctionNotFound)
	}
	return a, nil
}

func (t *memTx) ListAuctions() ([]model.Auction, error) {
	auctions := make([]model.Auction, 0, len(t.state.auctions))
	for _, a := range t.state.auctions {
		auctions = append(auctions, a)
	}
	sort.Slice(auctions, func(i, j int) bool { return auctions[i].ID < auctions[j].ID })
	return auctions, nil
}

func (t *memTx) ExpiredAuctions(now int64) ([]model.Auction, error) {
	var expired []model.Auction
	for _, a := range t.state.auctions {
		if a.Status == model.AuctionActive && a.EndAt <= now {
			expired = append(expired, a)
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		if expired[i].EndAt != expired[j].EndAt {
			return expired[i].EndAt < expired[j].EndAt
		}
		return expired[i].ID < expired[j].ID
	})
	return expired, nil
}

func (t *memTx) SaveAuction(a *model.Auction) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.state.auctions[a.ID]; !ok {
		return fmt.Errorf("save auction %d: %w", a.ID, auctionerrors.ErrAuctionNotFound)
	}
	remember(t, t.state.auctions, a.ID)
	t.state.auctions[a.ID] = *a
	return nil
}

func (t *memTx) DeleteAuction(id int64) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.state.auctions[id]; !ok {
		return fmt.Errorf("delete auction %d: %w", id, auctionerrors.ErrAuctionNotFound)
	}
	for _, bidID := range t.state.auctionBids[id] {
		remember(t, t.state.bids, bidID)
		delete(t.state.bids, bidID)
	}
	remember(t, t.state.auctionBids, id)
	remember(t, t.state.auctions, id)
	delete(t.state.auctionBids, id)
	delete(t.state.auctions, id)
	return nil
}

func (t *memTx) CreateBid(b *model.Bid) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.state.auctions[b.AuctionID]; !ok {
		return fmt.Errorf("record bid for auction %d: %w", b.AuctionID, auctionerrors.ErrAuctionNotFound)
	}
	t.rememberCounter(&t.state.nextBidID)
	t.state.nextBidID++
	b.ID = t.state.nextBidID
	remember(t, t.state.bids, b.ID)
	remember(t, t.state.auctionBids, b.AuctionID)
	t.state.bids[b.ID] = *b
	t.state.auctionBids[b.AuctionID] = append(t.state.auctionBids[b.AuctionID], b.ID)
	return nil
}

func (t *memTx) BidByID(id int64) (model.Bid, error) {
	b, ok := t.state.bids[id]
	if !ok {
		return model.Bid{}, fmt.Errorf("get bid %d: %w", id, auctionerrors.ErrBidNotFound)
	}
	return b, nil
}

// BidsByAuction returns the bids of an auction, newest first
func (t *memTx) BidsByAuction(auctionID int64) ([]model.Bid, error) {
	ids := t.state.auctionBids[auctionID]
	bids := make([]model.Bid, 0, len(ids))
	for _, id := range ids {
		bids = append(bids, t.state.bids[id])
	}
	sort.Slice(bids, func(i, j int) bool { return bids[i].Newer(bids[j]) })
	return bids, nil
}

func (t *memTx) LatestBid(auctionID int64) (model.Bid, error) {
	ids := t.state.auctionBids[auctionID]
	if len(ids) == 0 {
		return model.Bid{}, fmt.Errorf("get latest bid for auction %d: %w", auctionID, auctionerrors.ErrNoBids)
	}
	latest := t.state.bids[ids[0]]
	for _, id := range ids[1:] {
		if b := t.state.bids[id]; b.Newer(latest) {
			latest = b
		}
	}
	return latest, nil
}

// WinningBid returns the highest bid for an auction, earliest first on ties
func (t *memTx) WinningBid(auctionID int64) (model.Bid, error) {
	ids := t.state.auctionBids[auctionID]
	if len(ids) == 0 {
		return model.Bid{}, fmt.Errorf("get winning bid for auction %d: %w", auctionID, auctionerrors.ErrNoBids)
	}
	winning := t.state.bids[ids[0]]
	for _, id := range ids[1:] {
		if b := t.state.bids[id]; b.Better(winning) {
			winning = b
		}
	}
	return winning, nil
}

func (t *memTx) DeleteBid(id int64) error {
	if err := t.writable(); err != nil {
		return err
	}
	b, ok := t.state.bids[id]
	if !ok {
		return fmt.Errorf("delete bid %d: %w", id, auctionerrors.ErrBidNotFound)
	}
	ids := t.state.auctionBids[b.AuctionID]
	kept := make([]int64, 0, len(ids))
	for _, other := range ids {
		if other != id {
			kept = append(kept, other)
		}
	}
	remember(t, t.state.auctionBids, b.AuctionID)
	remember(t, t.state.bids, id)
	t.state.auctionBids[b.AuctionID] = kept
	delete(t.state.bids, id)
	return nil
}

func (t *memTx) CreateSettlement(s *model.Settlement) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, done := t.state.settlements[s.AuctionID]; done {
		return fmt.Errorf("settle auction %d: %w", s.AuctionID, auctionerrors.ErrAuctionAlreadySettled)
	}
	t.rememberCounter(&t.state.nextSettlementID)
	t.state.nextSettlementID++
	s.ID = t.state.nextSettlementID
	remember(t, t.state.settlements, s.AuctionID)
	t.state.settlements[s.AuctionID] = *s
	return nil
}

func (t *memTx) SettlementByAuction(auctionID int64) (model.Settlement, error) {
	s, ok := t.state.settlements[auctionID]
	if !ok {
		return model.Settlement{}, fmt.Errorf("get settlement for auction %d: %w", auctionID, auctionerrors.ErrSettlementNotFound)
	}
	return s, nil
}
