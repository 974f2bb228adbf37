package repository

import (
	"context"
	"errors"
	"fmt"

	"secured-auction/internal/auctionerrors"
	model "secured-auction/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// GormRepo is the relational implementation of AuctionDB.
// Postgres takes row locks (SELECT ... FOR UPDATE) inside Update; SQLite runs on a
// single connection, which serializes every transaction.
type GormRepo struct {
	db       *gorm.DB
	rowLocks bool
}

// OpenGorm connects to the given driver ("postgres" or "sqlite") and migrates the schema
func OpenGorm(driver, dsn string) (*GormRepo, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", driver, err)
	}

	if driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("sqlite handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return NewGormRepo(db)
}

// NewGormRepo wraps an open gorm handle and runs migrations
func NewGormRepo(db *gorm.DB) (*GormRepo, error) {
	err := db.AutoMigrate(
		&model.User{},
		&model.Auction{},
		&model.Bid{},
		&model.Settlement{},
	)
	if err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return &GormRepo{db: db, rowLocks: db.Dialector.Name() == "postgres"}, nil
}

// Close releases the underlying connection pool
func (r *GormRepo) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *GormRepo) View(ctx context.Context, fn func(tx Tx) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx, readOnly: true})
	})
}

func (r *GormRepo) Update(ctx context.Context, fn func(tx Tx) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx, lock: r.rowLocks})
	})
}

type gormTx struct {
	db       *gorm.DB
	lock     bool
	readOnly bool
}

// forUpdate returns a query builder that locks the selected rows until commit
func (t *gormTx) forUpdate() *gorm.DB {
	if t.lock {
		return t.db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return t.db
}

func (t *gormTx) writable() error {
	if t.readOnly {
		return errReadOnlyTx
	}
	return nil
}

func (t *gormTx) CreateUser(u *model.User) error {
	if err := t.writable(); err != nil {
		return err
	}
	if err := t.db.Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("create user %q: %w", u.Username, auctionerrors.ErrUsernameTaken)
		}
		return fmt.Errorf("create user %q: %w", u.Username, err)
	}
	return nil
}

func (t *gormTx) UserByID(id int64) (model.User, error) {
	var u model.User
	err := t.forUpdate().Where("id = ?", id).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.User{}, fmt.Errorf("get user %d: %w", id, auctionerrors.ErrUserNotFound)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

func (t *gormTx) UserByUsername(username string) (model.User, error) {
	var u model.User
	err := t.forUpdate().Where("username = ?", username).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.User{}, fmt.Errorf("get user %q: %w", username, auctionerrors.ErrUserNotFound)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("get user %q: %w", username, err)
	}
	return u, nil
}

func (t *gormTx) SaveUser(u *model.User) error {
	if err := t.writable(); err != nil {
		return err
	}
	res := t.db.Model(&model.User{}).
		Where("id = ?", u.ID).
		Select("username", "password_hash", "balance", "public_key_e", "public_key_n").
		Updates(u)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("save user %d: %w", u.ID, auctionerrors.ErrUsernameTaken)
		}
		return fmt.Errorf("save user %d: %w", u.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("save user %d: %w", u.ID, auctionerrors.ErrUserNotFound)
	}
	return nil
}

func (t *gormTx) CreateAuction(a *model.Auction) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, err := t.UserByID(a.SellerID); err != nil {
		return fmt.Errorf("create auction: %w", err)
	}
	if err := t.db.Create(a).Error; err != nil {
		return fmt.Errorf("create auction: %w", err)
	}
	return nil
}

func (t *gormTx) AuctionByID(id int64) (model.Auction, error) {
	var a model.Auction
	err := t.forUpdate().Where("id = ?", id).Take(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Auction{}, fmt.Errorf("get auction %d: %w", id, auctionerrors.ErrAuctionNotFound)
	}
	if err != nil {
		return model.Auction{}, fmt.Errorf("get auction %d: %w", id, err)
	}
	return a, nil
}

func (t *gormTx) ListAuctions() ([]model.Auction, error) {
	var auctions []model.Auction
	if err := t.db.Order("id").Find(&auctions).Error; err != nil {
		return nil, fmt.Errorf("list auctions: %w", err)
	}
	return auctions, nil
}

func (t *gormTx) ExpiredAuctions(now int64) ([]model.Auction, error) {
	var auctions []model.Auction
	err := t.db.
		Where("status = ? AND end_at <= ?", model.AuctionActive, now).
		Order("end_at, id").
		Find(&auctions).Error
	if err != nil {
		return nil, fmt.Errorf("list expired auctions: %w", err)
	}
	return auctions, nil
}

func (t *gormTx) SaveAuction(a *model.Auction) error {
	if err := t.writable(); err != nil {
		return err
	}
	res := t.db.Model(&model.Auction{}).
		Where("id = ?", a.ID).
		Select("title", "description", "base_price", "end_at", "status").
		Updates(a)
	if res.Error != nil {
		return fmt.Errorf("save auction %d: %w", a.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("save auction %d: %w", a.ID, auctionerrors.ErrAuctionNotFound)
	}
	return nil
}

func (t *gormTx) DeleteAuction(id int64) error {
	if err := t.writable(); err != nil {
		return err
	}
	if err := t.db.Where("auction_id = ?", id).Delete(&model.Bid{}).Error; err != nil {
		return fmt.Errorf("delete bids of auction %d: %w", id, err)
	}
	res := t.db.Where("id = ?", id).Delete(&model.Auction{})
	if res.Error != nil {
		return fmt.Errorf("delete auction %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete auction %d: %w", id, auctionerrors.ErrAuctionNotFound)
	}
	return nil
}

func (t *gormTx) CreateBid(b *model.Bid) error {
	if err := t.writable(); err != nil {
		return err
	}
	if err := t.db.Create(b).Error; err != nil {
		return fmt.Errorf("record bid for auction %d: %w", b.AuctionID, err)
	}
	return nil
}

func (t *gormTx) BidByID(id int64) (model.Bid, error) {
	var b model.Bid
	err := t.forUpdate().Where("id = ?", id).Take(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Bid{}, fmt.Errorf("get bid %d: %w", id, auctionerrors.ErrBidNotFound)
	}
	if err != nil {
		return model.Bid{}, fmt.Errorf("get bid %d: %w", id, err)
	}
	return b, nil
}

func (t *gormTx) BidsByAuction(auctionID int64) ([]model.Bid, error) {
	var bids []model.Bid
	err := t.db.
		Where("auction_id = ?", auctionID).
		Order("created_at DESC, id DESC").
		Find(&bids).Error
	if err != nil {
		return nil, fmt.Errorf("list bids for auction %d: %w", auctionID, err)
	}
	return bids, nil
}

func (t *gormTx) LatestBid(auctionID int64) (model.Bid, error) {
	var b model.Bid
	err := t.db.
		Where("auction_id = ?", auctionID).
		Order("created_at DESC, id DESC").
		Limit(1).
		Take(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Bid{}, fmt.Errorf("get latest bid for auction %d: %w", auctionID, auctionerrors.ErrNoBids)
	}
	if err != nil {
		return model.Bid{}, fmt.Errorf("get latest bid for auction %d: %w", auctionID, err)
	}
	return b, nil
}

func (t *gormTx) WinningBid(auctionID int64) (model.Bid, error) {
	var b model.Bid
	err := t.db.
		Where("auction_id = ?", auctionID).
		Order("price DESC, created_at ASC, id ASC").
		Limit(1).
		Take(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Bid{}, fmt.Errorf("get winning bid for auction %d: %w", auctionID, auctionerrors.ErrNoBids)
	}
	if err != nil {
		return model.Bid{}, fmt.Errorf("get winning bid for auction %d: %w", auctionID, err)
	}
	return b, nil
}

func (t *gormTx) DeleteBid(id int64) error {
	if err := t.writable(); err != nil {
		return err
	}
	res := t.db.Where("id = ?", id).Delete(&model.Bid{})
	if res.Error != nil {
		return fmt.Errorf("delete bid %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete bid %d: %w", id, auctionerrors.ErrBidNotFound)
	}
	return nil
}

func (t *gormTx) CreateSettlement(s *model.Settlement) error {
	if err := t.writable(); err != nil {
		return err
	}
	if err := t.db.Create(s).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("settle auction %d: %w", s.AuctionID, auctionerrors.ErrAuctionAlreadySettled)
		}
		return fmt.Errorf("settle auction %d: %w", s.AuctionID, err)
	}
	return nil
}

func (t *gormTx) SettlementByAuction(auctionID int64) (model.Settlement, error) {
	var s model.Settlement
	err := t.db.Where("auction_id = ?", auctionID).Take(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Settlement{}, fmt.Errorf("get settlement for auction %d: %w", auctionID, auctionerrors.ErrSettlementNotFound)
	}
	if err != nil {
		return model.Settlement{}, fmt.Errorf("get settlement for auction %d: %w", auctionID, err)
	}
	return s, nil
}
