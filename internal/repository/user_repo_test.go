package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"balancehub/internal/model"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.UserRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, userUUID string, balance int64, lastAwarded time.Time) {
	t.Helper()
	record := &model.UserRecord{
		UUID:          userUUID,
		UserAgentHash: "deadbeef",
		Balance:       balance,
		LastAwarded:   lastAwarded,
	}
	if err := db.Create(record).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func mustBalance(t *testing.T, db *gorm.DB, userUUID string) int64 {
	t.Helper()
	var record model.UserRecord
	if err := db.Where("uuid = ?", userUUID).First(&record).Error; err != nil {
		t.Fatalf("read balance: %v", err)
	}
	return record.Balance
}

func TestDeduct_InsufficientBalance(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	seedUser(t, db, "u-zero", 0, time.Now())

	err := repo.Deduct(ctx, nil, "u-zero", 1)
	if !errors.Is(err, ErrBalanceNotEnough) {
		t.Fatalf("expected ErrBalanceNotEnough, got %v", err)
	}
	if got := mustBalance(t, db, "u-zero"); got != 0 {
		t.Fatalf("expected balance unchanged at 0, got %d", got)
	}
}

func TestDeduct_UserNotFound(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)

	err := repo.Deduct(context.Background(), nil, "no-such-user", 1)
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestDeduct_Success(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	seedUser(t, db, "u-rich", 5, time.Now())

	if err := repo.Deduct(ctx, nil, "u-rich", 1); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := mustBalance(t, db, "u-rich"); got != 4 {
		t.Fatalf("expected balance 4, got %d", got)
	}
}

func TestDeduct_ExactBalance(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	seedUser(t, db, "u-exact", 3, time.Now())

	if err := repo.Deduct(ctx, nil, "u-exact", 3); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := mustBalance(t, db, "u-exact"); got != 0 {
		t.Fatalf("expected balance 0, got %d", got)
	}

	err := repo.Deduct(ctx, nil, "u-exact", 1)
	if !errors.Is(err, ErrBalanceNotEnough) {
		t.Fatalf("expected ErrBalanceNotEnough, got %v", err)
	}
}

func TestIncrease_UserNotFound(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)

	err := repo.Increase(context.Background(), nil, "no-such-user", 10)
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestIncrease_Success(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	seedUser(t, db, "u-inc", 2, time.Now())

	if err := repo.Increase(ctx, nil, "u-inc", 10); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := mustBalance(t, db, "u-inc"); got != 12 {
		t.Fatalf("expected balance 12, got %d", got)
	}
}

func TestClearBalance_UserNotFound(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)

	err := repo.ClearBalance(context.Background(), nil, "no-such-user")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestDelete_UserNotFound(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)

	err := repo.Delete(context.Background(), nil, "no-such-user")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestGrantFreeBalance_SingleFire(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	lastAwarded := time.Now().Add(-48 * time.Hour)
	seedUser(t, db, "u-award", 1, lastAwarded)

	cutoff := time.Now().Add(-24 * time.Hour)
	now := time.Now()

	granted, err := repo.GrantFreeBalance(ctx, nil, "u-award", 5, cutoff, now)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !granted {
		t.Fatalf("expected first grant to fire")
	}
	if got := mustBalance(t, db, "u-award"); got != 6 {
		t.Fatalf("expected balance 6, got %d", got)
	}

	// last_awarded 已被刷新，同一 cutoff 不会再次发放
	granted, err = repo.GrantFreeBalance(ctx, nil, "u-award", 5, cutoff, now)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if granted {
		t.Fatalf("expected second grant to be skipped")
	}
	if got := mustBalance(t, db, "u-award"); got != 6 {
		t.Fatalf("expected balance still 6, got %d", got)
	}
}
