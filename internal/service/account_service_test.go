package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"balancehub/internal/config"
	"balancehub/internal/model"
	"balancehub/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func mockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open gorm: %v", err)
	}
	return db, mock
}

func testServiceConfig() *config.Config {
	return &config.Config{
		Kafka: config.KafkaConfig{
			Topic: config.KafkaTopicConfig{BalanceEvent: "balance-event"},
		},
		Business: config.BusinessConfig{StartingBalance: 3},
	}
}

// 清零流水的 before/after 必须来自事务内的行锁读取，
// 而不是事务外的快照
func TestClear_LedgerDerivedFromLockedRead(t *testing.T) {
	db, mock := mockDB(t)
	svc := NewAccountService(db, testServiceConfig())

	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM `user_record` .*FOR UPDATE").
		WithArgs("u-clear").
		WillReturnRows(sqlmock.NewRows([]string{
			"uuid", "user_agent_hash", "balance", "last_awarded", "created_at", "updated_at",
		}).AddRow("u-clear", "deadbeef", int64(7), now, now, now))
	mock.ExpectExec("UPDATE `user_record` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `balance_transaction`").
		WithArgs(sqlmock.AnyArg(), "u-clear", int64(-7), model.TransactionTypeClear,
			int64(0), "", int64(7), int64(0), "余额清零", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO `outbox_message`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := svc.Clear(context.Background(), "u-clear"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestClear_UserNotFound(t *testing.T) {
	db, mock := mockDB(t)
	svc := NewAccountService(db, testServiceConfig())

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM `user_record` .*FOR UPDATE").
		WithArgs("no-such-user").
		WillReturnError(gorm.ErrRecordNotFound)
	mock.ExpectRollback()

	err := svc.Clear(context.Background(), "no-such-user")
	if !errors.Is(err, repository.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// 余额已经是 0 时不写 CLEAR 流水，但 outbox 事件照常落库
func TestClear_ZeroBalanceSkipsLedgerRow(t *testing.T) {
	db, mock := mockDB(t)
	svc := NewAccountService(db, testServiceConfig())

	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM `user_record` .*FOR UPDATE").
		WithArgs("u-empty").
		WillReturnRows(sqlmock.NewRows([]string{
			"uuid", "user_agent_hash", "balance", "last_awarded", "created_at", "updated_at",
		}).AddRow("u-empty", "deadbeef", int64(0), now, now, now))
	mock.ExpectExec("UPDATE `user_record` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `outbox_message`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := svc.Clear(context.Background(), "u-empty"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
