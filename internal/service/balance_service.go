package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"balancehub/internal/config"
	"balancehub/internal/infrastructure/lock"
	"balancehub/internal/model"
	"balancehub/internal/repository"
	"balancehub/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type BalanceService struct {
	db              *gorm.DB
	redisClient     *redis.Client
	cfg             *config.Config
	userRepo        *repository.UserRepository
	transactionRepo *repository.TransactionRepository
	outboxRepo      *repository.OutboxRepository
}

func NewBalanceService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *BalanceService {
	return &BalanceService{
		db:              db,
		redisClient:     redisClient,
		cfg:             cfg,
		userRepo:        repository.NewUserRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		outboxRepo:      repository.NewOutboxRepository(db),
	}
}

// Consume 消耗余额
//
// 扣减走单条条件 UPDATE（balance >= amount），余额不足时整个操作不落任何变更。
// 分布式锁之外再依赖这条 SQL 兜底，任何情况下余额都不会为负。
func (s *BalanceService) Consume(ctx context.Context, userUUID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, errors.New("消耗数量必须大于0")
	}

	transactionNo := idgen.GenerateTransactionNo()

	balanceLock := lock.NewBalanceLock(s.redisClient, userUUID, transactionNo)
	if err := balanceLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return 0, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer balanceLock.Unlock(ctx)

	var newBalance int64

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// 行锁读取，余额判断和流水的 before/after 都以这次读取为准
		record, err := s.userRepo.GetByUUIDForUpdate(ctx, tx, userUUID)
		if err != nil {
			return err
		}

		if record.Balance < amount {
			return repository.ErrBalanceNotEnough
		}

		newBalance = record.Balance - amount

		if err := s.userRepo.Deduct(ctx, tx, userUUID, amount); err != nil {
			return err
		}

		trans := &model.BalanceTransaction{
			TransactionNo: transactionNo,
			UserUUID:      userUUID,
			Amount:        -amount,
			Type:          model.TransactionTypeConsume,
			BalanceBefore: record.Balance,
			BalanceAfter:  newBalance,
			Remark:        "消耗余额",
		}
		if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		msgPayload := map[string]interface{}{
			"event_type":  model.BalanceEventConsumed,
			"user_uuid":   userUUID,
			"amount":      amount,
			"new_balance": newBalance,
			"occurred_at": time.Now().Format(time.RFC3339),
		}
		payloadBytes, _ := json.Marshal(msgPayload)

		outboxMsg := &model.OutboxMessage{
			MessageKey: userUUID,
			Topic:      s.cfg.Kafka.Topic.BalanceEvent,
			Payload:    string(payloadBytes),
			Status:     model.OutboxStatusPending,
		}
		if err := s.outboxRepo.Create(ctx, tx, outboxMsg); err != nil {
			return fmt.Errorf("写入消息失败: %w", err)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	log.Printf("余额消耗成功: uuid=%s, amount=%d, balance=%d", userUUID, amount, newBalance)
	return newBalance, nil
}
