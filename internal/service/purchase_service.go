package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"balancehub/internal/catalog"
	"balancehub/internal/config"
	"balancehub/internal/infrastructure/lock"
	"balancehub/internal/model"
	"balancehub/internal/repository"
	"balancehub/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type PurchaseService struct {
	db              *gorm.DB
	redisClient     *redis.Client
	cfg             *config.Config
	cat             *catalog.Catalog
	userRepo        *repository.UserRepository
	transactionRepo *repository.TransactionRepository
	outboxRepo      *repository.OutboxRepository
}

func NewPurchaseService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, cat *catalog.Catalog) *PurchaseService {
	return &PurchaseService{
		db:              db,
		redisClient:     redisClient,
		cfg:             cfg,
		cat:             cat,
		userRepo:        repository.NewUserRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		outboxRepo:      repository.NewOutboxRepository(db),
	}
}

type PurchaseResult struct {
	PackID       string `json:"pack_id"`
	Size         int64  `json:"size"`
	ChargedCents int64  `json:"charged_cents"`
	NewBalance   int64  `json:"new_balance"`
}

// Purchase 购买余额包
//
// 【关键点】购买是核心写操作，需要保证：
// 1. 目录校验在拿锁之前完成，非法请求不消耗锁资源
// 2. 并发安全：同一用户的余额操作通过分布式锁串行化
// 3. 原子性：余额增加、流水记录、outbox 事件必须同时成功或同时失败
//
// 价格只做记录和返回，不存在独立的货币账户扣款（没有接入支付渠道）。
// 优惠券存在但不适用于所选余额包时，整单拒绝。
// 账户不存在时返回 ErrUserNotFound，不自动建户。
func (s *PurchaseService) Purchase(ctx context.Context, userUUID, packID, couponCode string) (*PurchaseResult, error) {
	pack, charged, err := s.cat.Quote(packID, couponCode)
	if err != nil {
		return nil, err
	}

	transactionNo := idgen.GenerateTransactionNo()

	balanceLock := lock.NewBalanceLock(s.redisClient, userUUID, transactionNo)
	if err := balanceLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer balanceLock.Unlock(ctx)

	var newBalance int64

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// 行锁读取，before/after 从这次读取推导
		// 免费发放任务不走分布式锁，靠这把行锁保证流水数字准确
		record, err := s.userRepo.GetByUUIDForUpdate(ctx, tx, userUUID)
		if err != nil {
			return err
		}
		newBalance = record.Balance + pack.Size

		if err := s.userRepo.Increase(ctx, tx, userUUID, pack.Size); err != nil {
			return fmt.Errorf("增加余额失败: %w", err)
		}

		trans := &model.BalanceTransaction{
			TransactionNo: transactionNo,
			UserUUID:      userUUID,
			Amount:        pack.Size,
			Type:          model.TransactionTypePurchase,
			ChargedCents:  charged,
			CouponCode:    couponCode,
			BalanceBefore: record.Balance,
			BalanceAfter:  newBalance,
			Remark:        fmt.Sprintf("购买余额包-%s", pack.ID),
		}
		if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		msgPayload := map[string]interface{}{
			"event_type":    model.BalanceEventPurchased,
			"user_uuid":     userUUID,
			"pack_id":       pack.ID,
			"size":          pack.Size,
			"charged_cents": charged,
			"coupon_code":   couponCode,
			"new_balance":   newBalance,
			"occurred_at":   time.Now().Format(time.RFC3339),
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
		return nil, err
	}

	log.Printf("购买成功: uuid=%s, pack=%s, size=%d, charged=%d", userUUID, pack.ID, pack.Size, charged)

	return &PurchaseResult{
		PackID:       pack.ID,
		Size:         pack.Size,
		ChargedCents: charged,
		NewBalance:   newBalance,
	}, nil
}
