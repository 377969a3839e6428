package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"balancehub/internal/config"
	"balancehub/internal/model"
	"balancehub/internal/repository"
	"balancehub/pkg/hashtag"
	"balancehub/pkg/idgen"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AccountService struct {
	db              *gorm.DB
	cfg             *config.Config
	userRepo        *repository.UserRepository
	transactionRepo *repository.TransactionRepository
	outboxRepo      *repository.OutboxRepository
}

func NewAccountService(db *gorm.DB, cfg *config.Config) *AccountService {
	return &AccountService{
		db:              db,
		cfg:             cfg,
		userRepo:        repository.NewUserRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		outboxRepo:      repository.NewOutboxRepository(db),
	}
}

// Register 创建新用户记录
//
// UUID 由服务端生成；User-Agent 只存哈希；初始余额来自配置，
// 同一事务内写入 GRANT 流水，保证余额与流水一致。
func (s *AccountService) Register(ctx context.Context, userAgent string) (*model.UserRecord, error) {
	now := time.Now()
	record := &model.UserRecord{
		UUID:          uuid.NewString(),
		UserAgentHash: hashtag.Hash(userAgent),
		Balance:       s.cfg.Business.StartingBalance,
		LastAwarded:   now,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.userRepo.Create(ctx, tx, record); err != nil {
			return fmt.Errorf("创建用户记录失败: %w", err)
		}

		if record.Balance > 0 {
			trans := &model.BalanceTransaction{
				TransactionNo: idgen.GenerateTransactionNo(),
				UserUUID:      record.UUID,
				Amount:        record.Balance,
				Type:          model.TransactionTypeGrant,
				BalanceBefore: 0,
				BalanceAfter:  record.Balance,
				Remark:        "新用户初始余额",
			}
			if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
				return fmt.Errorf("记录流水失败: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("新用户注册: uuid=%s, balance=%d", record.UUID, record.Balance)
	return record, nil
}

// Access 查询用户记录（只读）
func (s *AccountService) Access(ctx context.Context, userUUID string) (*model.UserRecord, error) {
	return s.userRepo.GetByUUID(ctx, userUUID)
}

// Clear 余额清零
func (s *AccountService) Clear(ctx context.Context, userUUID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		// 行锁读取后再清零，流水里的 before 才是真实被清掉的数字
		record, err := s.userRepo.GetByUUIDForUpdate(ctx, tx, userUUID)
		if err != nil {
			return err
		}

		if err := s.userRepo.ClearBalance(ctx, tx, userUUID); err != nil {
			return err
		}

		if record.Balance != 0 {
			trans := &model.BalanceTransaction{
				TransactionNo: idgen.GenerateTransactionNo(),
				UserUUID:      userUUID,
				Amount:        -record.Balance,
				Type:          model.TransactionTypeClear,
				BalanceBefore: record.Balance,
				BalanceAfter:  0,
				Remark:        "余额清零",
			}
			if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
				return fmt.Errorf("记录流水失败: %w", err)
			}
		}

		return s.writeEvent(ctx, tx, userUUID, model.BalanceEventCleared, map[string]interface{}{
			"user_uuid":      userUUID,
			"balance_before": record.Balance,
			"balance_after":  0,
		})
	})
}

// DeleteRecord 永久删除用户记录
func (s *AccountService) DeleteRecord(ctx context.Context, userUUID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.userRepo.Delete(ctx, tx, userUUID); err != nil {
			return err
		}
		return s.writeEvent(ctx, tx, userUUID, model.BalanceEventDeleted, map[string]interface{}{
			"user_uuid": userUUID,
		})
	})
}

// ClearAllBalances 所有用户余额清零（管理接口）
func (s *AccountService) ClearAllBalances(ctx context.Context) (int64, error) {
	affected, err := s.userRepo.ClearAllBalances(ctx)
	if err != nil {
		return 0, err
	}
	log.Printf("管理操作: 已清零 %d 个用户的余额", affected)
	return affected, nil
}

// DeleteAllRecords 删除所有用户记录（管理接口）
func (s *AccountService) DeleteAllRecords(ctx context.Context) (int64, error) {
	affected, err := s.userRepo.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	log.Printf("管理操作: 已删除 %d 个用户记录", affected)
	return affected, nil
}

// ListTransactions 查询用户余额流水（管理接口）
func (s *AccountService) ListTransactions(ctx context.Context, userUUID string, page, pageSize int) ([]*model.BalanceTransaction, int64, error) {
	return s.transactionRepo.ListByUserUUID(ctx, userUUID, page, pageSize)
}

// writeEvent 在当前事务内写入 outbox 事件，由 OutboxSender 异步投递
func (s *AccountService) writeEvent(ctx context.Context, tx *gorm.DB, userUUID, eventType string, payload map[string]interface{}) error {
	payload["event_type"] = eventType
	payload["occurred_at"] = time.Now().Format(time.RFC3339)
	payloadBytes, _ := json.Marshal(payload)

	msg := &model.OutboxMessage{
		MessageKey: userUUID,
		Topic:      s.cfg.Kafka.Topic.BalanceEvent,
		Payload:    string(payloadBytes),
		Status:     model.OutboxStatusPending,
	}
	if err := s.outboxRepo.Create(ctx, tx, msg); err != nil {
		return fmt.Errorf("写入消息失败: %w", err)
	}
	return nil
}
