package job

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"balancehub/internal/config"
	"balancehub/internal/model"
	"balancehub/internal/repository"
	"balancehub/pkg/idgen"

	"gorm.io/gorm"
)

// FreeBalanceJob 定期给用户发放免费余额
//
// 每个用户每隔 free_balance_interval_hours 小时可以获得一次
// free_balance_amount 的免费余额。发放语句带 last_awarded <= cutoff 条件，
// 多实例并发扫描时同一用户不会被重复发放。
type FreeBalanceJob struct {
	db              *gorm.DB
	userRepo        *repository.UserRepository
	transactionRepo *repository.TransactionRepository
	outboxRepo      *repository.OutboxRepository
	cfg             *config.Config
	stopCh          chan struct{}
	interval        time.Duration
	batchSize       int
}

func NewFreeBalanceJob(db *gorm.DB, cfg *config.Config) *FreeBalanceJob {
	return &FreeBalanceJob{
		db:              db,
		userRepo:        repository.NewUserRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		outboxRepo:      repository.NewOutboxRepository(db),
		cfg:             cfg,
		stopCh:          make(chan struct{}),
		interval:        time.Minute,
		batchSize:       100,
	}
}

func (j *FreeBalanceJob) Start(ctx context.Context) {
	log.Println("[FreeBalanceJob] 免费余额发放任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[FreeBalanceJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[FreeBalanceJob] 任务停止")
			return
		case <-ticker.C:
			j.awardDueUsers(ctx)
		}
	}
}

func (j *FreeBalanceJob) Stop() {
	close(j.stopCh)
}

func (j *FreeBalanceJob) awardDueUsers(ctx context.Context) {
	amount := j.cfg.Business.FreeBalanceAmount
	if amount <= 0 {
		return
	}

	awardInterval := time.Duration(j.cfg.Business.FreeBalanceIntervalHours) * time.Hour
	cutoff := time.Now().Add(-awardInterval)

	users, err := j.userRepo.ListAwardDue(ctx, cutoff, j.batchSize)
	if err != nil {
		log.Printf("[FreeBalanceJob] 查询待发放用户失败: %v", err)
		return
	}

	if len(users) == 0 {
		return
	}

	log.Printf("[FreeBalanceJob] 发现 %d 个待发放用户", len(users))

	awardedCount := 0
	for _, user := range users {
		if j.awardUser(ctx, user, amount, cutoff) {
			awardedCount++
		}
	}

	log.Printf("[FreeBalanceJob] 本次发放 %d 个用户", awardedCount)
}

func (j *FreeBalanceJob) awardUser(ctx context.Context, user *model.UserRecord, amount int64, cutoff time.Time) bool {
	now := time.Now()
	awarded := false

	err := j.db.Transaction(func(tx *gorm.DB) error {
		// 扫描结果可能已经过期，行锁重读后再发放，
		// 流水的 before/after 以这次读取为准
		record, err := j.userRepo.GetByUUIDForUpdate(ctx, tx, user.UUID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				// 扫描之后用户被删除，跳过
				return nil
			}
			return err
		}

		granted, err := j.userRepo.GrantFreeBalance(ctx, tx, user.UUID, amount, cutoff, now)
		if err != nil {
			return err
		}
		if !granted {
			// 其他实例已经发放过，跳过
			return nil
		}

		trans := &model.BalanceTransaction{
			TransactionNo: idgen.GenerateTransactionNo(),
			UserUUID:      user.UUID,
			Amount:        amount,
			Type:          model.TransactionTypeGrant,
			BalanceBefore: record.Balance,
			BalanceAfter:  record.Balance + amount,
			Remark:        "定期免费余额",
		}
		if err := j.transactionRepo.Create(ctx, tx, trans); err != nil {
			return err
		}

		msgPayload := map[string]interface{}{
			"event_type":  model.BalanceEventGranted,
			"user_uuid":   user.UUID,
			"amount":      amount,
			"new_balance": record.Balance + amount,
			"occurred_at": now.Format(time.RFC3339),
		}
		payloadBytes, _ := json.Marshal(msgPayload)

		outboxMsg := &model.OutboxMessage{
			MessageKey: user.UUID,
			Topic:      j.cfg.Kafka.Topic.BalanceEvent,
			Payload:    string(payloadBytes),
			Status:     model.OutboxStatusPending,
		}
		if err := j.outboxRepo.Create(ctx, tx, outboxMsg); err != nil {
			return err
		}

		awarded = true
		return nil
	})
	if err != nil {
		log.Printf("[FreeBalanceJob] 发放失败: uuid=%s, err=%v", user.UUID, err)
		return false
	}

	if awarded {
		log.Printf("[FreeBalanceJob] 发放成功: uuid=%s, amount=%d", user.UUID, amount)
	}
	return awarded
}
