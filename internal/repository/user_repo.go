package repository

import (
	"context"
	"errors"
	"time"

	"balancehub/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrUserNotFound     = errors.New("用户记录不存在")
	ErrBalanceNotEnough = errors.New("余额不足")
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, tx *gorm.DB, record *model.UserRecord) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(record).Error
}

func (r *UserRepository) GetByUUID(ctx context.Context, userUUID string) (*model.UserRecord, error) {
	var record model.UserRecord
	err := r.db.WithContext(ctx).Where("uuid = ?", userUUID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &record, nil
}

// GetByUUIDForUpdate 在事务内加行锁读取用户记录（SELECT ... FOR UPDATE）
//
// 流水的 before/after 余额必须从这次读取推导：行锁一直持有到事务提交，
// 其他写入者（免费发放任务、清零）在此期间改不了这一行。
func (r *UserRepository) GetByUUIDForUpdate(ctx context.Context, tx *gorm.DB, userUUID string) (*model.UserRecord, error) {
	var record model.UserRecord
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("uuid = ?", userUUID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &record, nil
}

// Increase 增加余额
// 单条 UPDATE 语句完成，不做读-改-写，避免并发下余额错乱
func (r *UserRepository) Increase(ctx context.Context, tx *gorm.DB, userUUID string, amount int64) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.UserRecord{}).
		Where("uuid = ?", userUUID).
		Update("balance", gorm.Expr("balance + ?", amount))

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// Deduct 扣减余额
//
// 【关键点】WHERE 条件带上 balance >= ?，由数据库保证余额不会被扣成负数。
// RowsAffected == 0 时需要区分两种情况：用户不存在 / 余额不足
func (r *UserRepository) Deduct(ctx context.Context, tx *gorm.DB, userUUID string, amount int64) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.UserRecord{}).
		Where("uuid = ? AND balance >= ?", userUUID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		record, err := r.GetByUUID(ctx, userUUID)
		if err != nil {
			return err
		}
		if record.Balance < amount {
			return ErrBalanceNotEnough
		}
		return ErrUserNotFound
	}

	return nil
}

// ClearBalance 余额清零
func (r *UserRepository) ClearBalance(ctx context.Context, tx *gorm.DB, userUUID string) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.UserRecord{}).
		Where("uuid = ?", userUUID).
		Update("balance", 0)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Delete 删除用户记录
func (r *UserRepository) Delete(ctx context.Context, tx *gorm.DB, userUUID string) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Where("uuid = ?", userUUID).
		Delete(&model.UserRecord{})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ClearAllBalances 所有用户余额清零（管理接口）
func (r *UserRepository) ClearAllBalances(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.UserRecord{}).
		Where("1 = 1").
		Update("balance", 0)
	return result.RowsAffected, result.Error
}

// DeleteAll 删除所有用户记录（管理接口）
func (r *UserRepository) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("1 = 1").
		Delete(&model.UserRecord{})
	return result.RowsAffected, result.Error
}

// ListAwardDue 查询到了免费发放时间的用户
func (r *UserRepository) ListAwardDue(ctx context.Context, cutoff time.Time, limit int) ([]*model.UserRecord, error) {
	var records []*model.UserRecord
	err := r.db.WithContext(ctx).
		Where("last_awarded <= ?", cutoff).
		Order("last_awarded ASC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// GrantFreeBalance 发放免费余额
// WHERE 条件带上 last_awarded <= cutoff，多个实例并发扫描时同一用户只会发放一次
func (r *UserRepository) GrantFreeBalance(ctx context.Context, tx *gorm.DB, userUUID string, amount int64, cutoff, now time.Time) (bool, error) {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.UserRecord{}).
		Where("uuid = ? AND last_awarded <= ?", userUUID, cutoff).
		Updates(map[string]interface{}{
			"balance":      gorm.Expr("balance + ?", amount),
			"last_awarded": now,
		})

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
