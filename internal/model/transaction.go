package model

import (
	"time"
)

// ============================================================================
// 余额变动类型常量
// ============================================================================

const (
	TransactionTypePurchase = "PURCHASE" // 购买余额包
	TransactionTypeConsume  = "CONSUME"  // 消耗余额
	TransactionTypeClear    = "CLEAR"    // 清零
	TransactionTypeGrant    = "GRANT"    // 系统发放（初始余额、定期免费余额）
)

// ============================================================================
// 余额流水实体
// ============================================================================

// BalanceTransaction 余额流水表
// 记录每一笔余额变动，是对账的核心依据
//
// 【重要】流水表设计原则：
// 1. 只追加，不修改，不删除 —— 保证审计可追溯
// 2. 记录变动前后余额 —— 便于校验余额一致性
// 3. 购买流水额外记录实付金额和优惠券 —— 价格信息只记录，不参与余额计算
type BalanceTransaction struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionNo string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_no"` // 流水号（全局唯一）
	UserUUID      string    `gorm:"type:varchar(36);index;not null" json:"user_uuid"`
	Amount        int64     `gorm:"not null" json:"amount"`                    // 余额变动（正数入账，负数出账）
	Type          string    `gorm:"type:varchar(20);not null" json:"type"`     // 变动类型
	ChargedCents  int64     `gorm:"not null;default:0" json:"charged_cents"`   // 实付金额（仅购买流水）
	CouponCode    string    `gorm:"type:varchar(32)" json:"coupon_code"`       // 使用的优惠券（仅购买流水）
	BalanceBefore int64     `gorm:"not null" json:"balance_before"`            // 变动前余额
	BalanceAfter  int64     `gorm:"not null" json:"balance_after"`             // 变动后余额
	Remark        string    `gorm:"type:varchar(256)" json:"remark"`           // 备注
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (BalanceTransaction) TableName() string {
	return "balance_transaction"
}
