package model

import (
	"time"
)

// UserRecord 用户记录表
// 记录用户的余额，是整个系统的核心数据
type UserRecord struct {
	UUID          string    `gorm:"type:varchar(36);primaryKey" json:"user_uuid"`      // 用户UUID，创建时生成，不可变
	UserAgentHash string    `gorm:"type:varchar(64);not null" json:"user_agent_hash"`  // User-Agent 的 SHA-256 摘要，仅作关联标记
	Balance       int64     `gorm:"not null;default:0" json:"balance"`                 // 可用余额，任何时刻不允许为负
	LastAwarded   time.Time `gorm:"not null" json:"last_awarded"`                      // 上次免费发放余额的时间
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (UserRecord) TableName() string {
	return "user_record"
}
