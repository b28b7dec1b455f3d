package model

import "time"

// Project types. Stored as plain strings; unknown values are tolerated on read.
const (
	ProjectTypeTrading = "TRADING"
	ProjectTypePoints  = "POINTS"
	ProjectTypeOther   = "OTHER"
)

// EtherealLink 项目关联的 Ethereal 交易所账户 (可选, 用于 enrichment)
type EtherealLink struct {
	WalletAddress string `json:"wallet_address"`
	SubaccountID  string `json:"subaccount_id"`
}

// Project 代表一个接入方 (bot, farm, 客户)
type Project struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Slug      string       `json:"slug"`
	Type      string       `json:"type"`
	Color     string       `json:"color"`
	ApiKey    string       `json:"api_key"` // 网关颁发给项目的 Access Key
	Active    bool         `json:"active"`
	Ethereal  EtherealLink `json:"ethereal"`
	CreatedAt time.Time    `json:"created_at"`
}

// RateLimitConfig 定义项目的限流规则
type RateLimitConfig struct {
	QPS   float64 `json:"qps"`   // 每秒查询数
	Burst int     `json:"burst"` // 突发桶大小
}
