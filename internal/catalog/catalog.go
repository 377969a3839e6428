package catalog

import (
	"errors"
	"fmt"

	"balancehub/internal/config"
)

var (
	ErrUnknownPack         = errors.New("余额包不存在")
	ErrUnknownCoupon       = errors.New("优惠券不存在")
	ErrCouponNotApplicable = errors.New("优惠券不适用于所选余额包")
)

// Pack 余额包目录项（只读）
type Pack struct {
	ID         string
	Name       string
	Size       int64 // 购买后增加的余额数量
	PriceCents int64 // 原价（最小货币单位）
}

// Coupon 优惠券目录项（只读）
type Coupon struct {
	Code            string
	DiscountPercent int64
	ApplicablePacks map[string]struct{}
}

// Applicable 判断优惠券是否适用于指定余额包
func (c *Coupon) Applicable(packID string) bool {
	_, ok := c.ApplicablePacks[packID]
	return ok
}

// Catalog 余额包与优惠券目录
// 启动时从配置构建，请求期间只读，不需要加锁
type Catalog struct {
	balanceType string
	currency    config.CurrencyConfig
	packs       map[string]*Pack
	packOrder   []string
	coupons     map[string]*Coupon
	couponOrder []string
}

// New 根据配置构建目录，配置不合法时返回错误（启动即失败）
func New(cfg *config.CatalogConfig) (*Catalog, error) {
	c := &Catalog{
		balanceType: cfg.BalanceType,
		currency:    cfg.Currency,
		packs:       make(map[string]*Pack),
		coupons:     make(map[string]*Coupon),
	}
	if c.balanceType == "" {
		c.balanceType = "Credits"
	}

	for _, p := range cfg.Packs {
		if p.ID == "" {
			return nil, errors.New("余额包缺少 id")
		}
		if _, exists := c.packs[p.ID]; exists {
			return nil, fmt.Errorf("余额包 id 重复: %s", p.ID)
		}
		if p.Size <= 0 {
			return nil, fmt.Errorf("余额包 %s 的 size 必须大于0", p.ID)
		}
		if p.PriceCents < 0 {
			return nil, fmt.Errorf("余额包 %s 的价格不能为负", p.ID)
		}
		c.packs[p.ID] = &Pack{
			ID:         p.ID,
			Name:       p.Name,
			Size:       p.Size,
			PriceCents: p.PriceCents,
		}
		c.packOrder = append(c.packOrder, p.ID)
	}

	for _, cp := range cfg.Coupons {
		if cp.Code == "" {
			return nil, errors.New("优惠券缺少 code")
		}
		if _, exists := c.coupons[cp.Code]; exists {
			return nil, fmt.Errorf("优惠券 code 重复: %s", cp.Code)
		}
		if cp.DiscountPercent < 0 || cp.DiscountPercent > 100 {
			return nil, fmt.Errorf("优惠券 %s 的折扣必须在 0-100 之间", cp.Code)
		}
		applicable := make(map[string]struct{}, len(cp.ApplicablePacks))
		for _, packID := range cp.ApplicablePacks {
			if _, ok := c.packs[packID]; !ok {
				return nil, fmt.Errorf("优惠券 %s 引用了不存在的余额包: %s", cp.Code, packID)
			}
			applicable[packID] = struct{}{}
		}
		c.coupons[cp.Code] = &Coupon{
			Code:            cp.Code,
			DiscountPercent: cp.DiscountPercent,
			ApplicablePacks: applicable,
		}
		c.couponOrder = append(c.couponOrder, cp.Code)
	}

	return c, nil
}

// Pack 按 id 查找余额包
func (c *Catalog) Pack(id string) (*Pack, error) {
	pack, ok := c.packs[id]
	if !ok {
		return nil, ErrUnknownPack
	}
	return pack, nil
}

// Coupon 按 code 查找优惠券
func (c *Catalog) Coupon(code string) (*Coupon, error) {
	coupon, ok := c.coupons[code]
	if !ok {
		return nil, ErrUnknownCoupon
	}
	return coupon, nil
}

// Packs 按配置顺序返回全部余额包（用于页面渲染）
func (c *Catalog) Packs() []*Pack {
	result := make([]*Pack, 0, len(c.packOrder))
	for _, id := range c.packOrder {
		result = append(result, c.packs[id])
	}
	return result
}

// Coupons 按配置顺序返回全部优惠券（用于页面渲染）
func (c *Catalog) Coupons() []*Coupon {
	result := make([]*Coupon, 0, len(c.couponOrder))
	for _, code := range c.couponOrder {
		result = append(result, c.coupons[code])
	}
	return result
}

// BalanceType 余额的展示名称
func (c *Catalog) BalanceType() string {
	return c.balanceType
}

// Quote 计算购买余额包的实付金额
//
// 规则：
//   - 不传优惠券：按原价
//   - 优惠券不存在：ErrUnknownCoupon
//   - 优惠券存在但不适用于该余额包：拒绝购买（ErrCouponNotApplicable）
//   - 适用：charged = price * (100 - discount) / 100，整数向下取整
func (c *Catalog) Quote(packID, couponCode string) (*Pack, int64, error) {
	pack, err := c.Pack(packID)
	if err != nil {
		return nil, 0, err
	}

	if couponCode == "" {
		return pack, pack.PriceCents, nil
	}

	coupon, err := c.Coupon(couponCode)
	if err != nil {
		return nil, 0, err
	}
	if !coupon.Applicable(packID) {
		return nil, 0, ErrCouponNotApplicable
	}

	charged := pack.PriceCents * (100 - coupon.DiscountPercent) / 100
	return pack, charged, nil
}

// FormatAmount 按配置的货币单位和小数位格式化金额
// 例如 unit="$" decimals=2 时，500 -> "$5.00"
func (c *Catalog) FormatAmount(cents int64) string {
	decimals := c.currency.Decimals
	if decimals <= 0 {
		return fmt.Sprintf("%s%d", c.currency.Unit, cents)
	}

	divisor := int64(1)
	for i := 0; i < decimals; i++ {
		divisor *= 10
	}
	return fmt.Sprintf("%s%d.%0*d", c.currency.Unit, cents/divisor, decimals, cents%divisor)
}
