package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"balancehub/internal/catalog"
	"balancehub/internal/config"
	"balancehub/internal/repository"
	"balancehub/internal/service"
	"balancehub/pkg/hashtag"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

const userCookieName = "user_uuid"
const userCookieMaxAge = 365 * 24 * 3600

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	cfg             *config.Config
	cat             *catalog.Catalog
	accountService  *service.AccountService
	purchaseService *service.PurchaseService
	balanceService  *service.BalanceService
}

// NewHandler 创建处理器实例
func NewHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config, cat *catalog.Catalog) *Handler {
	return &Handler{
		cfg:             cfg,
		cat:             cat,
		accountService:  service.NewAccountService(db, cfg),
		purchaseService: service.NewPurchaseService(db, rdb, cfg, cat),
		balanceService:  service.NewBalanceService(db, rdb, cfg),
	}
}

// ============================================================
// 页面渲染
// ============================================================

type packView struct {
	ID    string
	Name  string
	Size  int64
	Price string
}

type couponView struct {
	Code     string
	Discount int64
	Packs    []string
}

// Index 余额面板
// GET /
//
// 没有 user_uuid cookie（或 cookie 指向已删除的记录）时创建新用户并种 cookie。
// User-Agent 哈希与记录不一致时提示设备变化，但不重置余额。
func (h *Handler) Index(c *gin.Context) {
	ctx := c.Request.Context()
	userAgent := c.Request.UserAgent()

	userUUID, err := c.Cookie(userCookieName)
	if err != nil || userUUID == "" {
		record, err := h.accountService.Register(ctx, userAgent)
		if err != nil {
			h.renderServerError(c, err)
			return
		}
		c.SetCookie(userCookieName, record.UUID, userCookieMaxAge, "/", "", false, true)
		h.renderIndex(c, record.UUID, record.UserAgentHash, record.Balance)
		return
	}

	record, err := h.accountService.Access(ctx, userUUID)
	if errors.Is(err, repository.ErrUserNotFound) {
		// cookie 指向的记录已经不存在（比如被删除），重新建户
		record, err = h.accountService.Register(ctx, userAgent)
		if err == nil {
			c.SetCookie(userCookieName, record.UUID, userCookieMaxAge, "/", "", false, true)
		}
	}
	if err != nil {
		h.renderServerError(c, err)
		return
	}

	if userAgent != "" && record.UserAgentHash != hashtag.Hash(userAgent) {
		h.renderIndex(c, record.UUID, record.UserAgentHash, record.Balance,
			"检测到浏览器或设备变化，余额不会被重置。")
		return
	}

	h.renderIndex(c, record.UUID, record.UserAgentHash, record.Balance)
}

// renderIndex 渲染面板页；extra 是本次请求内产生的提示，和 cookie 里的闪现消息一起展示
func (h *Handler) renderIndex(c *gin.Context, userUUID, userAgentHash string, balance int64, extra ...string) {
	packs := make([]packView, 0)
	for _, p := range h.cat.Packs() {
		packs = append(packs, packView{
			ID:    p.ID,
			Name:  p.Name,
			Size:  p.Size,
			Price: h.cat.FormatAmount(p.PriceCents),
		})
	}

	coupons := make([]couponView, 0)
	for _, cp := range h.cat.Coupons() {
		view := couponView{Code: cp.Code, Discount: cp.DiscountPercent}
		for _, p := range h.cat.Packs() {
			if cp.Applicable(p.ID) {
				view.Packs = append(view.Packs, p.ID)
			}
		}
		coupons = append(coupons, view)
	}

	c.HTML(http.StatusOK, "index.html", gin.H{
		"UserUUID":      userUUID,
		"UserAgentHash": userAgentHash,
		"Balance":       balance,
		"BalanceType":   h.cat.BalanceType(),
		"Packs":         packs,
		"Coupons":       coupons,
		"Flashes":       append(takeFlashes(c), extra...),
	})
}

func (h *Handler) renderServerError(c *gin.Context, err error) {
	log.Printf("内部错误: %v", err)
	c.HTML(http.StatusInternalServerError, "500.html", gin.H{})
}

// NotFound 404 页面
func (h *Handler) NotFound(c *gin.Context) {
	c.HTML(http.StatusNotFound, "404.html", gin.H{})
}

// ============================================================
// 表单操作
// ============================================================

// BuyBalance 购买余额包
// POST /buy_balance  字段: balance_pack, coupon_code（可选）
func (h *Handler) BuyBalance(c *gin.Context) {
	userUUID, err := c.Cookie(userCookieName)
	if err != nil || userUUID == "" {
		setFlash(c, "用户 UUID 缺失，请刷新页面后重试。")
		c.Redirect(http.StatusFound, "/")
		return
	}

	packID := c.PostForm("balance_pack")
	couponCode := c.PostForm("coupon_code")

	if packID == "" {
		setFlash(c, "请选择余额包。")
		c.Redirect(http.StatusFound, "/")
		return
	}

	result, err := h.purchaseService.Purchase(c.Request.Context(), userUUID, packID, couponCode)
	if err != nil {
		h.flashError(c, err)
		c.Redirect(http.StatusFound, "/")
		return
	}

	setFlash(c, fmt.Sprintf("已购买 %d %s，实付 %s，当前余额 %d。",
		result.Size, h.cat.BalanceType(), h.cat.FormatAmount(result.ChargedCents), result.NewBalance))
	c.Redirect(http.StatusFound, "/")
}

// UseBalance 消耗1个余额
// POST /use_balance
func (h *Handler) UseBalance(c *gin.Context) {
	userUUID, err := c.Cookie(userCookieName)
	if err != nil || userUUID == "" {
		setFlash(c, "用户 UUID 缺失，请刷新页面后重试。")
		c.Redirect(http.StatusFound, "/")
		return
	}

	newBalance, err := h.balanceService.Consume(c.Request.Context(), userUUID, 1)
	if err != nil {
		h.flashError(c, err)
		c.Redirect(http.StatusFound, "/")
		return
	}

	setFlash(c, fmt.Sprintf("余额使用成功，剩余 %d。", newBalance))
	c.Redirect(http.StatusFound, "/")
}

// AccessExisting 切换到已有账户
// POST /access_existing_balance  字段: user_uuid
func (h *Handler) AccessExisting(c *gin.Context) {
	userUUID := c.PostForm("user_uuid")
	if userUUID == "" {
		setFlash(c, "请输入用户 UUID。")
		c.Redirect(http.StatusFound, "/")
		return
	}

	record, err := h.accountService.Access(c.Request.Context(), userUUID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			setFlash(c, "UUID 无效，请重试。")
		} else {
			log.Printf("内部错误: %v", err)
			setFlash(c, "发生内部错误，请稍后重试。")
		}
		c.Redirect(http.StatusFound, "/")
		return
	}

	c.SetCookie(userCookieName, record.UUID, userCookieMaxAge, "/", "", false, true)
	setFlash(c, fmt.Sprintf("已切换账户，当前余额 %d。", record.Balance))
	c.Redirect(http.StatusFound, "/")
}

// ClearBalance 余额清零
// POST /clear_balance
func (h *Handler) ClearBalance(c *gin.Context) {
	userUUID, err := c.Cookie(userCookieName)
	if err != nil || userUUID == "" {
		setFlash(c, "用户 UUID 缺失，请刷新页面后重试。")
		c.Redirect(http.StatusFound, "/")
		return
	}

	if err := h.accountService.Clear(c.Request.Context(), userUUID); err != nil {
		h.flashError(c, err)
		c.Redirect(http.StatusFound, "/")
		return
	}

	setFlash(c, "余额已清零。")
	c.Redirect(http.StatusFound, "/")
}

// DeleteUserRecord 删除用户记录
// POST /delete_user_record
func (h *Handler) DeleteUserRecord(c *gin.Context) {
	userUUID, err := c.Cookie(userCookieName)
	if err != nil || userUUID == "" {
		setFlash(c, "用户 UUID 缺失，请刷新页面后重试。")
		c.Redirect(http.StatusFound, "/")
		return
	}

	if err := h.accountService.DeleteRecord(c.Request.Context(), userUUID); err != nil {
		h.flashError(c, err)
		c.Redirect(http.StatusFound, "/")
		return
	}

	c.SetCookie(userCookieName, "", -1, "/", "", false, true)
	setFlash(c, "用户记录已删除。")
	c.Redirect(http.StatusFound, "/")
}

// flashError 把可恢复的业务错误翻译成用户可见的提示
// 其余错误一律按内部错误处理，只写日志不外泄细节
func (h *Handler) flashError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		setFlash(c, "用户记录不存在，请刷新页面后重试。")
	case errors.Is(err, repository.ErrBalanceNotEnough):
		setFlash(c, "余额不足，请购买余额包或等待免费余额发放。")
	case errors.Is(err, catalog.ErrUnknownPack):
		setFlash(c, "所选余额包无效。")
	case errors.Is(err, catalog.ErrUnknownCoupon):
		setFlash(c, "优惠券无效，请重试。")
	case errors.Is(err, catalog.ErrCouponNotApplicable):
		setFlash(c, "该优惠券不适用于所选余额包。")
	default:
		log.Printf("内部错误: %v", err)
		setFlash(c, "发生内部错误，请稍后重试。")
	}
}
