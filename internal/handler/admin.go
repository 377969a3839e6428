package handler

import (
	"strconv"

	"balancehub/pkg/response"

	"github.com/gin-gonic/gin"
)

// ============================================================
// 管理接口（JSON），由 business.admin_enabled 控制是否注册
// ============================================================

// AdminClearAllBalances 所有用户余额清零
// POST /admin/clear_all_balances
func (h *Handler) AdminClearAllBalances(c *gin.Context) {
	affected, err := h.accountService.ClearAllBalances(c.Request.Context())
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"affected": affected,
		"message":  "所有用户余额已清零",
	})
}

// AdminDeleteAllUserRecords 删除所有用户记录
// POST /admin/delete_all_user_records
func (h *Handler) AdminDeleteAllUserRecords(c *gin.Context) {
	affected, err := h.accountService.DeleteAllRecords(c.Request.Context())
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"affected": affected,
		"message":  "所有用户记录已删除",
	})
}

// AdminListTransactions 查询用户余额流水
// GET /admin/users/transactions?user_uuid=xxx&page=1&page_size=10
func (h *Handler) AdminListTransactions(c *gin.Context) {
	userUUID := c.Query("user_uuid")
	if userUUID == "" {
		response.ParamError(c, "user_uuid 参数不能为空")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	transactions, total, err := h.accountService.ListTransactions(c.Request.Context(), userUUID, page, pageSize)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"list":      transactions,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}
