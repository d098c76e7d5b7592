package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/hexavel/clientshare/internal/pkg/errcode"
	"github.com/hexavel/clientshare/internal/pkg/response"
	"github.com/hexavel/clientshare/internal/service"
)

type ShareHandler struct {
	shares *service.ShareService
}

func NewShareHandler(shares *service.ShareService) *ShareHandler {
	return &ShareHandler{shares: shares}
}

type generateShareCodeRequest struct {
	Permission     string `json:"permission"`
	ExpiresInHours int    `json:"expires_in_hours"`
	MaxUses        int    `json:"max_uses"`
}

type redeemShareCodeRequest struct {
	Code string `json:"code"`
}

func (h *ShareHandler) Generate(c *gin.Context) {
	var req generateShareCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if req.Permission == "" {
		req.Permission = service.PermissionView
	}
	generated, err := h.shares.GenerateShareCode(c.Request.Context(), getUserID(c), c.Param("id"), req.Permission, req.ExpiresInHours, req.MaxUses)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, generated)
}

func (h *ShareHandler) Redeem(c *gin.Context) {
	var req redeemShareCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	redeemed, err := h.shares.RedeemShareCode(c.Request.Context(), getUserID(c), req.Code)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, redeemed)
}

func (h *ShareHandler) RevokeAll(c *gin.Context) {
	revoked, err := h.shares.RevokeAllShareCodes(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"revoked_count": revoked})
}

func (h *ShareHandler) Stats(c *gin.Context) {
	stats, err := h.shares.GetClientSharingStats(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, stats)
}

func (h *ShareHandler) RemoveAccess(c *gin.Context) {
	if err := h.shares.RemoveSharedAccess(c.Request.Context(), getUserID(c), c.Param("id"), c.Param("user_id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *ShareHandler) ListSharedWithMe(c *gin.Context) {
	items, err := h.shares.ListSharedWithMe(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"items": items})
}
