package handler

import (
	"token-sale-gateway/internal/adapter/http/dto"
	"token-sale-gateway/internal/adapter/http/middleware"
	"token-sale-gateway/internal/core/domain"
	"token-sale-gateway/internal/core/ports"
	"token-sale-gateway/pkg/apperror"
	"token-sale-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WithdrawalHandler handles the withdrawal lifecycle: user requests plus
// the admin approve/reject queue.
type WithdrawalHandler struct {
	withdrawalSvc ports.WithdrawalService
}

// NewWithdrawalHandler creates a new WithdrawalHandler.
func NewWithdrawalHandler(withdrawalSvc ports.WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawalSvc: withdrawalSvc}
}

// Request handles POST /api/v1/withdrawals.
func (h *WithdrawalHandler) Request(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	w, err := h.withdrawalSvc.Request(c.Request.Context(), ports.WithdrawRequest{
		UserID:  userID,
		Amount:  req.Amount,
		Address: req.Address,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.FromWithdrawal(w))
}

// List handles GET /api/v1/withdrawals, the caller's own withdrawals.
func (h *WithdrawalHandler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	page, pageSize := parsePagination(c)
	withdrawals, total, err := h.withdrawalSvc.ListByUser(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toWithdrawalList(withdrawals, total, page, pageSize))
}

// ListPending handles GET /api/v1/admin/withdrawals, the pending queue in
// arrival order.
func (h *WithdrawalHandler) ListPending(c *gin.Context) {
	page, pageSize := parsePagination(c)
	withdrawals, total, err := h.withdrawalSvc.ListPending(c.Request.Context(), page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toWithdrawalList(withdrawals, total, page, pageSize))
}

// Approve handles POST /api/v1/admin/withdrawals/:id/approve.
func (h *WithdrawalHandler) Approve(c *gin.Context) {
	adminID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	withdrawalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid withdrawal id"))
		return
	}

	w, err := h.withdrawalSvc.Approve(c.Request.Context(), withdrawalID, adminID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromWithdrawal(w))
}

// Reject handles POST /api/v1/admin/withdrawals/:id/reject.
func (h *WithdrawalHandler) Reject(c *gin.Context) {
	adminID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	withdrawalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid withdrawal id"))
		return
	}

	var req dto.RejectWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	w, err := h.withdrawalSvc.Reject(c.Request.Context(), withdrawalID, adminID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromWithdrawal(w))
}

func toWithdrawalList(withdrawals []domain.Withdrawal, total int64, page, pageSize int) dto.WithdrawalListResponse {
	items := make([]dto.WithdrawalResponse, 0, len(withdrawals))
	for i := range withdrawals {
		items = append(items, dto.FromWithdrawal(&withdrawals[i]))
	}
	return dto.WithdrawalListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: dto.TotalPages(total, pageSize),
	}
}
