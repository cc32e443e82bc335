package handler

import (
	"token-sale-gateway/internal/adapter/http/dto"
	"token-sale-gateway/internal/adapter/http/middleware"
	"token-sale-gateway/internal/core/domain"
	"token-sale-gateway/internal/core/ports"
	"token-sale-gateway/pkg/apperror"
	"token-sale-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler handles balance and ledger history endpoints.
type WalletHandler struct {
	walletSvc ports.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc}
}

// Balance handles GET /api/v1/wallet/balance.
func (h *WalletHandler) Balance(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	info, err := h.walletSvc.Balance(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromBalance(info))
}

// History handles GET /api/v1/wallet/history. The optional "type" query
// param filters by entry type.
func (h *WalletHandler) History(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	params := ports.LedgerListParams{UserID: userID}
	params.Page, params.PageSize = parsePagination(c)

	if raw := c.Query("type"); raw != "" {
		entryType := domain.EntryType(raw)
		switch entryType {
		case domain.EntryTypeDeposit, domain.EntryTypeReferralCommission, domain.EntryTypeWithdrawal:
			params.EntryType = &entryType
		default:
			response.Error(c, apperror.Validation("unknown entry type"))
			return
		}
	}

	entries, total, err := h.walletSvc.History(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.LedgerEntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, dto.FromLedgerEntry(&entries[i]))
	}
	response.OK(c, dto.LedgerListResponse{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: dto.TotalPages(total, params.PageSize),
	})
}
