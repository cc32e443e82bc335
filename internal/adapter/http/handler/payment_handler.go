package handler

import (
	"net/url"
	"strconv"

	"token-sale-gateway/internal/adapter/http/dto"
	"token-sale-gateway/internal/adapter/http/middleware"
	"token-sale-gateway/internal/core/ports"
	"token-sale-gateway/pkg/apperror"
	"token-sale-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ipnSignatureHeader carries the gateway's HMAC-SHA512 hex signature over
// the raw IPN body.
const ipnSignatureHeader = "HMAC"

// PaymentHandler handles payment initiation, listing, and the gateway's IPN
// callback.
type PaymentHandler struct {
	paymentSvc ports.PaymentService
	verifier   ports.IPNVerifier
	log        zerolog.Logger
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentSvc ports.PaymentService, verifier ports.IPNVerifier, log zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{paymentSvc: paymentSvc, verifier: verifier, log: log}
}

// Initiate handles POST /api/v1/payments.
func (h *PaymentHandler) Initiate(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	payment, err := h.paymentSvc.Initiate(c.Request.Context(), ports.InitiateRequest{
		UserID:    userID,
		AmountUSD: req.AmountUSD,
		Currency:  req.Currency,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.FromPayment(payment))
}

// List handles GET /api/v1/payments.
func (h *PaymentHandler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	page, pageSize := parsePagination(c)
	payments, total, err := h.paymentSvc.List(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.PaymentResponse, 0, len(payments))
	for i := range payments {
		items = append(items, dto.FromPayment(&payments[i]))
	}
	response.OK(c, dto.PaymentListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: dto.TotalPages(total, pageSize),
	})
}

// IPN handles POST /api/v1/payments/ipn, the gateway's settlement callback.
// The signature is verified over the exact raw body before any parsing; an
// unsigned or tampered notification never reaches the settlement engine.
func (h *PaymentHandler) IPN(c *gin.Context) {
	rawBody, err := c.GetRawData()
	if err != nil {
		response.Error(c, apperror.ErrMalformedIPN("cannot read body"))
		return
	}

	if err := h.verifier.Verify(rawBody, c.GetHeader(ipnSignatureHeader)); err != nil {
		h.log.Warn().Str("client_ip", c.ClientIP()).Msg("rejected IPN with bad signature")
		response.Error(c, err)
		return
	}

	values, err := url.ParseQuery(string(rawBody))
	if err != nil {
		response.Error(c, apperror.ErrMalformedIPN("body is not form-encoded"))
		return
	}

	event, err := h.verifier.Parse(values)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.paymentSvc.Settle(c.Request.Context(), event)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.log.Info().
		Str("txn_id", event.TxnID).
		Int("gateway_status", event.GatewayStatus).
		Bool("replay", result.Replay).
		Msg("IPN processed")

	response.OK(c, gin.H{
		"txn_id": result.Payment.TxnID,
		"status": result.Payment.Status,
		"replay": result.Replay,
	})
}

// parsePagination reads page/page_size query params with sane bounds.
func parsePagination(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if err != nil || pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
