package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/coderpushkar05072002/InsuranceMarketplace/internal/models"
	"github.com/coderpushkar05072002/InsuranceMarketplace/internal/repository"
	"github.com/coderpushkar05072002/InsuranceMarketplace/internal/services"
	"github.com/coderpushkar05072002/InsuranceMarketplace/internal/utils"

	"github.com/gofiber/fiber/v3"
	"github.com/shopspring/decimal"
)

const (
	headerUserID         = "X-User-ID"
	headerAPIKey         = "X-API-Key"
	headerIdempotencyKey = "Idempotency-Key"
	headerReplayed       = "Idempotent-Replayed"

	// maxAmountInput bounds a textual amount; 2^128 with 18 decimals fits easily.
	maxAmountInput = 96
	// BodyLimit keeps JSON amounts to a size the decimal parser handles quickly.
	BodyLimit = 16 * 1024
)

type SettlementHandler struct {
	service     *services.SettlementService
	idempotency repository.IdempotencyStore
	decimals    int32
	apiKey      string
}

// NewSettlementHandler wires the HTTP surface. idempotency may be nil; admin
// routes are only registered when apiKey is set.
func NewSettlementHandler(service *services.SettlementService, idempotency repository.IdempotencyStore, decimals int, apiKey string) *SettlementHandler {
	return &SettlementHandler{
		service:     service,
		idempotency: idempotency,
		decimals:    int32(decimals),
		apiKey:      apiKey,
	}
}

func (h *SettlementHandler) Register(app *fiber.App) {
	app.Post("/buyInsurance", h.idempotent(h.BuyInsurance))
	app.Post("/claimInsurance", h.idempotent(h.ClaimInsurance))
	app.Post("/createPolicy", h.idempotent(h.CreatePolicy))
	app.Post("/fundLiquidity", h.idempotent(h.FundLiquidity))
	app.Post("/withdrawLiquidity", h.idempotent(h.WithdrawLiquidity))

	app.Get("/getPolicy/:policyId", h.GetPolicy)
	app.Get("/getPolicy/:policyId/events", h.GetPolicyEvents)
	app.Get("/getPolicy/:policyId/claims", h.GetBeneficiaryClaims)
	app.Get("/quote/:policyId", h.GetQuote)
	app.Get("/policyCount", h.GetPolicyCount)
	app.Get("/policies", h.ListPolicies)
	app.Get("/quotePremium", h.QuotePremium)

	if h.apiKey == "" {
		return
	}
	admin := app.Group("/admin", h.requireAPIKey)
	admin.Get("/config", h.GetConfig)
	admin.Post("/fees", h.SetFees)
	admin.Post("/feeWallet", h.SetFeeWallet)
	admin.Post("/paused", h.SetPaused)
	admin.Post("/policyStatus", h.SetPolicyStatus)
}

// ============================================================================
// REQUESTS
// ============================================================================

type buyInsuranceRequest struct {
	PolicyID uint64          `json:"policyId"`
	Premium  decimal.Decimal `json:"premium"`
}

type policyAmountRequest struct {
	PolicyID uint64          `json:"policyId"`
	Amount   decimal.Decimal `json:"amount"`
}

type createPolicyRequest struct {
	Beneficiary   string          `json:"beneficiary"`
	Premium       decimal.Decimal `json:"premium"`
	CoverageLimit decimal.Decimal `json:"coverageLimit"`
	FeeMode       any             `json:"feeMode"`
	Start         uint64          `json:"start"`
	End           uint64          `json:"end"`
}

type setFeesRequest struct {
	ProviderCommissionBps  uint16 `json:"providerCommissionBps"`
	PayerFeeBps            uint16 `json:"payerFeeBps"`
	ExecutionCommissionBps uint16 `json:"executionCommissionBps"`
}

type setFeeWalletRequest struct {
	FeeWallet string `json:"feeWallet"`
}

type setPausedRequest struct {
	Paused bool `json:"paused"`
}

type setPolicyStatusRequest struct {
	PolicyID uint64 `json:"policyId"`
	Active   bool   `json:"active"`
}

// response is a status plus envelope, so POST results can be stored and
// replayed under an idempotency key.
type response struct {
	status int
	body   any
}

func succeed(data any) response {
	return response{status: http.StatusOK, body: utils.CreateSuccessResponse(data)}
}

func fail(status int, code, message string) response {
	return response{status: status, body: utils.CreateErrorResponse(code, message)}
}

// ============================================================================
// VALUE-MOVING ROUTES
// ============================================================================

func (h *SettlementHandler) BuyInsurance(c fiber.Ctx) response {
	caller, res, done := h.caller(c)
	if done {
		return res
	}
	var req buyInsuranceRequest
	if err := c.Bind().Body(&req); err != nil {
		return response{status: http.StatusBadRequest, body: utils.InvalidRequestResponse(err)}
	}
	paid, err := h.baseUnits(req.Premium)
	if err != nil {
		return failFrom(err)
	}

	receipt, err := h.service.PayPremium(c.Context(), caller, models.PolicyID(req.PolicyID), paid)
	if res, ok := h.unpersisted(receipt, err); ok {
		return res
	}
	if err != nil {
		return failFrom(err)
	}
	return succeed(h.receiptView("Insurance purchased successfully", receipt))
}

func (h *SettlementHandler) ClaimInsurance(c fiber.Ctx) response {
	caller, res, done := h.caller(c)
	if done {
		return res
	}
	var req policyAmountRequest
	if err := c.Bind().Body(&req); err != nil {
		return response{status: http.StatusBadRequest, body: utils.InvalidRequestResponse(err)}
	}
	amount, err := h.baseUnits(req.Amount)
	if err != nil {
		return failFrom(err)
	}

	receipt, err := h.service.PayClaim(c.Context(), caller, models.PolicyID(req.PolicyID), amount)
	if res, ok := h.unpersisted(receipt, err); ok {
		return res
	}
	if err != nil {
		return failFrom(err)
	}
	return succeed(h.receiptView("Claim paid successfully", receipt))
}

func (h *SettlementHandler) CreatePolicy(c fiber.Ctx) response {
	caller, res, done := h.caller(c)
	if done {
		return res
	}
	var req createPolicyRequest
	if err := c.Bind().Body(&req); err != nil {
		return response{status: http.StatusBadRequest, body: utils.InvalidRequestResponse(err)}
	}
	mode := models.FeeModeStandard
	if req.FeeMode != nil {
		parsed, err := models.ParseFeeMode(fmt.Sprint(req.FeeMode))
		if err != nil {
			return failFrom(models.NewSettlementError(models.KindInvalidAmount, "%v", err))
		}
		mode = parsed
	}
	premium, err := h.baseUnits(req.Premium)
	if err != nil {
		return failFrom(err)
	}
	coverage, err := h.baseUnits(req.CoverageLimit)
	if err != nil {
		return failFrom(err)
	}

	receipt, err := h.service.CreatePolicy(c.Context(), caller, services.CreatePolicyParams{
		Beneficiary:   models.Address(req.Beneficiary),
		Premium:       premium,
		CoverageLimit: coverage,
		FeeMode:       mode,
		Start:         req.Start,
		End:           req.End,
	})
	if err != nil {
		return failFrom(err)
	}
	return response{status: http.StatusCreated, body: utils.CreateSuccessResponse(h.receiptView("Policy created successfully", receipt))}
}

func (h *SettlementHandler) FundLiquidity(c fiber.Ctx) response {
	caller, res, done := h.caller(c)
	if done {
		return res
	}
	var req policyAmountRequest
	if err := c.Bind().Body(&req); err != nil {
		return response{status: http.StatusBadRequest, body: utils.InvalidRequestResponse(err)}
	}
	amount, err := h.baseUnits(req.Amount)
	if err != nil {
		return failFrom(err)
	}

	receipt, err := h.service.FundLiquidity(c.Context(), caller, models.PolicyID(req.PolicyID), amount)
	if res, ok := h.unpersisted(receipt, err); ok {
		return res
	}
	if err != nil {
		return failFrom(err)
	}
	return succeed(h.receiptView("Liquidity funded successfully", receipt))
}

func (h *SettlementHandler) WithdrawLiquidity(c fiber.Ctx) response {
	caller, res, done := h.caller(c)
	if done {
		return res
	}
	var req policyAmountRequest
	if err := c.Bind().Body(&req); err != nil {
		return response{status: http.StatusBadRequest, body: utils.InvalidRequestResponse(err)}
	}
	amount, err := h.baseUnits(req.Amount)
	if err != nil {
		return failFrom(err)
	}

	receipt, err := h.service.WithdrawLiquidity(c.Context(), caller, models.PolicyID(req.PolicyID), amount)
	if res, ok := h.unpersisted(receipt, err); ok {
		return res
	}
	if err != nil {
		return failFrom(err)
	}
	return succeed(h.receiptView("Liquidity withdrawn successfully", receipt))
}

// ============================================================================
// VIEWS
// ============================================================================

func (h *SettlementHandler) GetPolicy(c fiber.Ctx) error {
	id, err := parsePolicyID(c)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.InvalidPolicyIDResponse())
	}
	policy, err := h.service.GetPolicy(id)
	if err != nil {
		return write(c, failFrom(err))
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(policy))
}

func (h *SettlementHandler) GetPolicyEvents(c fiber.Ctx) error {
	id, err := parsePolicyID(c)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.InvalidPolicyIDResponse())
	}
	events, err := h.service.PolicyEvents(c.Context(), id)
	if err != nil {
		return write(c, failFrom(err))
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(map[string]interface{}{
		"policy_id": id,
		"events":    events,
		"count":     len(events),
	}))
}

func (h *SettlementHandler) GetBeneficiaryClaims(c fiber.Ctx) error {
	caller, res, done := h.caller(c)
	if done {
		return write(c, res)
	}
	id, err := parsePolicyID(c)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.InvalidPolicyIDResponse())
	}
	claims, err := h.service.BeneficiaryClaims(c.Context(), caller, id)
	if err != nil {
		return write(c, failFrom(err))
	}
	total := models.Amount{}
	for _, e := range claims {
		if sum, err := total.Add(e.Net); err == nil {
			total = sum
		}
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(map[string]interface{}{
		"policy_id":        id,
		"claims":           claims,
		"count":            len(claims),
		"total_received":   total,
		"display_received": h.display(total),
	}))
}

func (h *SettlementHandler) GetQuote(c fiber.Ctx) error {
	id, err := parsePolicyID(c)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.InvalidPolicyIDResponse())
	}
	quote, err := h.service.QuotePolicy(id)
	if err != nil {
		return write(c, failFrom(err))
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(map[string]interface{}{
		"policy_id": id,
		"quote":     quote,
		"display": map[string]string{
			"total_payable":     h.display(quote.TotalPayable),
			"provider_receives": h.display(quote.ProviderReceives),
			"platform_fee":      h.display(quote.PlatformFee),
		},
	}))
}

func (h *SettlementHandler) GetPolicyCount(c fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(map[string]interface{}{
		"count": h.service.PolicyCount(),
	}))
}

func (h *SettlementHandler) ListPolicies(c fiber.Ctx) error {
	policies := h.service.ListPolicies()
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(map[string]interface{}{
		"policies": policies,
		"count":    len(policies),
	}))
}

// QuotePremium prices an arbitrary premium under the current fee schedule,
// before any policy exists. Query: premium, feeMode (default standard).
func (h *SettlementHandler) QuotePremium(c fiber.Ctx) error {
	raw := c.Query("premium")
	if len(raw) > maxAmountInput {
		return write(c, failFrom(models.NewSettlementError(models.KindInvalidAmount, "premium is too long")))
	}
	premiumDec, err := decimal.NewFromString(raw)
	if err != nil {
		return write(c, failFrom(models.NewSettlementError(models.KindInvalidAmount, "premium: %v", err)))
	}
	premium, err := h.baseUnits(premiumDec)
	if err != nil {
		return write(c, failFrom(err))
	}
	mode, err := models.ParseFeeMode(c.Query("feeMode", string(models.FeeModeStandard)))
	if err != nil {
		return write(c, failFrom(models.NewSettlementError(models.KindInvalidAmount, "%v", err)))
	}

	var quote models.Quote
	if mode == models.FeeModeExecution {
		quote, err = h.service.QuoteExecution(premium)
	} else {
		quote, err = h.service.QuoteStandard(premium)
	}
	if err != nil {
		return write(c, failFrom(err))
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(map[string]interface{}{
		"fee_mode": mode,
		"quote":    quote,
		"display": map[string]string{
			"total_payable":     h.display(quote.TotalPayable),
			"provider_receives": h.display(quote.ProviderReceives),
			"platform_fee":      h.display(quote.PlatformFee),
		},
	}))
}

// ============================================================================
// ADMIN ROUTES
// ============================================================================

func (h *SettlementHandler) requireAPIKey(c fiber.Ctx) error {
	if c.Get(headerAPIKey) != h.apiKey {
		return c.Status(http.StatusUnauthorized).JSON(
			utils.CreateErrorResponse("UNAUTHORIZED", "A valid API key is required"))
	}
	return c.Next()
}

func (h *SettlementHandler) GetConfig(c fiber.Ctx) error {
	cfg, err := h.service.Config()
	if err != nil {
		return write(c, failFrom(err))
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(cfg))
}

func (h *SettlementHandler) SetFees(c fiber.Ctx) error {
	caller, res, done := h.caller(c)
	if done {
		return write(c, res)
	}
	var req setFeesRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.InvalidRequestResponse(err))
	}
	cfg, err := h.service.SetFees(c.Context(), caller, models.FeeSchedule{
		ProviderCommissionBps:  req.ProviderCommissionBps,
		PayerFeeBps:            req.PayerFeeBps,
		ExecutionCommissionBps: req.ExecutionCommissionBps,
	})
	if err != nil {
		return write(c, failFrom(err))
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(cfg))
}

func (h *SettlementHandler) SetFeeWallet(c fiber.Ctx) error {
	caller, res, done := h.caller(c)
	if done {
		return write(c, res)
	}
	var req setFeeWalletRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.InvalidRequestResponse(err))
	}
	cfg, err := h.service.SetFeeWallet(c.Context(), caller, models.Address(req.FeeWallet))
	if err != nil {
		return write(c, failFrom(err))
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(cfg))
}

func (h *SettlementHandler) SetPaused(c fiber.Ctx) error {
	caller, res, done := h.caller(c)
	if done {
		return write(c, res)
	}
	var req setPausedRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.InvalidRequestResponse(err))
	}
	cfg, err := h.service.SetPaused(c.Context(), caller, req.Paused)
	if err != nil {
		return write(c, failFrom(err))
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(cfg))
}

func (h *SettlementHandler) SetPolicyStatus(c fiber.Ctx) error {
	caller, res, done := h.caller(c)
	if done {
		return write(c, res)
	}
	var req setPolicyStatusRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.InvalidRequestResponse(err))
	}
	receipt, err := h.service.SetPolicyActive(c.Context(), caller, models.PolicyID(req.PolicyID), req.Active)
	if res, ok := h.unpersisted(receipt, err); ok {
		return write(c, res)
	}
	if err != nil {
		return write(c, failFrom(err))
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(h.receiptView("Policy status updated", receipt)))
}

// ============================================================================
// HELPERS
// ============================================================================

func (h *SettlementHandler) caller(c fiber.Ctx) (models.Address, response, bool) {
	userID := c.Get(headerUserID)
	if userID == "" {
		return "", fail(http.StatusUnauthorized, "UNAUTHORIZED", "User ID is required"), true
	}
	return models.NormalizeAddress(userID), response{}, false
}

func (h *SettlementHandler) baseUnits(d decimal.Decimal) (models.Amount, error) {
	amount, err := utils.ToBaseUnits(d, h.decimals)
	if err != nil {
		return models.Amount{}, models.NewSettlementError(models.KindInvalidAmount, "%v", err)
	}
	return amount, nil
}

func (h *SettlementHandler) display(a models.Amount) string {
	return utils.FromBaseUnits(a, h.decimals).String()
}

func (h *SettlementHandler) receiptView(message string, receipt *models.Receipt) map[string]interface{} {
	return map[string]interface{}{
		"message": message,
		"txHash":  receipt.TxRef.String(),
		"event":   receipt.Event,
		"policy":  receipt.Policy,
	}
}

// unpersisted turns a settlement that moved value but could not be stored
// into 202 with the receipt, so an idempotent retry replays it instead of
// paying twice.
func (h *SettlementHandler) unpersisted(receipt *models.Receipt, err error) (response, bool) {
	if receipt == nil || !errors.Is(err, services.ErrSettlementUnpersisted) {
		return response{}, false
	}
	slog.Error("Settlement accepted without a stored record", "tx_ref", receipt.TxRef, "error", err)
	view := h.receiptView("Settlement applied; record pending persistence", receipt)
	view["persisted"] = false
	return response{status: http.StatusAccepted, body: utils.CreateSuccessResponse(view)}, true
}

func parsePolicyID(c fiber.Ctx) (models.PolicyID, error) {
	id, err := strconv.ParseUint(c.Params("policyId"), 10, 64)
	if err != nil {
		return 0, err
	}
	return models.PolicyID(id), nil
}

// statusFor maps settlement error kinds to HTTP statuses.
func statusFor(kind models.ErrorKind) int {
	switch kind {
	case models.KindInvalidAmount, models.KindZeroAddress, models.KindBadTimeWindow:
		return http.StatusBadRequest
	case models.KindNotOwner, models.KindNotProvider, models.KindNotBeneficiary:
		return http.StatusForbidden
	case models.KindInvalidPolicy:
		return http.StatusNotFound
	case models.KindPolicyActive, models.KindPolicyInactive, models.KindAlreadyClaimed,
		models.KindInsufficientLiquidity, models.KindPaused, models.KindReentrancy:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func failFrom(err error) response {
	var se *models.SettlementError
	if errors.As(err, &se) {
		return fail(statusFor(se.Kind), se.Kind.Code(), se.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fail(http.StatusServiceUnavailable, "TIMEOUT", "Request timed out waiting for the policy")
	}
	slog.Error("Settlement request failed", "error", err)
	return fail(http.StatusInternalServerError, "INTERNAL_ERROR", "Settlement failed")
}

func write(c fiber.Ctx, r response) error {
	return c.Status(r.status).JSON(r.body)
}

// idempotent adapts a POST handler. With an Idempotency-Key header the first
// non-5xx response is stored and replayed verbatim for retries of the same
// caller and route.
func (h *SettlementHandler) idempotent(fn func(fiber.Ctx) response) fiber.Handler {
	return func(c fiber.Ctx) error {
		key := c.Get(headerIdempotencyKey)
		if key == "" || h.idempotency == nil {
			return write(c, fn(c))
		}
		scoped := c.Path() + ":" + c.Get(headerUserID) + ":" + key
		ctx := c.Context()

		stored, err := h.idempotency.Begin(ctx, scoped)
		if errors.Is(err, repository.ErrIdempotencyInProgress) {
			return c.Status(http.StatusConflict).JSON(
				utils.CreateErrorResponse("IDEMPOTENCY_IN_PROGRESS", "A request with this idempotency key is still running"))
		}
		if err != nil {
			slog.Error("Idempotency store unavailable", "key", key, "error", err)
			return c.Status(http.StatusServiceUnavailable).JSON(
				utils.CreateErrorResponse("IDEMPOTENCY_UNAVAILABLE", "Idempotency store unavailable"))
		}
		if stored != nil {
			c.Set(headerReplayed, "true")
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Status(stored.Status).Send(stored.Body)
		}

		res := fn(c)
		body, err := json.Marshal(res.body)
		if err != nil {
			_ = h.idempotency.Abandon(ctx, scoped)
			return err
		}
		if res.status >= http.StatusInternalServerError {
			if err := h.idempotency.Abandon(ctx, scoped); err != nil {
				slog.Warn("Failed to release idempotency key", "key", key, "error", err)
			}
		} else if err := h.idempotency.Complete(ctx, scoped, repository.StoredResponse{Status: res.status, Body: body}); err != nil {
			slog.Warn("Failed to store idempotent response", "key", key, "error", err)
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Status(res.status).Send(body)
	}
}
