package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/catenahq/bridge-backend/internal/bridge"
	"github.com/catenahq/bridge-backend/internal/chain"
	"github.com/catenahq/bridge-backend/internal/store"
	"github.com/catenahq/bridge-backend/internal/ws"
)

// MetricsInterface defines the interface for metrics recording
type MetricsInterface interface {
	RecordHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration)
	RecordQuote(ctx context.Context, route string)
	RecordSubmission(ctx context.Context, route string, ok bool)
	RecordStatusPoll(ctx context.Context, status string)
}

type Handler struct {
	orch    *bridge.Orchestrator
	chains  *chain.Registry
	cache   *store.Cache
	wsHub   *ws.Hub
	logger  *zap.SugaredLogger
	metrics MetricsInterface

	// signer is the service wallet; nil when no key is configured, in which
	// case submission endpoints answer 503 and the API is read-only.
	signer bridge.Signer

	lifecycleOpts []bridge.LifecycleOption

	// flight collapses concurrent cache-miss fetches for the same route.
	flight singleflight.Group

	mu         sync.Mutex
	lifecycles map[string]*bridge.Lifecycle
}

func NewHandler(
	orch *bridge.Orchestrator,
	chains *chain.Registry,
	cache *store.Cache,
	wsHub *ws.Hub,
	logger *zap.SugaredLogger,
	metrics MetricsInterface,
	signer bridge.Signer,
	lifecycleOpts ...bridge.LifecycleOption,
) *Handler {
	return &Handler{
		orch:          orch,
		chains:        chains,
		cache:         cache,
		wsHub:         wsHub,
		logger:        logger,
		metrics:       metrics,
		signer:        signer,
		lifecycleOpts: lifecycleOpts,
		lifecycles:    make(map[string]*bridge.Lifecycle),
	}
}

// Shutdown stops every server-side status poller.
func (h *Handler) Shutdown() {
	h.mu.Lock()
	lifecycles := make([]*bridge.Lifecycle, 0, len(h.lifecycles))
	for _, lc := range h.lifecycles {
		lifecycles = append(lifecycles, lc)
	}
	h.lifecycles = make(map[string]*bridge.Lifecycle)
	h.mu.Unlock()

	for _, lc := range lifecycles {
		lc.Stop()
	}
}

// Chain catalogue
func (h *Handler) ListChains(w http.ResponseWriter, r *http.Request) {
	chains := h.chains.All()
	out := make([]ChainDTO, 0, len(chains))
	for _, md := range chains {
		out = append(out, toChainDTO(md))
	}
	h.writeJSON(w, http.StatusOK, out)
}

// Supported routes
func (h *Handler) ListPairs(w http.ResponseWriter, r *http.Request) {
	pairs := h.orch.Pairs()
	out := make([]PairDTO, 0, len(pairs))
	for _, pair := range pairs {
		out = append(out, PairDTO{Source: string(pair.Source), Target: string(pair.Target)})
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	source, target, err := h.routeParams(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_CHAIN", err.Error())
		return
	}

	cacheKey := fmt.Sprintf("%s:%s", source, target)
	var cached AssetsDTO
	if err := h.cache.GetAssets(r.Context(), cacheKey, &cached); err == nil {
		h.writeJSON(w, http.StatusOK, cached)
		return
	}

	v, err, _ := h.flight.Do(cacheKey, func() (any, error) {
		assets, err := h.orch.SupportedAssets(r.Context(), source, target)
		if err != nil {
			return nil, err
		}
		dto := AssetsDTO{Source: string(source), Target: string(target), Assets: assets}
		if err := h.cache.SetAssets(r.Context(), cacheKey, dto); err != nil {
			h.logger.Warnw("Failed to cache assets", "route", cacheKey, "error", err)
		}
		return dto, nil
	})
	if err != nil {
		h.writeBridgeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, v.(AssetsDTO))
}

func (h *Handler) GetQuote(w http.ResponseWriter, r *http.Request) {
	source, target, err := h.routeParams(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_CHAIN", err.Error())
		return
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_PARAMETER", "token is required")
		return
	}
	amount, err := decimal.NewFromString(r.URL.Query().Get("amount"))
	if err != nil || !amount.GreaterThan(decimal.Zero) {
		h.writeError(w, http.StatusBadRequest, "INVALID_AMOUNT", "amount must be a positive decimal")
		return
	}

	fee, err := h.orch.Quote(r.Context(), token, amount, source, target)
	if err != nil {
		h.writeBridgeError(w, err)
		return
	}
	h.metrics.RecordQuote(r.Context(), fmt.Sprintf("%s->%s", source, target))

	h.writeJSON(w, http.StatusOK, QuoteDTO{
		Source:      string(source),
		Target:      string(target),
		Token:       token,
		Amount:      amount.String(),
		BridgeFee:   fee.BridgeFee.String(),
		RelayerFee:  fee.RelayerFee.String(),
		GasEstimate: fee.GasEstimate.String(),
		TotalFee:    fee.TotalFee.String(),
		AsOf:        time.Now().Unix(),
	})
}

func (h *Handler) GetMappedToken(w http.ResponseWriter, r *http.Request) {
	source, target, err := h.routeParams(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_CHAIN", err.Error())
		return
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_PARAMETER", "token is required")
		return
	}

	mapped, err := h.orch.MappedToken(r.Context(), token, source, target)
	if err != nil {
		h.writeBridgeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, MappedTokenDTO{
		SourceToken: token,
		TargetToken: mapped,
		Source:      string(source),
		Target:      string(target),
	})
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	source, target, err := h.routeParams(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_CHAIN", err.Error())
		return
	}
	token, wallet := r.URL.Query().Get("token"), r.URL.Query().Get("wallet")
	if token == "" || wallet == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_PARAMETER", "token and wallet are required")
		return
	}

	balance, err := h.orch.TokenBalance(r.Context(), token, wallet, source, target)
	if err != nil {
		h.writeBridgeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, BalanceDTO{Token: token, Wallet: wallet, Balance: balance.String()})
}

func (h *Handler) GetAllowance(w http.ResponseWriter, r *http.Request) {
	source, target, err := h.routeParams(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_CHAIN", err.Error())
		return
	}
	token, wallet := r.URL.Query().Get("token"), r.URL.Query().Get("wallet")
	if token == "" || wallet == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_PARAMETER", "token and wallet are required")
		return
	}

	allowance, err := h.orch.TokenAllowance(r.Context(), token, wallet, source, target)
	if err != nil {
		h.writeBridgeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, AllowanceDTO{
		Token:     token,
		Wallet:    wallet,
		Allowance: allowance.Allowance.String(),
		Approved:  allowance.Approved,
	})
}

func (h *Handler) ApproveToken(w http.ResponseWriter, r *http.Request) {
	if h.signer == nil {
		h.writeError(w, http.StatusServiceUnavailable, "SIGNER_UNAVAILABLE", "no service signer configured")
		return
	}

	var req ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
		return
	}
	source, target, err := h.chainsFromStrings(req.Source, req.Target)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_CHAIN", err.Error())
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.GreaterThan(decimal.Zero) {
		h.writeError(w, http.StatusBadRequest, "INVALID_AMOUNT", "amount must be a positive decimal")
		return
	}

	txHash, err := h.orch.ApproveToken(r.Context(), req.Token, amount, source, h.signer, target)
	if err != nil {
		h.writeBridgeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ApproveResponse{TxHash: txHash})
}

func (h *Handler) SubmitTransfer(w http.ResponseWriter, r *http.Request) {
	if h.signer == nil {
		h.writeError(w, http.StatusServiceUnavailable, "SIGNER_UNAVAILABLE", "no service signer configured")
		return
	}

	var req SubmitTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
		return
	}
	source, target, err := h.chainsFromStrings(req.Source, req.Target)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_CHAIN", err.Error())
		return
	}
	if req.Token == "" || req.Recipient == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_PARAMETER", "token and recipient are required")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.GreaterThan(decimal.Zero) {
		h.writeError(w, http.StatusBadRequest, "INVALID_AMOUNT", "amount must be a positive decimal")
		return
	}

	route := fmt.Sprintf("%s->%s", source, target)
	tx, err := h.orch.Submit(r.Context(), req.Token, amount, req.Recipient, source, h.signer, target)
	if err != nil {
		h.metrics.RecordSubmission(r.Context(), route, false)
		h.writeBridgeError(w, err)
		return
	}
	h.metrics.RecordSubmission(r.Context(), route, true)

	if err := h.cache.InvalidateHistory(r.Context(), req.Recipient); err != nil {
		h.logger.Warnw("Failed to invalidate history cache", "wallet", req.Recipient, "error", err)
	}
	h.trackTransfer(tx)

	h.writeJSON(w, http.StatusCreated, SubmitTransferResponse{Transaction: toTransactionDTO(tx)})
}

// trackTransfer attaches a server-side lifecycle that pushes every status
// change to WebSocket subscribers. The poller outlives the submitting request.
func (h *Handler) trackTransfer(tx *bridge.Transaction) {
	opts := append([]bridge.LifecycleOption{
		bridge.WithUpdateFunc(func(snapshot bridge.Transaction) {
			h.metrics.RecordStatusPoll(context.Background(), string(snapshot.Status))
			if h.wsHub != nil {
				h.wsHub.PublishTransaction(snapshot)
			}
			if snapshot.Status.Terminal() {
				h.detachLifecycle(snapshot.ID)
			}
		}),
	}, h.lifecycleOpts...)

	lc := bridge.NewLifecycle(h.orch, tx, h.logger, opts...)

	h.mu.Lock()
	h.lifecycles[tx.ID] = lc
	h.mu.Unlock()

	lc.Start(context.Background())
}

func (h *Handler) detachLifecycle(id string) {
	h.mu.Lock()
	delete(h.lifecycles, id)
	h.mu.Unlock()
}

func (h *Handler) GetTransfer(w http.ResponseWriter, r *http.Request) {
	source, target, err := h.routeParams(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_CHAIN", err.Error())
		return
	}
	id := chi.URLParam(r, "id")

	tx, err := h.orch.Track(r.Context(), id, source, target)
	if err != nil {
		h.writeBridgeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toTransactionDTO(tx))
}

func (h *Handler) ListTransfers(w http.ResponseWriter, r *http.Request) {
	wallet := r.URL.Query().Get("wallet")
	if wallet == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_PARAMETER", "wallet is required")
		return
	}

	// source is optional here: empty means merge every route.
	var source, target chain.ID
	if s := r.URL.Query().Get("source"); s != "" {
		var err error
		source, target, err = h.routeParams(r)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "INVALID_CHAIN", err.Error())
			return
		}
	}

	if source == "" {
		var cached TransactionListDTO
		if err := h.cache.GetHistory(r.Context(), wallet, &cached); err == nil {
			h.writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	txs, err := h.orch.History(r.Context(), wallet, source, target)
	if err != nil {
		h.writeBridgeError(w, err)
		return
	}

	dto := TransactionListDTO{
		Wallet:       wallet,
		Transactions: toTransactionDTOs(txs),
		UpdatedAt:    time.Now().Unix(),
	}
	if source == "" {
		if err := h.cache.SetHistory(r.Context(), wallet, dto, 30*time.Second); err != nil {
			h.logger.Warnw("Failed to cache history", "wallet", wallet, "error", err)
		}
	}
	h.writeJSON(w, http.StatusOK, dto)
}

func (h *Handler) ListClaimable(w http.ResponseWriter, r *http.Request) {
	id := chain.ID(r.URL.Query().Get("chain"))
	if !h.chains.Known(id) {
		h.writeError(w, http.StatusBadRequest, "INVALID_CHAIN", fmt.Sprintf("unknown chain %q", id))
		return
	}
	wallet := r.URL.Query().Get("wallet")
	if wallet == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_PARAMETER", "wallet is required")
		return
	}

	var cached ClaimableDTO
	if err := h.cache.GetClaimable(r.Context(), string(id), wallet, &cached); err == nil {
		h.writeJSON(w, http.StatusOK, cached)
		return
	}

	txs, err := h.orch.ListClaimable(r.Context(), wallet, id)
	if err != nil {
		h.writeBridgeError(w, err)
		return
	}

	dto := ClaimableDTO{
		Chain:        string(id),
		Wallet:       wallet,
		Transactions: toTransactionDTOs(txs),
		UpdatedAt:    time.Now().Unix(),
	}
	if err := h.cache.SetClaimable(r.Context(), string(id), wallet, dto, 15*time.Second); err != nil {
		h.logger.Warnw("Failed to cache claimable transfers", "chain", id, "error", err)
	}
	h.writeJSON(w, http.StatusOK, dto)
}

func (h *Handler) FinalizeClaim(w http.ResponseWriter, r *http.Request) {
	if h.signer == nil {
		h.writeError(w, http.StatusServiceUnavailable, "SIGNER_UNAVAILABLE", "no service signer configured")
		return
	}

	var req ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
		return
	}
	id := chain.ID(req.Chain)
	if !h.chains.Known(id) {
		h.writeError(w, http.StatusBadRequest, "INVALID_CHAIN", fmt.Sprintf("unknown chain %q", req.Chain))
		return
	}
	if req.ID == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_PARAMETER", "id is required")
		return
	}

	txHash, err := h.orch.FinalizeClaim(r.Context(), id, req.ID, req.Recipient, h.signer)
	if err != nil {
		h.writeBridgeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ClaimResponse{TxHash: txHash})
}

func (h *Handler) RouteHealth(w http.ResponseWriter, r *http.Request) {
	source, target, err := h.routeParams(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_CHAIN", err.Error())
		return
	}

	health, err := h.orch.Health(r.Context(), source, target)
	if err != nil {
		h.writeBridgeError(w, err)
		return
	}
	dto := RouteHealthDTO{
		Source:    string(source),
		Target:    string(target),
		Healthy:   health.Healthy,
		LastError: health.LastError,
	}
	if !health.LastSuccess.IsZero() {
		dto.LastSuccess = health.LastSuccess.Unix()
	}
	h.writeJSON(w, http.StatusOK, dto)
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.Ping(r.Context()); err != nil {
		h.writeError(w, http.StatusServiceUnavailable, "CACHE_UNAVAILABLE", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		h.writeError(w, http.StatusServiceUnavailable, "WS_UNAVAILABLE", "websocket hub not running")
		return
	}
	h.wsHub.HandleWebSocket(w, r)
}

// routeParams reads the source/target chain query parameters. Target may be
// empty; the orchestrator then applies the default-target policy.
func (h *Handler) routeParams(r *http.Request) (chain.ID, chain.ID, error) {
	return h.chainsFromStrings(r.URL.Query().Get("source"), r.URL.Query().Get("target"))
}

func (h *Handler) chainsFromStrings(source, target string) (chain.ID, chain.ID, error) {
	src := chain.ID(source)
	if !h.chains.Known(src) {
		return "", "", fmt.Errorf("unknown source chain %q", source)
	}
	tgt := chain.ID(target)
	if target != "" && !h.chains.Known(tgt) {
		return "", "", fmt.Errorf("unknown target chain %q", target)
	}
	return src, tgt, nil
}

func (h *Handler) writeBridgeError(w http.ResponseWriter, err error) {
	var (
		claimErr *bridge.ClaimNotSupportedError
		capErr   *bridge.CapabilityError
	)
	switch {
	case errors.Is(err, bridge.ErrProviderNotFound):
		h.writeError(w, http.StatusNotFound, "ROUTE_NOT_FOUND", err.Error())
	case errors.Is(err, bridge.ErrTokenMappingNotFound):
		h.writeError(w, http.StatusNotFound, "TOKEN_MAPPING_NOT_FOUND", err.Error())
	case errors.Is(err, bridge.ErrTransactionNotFound):
		h.writeError(w, http.StatusNotFound, "TRANSACTION_NOT_FOUND", err.Error())
	case errors.Is(err, bridge.ErrSubmissionFailed):
		h.writeError(w, http.StatusBadGateway, "SUBMISSION_FAILED", err.Error())
	case errors.As(err, &claimErr):
		h.writeError(w, http.StatusBadRequest, "CLAIM_NOT_SUPPORTED", err.Error())
	case errors.As(err, &capErr):
		h.writeError(w, http.StatusBadRequest, "CAPABILITY_NOT_SUPPORTED", err.Error())
	default:
		h.writeError(w, http.StatusInternalServerError, "BRIDGE_ERROR", err.Error())
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.logger.Errorw("API error", "code", code, "message", message, "status", status)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := ErrorResponse{
		Code:    code,
		Message: message,
	}
	json.NewEncoder(w).Encode(err)
}
