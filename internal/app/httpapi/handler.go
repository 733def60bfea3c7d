// Package httpapi exposes the vault service over REST.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"

	"github.com/stablevault/vault_service/internal/logging"
	"github.com/stablevault/vault_service/internal/metrics"
	"github.com/stablevault/vault_service/internal/middleware"
	"github.com/stablevault/vault_service/services/vault"
)

// CallerHeader carries the acting identity. The service enforces
// per-operation authority; the API only relays it.
const CallerHeader = "X-Vault-Caller"

type handler struct {
	svc *vault.Service
	log logging.Logger
}

// NewHandler returns a router exposing the vault REST API.
func NewHandler(svc *vault.Service, log logging.Logger) http.Handler {
	h := &handler{svc: svc, log: log}

	r := mux.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logging(log))
	r.Use(middleware.Metrics())

	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/vault", h.vaultInfo).Methods(http.MethodGet)
	v1.HandleFunc("/balance/{address}", h.balance).Methods(http.MethodGet)
	v1.HandleFunc("/deposit", h.deposit).Methods(http.MethodPost)
	v1.HandleFunc("/withdraw", h.withdraw).Methods(http.MethodPost)
	v1.HandleFunc("/claim", h.claim).Methods(http.MethodPost)
	v1.HandleFunc("/deposits", h.listDeposits).Methods(http.MethodGet)
	v1.HandleFunc("/withdrawals", h.listWithdrawals).Methods(http.MethodGet)
	v1.HandleFunc("/claims", h.listClaims).Methods(http.MethodGet)

	admin := v1.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/pause", h.pause).Methods(http.MethodPost)
	admin.HandleFunc("/unpause", h.unpause).Methods(http.MethodPost)
	admin.HandleFunc("/claim-enabled", h.setClaimEnabled).Methods(http.MethodPost)
	admin.HandleFunc("/claimers", h.setClaimerAuthorization).Methods(http.MethodPost)
	admin.HandleFunc("/fees/withdraw", h.withdrawFees).Methods(http.MethodPost)

	return r
}

// =============================================================================
// Health and queries
// =============================================================================

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Health(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) vaultInfo(w http.ResponseWriter, r *http.Request) {
	totals := h.svc.Totals()

	resp := map[string]interface{}{
		"totals":        totals,
		"paused":        h.svc.Paused(),
		"claim_enabled": h.svc.ClaimEnabled(),
		"constants":     h.svc.Constants(),
	}
	if invested, err := h.svc.TotalInvested(r.Context()); err == nil {
		resp["total_invested"] = invested.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) balance(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress(mux.Vars(r)["address"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	acct := h.svc.Account(addr)
	resp := map[string]interface{}{
		"address":     addr.Hex(),
		"principal":   acct.Principal.String(),
		"xp":          acct.XP,
		"has_claimed": acct.HasClaimed,
	}
	if real, err := h.svc.RealBalance(r.Context(), addr); err == nil {
		resp["real_balance"] = real.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) listDeposits(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.Store().ListDeposits(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *handler) listWithdrawals(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.Store().ListWithdrawals(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *handler) listClaims(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.Store().ListClaims(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// =============================================================================
// Mutations
// =============================================================================

func (h *handler) deposit(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		User   string `json:"user"`
		Amount string `json:"amount"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user, err := parseAddress(payload.User)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	amount, err := parseAmount(payload.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rec, err := h.svc.Deposit(r.Context(), user, amount)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *handler) withdraw(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		User   string `json:"user"`
		Amount string `json:"amount"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user, err := parseAddress(payload.User)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var amount *big.Int
	if strings.EqualFold(payload.Amount, "all") {
		amount = vault.WithdrawAll
	} else {
		if amount, err = parseAmount(payload.Amount); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	rec, err := h.svc.Withdraw(r.Context(), user, amount)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *handler) claim(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		User string `json:"user"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user, err := parseAddress(payload.User)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	claimer, err := caller(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	amount, err := h.svc.Claim(r.Context(), claimer, user)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":    user.Hex(),
		"claimer": claimer.Hex(),
		"amount":  amount,
	})
}

// =============================================================================
// Administration
// =============================================================================

func (h *handler) pause(w http.ResponseWriter, r *http.Request) {
	actor, err := caller(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.svc.Pause(actor); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": true})
}

func (h *handler) unpause(w http.ResponseWriter, r *http.Request) {
	actor, err := caller(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.svc.Unpause(actor); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": false})
}

func (h *handler) setClaimEnabled(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Enabled bool `json:"enabled"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	actor, err := caller(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.svc.SetClaimEnabled(actor, payload.Enabled); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"claim_enabled": payload.Enabled})
}

func (h *handler) setClaimerAuthorization(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Claimer    string `json:"claimer"`
		Authorized bool   `json:"authorized"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	actor, err := caller(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	claimer, err := parseAddress(payload.Claimer)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.svc.SetClaimerAuthorization(actor, claimer, payload.Authorized); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"claimer":    claimer.Hex(),
		"authorized": payload.Authorized,
	})
}

func (h *handler) withdrawFees(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Recipient string `json:"recipient"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	actor, err := caller(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	recipient, err := parseAddress(payload.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	amount, err := h.svc.EmergencyWithdrawFees(r.Context(), actor, recipient)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"recipient": recipient.Hex(),
		"amount":    amount.String(),
	})
}

// =============================================================================
// Helpers
// =============================================================================

func caller(r *http.Request) (common.Address, error) {
	return parseAddress(r.Header.Get(CallerHeader))
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, errors.New("invalid address")
	}
	return common.HexToAddress(s), nil
}

func parseAmount(s string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok || amount.Sign() < 0 {
		return nil, errors.New("invalid amount")
	}
	return amount, nil
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, vault.ErrNotOwner),
		errors.Is(err, vault.ErrNotAuthorizedToClaim):
		return http.StatusForbidden
	case errors.Is(err, vault.ErrAlreadyClaimed):
		return http.StatusConflict
	case errors.Is(err, vault.ErrVaultPaused),
		errors.Is(err, vault.ErrReentrantCall):
		return http.StatusServiceUnavailable
	case errors.Is(err, vault.ErrDepositTooLow),
		errors.Is(err, vault.ErrDepositTooHigh),
		errors.Is(err, vault.ErrInvalidWithdrawalAmount),
		errors.Is(err, vault.ErrInsufficientBalanceForWithdrawal),
		errors.Is(err, vault.ErrClaimDisabled),
		errors.Is(err, vault.ErrNoXPToClaim),
		errors.Is(err, vault.ErrNoFeesToWithdraw),
		errors.Is(err, vault.ErrInvalidClaimerAddress),
		errors.Is(err, vault.ErrRecipientZeroAddress):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
