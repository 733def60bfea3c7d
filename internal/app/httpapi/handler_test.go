package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stablevault/vault_service/internal/logging"
	"github.com/stablevault/vault_service/services/vault"
	vaultchain "github.com/stablevault/vault_service/services/vault/chain"
)

var (
	testOwner = common.HexToAddress("0x0000000000000000000000000000000000000101")
	testVault = common.HexToAddress("0x0000000000000000000000000000000000000102")
	testAsset = common.HexToAddress("0x0000000000000000000000000000000000000103")
	testPool  = common.HexToAddress("0x0000000000000000000000000000000000000104")
	testUser  = common.HexToAddress("0x0000000000000000000000000000000000000105")
	testAgent = common.HexToAddress("0x0000000000000000000000000000000000000106")
)

type env struct {
	api     http.Handler
	svc     *vault.Service
	backend *vaultchain.Simulated
}

func newEnv(t *testing.T) *env {
	t.Helper()

	backend := vaultchain.NewSimulated(testVault, testPool, testAsset)
	svc, err := vault.New(
		vault.Config{Owner: testOwner, VaultAddress: testVault, Asset: testAsset, Pool: testPool},
		vault.Deps{
			Asset:    backend.ERC20(testAsset),
			Venue:    backend,
			NewERC20: backend.ERC20,
			Logger:   logging.Nop(),
		},
	)
	require.NoError(t, err)
	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(func() { _ = svc.Stop(context.Background()) })

	return &env{api: NewHandler(svc, logging.Nop()), svc: svc, backend: backend}
}

func (e *env) fund(user common.Address, amount int64) {
	e.backend.Mint(testAsset, user, big.NewInt(amount))
	e.backend.ApproveFor(testAsset, user, testVault, big.NewInt(amount))
}

func (e *env) do(t *testing.T, method, path, callerAddr string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if callerAddr != "" {
		req.Header.Set(CallerHeader, callerAddr)
	}
	rec := httptest.NewRecorder()
	e.api.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthz(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDepositEndpoint(t *testing.T) {
	e := newEnv(t)
	e.fund(testUser, 100)

	rec := e.do(t, http.MethodPost, "/v1/deposit", "", map[string]string{
		"user":   testUser.Hex(),
		"amount": "100",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, "100", body["gross_amount"])
	assert.Equal(t, "99", body["net_amount"])
	assert.Equal(t, "1", body["fee"])
	assert.Equal(t, float64(10), body["xp_earned"])
}

func TestDepositEndpointValidation(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodPost, "/v1/deposit", "", map[string]string{
		"user":   "not-an-address",
		"amount": "100",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/v1/deposit", "", map[string]string{
		"user":   testUser.Hex(),
		"amount": "-5",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Below the minimum: rejected by the service.
	e.fund(testUser, 10)
	rec = e.do(t, http.MethodPost, "/v1/deposit", "", map[string]string{
		"user":   testUser.Hex(),
		"amount": "5",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWithdrawAllEndpoint(t *testing.T) {
	e := newEnv(t)
	e.fund(testUser, 100)

	rec := e.do(t, http.MethodPost, "/v1/deposit", "", map[string]string{
		"user":   testUser.Hex(),
		"amount": "100",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	e.backend.AccrueYield(big.NewInt(21))

	rec = e.do(t, http.MethodPost, "/v1/withdraw", "", map[string]string{
		"user":   testUser.Hex(),
		"amount": "all",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, "120", body["gross_amount"])
	assert.Equal(t, "119", body["net_amount"])

	assert.Equal(t, int64(119), e.backend.Balance(testAsset, testUser).Int64())
}

func TestBalanceEndpoint(t *testing.T) {
	e := newEnv(t)
	e.fund(testUser, 100)
	e.do(t, http.MethodPost, "/v1/deposit", "", map[string]string{
		"user":   testUser.Hex(),
		"amount": "100",
	})

	rec := e.do(t, http.MethodGet, "/v1/balance/"+testUser.Hex(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "99", body["principal"])
	assert.Equal(t, "99", body["real_balance"])
	assert.Equal(t, float64(10), body["xp"])
	assert.Equal(t, false, body["has_claimed"])

	rec = e.do(t, http.MethodGet, "/v1/balance/zzz", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVaultInfoEndpoint(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodGet, "/v1/vault", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, false, body["paused"])
	assert.Equal(t, false, body["claim_enabled"])

	constants, ok := body["constants"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "10", constants["min_deposit"])
}

func TestClaimEndpoint(t *testing.T) {
	e := newEnv(t)
	e.fund(testUser, 100)
	e.do(t, http.MethodPost, "/v1/deposit", "", map[string]string{
		"user":   testUser.Hex(),
		"amount": "100",
	})

	// Unauthorized claimer.
	rec := e.do(t, http.MethodPost, "/v1/claim", testAgent.Hex(), map[string]string{"user": testUser.Hex()})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Owner wires up the claim path.
	rec = e.do(t, http.MethodPost, "/v1/admin/claimers", testOwner.Hex(), map[string]interface{}{
		"claimer":    testAgent.Hex(),
		"authorized": true,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(t, http.MethodPost, "/v1/admin/claim-enabled", testOwner.Hex(), map[string]bool{"enabled": true})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodPost, "/v1/claim", testAgent.Hex(), map[string]string{"user": testUser.Hex()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(10), decodeBody(t, rec)["amount"])

	// One-shot.
	rec = e.do(t, http.MethodPost, "/v1/claim", testAgent.Hex(), map[string]string{"user": testUser.Hex()})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPauseEndpoints(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodPost, "/v1/admin/pause", testUser.Hex(), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodPost, "/v1/admin/pause", testOwner.Hex(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	e.fund(testUser, 100)
	rec = e.do(t, http.MethodPost, "/v1/deposit", "", map[string]string{
		"user":   testUser.Hex(),
		"amount": "100",
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = e.do(t, http.MethodPost, "/v1/admin/unpause", testOwner.Hex(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodPost, "/v1/deposit", "", map[string]string{
		"user":   testUser.Hex(),
		"amount": "100",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestFeeSweepEndpoint(t *testing.T) {
	e := newEnv(t)
	e.fund(testUser, 100)
	e.do(t, http.MethodPost, "/v1/deposit", "", map[string]string{
		"user":   testUser.Hex(),
		"amount": "100",
	})

	treasury := common.HexToAddress("0x0000000000000000000000000000000000000107")
	rec := e.do(t, http.MethodPost, "/v1/admin/fees/withdraw", testOwner.Hex(), map[string]string{
		"recipient": treasury.Hex(),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "1", decodeBody(t, rec)["amount"])
	assert.Equal(t, int64(1), e.backend.Balance(testAsset, treasury).Int64())
}

func TestListEndpoints(t *testing.T) {
	e := newEnv(t)
	e.fund(testUser, 200)
	for i := 0; i < 2; i++ {
		rec := e.do(t, http.MethodPost, "/v1/deposit", "", map[string]string{
			"user":   testUser.Hex(),
			"amount": "100",
		})
		require.Equal(t, http.StatusCreated, rec.Code, fmt.Sprintf("deposit %d", i))
	}

	rec := e.do(t, http.MethodGet, "/v1/deposits", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var recs []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recs))
	assert.Len(t, recs, 2)
}
