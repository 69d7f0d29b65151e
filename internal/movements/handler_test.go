package movements

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) (*Handler, *mockRepository) {
	t.Helper()
	repo := &mockRepository{}
	service := newTestService(repo, nil, nil)
	return NewHandler(nil, service, nil), repo
}

func doRequest(h *Handler, method, target string, body any) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	h.MountRoutes(router)

	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleSaveCreated(t *testing.T) {
	h, repo := newTestHandler(t)

	rec := doRequest(h, http.MethodPost, "/movements", map[string]any{
		"type":   "sale",
		"total":  "100",
		"method": "cash",
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, repo.movements, 1)

	var resp savedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "saved", resp.State)
	assert.NotEmpty(t, resp.ID)
}

func TestHandleSaveValidationProblem(t *testing.T) {
	h, repo := newTestHandler(t)

	rec := doRequest(h, http.MethodPost, "/movements", map[string]any{
		"type":  "sale",
		"total": "100",
		"split": map[string]string{"cash": "60", "electronic-wallet": "30"},
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "sum_mismatch")
	require.Empty(t, repo.movements)
}

func TestHandleSaveDuplicateConflict(t *testing.T) {
	h, repo := newTestHandler(t)

	first := doRequest(h, http.MethodPost, "/movements", map[string]any{
		"type": "sale", "total": "500", "method": "cash",
	})
	require.Equal(t, http.StatusCreated, first.Code)

	second := doRequest(h, http.MethodPost, "/movements", map[string]any{
		"type": "sale", "total": "500", "method": "cash",
	})
	require.Equal(t, http.StatusConflict, second.Code)
	require.Len(t, repo.movements, 1)

	var resp confirmationResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	assert.Equal(t, "needs_confirmation", resp.State)
	assert.Equal(t, repo.movements[0].ID.String(), resp.MatchID)

	forced := doRequest(h, http.MethodPost, "/movements", map[string]any{
		"type": "sale", "total": "500", "method": "cash", "force": true,
	})
	require.Equal(t, http.StatusCreated, forced.Code)
	require.Len(t, repo.movements, 2)
}

func TestHandleSaveMalformedBody(t *testing.T) {
	h, _ := newTestHandler(t)

	router := chi.NewRouter()
	h.MountRoutes(router)
	req := httptest.NewRequest(http.MethodPost, "/movements", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleBalances(t *testing.T) {
	h, _ := newTestHandler(t)

	created := doRequest(h, http.MethodPost, "/movements", map[string]any{
		"type": "sale", "total": "100", "method": "cash",
	})
	require.Equal(t, http.StatusCreated, created.Code)

	rec := doRequest(h, http.MethodGet, "/balances", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report BalanceReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Len(t, report.Methods, 1)
	assert.Equal(t, "cash", report.Methods[0].Code)
}

func TestHandleBalancesRejectsBadGranularity(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doRequest(h, http.MethodGet, "/balances?granularity=fortnight", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleDuplicatesEmpty(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doRequest(h, http.MethodGet, "/duplicates", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}
