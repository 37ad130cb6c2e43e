package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"deyn/internal/cache"
	"deyn/internal/core"
	"deyn/internal/services"
	"deyn/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := storage.NewMemoryStore()
	obligations := services.NewObligationService(store, nil)
	dashboard := services.NewDashboardService(store, cache.NewLRUCache[core.Summary](8, time.Hour))
	return NewServer(":0", obligations, dashboard, store, "en")
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func createEntity(t *testing.T, s *Server) core.Entity {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/api/entities", `{"name":"تابي","kind":"bnpl"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create entity: status %d, body %s", rec.Code, rec.Body.String())
	}
	return decode[core.Entity](t, rec)
}

func TestHealthz(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestCreateEntityRejectsUnknownKind(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodPost, "/api/entities", `{"name":"x","kind":"galaxy"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body %s", rec.Code, rec.Body.String())
	}
}

func TestCreateEntityRejectsUnknownFields(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodPost, "/api/entities", `{"name":"x","kind":"bank","bogus":1}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for unknown fields", rec.Code)
	}
}

func TestObligationPaymentFlow(t *testing.T) {
	s := newTestServer(t)
	entity := createEntity(t, s)

	rec := do(t, s, http.MethodPost, "/api/obligations",
		`{"entity_id":`+jsonID(entity.ID)+`,"kind":"bnpl","principal":"600","due_day":10,"total_installments":3}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create obligation: status %d, body %s", rec.Code, rec.Body.String())
	}
	created := decode[obligationView](t, rec)
	if created.ID == 0 {
		t.Fatal("created obligation has no id")
	}
	// No explicit installment: the principal splits evenly.
	if got := created.Installment.String(); got != "200.000" {
		t.Errorf("installment = %s, want 200.000", got)
	}
	if created.Status != core.StatusActive {
		t.Errorf("status = %s, want active", created.Status)
	}
	if created.RemainingBalance == nil || *created.RemainingBalance != "600.000" {
		t.Errorf("remaining balance = %v, want 600.000", created.RemainingBalance)
	}

	idPath := "/api/obligations/" + jsonID(created.ID)

	rec = do(t, s, http.MethodPost, idPath+"/payments", `{"amount":"200"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("record payment: status %d, body %s", rec.Code, rec.Body.String())
	}
	paid := decode[struct {
		Obligation obligationView `json:"obligation"`
	}](t, rec)
	if paid.Obligation.Schedule.Remaining != 2 {
		t.Errorf("remaining = %d, want 2", paid.Obligation.Schedule.Remaining)
	}
	if paid.Obligation.RemainingBalance == nil || *paid.Obligation.RemainingBalance != "400.000" {
		t.Errorf("remaining balance = %v, want 400.000", paid.Obligation.RemainingBalance)
	}

	do(t, s, http.MethodPost, idPath+"/payments", `{"amount":"200"}`)
	rec = do(t, s, http.MethodPost, idPath+"/payments", `{"amount":"200"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("final payment: status %d, body %s", rec.Code, rec.Body.String())
	}
	paid = decode[struct {
		Obligation obligationView `json:"obligation"`
	}](t, rec)
	if paid.Obligation.Status != core.StatusPaid {
		t.Errorf("status = %s, want paid after the last installment", paid.Obligation.Status)
	}

	rec = do(t, s, http.MethodGet, idPath+"/payments", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list payments: status %d", rec.Code)
	}
	payments := decode[[]core.Payment](t, rec)
	if len(payments) != 3 {
		t.Errorf("payments = %d, want 3", len(payments))
	}
}

func TestCreateObligationRejectsBadDueDay(t *testing.T) {
	s := newTestServer(t)
	entity := createEntity(t, s)
	rec := do(t, s, http.MethodPost, "/api/obligations",
		`{"entity_id":`+jsonID(entity.ID)+`,"kind":"loan","principal":"100","due_day":32}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body %s", rec.Code, rec.Body.String())
	}
}

func TestGetObligationNotFound(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/api/obligations/99", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestDeleteEntityConflict(t *testing.T) {
	s := newTestServer(t)
	entity := createEntity(t, s)
	rec := do(t, s, http.MethodPost, "/api/obligations",
		`{"entity_id":`+jsonID(entity.ID)+`,"kind":"bnpl","principal":"600","due_day":10,"total_installments":3}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create obligation: status %d", rec.Code)
	}

	rec = do(t, s, http.MethodDelete, "/api/entities/"+jsonID(entity.ID), "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("delete referenced entity: status %d, want 409", rec.Code)
	}
}

func TestDashboard(t *testing.T) {
	s := newTestServer(t)
	entity := createEntity(t, s)
	rec := do(t, s, http.MethodPost, "/api/obligations",
		`{"entity_id":`+jsonID(entity.ID)+`,"kind":"bnpl","principal":"600","due_day":10,"total_installments":3,"start_date":"2024-01-01"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create obligation: status %d", rec.Code)
	}

	rec = do(t, s, http.MethodGet, "/api/dashboard", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard: status %d, body %s", rec.Code, rec.Body.String())
	}
	sum := decode[summaryView](t, rec)
	if sum.MonthTotal != "200.000" {
		t.Errorf("month total = %s, want 200.000", sum.MonthTotal)
	}
	if sum.ActiveCount != 1 {
		t.Errorf("active count = %d, want 1", sum.ActiveCount)
	}
	if sum.Stale {
		t.Error("fresh dashboard marked stale")
	}
}

func TestExtractEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/extract", `{"text":"تابي 150 قسط 50"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("extract: status %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decode[extractResponse](t, rec)
	if resp.Draft == nil {
		t.Fatal("draft = nil, want a populated draft")
	}
	if resp.Draft.Kind != core.KindBNPL {
		t.Errorf("kind = %s, want bnpl", resp.Draft.Kind)
	}
	if len(resp.Assumptions) != 2 {
		t.Errorf("assumptions = %v, want 2", resp.Assumptions)
	}

	// No amount in the text: null draft, not an error.
	rec = do(t, s, http.MethodPost, "/api/extract", `{"text":"مرحبا"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("extract without amount: status %d", rec.Code)
	}
	resp = decode[extractResponse](t, rec)
	if resp.Draft != nil {
		t.Errorf("draft = %+v, want null", resp.Draft)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPut, "/api/settings",
		`{"payday_day":25,"salary":"12000","savings_target":"1500","currency":"SAR","default_strategy":"avalanche","quiet_from":"21:00","quiet_to":"07:00"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update settings: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec = do(t, s, http.MethodGet, "/api/settings", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get settings: status %d", rec.Code)
	}
	got := decode[core.Settings](t, rec)
	if got.PaydayDay != 25 {
		t.Errorf("payday = %d, want 25", got.PaydayDay)
	}
	if got.Salary.String() != "12000.000" {
		t.Errorf("salary = %s, want 12000.000", got.Salary)
	}
	if got.DefaultStrategy != "avalanche" {
		t.Errorf("strategy = %s, want avalanche", got.DefaultStrategy)
	}
}

func TestUpdateSettingsRejectsBadPayday(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodPut, "/api/settings",
		`{"payday_day":0,"salary":"12000","currency":"SAR"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func jsonID(id int64) string {
	return strconv.FormatInt(id, 10)
}
