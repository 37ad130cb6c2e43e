package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"deyn/internal/core"
	"deyn/internal/engine"
	"deyn/internal/extract"
)

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// --- dashboard ---

type alertView struct {
	Type         core.AlertType `json:"type"`
	EntityName   string         `json:"entity_name"`
	Amount       string         `json:"amount"`
	DueDate      string         `json:"due_date"`
	ObligationID int64          `json:"obligation_id"`
}

type summaryView struct {
	Year               int         `json:"year"`
	Month              int         `json:"month"`
	MonthTotal         string      `json:"month_total"`
	ProjectedRemaining string      `json:"projected_remaining"`
	ActiveCount        int         `json:"active_count"`
	Alerts             []alertView `json:"alerts"`
	Errors             []string    `json:"errors,omitempty"`
	Stale              bool        `json:"stale"`
	ComputedAt         time.Time   `json:"computed_at"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sum, err := s.dashboard.Summary(r.Context(), time.Now().UTC())
	if err != nil {
		writeError(w, err)
		return
	}

	view := summaryView{
		Year:               sum.Year,
		Month:              sum.Month,
		MonthTotal:         core.FormatCurrency(sum.MonthTotal, s.locale),
		ProjectedRemaining: core.FormatCurrency(sum.ProjectedRemaining, s.locale),
		ActiveCount:        sum.ActiveCount,
		Alerts:             make([]alertView, 0, len(sum.Alerts)),
		Errors:             sum.Errors,
		Stale:              sum.Stale,
		ComputedAt:         sum.ComputedAt,
	}
	for _, a := range sum.Alerts {
		view.Alerts = append(view.Alerts, alertView{
			Type:         a.Type,
			EntityName:   a.EntityName,
			Amount:       core.FormatCurrency(a.Amount, s.locale),
			DueDate:      a.DueDate.Format("2006-01-02"),
			ObligationID: a.ObligationID,
		})
	}
	writeJSON(w, http.StatusOK, view)
}

// --- entities ---

type entityRequest struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Contact string `json:"contact"`
	Note    string `json:"note"`
}

func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	entities, err := s.store.ListEntities(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entities)
}

func (s *Server) handleCreateEntity(w http.ResponseWriter, r *http.Request) {
	var req entityRequest
	if err := readJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	created, err := s.obligations.CreateEntity(r.Context(), core.Entity{
		Name:    req.Name,
		Kind:    core.EntityKind(req.Kind),
		Contact: req.Contact,
		Note:    req.Note,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteEntity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err := s.obligations.DeleteEntity(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- obligations ---

type obligationRequest struct {
	EntityID           int64    `json:"entity_id"`
	Kind               string   `json:"kind"`
	Principal          string   `json:"principal"`
	APR                float64  `json:"apr"`
	Fee                string   `json:"fee"`
	StartDate          string   `json:"start_date"` // 2006-01-02
	DueDay             int      `json:"due_day"`
	TotalInstallments  *int     `json:"total_installments"`
	Installment        string   `json:"installment"`
	RelationshipFactor float64  `json:"relationship_factor"`
	Tags               []string `json:"tags"`
}

type obligationView struct {
	core.Obligation
	Progress         float64 `json:"progress"`
	RemainingBalance *string `json:"remaining_balance"` // nil for unbounded schedules
	DueStatus        string  `json:"due_status"`
}

func (s *Server) obligationToView(o core.Obligation, now time.Time) obligationView {
	view := obligationView{
		Obligation: o,
		Progress:   engine.ProgressFraction(o),
		DueStatus:  string(engine.ClassifyDueStatus(o, now)),
	}
	if balance, ok := engine.RemainingBalance(o); ok {
		formatted := core.FormatCurrency(balance, s.locale)
		view.RemainingBalance = &formatted
	}
	return view
}

func (s *Server) handleListObligations(w http.ResponseWriter, r *http.Request) {
	status := core.ObligationStatus(r.URL.Query().Get("status"))
	obligations, err := s.store.ListObligations(r.Context(), status)
	if err != nil {
		writeError(w, err)
		return
	}
	now := time.Now().UTC()
	views := make([]obligationView, 0, len(obligations))
	for _, o := range obligations {
		views = append(views, s.obligationToView(o, now))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetObligation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	o, err := s.store.GetObligation(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.obligationToView(o, time.Now().UTC()))
}

func (s *Server) handleCreateObligation(w http.ResponseWriter, r *http.Request) {
	var req obligationRequest
	if err := readJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	principal, err := core.ParseAmount(req.Principal)
	if err != nil {
		writeError(w, err)
		return
	}
	fee := core.MoneyZero()
	if req.Fee != "" {
		if fee, err = core.ParseAmount(req.Fee); err != nil {
			writeError(w, err)
			return
		}
	}
	startDate := time.Now().UTC()
	if req.StartDate != "" {
		if startDate, err = time.Parse("2006-01-02", req.StartDate); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "start_date must be YYYY-MM-DD"})
			return
		}
	}

	schedule := core.UnboundedSchedule()
	if req.TotalInstallments != nil {
		schedule = core.BoundedSchedule(*req.TotalInstallments, *req.TotalInstallments)
	}

	installment := core.MoneyZero()
	switch {
	case req.Installment != "":
		if installment, err = core.ParseAmount(req.Installment); err != nil {
			writeError(w, err)
			return
		}
	case schedule.Bounded && schedule.Total > 0:
		installment = principal.DivInt(schedule.Total)
	default:
		installment = principal
	}

	created, err := s.obligations.CreateObligation(r.Context(), core.Obligation{
		EntityID:           req.EntityID,
		Kind:               core.ObligationKind(req.Kind),
		Principal:          principal,
		APR:                req.APR,
		Fee:                fee,
		StartDate:          startDate,
		DueDay:             req.DueDay,
		Schedule:           schedule,
		Installment:        installment,
		Status:             core.StatusActive,
		RelationshipFactor: req.RelationshipFactor,
		Tags:               req.Tags,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.obligationToView(created, time.Now().UTC()))
}

// --- payments ---

type paymentRequest struct {
	Amount      string `json:"amount"`
	Date        string `json:"date"` // 2006-01-02, defaults to today
	Method      string `json:"method"`
	Note        string `json:"note"`
	Installment int    `json:"installment"`
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	payments, err := s.store.ListPayments(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

func (s *Server) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	var req paymentRequest
	if err := readJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	var date time.Time
	if req.Date != "" {
		if date, err = time.Parse("2006-01-02", req.Date); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "date must be YYYY-MM-DD"})
			return
		}
	}

	payment, obligation, err := s.obligations.RecordPayment(r.Context(), core.Payment{
		ObligationID: id,
		Amount:       amount,
		Date:         date,
		Method:       req.Method,
		Note:         req.Note,
		Installment:  req.Installment,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"payment":    payment,
		"obligation": s.obligationToView(obligation, time.Now().UTC()),
	})
}

// --- extraction ---

type extractRequest struct {
	Text string `json:"text"`
}

type extractResponse struct {
	Draft       *extract.Draft `json:"draft"`
	Assumptions []string       `json:"assumptions"`
}

// handleExtract turns free text into a draft for the user to confirm.
// A missing amount is not an error: the draft comes back null and the
// caller prompts for manual entry.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := readJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	draft, assumptions := extract.Extract(req.Text)
	writeJSON(w, http.StatusOK, extractResponse{Draft: draft, Assumptions: assumptions})
}

// --- settings ---

type settingsRequest struct {
	PaydayDay       int    `json:"payday_day"`
	Salary          string `json:"salary"`
	SavingsTarget   string `json:"savings_target"`
	Currency        string `json:"currency"`
	DefaultStrategy string `json:"default_strategy"`
	QuietFrom       string `json:"quiet_from"`
	QuietTo         string `json:"quiet_to"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.GetSettings(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := readJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	salary, err := core.ParseAmount(req.Salary)
	if err != nil {
		writeError(w, err)
		return
	}
	savings := core.MoneyZero()
	if req.SavingsTarget != "" {
		if savings, err = core.ParseAmount(req.SavingsTarget); err != nil {
			writeError(w, err)
			return
		}
	}
	settings := core.Settings{
		PaydayDay:       req.PaydayDay,
		Salary:          salary,
		SavingsTarget:   savings,
		Currency:        req.Currency,
		DefaultStrategy: req.DefaultStrategy,
		QuietFrom:       req.QuietFrom,
		QuietTo:         req.QuietTo,
	}
	if err := s.obligations.UpdateSettings(r.Context(), settings); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
