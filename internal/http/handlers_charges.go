package http

import (
	"fmt"
	"net/http"
	"strings"

	"homesplit/internal/core"
	"homesplit/internal/log"
)

func (s *Server) handleListCharges(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriodParam(r.URL.Query(), s.now())
	if err != nil {
		s.respondError(w, r, log.OpList, err)
		return
	}
	charges, err := s.deps.Charges.List(r.Context(), period)
	if err != nil {
		s.respondError(w, r, log.OpList, err)
		return
	}
	out := make([]chargeJSON, len(charges))
	for i, c := range charges {
		out[i] = toChargeJSON(c)
	}
	NewJSONResponse().Body(map[string]any{"period": period.String(), "charges": out}).Write(w)
}

func (s *Server) handleCreateCharge(w http.ResponseWriter, r *http.Request) {
	var req chargeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, log.OpCreate, err)
		return
	}
	date, err := parseDateField(req.Date, s.now())
	if err != nil {
		s.respondError(w, r, log.OpCreate, err)
		return
	}
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		s.respondError(w, r, log.OpCreate, err)
		return
	}

	charge, err := s.deps.Charges.Create(r.Context(), core.Charge{
		Date:          date,
		Description:   sanitizeInput(req.Description),
		Amount:        amount,
		Payer:         core.Member(strings.TrimSpace(req.Payer)),
		Beneficiaries: parseMembers(req.Beneficiaries),
		Kind:          core.KindVariable,
		Label:         sanitizeInput(req.Label),
	})
	if err != nil {
		s.respondError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", fmt.Sprintf("/api/charges/%d", charge.ID)).
		Body(toChargeJSON(charge)).
		Write(w)
}

func (s *Server) handleDeleteCharge(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		s.respondError(w, r, log.OpDelete, err)
		return
	}
	if err := s.deps.Charges.Delete(r.Context(), id); err != nil {
		s.respondError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Recurring.List(r.Context())
	if err != nil {
		s.respondError(w, r, log.OpList, err)
		return
	}
	out := make([]recurringJSON, len(list))
	for i, rc := range list {
		out[i] = toRecurringJSON(rc)
	}
	NewJSONResponse().Body(map[string]any{"recurring": out}).Write(w)
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req recurringRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, log.OpCreate, err)
		return
	}
	start, err := parseDateField(req.StartDate, s.now())
	if err != nil {
		s.respondError(w, r, log.OpCreate, err)
		return
	}
	end, err := parseOptionalDate(req.EndDate)
	if err != nil {
		s.respondError(w, r, log.OpCreate, err)
		return
	}
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		s.respondError(w, r, log.OpCreate, err)
		return
	}

	rc, err := s.deps.Recurring.Create(r.Context(), core.RecurringCharge{
		StartDate:     start,
		EndDate:       end,
		Every:         core.RepetitionTypes(strings.ToLower(strings.TrimSpace(req.Every))),
		Description:   sanitizeInput(req.Description),
		Amount:        amount,
		Payer:         core.Member(strings.TrimSpace(req.Payer)),
		Beneficiaries: parseMembers(req.Beneficiaries),
		Label:         sanitizeInput(req.Label),
	})
	if err != nil {
		s.respondError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toRecurringJSON(rc)).Write(w)
}
