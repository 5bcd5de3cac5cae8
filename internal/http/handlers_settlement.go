package http

import (
	"net/http"
	"strings"

	"homesplit/internal/core"
	"homesplit/internal/log"
)

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriodParam(r.URL.Query(), s.now())
	if err != nil {
		s.respondError(w, r, log.OpSettle, err)
		return
	}
	report, err := s.deps.Balances.Compute(r.Context(), period)
	if err != nil {
		s.respondError(w, r, log.OpSettle, err)
		return
	}
	NewJSONResponse().Body(toReportJSON(report)).Write(w)
}

// handleSettlement returns the transfers a closure of the period would
// start from.
func (s *Server) handleSettlement(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriodParam(r.URL.Query(), s.now())
	if err != nil {
		s.respondError(w, r, log.OpSettle, err)
		return
	}
	report, err := s.deps.Closures.Preview(r.Context(), period)
	if err != nil {
		s.respondError(w, r, log.OpSettle, err)
		return
	}
	NewJSONResponse().Body(settlementJSON{
		Period:    period.String(),
		Settled:   report.Settled(),
		Closed:    report.Closed,
		Transfers: toTransfersJSON(report.Transfers),
	}).Write(w)
}

func (s *Server) handleClosePeriod(w http.ResponseWriter, r *http.Request) {
	var req closeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, log.OpClose, err)
		return
	}
	period, err := parseClosePeriod(req.Period, s.now())
	if err != nil {
		s.respondError(w, r, log.OpClose, err)
		return
	}

	var override *core.Override
	if req.Override != nil {
		amount, err := parseOverrideAmount(req.Override.Amount)
		if err != nil {
			s.respondError(w, r, log.OpClose, err)
			return
		}
		override = &core.Override{
			From:   core.Member(strings.TrimSpace(req.Override.From)),
			To:     core.Member(strings.TrimSpace(req.Override.To)),
			Amount: amount,
		}
	}

	closure, err := s.deps.Closures.Close(r.Context(), period, core.Member(strings.TrimSpace(req.ClosedBy)), override)
	if err != nil {
		s.respondError(w, r, log.OpClose, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/closures/"+period.String()).
		Body(toClosureJSON(closure)).
		Write(w)
}

func (s *Server) handleGetClosure(w http.ResponseWriter, r *http.Request) {
	period, err := core.ParsePeriod(r.PathValue("period"))
	if err != nil {
		s.respondError(w, r, log.OpRead, err)
		return
	}
	closure, err := s.deps.Closures.Get(r.Context(), period)
	if err != nil {
		s.respondError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(toClosureJSON(closure)).Write(w)
}

func (s *Server) handleListClosures(w http.ResponseWriter, r *http.Request) {
	closures, err := s.deps.Closures.List(r.Context())
	if err != nil {
		s.respondError(w, r, log.OpList, err)
		return
	}
	out := make([]closureJSON, len(closures))
	for i, c := range closures {
		out[i] = toClosureJSON(c)
	}
	NewJSONResponse().Body(map[string]any{"closures": out}).Write(w)
}
