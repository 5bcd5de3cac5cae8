package http

import (
	"net/http"

	"homesplit/internal/core"
	"homesplit/internal/log"
)

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.deps.Members.List(r.Context())
	if err != nil {
		s.respondError(w, r, log.OpList, err)
		return
	}
	out := make([]memberJSON, len(profiles))
	for i, p := range profiles {
		out[i] = toMemberJSON(p)
	}
	NewJSONResponse().Body(map[string]any{"members": out}).Write(w)
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, log.OpCreate, err)
		return
	}
	p := core.MemberProfile{
		ID:          core.Member(sanitizeInput(req.ID)),
		DisplayName: sanitizeInput(req.DisplayName),
		JoinedAt:    s.now(),
	}
	if err := s.deps.Members.Add(r.Context(), p); err != nil {
		s.respondError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toMemberJSON(p)).Write(w)
}
