package services

import (
	"context"
	"strings"

	"homesplit/internal/core"
	"homesplit/internal/log"
	"homesplit/internal/ports"
)

type MemberStore interface {
	ports.MemberDirectory
	ports.MemberWriter
}

type MemberService struct {
	store    MemberStore
	balances *BalanceService
	logger   *log.Logger
}

func NewMemberService(store MemberStore, balances *BalanceService, logger *log.Logger) *MemberService {
	return &MemberService{store: store, balances: balances, logger: logger.WithComponent(log.ComponentApp)}
}

func (s *MemberService) List(ctx context.Context) ([]core.MemberProfile, error) {
	return s.store.ListMembers(ctx)
}

// Add stores a new member. Every cached report is dropped since the member
// set seeds the balances.
func (s *MemberService) Add(ctx context.Context, p core.MemberProfile) error {
	p.DisplayName = strings.TrimSpace(p.DisplayName)
	if err := p.Validate(); err != nil {
		return err
	}
	if err := s.store.AddMember(ctx, p); err != nil {
		return err
	}
	s.balances.InvalidateAll()
	s.logger.InfoContext(ctx, "Member added", log.FieldMember, p.ID)
	return nil
}

// Seed adds profiles that are not stored yet and leaves existing ones alone.
func (s *MemberService) Seed(ctx context.Context, profiles []core.MemberProfile) (int, error) {
	existing, err := s.store.ListMembers(ctx)
	if err != nil {
		return 0, err
	}
	have := make(map[core.Member]bool, len(existing))
	for _, e := range existing {
		have[e.ID] = true
	}
	added := 0
	for _, p := range profiles {
		if have[p.ID] {
			continue
		}
		if err := s.Add(ctx, p); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}
