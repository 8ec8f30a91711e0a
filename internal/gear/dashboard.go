package gear

import (
	"context"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultRecentLimit = 5
	MaxRecentLimit     = 100
)

type DashboardService struct {
	store interface {
		Counter
		RequestStore
		UserStore
	}
}

func NewDashboardService(store Store) *DashboardService {
	return &DashboardService{store: store}
}

// Stats runs the count queries concurrently. TotalRequests is the sum of the
// per-status counts so the breakdown always adds up.
func (s *DashboardService) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	g, ctx := errgroup.WithContext(ctx)

	equipment := func(dst *int, status *EquipmentStatus) {
		g.Go(func() (err error) {
			*dst, err = s.store.CountEquipment(ctx, status)
			return err
		})
	}
	requests := func(dst *int, status *RequestStatus) {
		g.Go(func() (err error) {
			*dst, err = s.store.CountRequests(ctx, status)
			return err
		})
	}

	equipment(&st.TotalEquipment, nil)
	equipment(&st.OperationalEquipment, ptr(EquipmentOperational))
	equipment(&st.UnderMaintenance, ptr(EquipmentUnderMaintenance))
	g.Go(func() (err error) {
		st.TotalTeams, err = s.store.CountTeams(ctx)
		return err
	})
	requests(&st.NewRequests, ptr(StatusNew))
	requests(&st.InProgressRequests, ptr(StatusInProgress))
	requests(&st.CompletedRequests, ptr(StatusRepaired))
	requests(&st.ScrappedRequests, ptr(StatusScrap))

	if err := g.Wait(); err != nil {
		return Stats{}, classify(err, "")
	}
	st.TotalRequests = st.NewRequests + st.InProgressRequests + st.CompletedRequests + st.ScrappedRequests
	return st, nil
}

// RecentRequests returns the newest requests. limit<=0 means the default;
// larger values are capped.
func (s *DashboardService) RecentRequests(ctx context.Context, limit int) ([]RecentRequest, error) {
	out, err := s.store.RecentRequests(ctx, ClampLimit(limit))
	return out, classify(err, "")
}

func (s *DashboardService) Users(ctx context.Context) ([]UserSummary, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, classify(err, "")
	}
	out := make([]UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, u.Summary())
	}
	return out, nil
}

func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultRecentLimit
	case limit > MaxRecentLimit:
		return MaxRecentLimit
	}
	return limit
}

func ptr[T any](v T) *T { return &v }
