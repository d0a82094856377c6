package service

import (
	"context"
	"time"

	"go-fund-admin/internal/model"
	"go-fund-admin/internal/repository"
)

type DashboardService interface {
	// GetAuthorizationStats counts assignment activity of the last days days
	GetAuthorizationStats(ctx context.Context, days int) (*model.AuthorizationStats, error)
}

type dashboardService struct {
	stats repository.StatsRepository
}

func NewDashboardService(stats repository.StatsRepository) DashboardService {
	return &dashboardService{stats: stats}
}

func (s *dashboardService) GetAuthorizationStats(ctx context.Context, days int) (*model.AuthorizationStats, error) {
	if days <= 0 {
		days = 30
	}
	since := time.Now().AddDate(0, 0, -days)

	stats, err := s.stats.GetAuthorizationStats(ctx, since)
	if err != nil {
		return nil, err
	}
	stats.PeriodDays = days
	return stats, nil
}
