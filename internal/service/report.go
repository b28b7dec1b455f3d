package service

import (
	"context"
	"errors"
	"sync"

	"github.com/botledger/botgate/internal/ethereal"
	"github.com/botledger/botgate/internal/model"
	"github.com/botledger/botgate/internal/pkg/apperrors"
	"github.com/botledger/botgate/internal/repository"
	"github.com/botledger/botgate/internal/stats"
)

// Enricher is the read-only external feed. Every method is best-effort:
// no data is a nil pointer or empty slice, never an error.
type Enricher interface {
	Points(ctx context.Context, address string) *ethereal.Points
	Fills(ctx context.Context, subaccountID string) []ethereal.Fill
	Position(ctx context.Context, subaccountID string) *ethereal.Position
}

type Enrichment struct {
	Points   *ethereal.Points   `json:"points"`
	Fills    []ethereal.Fill    `json:"fills"`
	Position *ethereal.Position `json:"position"`
}

type ReportSummary struct {
	Project        *model.Project  `json:"project"`
	Stats          stats.Summary   `json:"stats"`
	Trend          stats.Trend     `json:"trend"`
	LatestSnapshot *model.Snapshot `json:"latest_snapshot"`
	Enrichment     Enrichment      `json:"enrichment"`
}

// ReportService assembles the derived summary view for one project.
type ReportService struct {
	repo      ProjectRepoCRUD
	trades    TradeReader
	snapshots SnapshotReader
	enricher  Enricher
}

func NewReportService(repo ProjectRepoCRUD, trades TradeReader, snapshots SnapshotReader, enricher Enricher) *ReportService {
	return &ReportService{
		repo:      repo,
		trades:    trades,
		snapshots: snapshots,
		enricher:  enricher,
	}
}

// Summary computes PnL statistics over the recent trade window and resolves
// the latest snapshot, then attaches best-effort enrichment. The three
// enrichment fetches run concurrently so a stalled upstream resource cannot
// block the other two; each independently degrades to "no data".
func (s *ReportService) Summary(ctx context.Context, projectID string) (*ReportSummary, error) {
	project, err := s.repo.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, apperrors.NewNotFound("project not found")
		}
		return nil, apperrors.Wrap(err)
	}

	trades, err := s.trades.ListByProject(ctx, project.ID, recentTradesWindow)
	if err != nil {
		return nil, apperrors.Wrap(err)
	}
	latest, err := s.snapshots.LatestByProject(ctx, project.ID)
	if err != nil {
		return nil, apperrors.Wrap(err)
	}

	summary := &ReportSummary{
		Project:        project,
		Stats:          stats.Summarize(trades),
		Trend:          stats.ClassifyTrend(latest),
		LatestSnapshot: latest,
		Enrichment:     Enrichment{Fills: []ethereal.Fill{}},
	}

	if s.enricher != nil {
		summary.Enrichment = s.enrich(ctx, project)
	}
	return summary, nil
}

func (s *ReportService) enrich(ctx context.Context, project *model.Project) Enrichment {
	enrichment := Enrichment{Fills: []ethereal.Fill{}}

	var wg sync.WaitGroup
	if project.Ethereal.WalletAddress != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			enrichment.Points = s.enricher.Points(ctx, project.Ethereal.WalletAddress)
		}()
	}
	if project.Ethereal.SubaccountID != "" {
		wg.Add(2)
		go func() {
			defer wg.Done()
			enrichment.Fills = s.enricher.Fills(ctx, project.Ethereal.SubaccountID)
		}()
		go func() {
			defer wg.Done()
			enrichment.Position = s.enricher.Position(ctx, project.Ethereal.SubaccountID)
		}()
	}
	wg.Wait()
	return enrichment
}
