package service

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/botledger/botgate/internal/ethereal"
	"github.com/botledger/botgate/internal/model"
	"github.com/shopspring/decimal"
)

type stubTradeReader struct{ trades []model.Trade }

func (s stubTradeReader) ListByProject(context.Context, string, int) ([]model.Trade, error) {
	return s.trades, nil
}
func (s stubTradeReader) CountByProject(context.Context, string) (int64, error) {
	return int64(len(s.trades)), nil
}

type stubSnapshotReader struct{ latest *model.Snapshot }

func (s stubSnapshotReader) LatestByProject(context.Context, string) (*model.Snapshot, error) {
	return s.latest, nil
}
func (s stubSnapshotReader) ListByProject(context.Context, string, int) ([]model.Snapshot, error) {
	if s.latest == nil {
		return nil, nil
	}
	return []model.Snapshot{*s.latest}, nil
}

type countingEnricher struct {
	calls int64
}

func (e *countingEnricher) Points(context.Context, string) *ethereal.Points {
	atomic.AddInt64(&e.calls, 1)
	return &ethereal.Points{TotalPoints: decimal.NewFromInt(100), Rank: 7, Tier: 2}
}

func (e *countingEnricher) Fills(context.Context, string) []ethereal.Fill {
	atomic.AddInt64(&e.calls, 1)
	return []ethereal.Fill{{OrderID: "o1"}}
}

func (e *countingEnricher) Position(context.Context, string) *ethereal.Position {
	atomic.AddInt64(&e.calls, 1)
	return &ethereal.Position{Ticker: "BTCUSD"}
}

func TestReportSummaryComputesStatsAndTrend(t *testing.T) {
	repo := newMemProjectRepo()
	win, loss := 10.0, -4.0
	bullish := "BULLISH"

	project := &model.Project{ID: "p1", Name: "Alpha", ApiKey: "sk", Active: true}
	repo.projects[project.ID] = project

	trades := stubTradeReader{trades: []model.Trade{
		{PnL: &win}, {PnL: &loss}, {PnL: nil},
	}}
	snaps := stubSnapshotReader{latest: &model.Snapshot{Trend: &bullish}}

	svc := NewReportService(repo, trades, snaps, nil)
	summary, err := svc.Summary(context.Background(), "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Stats.TotalPnL != 6 {
		t.Fatalf("expected total pnl 6, got %v", summary.Stats.TotalPnL)
	}
	if summary.Stats.WinRate == nil || *summary.Stats.WinRate != 50 {
		t.Fatalf("expected 50%% win rate, got %v", summary.Stats.WinRate)
	}
	if summary.Trend != "BULLISH" {
		t.Fatalf("expected bullish trend, got %s", summary.Trend)
	}
	if summary.Enrichment.Fills == nil {
		t.Fatalf("fills must be an empty slice, not nil")
	}
}

func TestReportSummarySkipsEnrichmentWithoutLinkage(t *testing.T) {
	repo := newMemProjectRepo()
	repo.projects["p1"] = &model.Project{ID: "p1", Name: "Alpha", Active: true}

	enricher := &countingEnricher{}
	svc := NewReportService(repo, stubTradeReader{}, stubSnapshotReader{}, enricher)

	summary, err := svc.Summary(context.Background(), "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if atomic.LoadInt64(&enricher.calls) != 0 {
		t.Fatalf("no enrichment calls expected without wallet/subaccount")
	}
	if summary.Enrichment.Points != nil || summary.Enrichment.Position != nil {
		t.Fatalf("expected empty enrichment: %+v", summary.Enrichment)
	}
}

func TestReportSummaryFetchesAllThreeResources(t *testing.T) {
	repo := newMemProjectRepo()
	repo.projects["p1"] = &model.Project{
		ID: "p1", Name: "Alpha", Active: true,
		Ethereal: model.EtherealLink{WalletAddress: "0xabc", SubaccountID: "sub-1"},
	}

	enricher := &countingEnricher{}
	svc := NewReportService(repo, stubTradeReader{}, stubSnapshotReader{}, enricher)

	summary, err := svc.Summary(context.Background(), "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if atomic.LoadInt64(&enricher.calls) != 3 {
		t.Fatalf("expected 3 enrichment calls, got %d", enricher.calls)
	}
	if summary.Enrichment.Points == nil || summary.Enrichment.Position == nil || len(summary.Enrichment.Fills) != 1 {
		t.Fatalf("expected full enrichment: %+v", summary.Enrichment)
	}
}
