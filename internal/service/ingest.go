package service

import (
	"context"
	"fmt"

	"github.com/botledger/botgate/internal/ingest"
	"github.com/botledger/botgate/internal/model"
	"github.com/botledger/botgate/internal/pkg/apperrors"
)

// Per-kind append-only stores. Each inbound event maps to exactly one
// created record, so no cross-record transaction is needed.
type TradeStore interface {
	Insert(ctx context.Context, t *model.Trade) error
}

type SnapshotStore interface {
	Insert(ctx context.Context, s *model.Snapshot) error
}

type EventStore interface {
	Insert(ctx context.Context, e *model.Event) error
}

// IngestService classifies, validates and persists inbound records for an
// already-authenticated project.
type IngestService struct {
	trades    TradeStore
	snapshots SnapshotStore
	events    EventStore
}

func NewIngestService(trades TradeStore, snapshots SnapshotStore, events EventStore) *IngestService {
	return &IngestService{
		trades:    trades,
		snapshots: snapshots,
		events:    events,
	}
}

// Ingest validates the payload against its declared kind and persists the
// normalized record under the project's scope. Returns the new record's id.
// Validation failures surface as INVALID_REQUEST; storage failures as
// INTERNAL_ERROR with an opaque message (the cause stays server-side).
func (s *IngestService) Ingest(ctx context.Context, project *model.Project, kind string, data map[string]any) (string, error) {
	record, verr := ingest.Validate(kind, data)
	if verr != nil {
		return "", apperrors.NewInvalidRequest(verr.Message)
	}

	var (
		id  string
		err error
	)
	switch rec := record.(type) {
	case ingest.TradeRecord:
		trade := rec.ToTrade(project.ID)
		err = s.trades.Insert(ctx, trade)
		id = trade.ID
	case ingest.SnapshotRecord:
		snapshot := rec.ToSnapshot(project.ID)
		err = s.snapshots.Insert(ctx, snapshot)
		id = snapshot.ID
	case ingest.EventRecord:
		event := rec.ToEvent(project.ID)
		err = s.events.Insert(ctx, event)
		id = event.ID
	default:
		return "", apperrors.New(apperrors.ErrInternal, fmt.Sprintf("unhandled record kind %q", record.Kind()), nil)
	}

	if err != nil {
		return "", apperrors.New(apperrors.ErrInternal, "internal error while saving data", err)
	}
	return id, nil
}
