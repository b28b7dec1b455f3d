package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/botledger/botgate/internal/config"
	"github.com/botledger/botgate/internal/middleware"
	"github.com/botledger/botgate/internal/model"
	"github.com/botledger/botgate/internal/repository"
	"github.com/botledger/botgate/internal/service"
	"github.com/gin-gonic/gin"
)

type fakeResolver struct {
	projects map[string]*model.Project // key: api key, active only
}

func (f *fakeResolver) ResolveByApiKey(_ context.Context, apiKey string) (*model.Project, error) {
	if p, ok := f.projects[apiKey]; ok {
		return p, nil
	}
	return nil, repository.ErrProjectNotFound
}

type fakeStores struct {
	trades     []*model.Trade
	snapshots  []*model.Snapshot
	events     []*model.Event
	failInsert bool
}

func (f *fakeStores) Insert(_ context.Context, rec any) error {
	if f.failInsert {
		return errors.New("connection reset by peer")
	}
	switch r := rec.(type) {
	case *model.Trade:
		r.ID = fmt.Sprintf("trade-%d", len(f.trades)+1)
		f.trades = append(f.trades, r)
	case *model.Snapshot:
		r.ID = fmt.Sprintf("snap-%d", len(f.snapshots)+1)
		f.snapshots = append(f.snapshots, r)
	case *model.Event:
		r.ID = fmt.Sprintf("event-%d", len(f.events)+1)
		f.events = append(f.events, r)
	}
	return nil
}

type tradeStore struct{ *fakeStores }

func (s tradeStore) Insert(ctx context.Context, t *model.Trade) error { return s.fakeStores.Insert(ctx, t) }

type snapshotStore struct{ *fakeStores }

func (s snapshotStore) Insert(ctx context.Context, snap *model.Snapshot) error {
	return s.fakeStores.Insert(ctx, snap)
}

type eventStore struct{ *fakeStores }

func (s eventStore) Insert(ctx context.Context, e *model.Event) error { return s.fakeStores.Insert(ctx, e) }

func newIngestRouter(stores *fakeStores) *gin.Engine {
	gin.SetMode(gin.TestMode)

	resolver := &fakeResolver{projects: map[string]*model.Project{
		"sk-live-key": {ID: "project-1", Name: "Alpha Bot", Active: true},
	}}
	directory := service.NewDirectory(&config.Config{}, resolver)
	svc := service.NewIngestService(tradeStore{stores}, snapshotStore{stores}, eventStore{stores})
	h := NewIngestHandler(svc)

	router := gin.New()
	router.Use(middleware.ErrorHandler())
	group := router.Group("/v1")
	group.Use(middleware.AuthMiddleware(directory))
	group.POST("/ingest", h.Ingest)
	return router
}

func postIngest(router *gin.Engine, apiKey string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/ingest", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set(middleware.HeaderApiKey, apiKey)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestIngestTradeSuccess(t *testing.T) {
	stores := &fakeStores{}
	router := newIngestRouter(stores)

	rec := postIngest(router, "sk-live-key",
		`{"type":"trade","data":{"tx_type":"close","side":"long","ticker":"BTCUSD","quantity":0.01,"price":95000,"notional":950,"pnl":12.5}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json response: %v", err)
	}
	if resp["ok"] != true {
		t.Fatalf("expected ok:true, got %v", resp)
	}
	if resp["id"] == nil || resp["id"] == "" {
		t.Fatalf("expected generated id, got %v", resp)
	}

	if len(stores.trades) != 1 {
		t.Fatalf("expected one persisted trade, got %d", len(stores.trades))
	}
	trade := stores.trades[0]
	if trade.ProjectID != "project-1" {
		t.Fatalf("trade not scoped to tenant: %q", trade.ProjectID)
	}
	if trade.PnL == nil || *trade.PnL != 12.5 {
		t.Fatalf("expected pnl 12.5, got %v", trade.PnL)
	}
	if trade.Reason != nil {
		t.Fatalf("absent reason must persist as nil")
	}
}

func TestIngestMissingApiKey(t *testing.T) {
	router := newIngestRouter(&fakeStores{})
	rec := postIngest(router, "", `{"type":"event","data":{"title":"x"}}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestIngestUnknownAndInactiveKeysAreIndistinguishable(t *testing.T) {
	stores := &fakeStores{}
	router := newIngestRouter(stores)

	// The resolver only ever exposes active projects: a deactivated project
	// produces the same miss as a key that never existed.
	recUnknown := postIngest(router, "sk-no-such-key", `{"type":"event","data":{"title":"x"}}`)
	recInactive := postIngest(router, "sk-deactivated", `{"type":"event","data":{"title":"x"}}`)

	if recUnknown.Code != http.StatusUnauthorized || recInactive.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", recUnknown.Code, recInactive.Code)
	}
	if recUnknown.Body.String() != recInactive.Body.String() {
		t.Fatalf("responses must be identical: %q vs %q", recUnknown.Body.String(), recInactive.Body.String())
	}
	if len(stores.events) != 0 {
		t.Fatalf("nothing may persist on auth failure")
	}
}

func TestIngestMalformedBody(t *testing.T) {
	router := newIngestRouter(&fakeStores{})
	rec := postIngest(router, "sk-live-key", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestIngestMissingTypeOrData(t *testing.T) {
	router := newIngestRouter(&fakeStores{})
	for _, body := range []string{
		`{"data":{"title":"x"}}`,
		`{"type":"event"}`,
		`{}`,
	} {
		rec := postIngest(router, "sk-live-key", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestIngestValidationFailureDoesNotPersist(t *testing.T) {
	stores := &fakeStores{}
	router := newIngestRouter(stores)

	rec := postIngest(router, "sk-live-key",
		`{"type":"trade","data":{"tx_type":"open","side":"long","ticker":"BTCUSD"}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var resp map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	msg, _ := resp["error"].(string)
	if msg == "" {
		t.Fatalf("expected validation message in error field")
	}
	if len(stores.trades) != 0 {
		t.Fatalf("invalid trade must not persist")
	}
}

func TestIngestUnknownType(t *testing.T) {
	router := newIngestRouter(&fakeStores{})
	rec := postIngest(router, "sk-live-key", `{"type":"metrics","data":{}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var resp map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	msg, _ := resp["error"].(string)
	if msg == "" || !bytes.Contains([]byte(msg), []byte("trade, snapshot, event")) {
		t.Fatalf("error must enumerate accepted kinds, got %q", msg)
	}
}

func TestIngestEventDefaultsType(t *testing.T) {
	stores := &fakeStores{}
	router := newIngestRouter(stores)

	rec := postIngest(router, "sk-live-key", `{"type":"event","data":{"title":"Daily task"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(stores.events) != 1 {
		t.Fatalf("expected one persisted event")
	}
	if stores.events[0].EventType != "note" {
		t.Fatalf("expected event_type note, got %q", stores.events[0].EventType)
	}
}

func TestIngestSnapshotEmptyPayload(t *testing.T) {
	stores := &fakeStores{}
	router := newIngestRouter(stores)

	rec := postIngest(router, "sk-live-key", `{"type":"snapshot","data":{}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(stores.snapshots) != 1 {
		t.Fatalf("expected one persisted snapshot")
	}
}

func TestIngestStorageFailureIsOpaque(t *testing.T) {
	stores := &fakeStores{failInsert: true}
	router := newIngestRouter(stores)

	rec := postIngest(router, "sk-live-key",
		`{"type":"trade","data":{"tx_type":"open","side":"short","ticker":"ETHUSD","quantity":1,"price":3000,"notional":3000}}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("connection reset")) {
		t.Fatalf("storage detail leaked to caller: %s", rec.Body.String())
	}
}
