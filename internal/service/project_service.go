package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/botledger/botgate/internal/model"
	"github.com/botledger/botgate/internal/pkg/apperrors"
	"github.com/botledger/botgate/internal/repository"
	"github.com/botledger/botgate/internal/stats"
	"github.com/google/uuid"
)

type ProjectRepoCRUD interface {
	ProjectResolver
	List(ctx context.Context) ([]*model.Project, error)
	GetByID(ctx context.Context, id string) (*model.Project, error)
	GetBySlug(ctx context.Context, slug string) (*model.Project, error)
	Create(ctx context.Context, p *model.Project) error
	Update(ctx context.Context, p *model.Project) error
	Delete(ctx context.Context, id string) error
}

type TradeReader interface {
	ListByProject(ctx context.Context, projectID string, limit int) ([]model.Trade, error)
	CountByProject(ctx context.Context, projectID string) (int64, error)
}

type SnapshotReader interface {
	LatestByProject(ctx context.Context, projectID string) (*model.Snapshot, error)
	ListByProject(ctx context.Context, projectID string, limit int) ([]model.Snapshot, error)
}

type EventReader interface {
	ListByProject(ctx context.Context, projectID string, limit int) ([]model.Event, error)
	CountByProject(ctx context.Context, projectID string) (int64, error)
}

const (
	recentTradesWindow = 100
	recentEventsWindow = 50
)

type ProjectService struct {
	repo      ProjectRepoCRUD
	trades    TradeReader
	snapshots SnapshotReader
	events    EventReader
	directory *Directory
}

func NewProjectService(repo ProjectRepoCRUD, trades TradeReader, snapshots SnapshotReader, events EventReader, directory *Directory) *ProjectService {
	return &ProjectService{
		repo:      repo,
		trades:    trades,
		snapshots: snapshots,
		events:    events,
		directory: directory,
	}
}

type ProjectCreateRequest struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Color string `json:"color"`
}

type ProjectUpdateRequest struct {
	Name          *string `json:"name"`
	Color         *string `json:"color"`
	Active        *bool   `json:"active"`
	WalletAddress *string `json:"wallet_address"`
	SubaccountID  *string `json:"subaccount_id"`
}

// ProjectOverview is one row of the project list: the project plus derived
// counts and its latest snapshot.
type ProjectOverview struct {
	Project        *model.Project  `json:"project"`
	TradeCount     int64           `json:"trade_count"`
	EventCount     int64           `json:"event_count"`
	LatestSnapshot *model.Snapshot `json:"latest_snapshot"`
}

// ProjectDetail is the full reporting view: bounded recent records plus the
// computed summary statistics.
type ProjectDetail struct {
	Project        *model.Project  `json:"project"`
	Trades         []model.Trade   `json:"trades"`
	Events         []model.Event   `json:"events"`
	LatestSnapshot *model.Snapshot `json:"latest_snapshot"`
	TradeCount     int64           `json:"trade_count"`
	EventCount     int64           `json:"event_count"`
	Stats          stats.Summary   `json:"stats"`
	Trend          stats.Trend     `json:"trend"`
}

var slugStrip = regexp.MustCompile(`[^a-z0-9-]`)
var slugSpaces = regexp.MustCompile(`\s+`)

// Slugify derives the URL-safe identifier from a project name: lowercase,
// whitespace to hyphens, everything else outside [a-z0-9-] stripped.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugSpaces.ReplaceAllString(slug, "-")
	return slugStrip.ReplaceAllString(slug, "")
}

// Create registers a new project. The API key is generated here and returned
// in full exactly once; read paths only ever see it masked.
func (s *ProjectService) Create(ctx context.Context, req ProjectCreateRequest) (*model.Project, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.NewInvalidRequest("name is required")
	}

	projectType := req.Type
	if projectType == "" {
		projectType = model.ProjectTypeTrading
	}
	color := req.Color
	if color == "" {
		color = "#6366f1"
	}

	project := &model.Project{
		ID:        uuid.NewString(),
		Name:      name,
		Slug:      Slugify(name),
		Type:      projectType,
		Color:     color,
		ApiKey:    uuid.NewString(),
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, project); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("a project with this name already exists")
		}
		return nil, apperrors.Wrap(err)
	}
	return project, nil
}

func (s *ProjectService) List(ctx context.Context) ([]ProjectOverview, error) {
	projects, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err)
	}
	overviews := make([]ProjectOverview, 0, len(projects))
	for _, p := range projects {
		overview := ProjectOverview{Project: p}
		if overview.TradeCount, err = s.trades.CountByProject(ctx, p.ID); err != nil {
			return nil, apperrors.Wrap(err)
		}
		if overview.EventCount, err = s.events.CountByProject(ctx, p.ID); err != nil {
			return nil, apperrors.Wrap(err)
		}
		if overview.LatestSnapshot, err = s.snapshots.LatestByProject(ctx, p.ID); err != nil {
			return nil, apperrors.Wrap(err)
		}
		overviews = append(overviews, overview)
	}
	return overviews, nil
}

func (s *ProjectService) Get(ctx context.Context, id string) (*ProjectDetail, error) {
	project, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, apperrors.NewNotFound("project not found")
		}
		return nil, apperrors.Wrap(err)
	}
	return s.detail(ctx, project)
}

func (s *ProjectService) GetBySlug(ctx context.Context, slug string) (*ProjectDetail, error) {
	project, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, apperrors.NewNotFound("project not found")
		}
		return nil, apperrors.Wrap(err)
	}
	return s.detail(ctx, project)
}

func (s *ProjectService) detail(ctx context.Context, project *model.Project) (*ProjectDetail, error) {
	detail := &ProjectDetail{Project: project}

	var err error
	if detail.Trades, err = s.trades.ListByProject(ctx, project.ID, recentTradesWindow); err != nil {
		return nil, apperrors.Wrap(err)
	}
	if detail.Events, err = s.events.ListByProject(ctx, project.ID, recentEventsWindow); err != nil {
		return nil, apperrors.Wrap(err)
	}
	if detail.LatestSnapshot, err = s.snapshots.LatestByProject(ctx, project.ID); err != nil {
		return nil, apperrors.Wrap(err)
	}
	if detail.TradeCount, err = s.trades.CountByProject(ctx, project.ID); err != nil {
		return nil, apperrors.Wrap(err)
	}
	if detail.EventCount, err = s.events.CountByProject(ctx, project.ID); err != nil {
		return nil, apperrors.Wrap(err)
	}

	detail.Stats = stats.Summarize(detail.Trades)
	detail.Trend = stats.ClassifyTrend(detail.LatestSnapshot)
	return detail, nil
}

func (s *ProjectService) Update(ctx context.Context, id string, req ProjectUpdateRequest) (*model.Project, error) {
	project, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, apperrors.NewNotFound("project not found")
		}
		return nil, apperrors.Wrap(err)
	}

	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		project.Name = strings.TrimSpace(*req.Name)
	}
	if req.Color != nil && *req.Color != "" {
		project.Color = *req.Color
	}
	if req.Active != nil {
		project.Active = *req.Active
	}
	if req.WalletAddress != nil {
		project.Ethereal.WalletAddress = strings.TrimSpace(*req.WalletAddress)
	}
	if req.SubaccountID != nil {
		project.Ethereal.SubaccountID = strings.TrimSpace(*req.SubaccountID)
	}

	if err := s.repo.Update(ctx, project); err != nil {
		return nil, apperrors.Wrap(err)
	}
	return project, nil
}

func (s *ProjectService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return apperrors.NewNotFound("project not found")
		}
		return apperrors.Wrap(err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return apperrors.Wrap(err)
	}
	if s.directory != nil {
		s.directory.Forget(id)
	}
	return nil
}
