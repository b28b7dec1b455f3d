package service

import (
	"context"
	"errors"
	"testing"

	"github.com/botledger/botgate/internal/model"
	"github.com/botledger/botgate/internal/pkg/apperrors"
	"github.com/botledger/botgate/internal/repository"
)

type memProjectRepo struct {
	projects map[string]*model.Project // key: id
}

func newMemProjectRepo() *memProjectRepo {
	return &memProjectRepo{projects: make(map[string]*model.Project)}
}

func (r *memProjectRepo) ResolveByApiKey(_ context.Context, apiKey string) (*model.Project, error) {
	for _, p := range r.projects {
		if p.ApiKey == apiKey && p.Active {
			return p, nil
		}
	}
	return nil, repository.ErrProjectNotFound
}

func (r *memProjectRepo) List(_ context.Context) ([]*model.Project, error) {
	out := make([]*model.Project, 0, len(r.projects))
	for _, p := range r.projects {
		out = append(out, p)
	}
	return out, nil
}

func (r *memProjectRepo) GetByID(_ context.Context, id string) (*model.Project, error) {
	if p, ok := r.projects[id]; ok {
		return p, nil
	}
	return nil, repository.ErrProjectNotFound
}

func (r *memProjectRepo) GetBySlug(_ context.Context, slug string) (*model.Project, error) {
	for _, p := range r.projects {
		if p.Slug == slug {
			return p, nil
		}
	}
	return nil, repository.ErrProjectNotFound
}

func (r *memProjectRepo) Create(_ context.Context, p *model.Project) error {
	for _, existing := range r.projects {
		if existing.Slug == p.Slug || existing.ApiKey == p.ApiKey {
			return repository.ErrDuplicate
		}
	}
	r.projects[p.ID] = p
	return nil
}

func (r *memProjectRepo) Update(_ context.Context, p *model.Project) error {
	r.projects[p.ID] = p
	return nil
}

func (r *memProjectRepo) Delete(_ context.Context, id string) error {
	delete(r.projects, id)
	return nil
}

type emptyRecordReader struct{}

func (emptyRecordReader) ListByProject(context.Context, string, int) ([]model.Trade, error) {
	return nil, nil
}
func (emptyRecordReader) CountByProject(context.Context, string) (int64, error) { return 0, nil }

type emptySnapshotReader struct{}

func (emptySnapshotReader) LatestByProject(context.Context, string) (*model.Snapshot, error) {
	return nil, nil
}
func (emptySnapshotReader) ListByProject(context.Context, string, int) ([]model.Snapshot, error) {
	return nil, nil
}

type emptyEventReader struct{}

func (emptyEventReader) ListByProject(context.Context, string, int) ([]model.Event, error) {
	return nil, nil
}
func (emptyEventReader) CountByProject(context.Context, string) (int64, error) { return 0, nil }

func newTestProjectService(repo ProjectRepoCRUD) *ProjectService {
	return NewProjectService(repo, emptyRecordReader{}, emptySnapshotReader{}, emptyEventReader{}, nil)
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"My Trading Bot":   "my-trading-bot",
		"  padded  name  ": "padded-name",
		"Früh & Spät!":     "frh--spt",
		"already-fine":     "already-fine",
		"UPPER":            "upper",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCreateProjectGeneratesKeyAndSlug(t *testing.T) {
	svc := newTestProjectService(newMemProjectRepo())

	project, err := svc.Create(context.Background(), ProjectCreateRequest{Name: "Ethereal Farmer"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if project.Slug != "ethereal-farmer" {
		t.Fatalf("unexpected slug %q", project.Slug)
	}
	if project.ApiKey == "" || project.ID == "" {
		t.Fatalf("expected generated identity and key: %+v", project)
	}
	if !project.Active {
		t.Fatalf("new projects must start active")
	}
	if project.Type != model.ProjectTypeTrading {
		t.Fatalf("expected default type TRADING, got %q", project.Type)
	}
	if project.Color != "#6366f1" {
		t.Fatalf("expected default color, got %q", project.Color)
	}
}

func TestCreateProjectRequiresName(t *testing.T) {
	svc := newTestProjectService(newMemProjectRepo())

	_, err := svc.Create(context.Background(), ProjectCreateRequest{Name: "   "})
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Type != apperrors.ErrInvalidRequest {
		t.Fatalf("expected INVALID_REQUEST, got %v", err)
	}
}

func TestCreateProjectDuplicateNameConflicts(t *testing.T) {
	svc := newTestProjectService(newMemProjectRepo())

	if _, err := svc.Create(context.Background(), ProjectCreateRequest{Name: "Alpha"}); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	_, err := svc.Create(context.Background(), ProjectCreateRequest{Name: "alpha"})
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Type != apperrors.ErrConflict {
		t.Fatalf("expected CONFLICT for duplicate slug, got %v", err)
	}
}

func TestUpdateProjectPartial(t *testing.T) {
	repo := newMemProjectRepo()
	svc := newTestProjectService(repo)

	project, err := svc.Create(context.Background(), ProjectCreateRequest{Name: "Beta", Color: "#ff0000"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	inactive := false
	wallet := "0xdeadbeef"
	updated, err := svc.Update(context.Background(), project.ID, ProjectUpdateRequest{
		Active:        &inactive,
		WalletAddress: &wallet,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Active {
		t.Fatalf("expected project deactivated")
	}
	if updated.Ethereal.WalletAddress != "0xdeadbeef" {
		t.Fatalf("wallet not updated: %+v", updated.Ethereal)
	}
	if updated.Name != "Beta" || updated.Color != "#ff0000" {
		t.Fatalf("untouched fields must survive: %+v", updated)
	}

	// Deactivation must make the credential unresolvable.
	if _, err := repo.ResolveByApiKey(context.Background(), project.ApiKey); !errors.Is(err, repository.ErrProjectNotFound) {
		t.Fatalf("inactive project must not resolve, got %v", err)
	}
}

func TestUpdateMissingProject(t *testing.T) {
	svc := newTestProjectService(newMemProjectRepo())

	name := "x"
	_, err := svc.Update(context.Background(), "nope", ProjectUpdateRequest{Name: &name})
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Type != apperrors.ErrNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestDeleteProject(t *testing.T) {
	repo := newMemProjectRepo()
	svc := newTestProjectService(repo)

	project, err := svc.Create(context.Background(), ProjectCreateRequest{Name: "Gamma"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := svc.Delete(context.Background(), project.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := repo.GetByID(context.Background(), project.ID); !errors.Is(err, repository.ErrProjectNotFound) {
		t.Fatalf("expected project gone, got %v", err)
	}
}
