package services

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	catalogrepo "github.com/mannyc2/watchify-app-sub000/internal/data/repos/catalog"
	"github.com/mannyc2/watchify-app-sub000/internal/domain/catalog"
	"github.com/mannyc2/watchify-app-sub000/internal/pkg/dbctx"
	"github.com/mannyc2/watchify-app-sub000/internal/platform/logger"
	"github.com/mannyc2/watchify-app-sub000/internal/platform/syncerr"
)

// SourceService manages the set of tracked stores.
type SourceService interface {
	// AddSource registers a store and runs its initial, event-free import.
	AddSource(ctx context.Context, name, domain string) (uuid.UUID, error)
	ListSources(ctx context.Context) ([]catalog.SourceView, error)
	RemoveSource(ctx context.Context, id uuid.UUID) error
	ListChanges(ctx context.Context, sourceID uuid.UUID, unreadOnly bool) ([]catalog.ChangeEventView, error)
	MarkChangesRead(ctx context.Context, ids []uuid.UUID) error
	VariantHistory(ctx context.Context, variantID uuid.UUID) ([]catalog.SnapshotView, error)
	// SeedFromFile registers sources listed in a yaml file, skipping ones
	// already present. Missing file is not an error.
	SeedFromFile(ctx context.Context, path string) error
}

type sourceService struct {
	db        *gorm.DB
	log       *logger.Logger
	sources   catalogrepo.SourceRepo
	events    catalogrepo.ChangeEventRepo
	snapshots catalogrepo.SnapshotRepo
	sync      SyncService
}

func NewSourceService(
	db *gorm.DB,
	baseLog *logger.Logger,
	sources catalogrepo.SourceRepo,
	events catalogrepo.ChangeEventRepo,
	snapshots catalogrepo.SnapshotRepo,
	syncService SyncService,
) SourceService {
	return &sourceService{
		db:        db,
		log:       baseLog.With("service", "SourceService"),
		sources:   sources,
		events:    events,
		snapshots: snapshots,
		sync:      syncService,
	}
}

func (s *sourceService) AddSource(ctx context.Context, name, domain string) (uuid.UUID, error) {
	domain, err := normalizeDomain(domain)
	if err != nil {
		return uuid.Nil, err
	}
	dbc := dbctx.New(ctx)

	existing, err := s.sources.GetByDomain(dbc, domain)
	if err != nil {
		return uuid.Nil, err
	}
	if existing != nil {
		return uuid.Nil, fmt.Errorf("source %s already tracked", domain)
	}

	if name == "" {
		name = displayNameFromDomain(domain)
	}
	src := &catalog.Source{
		ID:     uuid.New(),
		Name:   name,
		Domain: domain,
	}
	if err := s.sources.Create(dbc, src); err != nil {
		return uuid.Nil, err
	}

	// LastFetchedAt is nil, so this runs as the initial import: products and
	// variants are created but no change events or snapshots come out.
	if _, err := s.sync.SyncSource(ctx, src.ID); err != nil {
		s.log.Warn("Initial import failed; source kept for later retry", "domain", domain, "error", err)
	}
	return src.ID, nil
}

func (s *sourceService) ListSources(ctx context.Context) ([]catalog.SourceView, error) {
	rows, err := s.sources.List(dbctx.New(ctx))
	if err != nil {
		return nil, err
	}
	out := make([]catalog.SourceView, 0, len(rows))
	for _, r := range rows {
		out = append(out, catalog.NewSourceView(r))
	}
	return out, nil
}

func (s *sourceService) RemoveSource(ctx context.Context, id uuid.UUID) error {
	dbc := dbctx.New(ctx)
	src, err := s.sources.GetByID(dbc, id)
	if err != nil {
		return err
	}
	if src == nil {
		return syncerr.ErrSourceNotFound
	}
	// Products, variants, snapshots and events go with it via cascade.
	return s.sources.Delete(dbc, id)
}

func (s *sourceService) ListChanges(ctx context.Context, sourceID uuid.UUID, unreadOnly bool) ([]catalog.ChangeEventView, error) {
	dbc := dbctx.New(ctx)
	src, err := s.sources.GetByID(dbc, sourceID)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, syncerr.ErrSourceNotFound
	}
	rows, err := s.events.GetBySource(dbc, sourceID, unreadOnly)
	if err != nil {
		return nil, err
	}
	return catalog.NewChangeEventViews(rows), nil
}

func (s *sourceService) MarkChangesRead(ctx context.Context, ids []uuid.UUID) error {
	return s.events.MarkRead(dbctx.New(ctx), ids)
}

func (s *sourceService) VariantHistory(ctx context.Context, variantID uuid.UUID) ([]catalog.SnapshotView, error) {
	rows, err := s.snapshots.GetByVariant(dbctx.New(ctx), variantID)
	if err != nil {
		return nil, err
	}
	out := make([]catalog.SnapshotView, 0, len(rows))
	for _, r := range rows {
		out = append(out, catalog.NewSnapshotView(r))
	}
	return out, nil
}

type seedEntry struct {
	Name   string `yaml:"name"`
	Domain string `yaml:"domain"`
}

func (s *sourceService) SeedFromFile(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var entries []seedEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("parse seed file %s: %w", path, err)
	}
	for _, e := range entries {
		domain, err := normalizeDomain(e.Domain)
		if err != nil {
			s.log.Warn("Skipping seed entry", "domain", e.Domain, "error", err)
			continue
		}
		existing, err := s.sources.GetByDomain(dbctx.New(ctx), domain)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if _, err := s.AddSource(ctx, e.Name, domain); err != nil {
			s.log.Warn("Seed source failed", "domain", domain, "error", err)
		}
	}
	return nil
}

// normalizeDomain accepts "store.com", "https://store.com/whatever" or
// "store.com/" and reduces them all to a bare host.
func normalizeDomain(raw string) (string, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return "", fmt.Errorf("domain is required")
	}
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return "", fmt.Errorf("invalid domain %q", raw)
		}
		raw = u.Host
	}
	raw = strings.TrimSuffix(strings.Split(raw, "/")[0], ".")
	if raw == "" || strings.ContainsAny(raw, " \t") || !strings.Contains(raw, ".") {
		return "", fmt.Errorf("invalid domain %q", raw)
	}
	return raw, nil
}

func displayNameFromDomain(domain string) string {
	host := strings.TrimPrefix(domain, "www.")
	if i := strings.Index(host, "."); i > 0 {
		host = host[:i]
	}
	if host == "" {
		return domain
	}
	return strings.ToUpper(host[:1]) + host[1:]
}
