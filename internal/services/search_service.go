// internal/services/search_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/dataatlas/catalog-backend/internal/apperrors"
	"github.com/dataatlas/catalog-backend/internal/config"
	"github.com/dataatlas/catalog-backend/internal/models"
	"github.com/dataatlas/catalog-backend/internal/utils"
)

// searchFacets is the set of facet names the index understands.
var searchFacets = []string{
	models.FacetCategory,
	models.FacetReportType,
	models.FacetAccessLevel,
	models.FacetLifecycleState,
	models.FacetTeam,
	models.FacetLineage,
}

type changeEvent struct {
	assetID uuid.UUID
	version int64
}

// SearchService keeps an in-memory projection of the asset store for text
// and facet queries. It is eventually consistent: change events flow through
// a single consumer, ordered per asset by the commit sequence. The whole
// index can be dropped and rebuilt from the store at any time.
type SearchService struct {
	db      *gorm.DB
	lineage *LineageService
	log     *logrus.Entry

	mu   sync.RWMutex
	docs map[uuid.UUID]*models.SearchDocument

	// generation is bumped on every index change and keys the result cache,
	// so stale cached pages die with their generation.
	generation atomic.Uint64
	cache      *lru.Cache[string, *SearchResult]

	events         chan changeEvent
	rebuildPending atomic.Bool
}

func NewSearchService(db *gorm.DB, lineage *LineageService, cfg config.SearchConfig) (*SearchService, error) {
	cache, err := lru.New[string, *SearchResult](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create search cache: %w", err)
	}
	return &SearchService{
		db:      db,
		lineage: lineage,
		log:     logrus.WithField("component", "search"),
		docs:    make(map[uuid.UUID]*models.SearchDocument),
		cache:   cache,
		events:  make(chan changeEvent, cfg.QueueSize),
	}, nil
}

// AssetChanged enqueues a committed change. Callers never block on the
// index; when the queue is full the whole index is flagged for rebuild.
func (s *SearchService) AssetChanged(assetID uuid.UUID, version int64) {
	select {
	case s.events <- changeEvent{assetID: assetID, version: version}:
	default:
		s.rebuildPending.Store(true)
		s.log.WithField("asset_id", assetID).Warn("search queue full, scheduling full rebuild")
	}
}

// Start runs the change consumer until the context is cancelled.
func (s *SearchService) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.consumeEvents(ctx)
	})
	return g.Wait()
}

func (s *SearchService) consumeEvents(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-s.events:
			if err := s.applyChange(ctx, ev); err != nil {
				s.log.WithError(err).WithField("asset_id", ev.assetID).Warn("failed to apply index change")
			}
			if s.rebuildPending.CompareAndSwap(true, false) {
				if err := s.Rebuild(ctx); err != nil {
					s.log.WithError(err).Error("scheduled rebuild failed")
				}
			}
		}
	}
}

// applyChange refreshes one document from the store. Events older than the
// indexed document are dropped; ordering is by commit sequence, never by
// wall clock. Same-version events reapply, which is harmless and picks up
// lineage-only changes.
func (s *SearchService) applyChange(ctx context.Context, ev changeEvent) error {
	s.mu.RLock()
	existing, ok := s.docs[ev.assetID]
	s.mu.RUnlock()
	if ok && ev.version < existing.Version {
		return nil
	}

	var asset models.Asset
	err := s.db.WithContext(ctx).
		Preload("Category").Preload("ReportType").Preload("Owner").Preload("Team").
		First(&asset, "id = ?", ev.assetID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.removeDocument(ev.assetID)
		return nil
	}
	if err != nil {
		return apperrors.FromDB(err, "asset")
	}

	doc, err := s.buildDocument(ctx, &asset)
	if err != nil {
		return err
	}

	s.mu.Lock()
	current, ok := s.docs[ev.assetID]
	if ok && doc.Version < current.Version {
		s.mu.Unlock()
		return nil
	}
	s.docs[ev.assetID] = doc
	s.mu.Unlock()

	s.invalidate()
	return nil
}

func (s *SearchService) removeDocument(assetID uuid.UUID) {
	s.mu.Lock()
	delete(s.docs, assetID)
	s.mu.Unlock()
	s.invalidate()
}

func (s *SearchService) invalidate() {
	s.generation.Add(1)
	s.cache.Purge()
}

func (s *SearchService) buildDocument(ctx context.Context, asset *models.Asset) (*models.SearchDocument, error) {
	hasUpstream, hasDownstream, err := s.lineage.HasLineage(ctx, asset.ID)
	if err != nil {
		return nil, err
	}

	doc := &models.SearchDocument{
		AssetID:        asset.ID,
		Title:          asset.Title,
		Description:    asset.Description,
		AccessLevel:    string(asset.AccessLevel),
		LifecycleState: string(asset.LifecycleState),
		Tags:           append([]string(nil), asset.Tags...),
		HasUpstream:    hasUpstream,
		HasDownstream:  hasDownstream,
		Version:        asset.Version,
		UpdatedAt:      asset.UpdatedAt,
	}
	if asset.Category != nil {
		doc.Category = asset.Category.Name
	}
	if asset.ReportType != nil {
		doc.ReportType = asset.ReportType.Name
	}
	if asset.Team != nil {
		doc.Team = asset.Team.Name
	}
	if asset.Owner != nil {
		doc.OwnerName = asset.Owner.DisplayName
	}
	for _, value := range asset.Metadata {
		if text, ok := value.(string); ok && text != "" {
			doc.MetadataText = append(doc.MetadataText, strings.ToLower(text))
		}
	}
	sort.Strings(doc.MetadataText)
	return doc, nil
}

// Rebuild replaces the whole projection from the asset store. Idempotent:
// rebuilding twice with an unchanged store yields the same index.
func (s *SearchService) Rebuild(ctx context.Context) error {
	var assets []models.Asset
	err := s.db.WithContext(ctx).
		Preload("Category").Preload("ReportType").Preload("Owner").Preload("Team").
		Find(&assets).Error
	if err != nil {
		return apperrors.FromDB(err, "asset")
	}

	fresh := make(map[uuid.UUID]*models.SearchDocument, len(assets))
	for i := range assets {
		if err := ctx.Err(); err != nil {
			return apperrors.Wrap(apperrors.KindUnavailable, err, "rebuild cancelled")
		}
		doc, err := s.buildDocument(ctx, &assets[i])
		if err != nil {
			return err
		}
		fresh[doc.AssetID] = doc
	}

	s.mu.Lock()
	s.docs = fresh
	s.mu.Unlock()
	s.invalidate()

	s.log.WithField("documents", len(fresh)).Info("search index rebuilt")
	return nil
}

type SearchQuery struct {
	Text   string
	Facets map[string][]string
	Page   int
	Limit  int
}

type SearchResult struct {
	Documents   []*models.SearchDocument  `json:"documents"`
	Total       int                       `json:"total"`
	FacetCounts map[string]map[string]int `json:"facet_counts"`
	Page        int                       `json:"page"`
	Limit       int                       `json:"limit"`
}

// Search runs a text and facet query against the projection. Facet filters
// are AND across facets and OR within one facet's values. Counts are
// computed over the fully filtered result set.
func (s *SearchService) Search(ctx context.Context, query *SearchQuery) (*SearchResult, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit < 1 {
		query.Limit = utils.DefaultLimit
	}
	if query.Limit > utils.MaxLimit {
		query.Limit = utils.MaxLimit
	}

	key := s.cacheKey(query)
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	terms := strings.Fields(strings.ToLower(strings.TrimSpace(query.Text)))
	normalizedText := strings.ToLower(strings.TrimSpace(query.Text))

	filters := make(map[string]mapset.Set[string], len(query.Facets))
	for name, values := range query.Facets {
		if len(values) == 0 {
			continue
		}
		filters[name] = mapset.NewThreadUnsafeSet(values...)
	}

	type scoredDoc struct {
		doc   *models.SearchDocument
		score int
	}

	s.mu.RLock()
	matched := make([]scoredDoc, 0, len(s.docs))
	checked := 0
	for _, doc := range s.docs {
		checked++
		if checked%256 == 0 {
			if err := ctx.Err(); err != nil {
				s.mu.RUnlock()
				return nil, apperrors.Wrap(apperrors.KindUnavailable, err, "search cancelled")
			}
		}
		if !matchesFacets(doc, filters) {
			continue
		}
		score, ok := scoreDocument(doc, terms, normalizedText)
		if !ok {
			continue
		}
		matched = append(matched, scoredDoc{doc: doc, score: score})
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].score != matched[j].score {
			return matched[i].score > matched[j].score
		}
		if !matched[i].doc.UpdatedAt.Equal(matched[j].doc.UpdatedAt) {
			return matched[i].doc.UpdatedAt.After(matched[j].doc.UpdatedAt)
		}
		return matched[i].doc.AssetID.String() < matched[j].doc.AssetID.String()
	})

	counts := make(map[string]map[string]int, len(searchFacets))
	for _, facet := range searchFacets {
		counts[facet] = map[string]int{}
	}
	for _, item := range matched {
		for _, facet := range searchFacets {
			for _, value := range item.doc.FacetValues(facet) {
				counts[facet][value]++
			}
		}
	}

	total := len(matched)
	start := (query.Page - 1) * query.Limit
	if start > total {
		start = total
	}
	end := start + query.Limit
	if end > total {
		end = total
	}

	page := make([]*models.SearchDocument, 0, end-start)
	for _, item := range matched[start:end] {
		page = append(page, item.doc)
	}

	result := &SearchResult{
		Documents:   page,
		Total:       total,
		FacetCounts: counts,
		Page:        query.Page,
		Limit:       query.Limit,
	}
	s.cache.Add(key, result)
	return result, nil
}

// Suggest returns up to limit titles starting with the prefix, for
// search-as-you-type. Exact ordering is alphabetical.
func (s *SearchService) Suggest(ctx context.Context, prefix string, limit int) ([]string, error) {
	if limit < 1 {
		limit = 10
	}
	if limit > 25 {
		limit = 25
	}
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return []string{}, nil
	}

	s.mu.RLock()
	var titles []string
	for _, doc := range s.docs {
		if strings.HasPrefix(strings.ToLower(doc.Title), prefix) {
			titles = append(titles, doc.Title)
		}
	}
	s.mu.RUnlock()

	sort.Strings(titles)
	if len(titles) > limit {
		titles = titles[:limit]
	}
	return titles, nil
}

// Stats reports the projection size for the admin dashboard.
func (s *SearchService) Stats() (documents int, generation uint64) {
	s.mu.RLock()
	documents = len(s.docs)
	s.mu.RUnlock()
	return documents, s.generation.Load()
}

func (s *SearchService) cacheKey(query *SearchQuery) string {
	var b strings.Builder
	fmt.Fprintf(&b, "g=%d|t=%s|p=%d|l=%d", s.generation.Load(), strings.ToLower(query.Text), query.Page, query.Limit)

	names := make([]string, 0, len(query.Facets))
	for name := range query.Facets {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		values := append([]string(nil), query.Facets[name]...)
		sort.Strings(values)
		fmt.Fprintf(&b, "|%s=%s", name, strings.Join(values, ","))
	}
	return b.String()
}

func matchesFacets(doc *models.SearchDocument, filters map[string]mapset.Set[string]) bool {
	for name, wanted := range filters {
		hit := false
		for _, value := range doc.FacetValues(name) {
			if wanted.Contains(value) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

// scoreDocument ranks matches: exact title, then title prefix, then title
// substring, then tag or metadata hits. All query terms must match
// somewhere in the document.
func scoreDocument(doc *models.SearchDocument, terms []string, fullText string) (int, bool) {
	if len(terms) == 0 {
		return 1, true
	}

	title := strings.ToLower(doc.Title)
	description := strings.ToLower(doc.Description)

	for _, term := range terms {
		if !termMatches(doc, title, description, term) {
			return 0, false
		}
	}

	switch {
	case title == fullText:
		return 100, true
	case strings.HasPrefix(title, fullText):
		return 50, true
	case strings.Contains(title, fullText):
		return 25, true
	default:
		return 10, true
	}
}

func termMatches(doc *models.SearchDocument, title, description, term string) bool {
	if strings.Contains(title, term) || strings.Contains(description, term) {
		return true
	}
	for _, tag := range doc.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	for _, text := range doc.MetadataText {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}
