package scan

import (
	"Plant-Care-Backend/domain"
	"Plant-Care-Backend/entities"
	"Plant-Care-Backend/internal/utils/logger"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type identifierFunc func(ctx context.Context, image []byte) (domain.IdentificationResult, error)

func (f identifierFunc) Analyze(ctx context.Context, image []byte) (domain.IdentificationResult, error) {
	return f(ctx, image)
}

func (identifierFunc) Name() string { return domain.SourcePrimary }

type enricherFunc func(ctx context.Context, req domain.EnrichmentRequest) (domain.EnrichmentResult, error)

func (f enricherFunc) Enrich(ctx context.Context, req domain.EnrichmentRequest) (domain.EnrichmentResult, error) {
	return f(ctx, req)
}

func (enricherFunc) Name() string { return domain.SourcePrimary }

type secondaryFunc func(ctx context.Context, image []byte) (domain.SecondaryIdentification, error)

func (f secondaryFunc) Identify(ctx context.Context, image []byte) (domain.SecondaryIdentification, error) {
	return f(ctx, image)
}

func (secondaryFunc) Name() string { return "plantnet" }

// memStore keeps uploaded images in memory. storeFn, when set, replaces the
// upload.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	seq     int
	deleted []string
	storeFn func(ctx context.Context, image []byte, ownerID string) (string, error)
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (m *memStore) StoreScanImage(ctx context.Context, image []byte, ownerID string) (string, error) {
	if m.storeFn != nil {
		return m.storeFn(ctx, image, ownerID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	url := fmt.Sprintf("https://plant-scans.s3.us-east-1.amazonaws.com/scans/%s/%d.jpg", ownerID, m.seq)
	m.objects[url] = append([]byte(nil), image...)
	return url, nil
}

func (m *memStore) FetchImage(_ context.Context, link string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	image, ok := m.objects[link]
	if !ok {
		return nil, domain.StorageError("get object", errors.New("no such key"))
	}
	return image, nil
}

func (m *memStore) DeleteImage(_ context.Context, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, link)
	m.deleted = append(m.deleted, link)
	return nil
}

func (m *memStore) GetObjectKeyFromLink(link string) string {
	_, key, _ := strings.Cut(link, ".amazonaws.com/")
	return key
}

func (m *memStore) GetPublicLinkKey(key string) string {
	return "https://plant-scans.s3.us-east-1.amazonaws.com/" + key
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]byte{}}
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = append([]byte(nil), payload...)
	return nil
}

func (c *memCache) Close() error { return nil }

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

var testImage = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F'}

func confirmedMonstera() domain.IdentificationResult {
	return domain.IdentificationResult{
		PlantName:      "Swiss Cheese Plant",
		ScientificName: "Monstera deliciosa",
		Description:    "A tropical climber with split leaves.",
		HealthStatus:   "Healthy",
		DiseaseName:    "None",
		Confidence:     0.92,
		CareGuide:      &domain.CareGuide{Water: strPtr("weekly"), Sun: strPtr("indirect")},
		Treatment:      []string{},
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&entities.User{}, &entities.PlantSpecies{}, &entities.Scan{}))
	return db
}

func seedUser(t *testing.T, db *gorm.DB) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, db.Create(&entities.User{
		ID:    id,
		Name:  "Test Gardener",
		Email: id.String() + "@example.com",
	}).Error)
	return id
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

type harness struct {
	db        *gorm.DB
	store     *memStore
	cache     *memCache
	svc       ScanService
	analyze   identifierFunc
	enrich    enricherFunc
	secondary secondaryFunc

	analyzeCalls   atomic.Int32
	enrichCalls    atomic.Int32
	secondaryCalls atomic.Int32
}

// newHarness wires a ScanService to sqlite and in-memory fakes. The adapter
// behaviour can be swapped per test through the func fields before calling
// any service method.
func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		db:    newTestDB(t),
		store: newMemStore(),
		cache: newMemCache(),
		analyze: func(context.Context, []byte) (domain.IdentificationResult, error) {
			return confirmedMonstera(), nil
		},
		enrich: func(context.Context, domain.EnrichmentRequest) (domain.EnrichmentResult, error) {
			return domain.EnrichmentResult{
				HealthStatus: "Sick",
				DiseaseName:  "Leaf spot",
				Description:  "Fungal spots on older leaves.",
				CareGuide:    &domain.CareGuide{Water: strPtr("let soil dry between waterings")},
				Treatment:    []string{"Remove affected leaves", "Improve airflow"},
			}, nil
		},
		secondary: func(context.Context, []byte) (domain.SecondaryIdentification, error) {
			return domain.SecondaryIdentification{
				Confidence:     0.81,
				ScientificName: "Monstera adansonii",
				CommonName:     "Adanson's monstera",
				Alternatives: []domain.Alternative{
					{ScientificName: "Monstera deliciosa", Score: 0.1},
				},
			}, nil
		},
	}

	h.svc = NewScanService(Deps{
		Repository: NewScanRepository(h.db, logger.NewNop()),
		Identifier: identifierFunc(func(ctx context.Context, image []byte) (domain.IdentificationResult, error) {
			h.analyzeCalls.Add(1)
			return h.analyze(ctx, image)
		}),
		Enricher: enricherFunc(func(ctx context.Context, req domain.EnrichmentRequest) (domain.EnrichmentResult, error) {
			h.enrichCalls.Add(1)
			return h.enrich(ctx, req)
		}),
		Secondary: secondaryFunc(func(ctx context.Context, image []byte) (domain.SecondaryIdentification, error) {
			h.secondaryCalls.Add(1)
			return h.secondary(ctx, image)
		}),
		Store:  h.store,
		Cache:  h.cache,
		Logger: logger.NewNop(),
		Config: DefaultConfig(),
	})
	return h
}
