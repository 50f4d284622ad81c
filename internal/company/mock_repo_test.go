package company

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hitoshi/venturex/internal/model"
	"github.com/hitoshi/venturex/internal/repository"
)

// --- モック ---

// memCompanyRepo はidentity_idの一意性を再現するインメモリのCompanyRepository。
// 関数フィールドが設定されている場合はそちらを優先する。
type memCompanyRepo struct {
	mu        sync.Mutex
	byID      map[string]*model.Company
	seq       int
	placehold int

	findByIdentityIDFn func(ctx context.Context, identityID string) (*model.Company, error)
	listFn             func(ctx context.Context, filter model.CompanyListFilter) ([]model.Company, int, error)
}

var _ repository.CompanyRepository = (*memCompanyRepo)(nil)

func newMemCompanyRepo() *memCompanyRepo {
	return &memCompanyRepo{byID: make(map[string]*model.Company)}
}

func (m *memCompanyRepo) add(c model.Company) *model.Company {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addLocked(c)
}

func (m *memCompanyRepo) addLocked(c model.Company) *model.Company {
	m.seq++
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Date(2026, 1, 1, 0, 0, m.seq, 0, time.UTC)
	}
	stored := c
	m.byID[c.ID] = &stored
	return &stored
}

func (m *memCompanyRepo) findLocked(identityID string) *model.Company {
	for _, c := range m.byID {
		if c.IdentityID == identityID {
			return c
		}
	}
	return nil
}

func clone(c *model.Company) *model.Company {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

func (m *memCompanyRepo) FindByIdentityID(ctx context.Context, identityID string) (*model.Company, error) {
	if m.findByIdentityIDFn != nil {
		return m.findByIdentityIDFn(ctx, identityID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return clone(m.findLocked(identityID)), nil
}

func (m *memCompanyRepo) FindByID(ctx context.Context, id string) (*model.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clone(m.byID[id]), nil
}

func (m *memCompanyRepo) FindBySlug(ctx context.Context, slug string) (*model.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var oldest *model.Company
	for _, c := range m.byID {
		if c.StartupName != slug {
			continue
		}
		if oldest == nil || c.CreatedAt.Before(oldest.CreatedAt) {
			oldest = c
		}
	}
	return clone(oldest), nil
}

func (m *memCompanyRepo) CountBySlug(ctx context.Context, slug string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.byID {
		if c.StartupName == slug {
			n++
		}
	}
	return n, nil
}

func (m *memCompanyRepo) CreatePlaceholder(ctx context.Context, id, identityID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findLocked(identityID) != nil {
		return false, nil
	}
	m.placehold++
	m.addLocked(model.Company{ID: id, IdentityID: identityID})
	return true, nil
}

func (m *memCompanyRepo) UpdateSlug(ctx context.Context, id, slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.byID[id]; ok {
		c.StartupName = slug
	}
	return nil
}

func (m *memCompanyRepo) UpsertBasics(ctx context.Context, company *model.Company) (*model.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing := m.findLocked(company.IdentityID)
	if existing != nil {
		existing.Name = company.Name
		existing.StartupName = company.StartupName
		existing.Website = company.Website
		existing.Location = company.Location
		existing.OneLiner = company.OneLiner
		existing.Industries = company.Industries
		existing.Tags = company.Tags
		existing.Raise = company.Raise
		return clone(existing), nil
	}
	return clone(m.addLocked(*company)), nil
}

func (m *memCompanyRepo) update(identityID string, apply func(c *model.Company)) (*model.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.findLocked(identityID)
	if c == nil {
		return nil, nil
	}
	apply(c)
	return clone(c), nil
}

func (m *memCompanyRepo) UpdateDescription(ctx context.Context, identityID, description string) (*model.Company, error) {
	return m.update(identityID, func(c *model.Company) { c.Description = description })
}

func (m *memCompanyRepo) UpdateRound(ctx context.Context, identityID string, round model.Round) (*model.Company, error) {
	return m.update(identityID, func(c *model.Company) { c.Round = round })
}

func (m *memCompanyRepo) UpdateTeam(ctx context.Context, identityID string, team []model.TeamMember) (*model.Company, error) {
	return m.update(identityID, func(c *model.Company) { c.Team = team })
}

func (m *memCompanyRepo) UpdateProducts(ctx context.Context, identityID string, products []model.Product) (*model.Company, error) {
	return m.update(identityID, func(c *model.Company) { c.Products = products })
}

func (m *memCompanyRepo) UpdateMedia(ctx context.Context, identityID string, media model.Media) (*model.Company, error) {
	return m.update(identityID, func(c *model.Company) { c.Media = media })
}

func (m *memCompanyRepo) List(ctx context.Context, filter model.CompanyListFilter) ([]model.Company, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []model.Company
	for _, c := range m.byID {
		if c.StartupName != "" {
			items = append(items, *c)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return items, len(items), nil
}

type mockRecorder struct {
	mu             sync.Mutex
	slugCollisions int
}

func (r *mockRecorder) RecordHTTPRequest(string, string, int, time.Duration) {}
func (r *mockRecorder) RecordWatchlistToggle(bool) {}
func (r *mockRecorder) RecordInvestment(float64) {}
func (r *mockRecorder) RecordUpload(string, string) {}
func (r *mockRecorder) RecordExternalFailure(string) {}
func (r *mockRecorder) RecordTaxIDVerification(string) {}
func (r *mockRecorder) RecordSlugCollision() {
	r.mu.Lock()
	r.slugCollisions++
	r.mu.Unlock()
}
