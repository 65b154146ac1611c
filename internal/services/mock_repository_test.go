package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/choco-limpio/recicla-service/internal/models"
	"github.com/choco-limpio/recicla-service/internal/repositories"
)

// In-memory Repository used by the service tests. Behaves like the real
// stores for the paths the services exercise: unique name/phone, one-shot
// collect, consumable codes.

type mockProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]*models.Profile
}

func newMockProfileRepo() *mockProfileRepo {
	return &mockProfileRepo{profiles: make(map[string]*models.Profile)}
}

func (m *mockProfileRepo) Create(ctx context.Context, tx *gorm.DB, profile *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.Name == profile.Name || p.Phone == profile.Phone || p.ID == profile.ID {
			return repositories.ErrDuplicateKey
		}
	}
	profile.CreatedAt = time.Now()
	m.profiles[profile.ID] = profile
	return nil
}

func (m *mockProfileRepo) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *mockProfileRepo) GetByName(ctx context.Context, name string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.Name == name {
			copied := *p
			return &copied, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *mockProfileRepo) ResolveEmail(ctx context.Context, identifier string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.Phone == identifier || p.Name == identifier {
			return p.Email, nil
		}
	}
	return "", repositories.ErrNotFound
}

func (m *mockProfileRepo) Update(ctx context.Context, tx *gorm.DB, profile *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[profile.ID]; !ok {
		return repositories.ErrNotFound
	}
	m.profiles[profile.ID] = profile
	return nil
}

func (m *mockProfileRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id string, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return repositories.ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "name":
			name := v.(string)
			for otherID, other := range m.profiles {
				if otherID != id && other.Name == name {
					return repositories.ErrDuplicateKey
				}
			}
			p.Name = name
		case "neighborhood":
			p.Neighborhood = v.(string)
		case "email":
			p.Email = v.(string)
		case "avatar_url":
			url := v.(string)
			p.AvatarURL = &url
		}
	}
	return nil
}

func (m *mockProfileRepo) UpdateRole(ctx context.Context, tx *gorm.DB, id string, role models.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return repositories.ErrNotFound
	}
	p.Role = role
	return nil
}

func (m *mockProfileRepo) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.profiles, id)
	return nil
}

func (m *mockProfileRepo) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.profiles {
		if p.Name == name && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockProfileRepo) ExistsByPhone(ctx context.Context, phone, excludeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.profiles {
		if p.Phone == phone && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockProfileRepo) ListByRole(ctx context.Context, role models.Role, filters repositories.ProfileFilters) ([]*models.Profile, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Profile
	for _, p := range m.profiles {
		if p.Role == role {
			copied := *p
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, int64(len(out)), nil
}

func (m *mockProfileRepo) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*models.Profile
	for _, p := range m.profiles {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].RecycledKg > all[j].RecycledKg })
	var entries []models.LeaderboardEntry
	for i, p := range all {
		if i >= limit {
			break
		}
		entries = append(entries, models.LeaderboardEntry{Name: p.Name, RecycledKg: p.RecycledKg})
	}
	return entries, nil
}

func (m *mockProfileRepo) AddRecycledKg(ctx context.Context, tx *gorm.DB, id string, kg float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return repositories.ErrNotFound
	}
	p.RecycledKg += kg
	return nil
}

type mockReportRepo struct {
	mu      sync.Mutex
	nextID  uint
	reports map[uint]*models.PickupReport
}

func newMockReportRepo() *mockReportRepo {
	return &mockReportRepo{nextID: 1, reports: make(map[uint]*models.PickupReport)}
}

func (m *mockReportRepo) Create(ctx context.Context, tx *gorm.DB, report *models.PickupReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	report.ID = m.nextID
	m.nextID++
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now()
	}
	m.reports[report.ID] = report
	return nil
}

func (m *mockReportRepo) GetByID(ctx context.Context, id uint) (*models.PickupReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *r
	return &copied, nil
}

func (m *mockReportRepo) ListPending(ctx context.Context, filters repositories.ReportFilters) ([]*models.PendingReport, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.PendingReport
	for _, r := range m.reports {
		if !r.Collected {
			out = append(out, &models.PendingReport{PickupReport: *r})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, int64(len(out)), nil
}

func (m *mockReportRepo) ListByUser(ctx context.Context, userID string, filters repositories.ReportFilters) ([]*models.PickupReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.PickupReport
	for _, r := range m.reports {
		if r.UserID == userID {
			copied := *r
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockReportRepo) MarkCollected(ctx context.Context, tx *gorm.DB, reportID uint, collectorID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[reportID]
	if !ok {
		return false, repositories.ErrNotFound
	}
	if r.Collected {
		return false, nil
	}
	now := time.Now()
	r.Collected = true
	r.CollectedBy = &collectorID
	r.CollectedAt = &now
	return true, nil
}

func (m *mockReportRepo) CollectedSince(ctx context.Context, userID string, since time.Time) ([]*models.PickupReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.PickupReport
	for _, r := range m.reports {
		if r.UserID == userID && r.Collected && r.CreatedAt.After(since) {
			copied := *r
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockReportRepo) DeleteByUser(ctx context.Context, tx *gorm.DB, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.reports {
		if r.UserID == userID {
			delete(m.reports, id)
		}
	}
	return nil
}

type mockBlobRepo struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newMockBlobRepo() *mockBlobRepo {
	return &mockBlobRepo{objects: make(map[string][]byte)}
}

func (m *mockBlobRepo) key(bucket, path string) string { return bucket + "/" + path }

func (m *mockBlobRepo) Upload(ctx context.Context, bucket, path, contentType string, data []byte, upsert bool) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[m.key(bucket, path)] = data
	return m.PublicURL(bucket, path), nil
}

func (m *mockBlobRepo) Get(ctx context.Context, bucket, path string) (*models.StoredObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[m.key(bucket, path)]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &models.StoredObject{Bucket: bucket, Path: path, Data: data}, nil
}

func (m *mockBlobRepo) Delete(ctx context.Context, bucket, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := m.key(bucket, path)
	if _, ok := m.objects[key]; !ok {
		return repositories.ErrNotFound
	}
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *mockBlobRepo) PublicURL(bucket, path string) string {
	return "http://localhost:8080/media/" + bucket + "/" + path
}

type mockAccount struct {
	account  *models.Account
	password string
}

type mockAccountRepo struct {
	mu       sync.Mutex
	nextID   int
	accounts map[string]*mockAccount // keyed by email
	codes    map[string]string       // purpose:email -> code
	sent     []string                // emails that received a code

	createCalls int
}

func newMockAccountRepo() *mockAccountRepo {
	return &mockAccountRepo{
		nextID:   1,
		accounts: make(map[string]*mockAccount),
		codes:    make(map[string]string),
	}
}

func (m *mockAccountRepo) codeKey(email string, purpose repositories.CodePurpose) string {
	return string(purpose) + ":" + strings.ToLower(email)
}

func (m *mockAccountRepo) Create(ctx context.Context, email, password string, metadata map[string]string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if _, ok := m.accounts[email]; ok {
		return nil, repositories.ErrAlreadyRegistered
	}
	account := &models.Account{
		ID:       fmt.Sprintf("acc-%d", m.nextID),
		Email:    email,
		Metadata: metadata,
	}
	m.nextID++
	m.accounts[email] = &mockAccount{account: account, password: password}
	return account, nil
}

func (m *mockAccountRepo) GetByID(ctx context.Context, id string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.account.ID == id {
			return a.account, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *mockAccountRepo) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[email]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return a.account, nil
}

func (m *mockAccountRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.accounts[email]
	return ok, nil
}

func (m *mockAccountRepo) List(ctx context.Context, limit, offset int) ([]*models.Account, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Account
	for _, a := range m.accounts {
		out = append(out, a.account)
	}
	return out, int64(len(out)), nil
}

func (m *mockAccountRepo) VerifyPassword(ctx context.Context, email, password string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[email]
	if !ok || a.password != password {
		return nil, repositories.ErrBadCredentials
	}
	return a.account, nil
}

func (m *mockAccountRepo) IssueCode(ctx context.Context, email string, purpose repositories.CodePurpose) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[m.codeKey(email, purpose)] = "123456"
	m.sent = append(m.sent, email)
	return nil
}

func (m *mockAccountRepo) VerifyCode(ctx context.Context, email, code string, purpose repositories.CodePurpose) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := m.codeKey(email, purpose)
	stored, ok := m.codes[key]
	if !ok || stored != code {
		return nil, repositories.ErrCodeInvalid
	}
	delete(m.codes, key)
	a, ok := m.accounts[email]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if purpose == repositories.CodePurposeSignup {
		a.account.EmailVerified = true
	}
	return a.account, nil
}

func (m *mockAccountRepo) UpdateEmail(ctx context.Context, id, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for old, a := range m.accounts {
		if a.account.ID == id {
			a.account.Email = email
			delete(m.accounts, old)
			m.accounts[email] = a
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (m *mockAccountRepo) UpdatePassword(ctx context.Context, email, newPassword string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[email]
	if !ok {
		return repositories.ErrNotFound
	}
	a.password = newPassword
	return nil
}

func (m *mockAccountRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for email, a := range m.accounts {
		if a.account.ID == id {
			delete(m.accounts, email)
			return nil
		}
	}
	return repositories.ErrNotFound
}

type mockRepository struct {
	profile *mockProfileRepo
	report  *mockReportRepo
	blob    *mockBlobRepo
	account *mockAccountRepo
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		profile: newMockProfileRepo(),
		report:  newMockReportRepo(),
		blob:    newMockBlobRepo(),
		account: newMockAccountRepo(),
	}
}

func (m *mockRepository) Profile() repositories.ProfileRepository { return m.profile }
func (m *mockRepository) Report() repositories.ReportRepository   { return m.report }
func (m *mockRepository) Blob() repositories.BlobRepository       { return m.blob }
func (m *mockRepository) Account() repositories.AccountRepository { return m.account }

func (m *mockRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}
func (m *mockRepository) Ping(ctx context.Context) error { return nil }
func (m *mockRepository) Close() error                   { return nil }
