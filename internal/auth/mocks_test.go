package auth

import (
	"context"
	"sync"
	"time"

	"github.com/OJT-CyberCrime/ciphers-sub000/internal/models"
)

// MockVerifier is a function-field CredentialVerifier
type MockVerifier struct {
	VerifyFunc   func(ctx context.Context, email, password, captchaToken string) (string, error)
	CaptchaFunc  func(ctx context.Context, captchaToken string) error
	SendLinkFunc func(ctx context.Context, email string, opts LoginLinkOptions) error

	mu          sync.Mutex
	calls       int
	captchaSeen []string
	lastLink    LoginLinkOptions
	linkCalls   int
}

func (m *MockVerifier) Verify(ctx context.Context, email, password, captchaToken string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, email, password, captchaToken)
	}
	return "session-token", nil
}

func (m *MockVerifier) VerifyCaptcha(ctx context.Context, captchaToken string) error {
	m.mu.Lock()
	m.captchaSeen = append(m.captchaSeen, captchaToken)
	m.mu.Unlock()
	if m.CaptchaFunc != nil {
		return m.CaptchaFunc(ctx, captchaToken)
	}
	return nil
}

func (m *MockVerifier) SendOneTimeLoginLink(ctx context.Context, email string, opts LoginLinkOptions) error {
	m.mu.Lock()
	m.linkCalls++
	m.lastLink = opts
	m.mu.Unlock()
	if m.SendLinkFunc != nil {
		return m.SendLinkFunc(ctx, email, opts)
	}
	return nil
}

func (m *MockVerifier) LinkCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.linkCalls
}

func (m *MockVerifier) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockDirectory is an in-memory UserDirectory keyed by email
type MockDirectory struct {
	FindByEmailErr error
	UpdateErr      error

	mu    sync.Mutex
	users map[string]*models.User
}

func NewMockDirectory(users ...*models.User) *MockDirectory {
	d := &MockDirectory{users: make(map[string]*models.User)}
	for _, u := range users {
		d.users[u.Email] = u
	}
	return d
}

func (d *MockDirectory) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if d.FindByEmailErr != nil {
		return nil, d.FindByEmailErr
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[email]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (d *MockDirectory) FindByResetToken(ctx context.Context, tokenHash string) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if u.ResetToken != nil && *u.ResetToken == tokenHash {
			cp := *u
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (d *MockDirectory) UpdateTwoFactorFields(ctx context.Context, id string, update models.TwoFactorUpdate) error {
	if d.UpdateErr != nil {
		return d.UpdateErr
	}
	if err := update.Validate(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if u.ID == id {
			update.Apply(u)
			return nil
		}
	}
	return models.ErrNotFound
}

func (d *MockDirectory) User(email string) models.User {
	d.mu.Lock()
	defer d.mu.Unlock()
	return *d.users[email]
}

// MockSessionStore is an in-memory SessionStore
type MockSessionStore struct {
	SaveErr error

	mu      sync.Mutex
	records map[string]models.SessionRecord
}

func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{records: make(map[string]models.SessionRecord)}
}

func (m *MockSessionStore) Save(ctx context.Context, sid string, record models.SessionRecord, ttl time.Duration) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[sid] = record
	return nil
}

func (m *MockSessionStore) Load(ctx context.Context, sid string) (*models.SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[sid]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &r, nil
}

func (m *MockSessionStore) Delete(ctx context.Context, sid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, sid)
	return nil
}

// MockLockoutStore is an in-memory LockoutStore
type MockLockoutStore struct {
	GetErr error

	mu       sync.Mutex
	lockouts map[string]time.Time
}

func NewMockLockoutStore() *MockLockoutStore {
	return &MockLockoutStore{lockouts: make(map[string]time.Time)}
}

func (m *MockLockoutStore) GetLockout(ctx context.Context, sid string) (*time.Time, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	until, ok := m.lockouts[sid]
	if !ok {
		return nil, nil
	}
	return &until, nil
}

func (m *MockLockoutStore) SetLockout(ctx context.Context, sid string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lockouts[sid] = until
	return nil
}

func (m *MockLockoutStore) ClearLockout(ctx context.Context, sid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lockouts, sid)
	return nil
}

func (m *MockLockoutStore) Has(sid string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.lockouts[sid]
	return ok
}

// fakeClock is a settable clock shared by a session and its test
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
