package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/bimakw/wallet-watcher/internal/domain/entities"
)

type MockCall struct {
	Method string
	Args   []interface{}
}

// MockWalletRepository is an in-memory implementation of WalletRepository
type MockWalletRepository struct {
	mu      sync.RWMutex
	wallets []*entities.Wallet

	// Now stamps activity and asset checks
	Now func() time.Time

	// Function hooks for custom behavior
	GetWalletFunc       func(ctx context.Context, identifier string) (*entities.Wallet, error)
	LoadAllWalletsFunc  func(ctx context.Context) ([]entities.Wallet, error)
	GetAllAddressesFunc func(ctx context.Context) ([]string, error)
	SaveWalletFunc      func(ctx context.Context, address, alias string) error
	RemoveWalletFunc    func(ctx context.Context, address string) error
	RecordActivityFunc  func(ctx context.Context, address string) error
	UpdatePortfolioFunc func(ctx context.Context, address string, solBalance float64, tokens []entities.TokenHolding) error

	// Call tracking
	Calls []MockCall
}

func NewMockWalletRepository() *MockWalletRepository {
	return &MockWalletRepository{
		wallets: make([]*entities.Wallet, 0),
		Now:     time.Now,
		Calls:   make([]MockCall, 0),
	}
}

func (m *MockWalletRepository) track(method string, args ...interface{}) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
	m.mu.Unlock()
}

// find returns the wallet matching an address exactly or an alias
// case-insensitively. Callers hold the lock.
func (m *MockWalletRepository) find(identifier string) *entities.Wallet {
	for _, w := range m.wallets {
		if w.Address == identifier {
			return w
		}
	}
	alias := entities.NormalizeAlias(identifier)
	for _, w := range m.wallets {
		if w.Alias == alias {
			return w
		}
	}
	return nil
}

func (m *MockWalletRepository) GetWallet(ctx context.Context, identifier string) (*entities.Wallet, error) {
	m.track("GetWallet", identifier)

	if m.GetWalletFunc != nil {
		return m.GetWalletFunc(ctx, identifier)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	w := m.find(identifier)
	if w == nil {
		return nil, nil
	}
	clone := *w
	return &clone, nil
}

func (m *MockWalletRepository) LoadAllWallets(ctx context.Context) ([]entities.Wallet, error) {
	m.track("LoadAllWallets")

	if m.LoadAllWalletsFunc != nil {
		return m.LoadAllWalletsFunc(ctx)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]entities.Wallet, len(m.wallets))
	for i, w := range m.wallets {
		result[i] = *w
	}
	return result, nil
}

func (m *MockWalletRepository) GetAllAddresses(ctx context.Context) ([]string, error) {
	m.track("GetAllAddresses")

	if m.GetAllAddressesFunc != nil {
		return m.GetAllAddressesFunc(ctx)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]string, len(m.wallets))
	for i, w := range m.wallets {
		result[i] = w.Address
	}
	return result, nil
}

func (m *MockWalletRepository) SaveWallet(ctx context.Context, address, alias string) error {
	m.track("SaveWallet", address, alias)

	if m.SaveWalletFunc != nil {
		return m.SaveWalletFunc(ctx, address, alias)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	alias = entities.NormalizeAlias(alias)
	for _, w := range m.wallets {
		if w.Address == address || w.Alias == alias {
			return entities.ErrAlreadyExists
		}
	}

	m.wallets = append(m.wallets, &entities.Wallet{
		Address:     address,
		Alias:       alias,
		LastChecked: m.Now().Unix(),
		Tokens:      "[]",
	})
	return nil
}

func (m *MockWalletRepository) RemoveWallet(ctx context.Context, address string) error {
	m.track("RemoveWallet", address)

	if m.RemoveWalletFunc != nil {
		return m.RemoveWalletFunc(ctx, address)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i, w := range m.wallets {
		if w.Address == address {
			m.wallets = append(m.wallets[:i], m.wallets[i+1:]...)
			return nil
		}
	}
	return entities.ErrNotFound
}

func (m *MockWalletRepository) RecordActivity(ctx context.Context, address string) error {
	m.track("RecordActivity", address)

	if m.RecordActivityFunc != nil {
		return m.RecordActivityFunc(ctx, address)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range m.wallets {
		if w.Address == address {
			w.TxCount++
			w.LastActivityAt = m.Now().Unix()
			return nil
		}
	}
	return entities.ErrNotFound
}

func (m *MockWalletRepository) UpdatePortfolio(ctx context.Context, address string, solBalance float64, tokens []entities.TokenHolding) error {
	m.track("UpdatePortfolio", address, solBalance, tokens)

	if m.UpdatePortfolioFunc != nil {
		return m.UpdatePortfolioFunc(ctx, address, solBalance, tokens)
	}

	encoded, err := entities.EncodeHoldings(tokens)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range m.wallets {
		if w.Address == address {
			w.SolBalance = solBalance
			w.Tokens = encoded
			w.LastAssetCheck = m.Now().Unix()
			return nil
		}
	}
	return entities.ErrNotFound
}

// AddWallets stores wallets as given, bypassing alias normalization
func (m *MockWalletRepository) AddWallets(wallets ...entities.Wallet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range wallets {
		w := wallets[i]
		m.wallets = append(m.wallets, &w)
	}
}

// CallCount returns how often method was called
func (m *MockWalletRepository) CallCount(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, c := range m.Calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (m *MockWalletRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wallets = make([]*entities.Wallet, 0)
	m.Calls = make([]MockCall, 0)
}

// MockNotifier records delivered notifications
type MockNotifier struct {
	mu            sync.Mutex
	notifications []entities.Notification

	NotifyFunc func(ctx context.Context, n entities.Notification) error
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{notifications: make([]entities.Notification, 0)}
}

func (m *MockNotifier) Notify(ctx context.Context, n entities.Notification) error {
	if m.NotifyFunc != nil {
		if err := m.NotifyFunc(ctx, n); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, n)
	return nil
}

// Notifications returns a copy of everything delivered so far
func (m *MockNotifier) Notifications() []entities.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]entities.Notification(nil), m.notifications...)
}

// MockTokenResolver resolves mints from a fixed table
type MockTokenResolver struct {
	mu     sync.Mutex
	tokens map[string]entities.TokenInfo
	calls  int
}

func NewMockTokenResolver(tokens map[string]entities.TokenInfo) *MockTokenResolver {
	if tokens == nil {
		tokens = make(map[string]entities.TokenInfo)
	}
	return &MockTokenResolver{tokens: tokens}
}

func (m *MockTokenResolver) Resolve(ctx context.Context, mint string) entities.TokenInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if info, ok := m.tokens[strings.TrimSpace(mint)]; ok {
		return info
	}
	return entities.UnknownToken()
}

// CallCount returns the number of Resolve calls
func (m *MockTokenResolver) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockHealthChecker is a mock implementation of HealthChecker
type MockHealthChecker struct {
	mu sync.RWMutex

	Healthy bool
	Error   error
	Calls   []MockCall
}

func NewMockHealthChecker(healthy bool) *MockHealthChecker {
	var err error
	if !healthy {
		err = errors.New("health check failed")
	}
	return &MockHealthChecker{
		Healthy: healthy,
		Error:   err,
		Calls:   make([]MockCall, 0),
	}
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "HealthCheck", Args: nil})
	m.mu.Unlock()

	return m.Error
}

func (m *MockHealthChecker) SetHealthy(healthy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Healthy = healthy
	if healthy {
		m.Error = nil
	} else {
		m.Error = errors.New("health check failed")
	}
}
