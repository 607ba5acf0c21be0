package checker

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/SergeVo/WB-price-tracker/internal/client"
	"github.com/SergeVo/WB-price-tracker/internal/database"
	wblogger "github.com/SergeVo/WB-price-tracker/internal/logger"
)

// --- Mock implementations ---

type priceUpdate struct {
	userID  int64
	article string
	price   int
}

type mockStore struct {
	products   map[int64]map[string]database.Product
	intervals  map[int64]int
	lastChecks map[int64]time.Time

	lastCheckWrites map[int64]time.Time
	priceUpdates    []priceUpdate

	findAllErr     error
	intervalsErr   error
	lastCheckErr   error
	updateErr      error
	priceUpdateErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		products:        map[int64]map[string]database.Product{},
		intervals:       map[int64]int{},
		lastChecks:      map[int64]time.Time{},
		lastCheckWrites: map[int64]time.Time{},
	}
}

func (m *mockStore) ProductsFindAll(_ context.Context) (map[int64]map[string]database.Product, error) {
	if m.findAllErr != nil {
		return nil, m.findAllErr
	}
	return m.products, nil
}

func (m *mockStore) UserIntervalsFindAll(_ context.Context) (map[int64]int, error) {
	if m.intervalsErr != nil {
		return nil, m.intervalsErr
	}
	return m.intervals, nil
}

func (m *mockStore) UserLastCheckFind(_ context.Context, userID int64) (*time.Time, error) {
	if m.lastCheckErr != nil {
		return nil, m.lastCheckErr
	}
	t, ok := m.lastChecks[userID]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *mockStore) UserLastCheckUpdate(_ context.Context, userID int64, t time.Time) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.lastCheckWrites[userID] = t
	return nil
}

func (m *mockStore) ProductPriceUpdate(_ context.Context, userID int64, article string, price int) error {
	if m.priceUpdateErr != nil {
		return m.priceUpdateErr
	}
	m.priceUpdates = append(m.priceUpdates, priceUpdate{userID: userID, article: article, price: price})
	if p, ok := m.products[userID][article]; ok {
		p.Price = price
		m.products[userID][article] = p
	}
	return nil
}

type mockLookup struct {
	results map[string]client.WildberriesProduct
	errs    map[string]error
	calls   []string
}

func (m *mockLookup) WildberriesGetProduct(_ context.Context, url string, _ bool) (client.WildberriesProduct, error) {
	m.calls = append(m.calls, url)
	if err := m.errs[url]; err != nil {
		return client.WildberriesProduct{}, err
	}
	return m.results[url], nil
}

type notification struct {
	userID int64
	change PriceChange
}

type mockNotifier struct {
	notifications []notification
	sendErr       error
}

func (m *mockNotifier) NotifyPriceChange(_ context.Context, userID int64, change PriceChange) error {
	m.notifications = append(m.notifications, notification{userID: userID, change: change})
	return m.sendErr
}

func newChecker(store *mockStore, lookup *mockLookup, notifier *mockNotifier) *Checker {
	return &Checker{
		DB:              store,
		Lookup:          lookup,
		Notifier:        notifier,
		Logger:          wblogger.NewLogger(false, false, false, io.Discard),
		DefaultInterval: 180,
		Limiter:         rate.NewLimiter(rate.Inf, 1),
	}
}

func trackedProduct(userID int64, article, url, name string, price int) database.Product {
	return database.Product{UserID: userID, Article: article, URL: url, Name: name, Price: price}
}

// --- Tests ---

func TestCheckPrices_SkipsUserWithinInterval(t *testing.T) {
	now := time.Now()
	store := newMockStore()
	store.products[1] = map[string]database.Product{
		"123": trackedProduct(1, "123", "https://www.wildberries.ru/catalog/123/detail.aspx", "Shoes", 1000),
	}
	store.intervals[1] = 60
	store.lastChecks[1] = now.Add(-30 * time.Minute)
	lookup := &mockLookup{}
	notifier := &mockNotifier{}

	newChecker(store, lookup, notifier).CheckPrices(context.Background(), now)

	if len(lookup.calls) != 0 {
		t.Errorf("Expected no lookups for ineligible user, got %d", len(lookup.calls))
	}
	if len(store.lastCheckWrites) != 0 {
		t.Errorf("Expected last check time unchanged, got writes: %v", store.lastCheckWrites)
	}
	if len(store.priceUpdates) != 0 {
		t.Errorf("Expected no price updates, got %v", store.priceUpdates)
	}
	if len(notifier.notifications) != 0 {
		t.Errorf("Expected no notifications, got %v", notifier.notifications)
	}
}

func TestCheckPrices_PriceDropNotifies(t *testing.T) {
	now := time.Now()
	url := "https://www.wildberries.ru/catalog/123/detail.aspx"
	store := newMockStore()
	store.products[1] = map[string]database.Product{
		"123": trackedProduct(1, "123", url, "Shoes", 1000),
	}
	store.intervals[1] = 60
	store.lastChecks[1] = now.Add(-90 * time.Minute)
	lookup := &mockLookup{results: map[string]client.WildberriesProduct{
		url: {Article: "123", Name: "Shoes", Price: 950},
	}}
	notifier := &mockNotifier{}

	newChecker(store, lookup, notifier).CheckPrices(context.Background(), now)

	if len(store.priceUpdates) != 1 {
		t.Fatalf("Expected 1 price update, got %d", len(store.priceUpdates))
	}
	if got := store.priceUpdates[0]; got.userID != 1 || got.article != "123" || got.price != 950 {
		t.Errorf("Unexpected price update: %+v", got)
	}
	if len(notifier.notifications) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(notifier.notifications))
	}
	n := notifier.notifications[0]
	if n.userID != 1 {
		t.Errorf("Expected notification for user 1, got %d", n.userID)
	}
	if n.change.OldPrice != 1000 || n.change.NewPrice != 950 || n.change.Delta() != -50 {
		t.Errorf("Unexpected price change: %+v, delta: %d", n.change, n.change.Delta())
	}
	if got, ok := store.lastCheckWrites[1]; !ok || !got.Equal(now) {
		t.Errorf("Expected last check time set to cycle time, got %v", got)
	}
}

func TestCheckPrices_UnchangedPriceDoesNotNotify(t *testing.T) {
	now := time.Now()
	url := "https://www.wildberries.ru/catalog/123/detail.aspx"
	store := newMockStore()
	store.products[1] = map[string]database.Product{
		"123": trackedProduct(1, "123", url, "Shoes", 1000),
	}
	lookup := &mockLookup{results: map[string]client.WildberriesProduct{
		url: {Article: "123", Name: "Shoes", Price: 1000},
	}}
	notifier := &mockNotifier{}

	newChecker(store, lookup, notifier).CheckPrices(context.Background(), now)

	if len(store.priceUpdates) != 0 {
		t.Errorf("Expected no price updates, got %v", store.priceUpdates)
	}
	if len(notifier.notifications) != 0 {
		t.Errorf("Expected no notifications, got %v", notifier.notifications)
	}
	if _, ok := store.lastCheckWrites[1]; !ok {
		t.Error("Expected last check time to be updated after the batch")
	}
}

func TestCheckPrices_LookupFailureLeavesOtherProductsProcessed(t *testing.T) {
	now := time.Now()
	badURL := "https://www.wildberries.ru/catalog/111/detail.aspx"
	goodURL := "https://www.wildberries.ru/catalog/222/detail.aspx"
	store := newMockStore()
	store.products[1] = map[string]database.Product{
		"111": trackedProduct(1, "111", badURL, "Jacket", 3000),
		"222": trackedProduct(1, "222", goodURL, "Hat", 500),
	}
	lookup := &mockLookup{
		results: map[string]client.WildberriesProduct{
			goodURL: {Article: "222", Name: "Hat", Price: 450},
		},
		errs: map[string]error{
			badURL: errors.New("remote unreachable"),
		},
	}
	notifier := &mockNotifier{}

	newChecker(store, lookup, notifier).CheckPrices(context.Background(), now)

	if len(lookup.calls) != 2 {
		t.Errorf("Expected both products to be looked up, got %d call(s)", len(lookup.calls))
	}
	if got := store.products[1]["111"].Price; got != 3000 {
		t.Errorf("Expected failed product price unchanged, got %d", got)
	}
	if len(store.priceUpdates) != 1 || store.priceUpdates[0].article != "222" {
		t.Errorf("Expected exactly one price update for article 222, got %v", store.priceUpdates)
	}
	if len(notifier.notifications) != 1 {
		t.Errorf("Expected 1 notification, got %d", len(notifier.notifications))
	}
}

func TestCheckPrices_UserCheckedEvenWhenAllLookupsFail(t *testing.T) {
	now := time.Now()
	url := "https://www.wildberries.ru/catalog/123/detail.aspx"
	store := newMockStore()
	store.products[1] = map[string]database.Product{
		"123": trackedProduct(1, "123", url, "Shoes", 1000),
	}
	lookup := &mockLookup{errs: map[string]error{url: errors.New("HTTP 503")}}
	notifier := &mockNotifier{}

	newChecker(store, lookup, notifier).CheckPrices(context.Background(), now)

	if got, ok := store.lastCheckWrites[1]; !ok || !got.Equal(now) {
		t.Errorf("Expected last check time set even with all lookups failing, got %v, ok: %v", got, ok)
	}
	if len(notifier.notifications) != 0 {
		t.Errorf("Expected no notifications, got %v", notifier.notifications)
	}
}

func TestCheckPrices_ZeroTrackedProductsIsNoOp(t *testing.T) {
	store := newMockStore()
	lookup := &mockLookup{}
	notifier := &mockNotifier{}

	newChecker(store, lookup, notifier).CheckPrices(context.Background(), time.Now())

	if len(lookup.calls) != 0 || len(store.lastCheckWrites) != 0 || len(store.priceUpdates) != 0 {
		t.Error("Expected cycle with zero tracked products to perform no work")
	}
	if len(notifier.notifications) != 0 {
		t.Errorf("Expected no notifications, got %v", notifier.notifications)
	}
}

func TestCheckPrices_NeverCheckedUserIsEligible(t *testing.T) {
	now := time.Now()
	url := "https://www.wildberries.ru/catalog/123/detail.aspx"
	store := newMockStore()
	store.products[1] = map[string]database.Product{
		"123": trackedProduct(1, "123", url, "Shoes", 1000),
	}
	lookup := &mockLookup{results: map[string]client.WildberriesProduct{
		url: {Article: "123", Name: "Shoes", Price: 1000},
	}}
	notifier := &mockNotifier{}

	newChecker(store, lookup, notifier).CheckPrices(context.Background(), now)

	if len(lookup.calls) != 1 {
		t.Errorf("Expected never-checked user to be eligible, got %d lookup(s)", len(lookup.calls))
	}
}

func TestCheckPrices_DefaultIntervalForUnconfiguredUser(t *testing.T) {
	now := time.Now()
	url := "https://www.wildberries.ru/catalog/123/detail.aspx"
	store := newMockStore()
	store.products[1] = map[string]database.Product{
		"123": trackedProduct(1, "123", url, "Shoes", 1000),
	}
	// No interval configured; checked 100 minutes ago with a default of
	// 180, so the user must be skipped.
	store.lastChecks[1] = now.Add(-100 * time.Minute)
	lookup := &mockLookup{}
	notifier := &mockNotifier{}

	newChecker(store, lookup, notifier).CheckPrices(context.Background(), now)

	if len(lookup.calls) != 0 {
		t.Errorf("Expected user within default interval to be skipped, got %d lookup(s)", len(lookup.calls))
	}
}

func TestCheckPrices_StoreReadFailureDegradesGracefully(t *testing.T) {
	store := newMockStore()
	store.findAllErr = errors.New("db down")
	lookup := &mockLookup{}
	notifier := &mockNotifier{}

	newChecker(store, lookup, notifier).CheckPrices(context.Background(), time.Now())

	if len(lookup.calls) != 0 || len(notifier.notifications) != 0 {
		t.Error("Expected cycle to stop cleanly on store read failure")
	}
}

func TestCheckPrices_UserBatchFailureDoesNotAbortOthers(t *testing.T) {
	now := time.Now()
	url1 := "https://www.wildberries.ru/catalog/111/detail.aspx"
	url2 := "https://www.wildberries.ru/catalog/222/detail.aspx"
	store := newMockStore()
	store.products[1] = map[string]database.Product{"111": trackedProduct(1, "111", url1, "Jacket", 3000)}
	store.products[2] = map[string]database.Product{"222": trackedProduct(2, "222", url2, "Hat", 500)}
	store.priceUpdateErr = errors.New("write failed")
	lookup := &mockLookup{results: map[string]client.WildberriesProduct{
		url1: {Article: "111", Name: "Jacket", Price: 2500},
		url2: {Article: "222", Name: "Hat", Price: 450},
	}}
	notifier := &mockNotifier{}

	newChecker(store, lookup, notifier).CheckPrices(context.Background(), now)

	if len(lookup.calls) != 2 {
		t.Errorf("Expected both users processed despite write failures, got %d lookup(s)", len(lookup.calls))
	}
	if len(store.lastCheckWrites) != 2 {
		t.Errorf("Expected last check time set for both users, got %v", store.lastCheckWrites)
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	store := newMockStore()
	c := newChecker(store, &mockLookup{}, &mockNotifier{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx, time.NewTicker(time.Hour))
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected Run to return after context cancellation")
	}
}
