package checker

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/SergeVo/WB-price-tracker/internal/client"
	"github.com/SergeVo/WB-price-tracker/internal/database"
	"github.com/SergeVo/WB-price-tracker/internal/misc"
)

// ProductStore is the subset of database.Database the checker reads and
// writes. All operations must be safe to call concurrently with the bot
// command handlers.
type ProductStore interface {
	ProductsFindAll(ctx context.Context) (map[int64]map[string]database.Product, error)
	UserIntervalsFindAll(ctx context.Context) (map[int64]int, error)
	UserLastCheckFind(ctx context.Context, userID int64) (*time.Time, error)
	UserLastCheckUpdate(ctx context.Context, userID int64, t time.Time) error
	ProductPriceUpdate(ctx context.Context, userID int64, article string, price int) error
}

type ProductLookup interface {
	WildberriesGetProduct(ctx context.Context, url string, useCache bool) (client.WildberriesProduct, error)
}

type Notifier interface {
	NotifyPriceChange(ctx context.Context, userID int64, change PriceChange) error
}

type logger interface {
	Debug(v ...any)
	Info(v ...any)
	Error(v ...any)
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Errorf(format string, v ...any)
}

// Checker runs the periodic price check cycle: per user, decide
// eligibility by elapsed time since the last completed check, look up
// current prices of the user's tracked products, persist changes and
// hand them to the Notifier. One cycle is fully sequential to keep the
// remote call rate bounded.
type Checker struct {
	DB              ProductStore
	Lookup          ProductLookup
	Notifier        Notifier
	Logger          logger
	DefaultInterval int
	Limiter         *rate.Limiter

	checkMu sync.Mutex
}

// Run invokes a price check cycle on every ticker tick until ctx is
// cancelled. Ticks are serialized: a tick arriving while the previous
// cycle is still running is skipped.
func (c *Checker) Run(ctx context.Context, ticker *time.Ticker) {
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.Logger.Info("Run: Stopping price checker:", ctx.Err())
			return
		case <-ticker.C:
			if !c.checkMu.TryLock() {
				c.Logger.Info("Run: Previous price check cycle still running, skipping tick")
				continue
			}
			c.CheckPrices(ctx, time.Now())
			c.checkMu.Unlock()
		}
	}
}

// CheckPrices runs one full sweep over all users and their tracked
// products. Errors are contained per product and per user; nothing here
// is fatal.
func (c *Checker) CheckPrices(ctx context.Context, now time.Time) {
	c.Logger.Info("CheckPrices: Starting price check cycle")

	tracked, err := c.DB.ProductsFindAll(ctx)
	if err != nil {
		c.Logger.Errorf("CheckPrices: Error getting all tracked Products from DB, err: %v", err)
		return
	}
	if len(tracked) == 0 {
		c.Logger.Info("CheckPrices: No tracked products")
		return
	}

	intervals, err := c.DB.UserIntervalsFindAll(ctx)
	if err != nil {
		c.Logger.Errorf("CheckPrices: Error getting user check intervals from DB, using default for all, err: %v", err)
		intervals = map[int64]int{}
	}

	totalProducts := 0
	for _, ps := range tracked {
		totalProducts += len(ps)
	}
	c.Logger.Infof("CheckPrices: Checking %d product(s) for %d user(s)", totalProducts, len(tracked))

	for userID, products := range tracked {
		interval, ok := intervals[userID]
		if !ok {
			interval = c.DefaultInterval
		}
		c.checkUserProducts(ctx, now, userID, interval, products)
	}
	c.Logger.Info("CheckPrices: Finished price check cycle")
}

func (c *Checker) checkUserProducts(ctx context.Context, now time.Time, userID int64, interval int, products map[string]database.Product) {
	defer func() {
		if r := recover(); r != nil {
			c.Logger.Errorf("checkUserProducts: Panic while checking products for UserID: %d, recovered: %v", userID, r)
		}
	}()

	lastCheck, err := c.DB.UserLastCheckFind(ctx, userID)
	if err != nil {
		// Treated as never checked, the user stays eligible.
		c.Logger.Errorf("checkUserProducts: Error getting last check time for UserID: %d, err: %v", userID, err)
		lastCheck = nil
	}
	if lastCheck != nil && now.Sub(*lastCheck) < time.Duration(interval)*time.Minute {
		c.Logger.Debugf("checkUserProducts: Skipping UserID: %d, %.1f of %d minute(s) elapsed since last check",
			userID, now.Sub(*lastCheck).Minutes(), interval)
		return
	}

	c.Logger.Infof("checkUserProducts: Checking %d product(s) for UserID: %d (interval: %d minute(s))",
		len(products), userID, interval)

	for article, p := range products {
		c.checkProduct(ctx, userID, article, p)
	}

	// The user counts as checked even when every lookup failed, so a
	// persistently failing remote does not get hit on every tick.
	if err := c.DB.UserLastCheckUpdate(ctx, userID, now); err != nil {
		c.Logger.Errorf("checkUserProducts: Error updating last check time for UserID: %d, err: %v", userID, err)
	}
}

func (c *Checker) checkProduct(ctx context.Context, userID int64, article string, p database.Product) {
	productName := misc.StringLimit(p.Name, 45)
	c.Logger.Debugf("checkProduct: Checking product: %s, article: %s, UserID: %d", productName, article, userID)

	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			c.Logger.Errorf("checkProduct: Rate limiter wait interrupted, article: %s, err: %v", article, err)
			return
		}
	}

	current, err := c.Lookup.WildberriesGetProduct(ctx, p.URL, true)
	if err != nil {
		c.Logger.Errorf("checkProduct: Error getting product data, article: %s, url: %s, UserID: %d, err: %v",
			article, p.URL, userID, err)
		return
	}

	if current.Price == p.Price {
		c.Logger.Debugf("checkProduct: No price change for product: %s, article: %s", productName, article)
		return
	}

	change := PriceChange{
		Name:     p.Name,
		Article:  article,
		OldPrice: p.Price,
		NewPrice: current.Price,
	}
	c.Logger.Infof("checkProduct: Price change for product: %s, article: %s, UserID: %d, old: %d, new: %d, delta: %+d",
		productName, article, userID, change.OldPrice, change.NewPrice, change.Delta())

	if err := c.DB.ProductPriceUpdate(ctx, userID, article, current.Price); err != nil {
		c.Logger.Errorf("checkProduct: Error updating price for article: %s, UserID: %d, err: %v", article, userID, err)
	}
	if err := c.Notifier.NotifyPriceChange(ctx, userID, change); err != nil {
		c.Logger.Errorf("checkProduct: Error notifying UserID: %d about article: %s, err: %v", userID, article, err)
	}
}
