package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/SergeVo/WB-price-tracker/internal/client"
	"github.com/SergeVo/WB-price-tracker/internal/database"
	"github.com/SergeVo/WB-price-tracker/internal/misc"
)

func (b Bot) handleStart(userID int64) {
	b.Logger.Debugf("handleStart: UserID: %d", userID)
	b.reply(userID,
		"Hi! I track product prices on Wildberries.\n"+
			"Send me a product link to start tracking it.\n"+
			"Use /help for the list of commands.")
}

func (b Bot) handleHelp(userID int64) {
	b.reply(userID,
		"Available commands:\n"+
			"/start - Start working with the bot\n"+
			"/help - Show this message\n"+
			"/list - Show tracked products\n"+
			"/remove <article> - Stop tracking a product by article\n"+
			"/remove_url <link> - Stop tracking a product by link\n"+
			"/set_interval <minutes> - Change the price check interval")
}

func (b Bot) handleList(ctx context.Context, userID int64) {
	products, err := b.DB.ProductsFindByUser(ctx, userID)
	if err != nil {
		b.Logger.Errorf("handleList: Error getting Products for UserID: %d, err: %v", userID, err)
		b.reply(userID, "Something went wrong, please try again later.")
		return
	}
	if len(products) == 0 {
		b.reply(userID, "You have no tracked products.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Your tracked products:\n\n")
	for article, p := range products {
		fmt.Fprintf(&sb, "Name: %s\n", p.Name)
		fmt.Fprintf(&sb, "Article: %s\n", article)
		fmt.Fprintf(&sb, "Current price: %d ₽\n\n", p.Price)
	}
	b.reply(userID, strings.TrimRight(sb.String(), "\n"))
}

func (b Bot) handleRemove(ctx context.Context, userID int64, args string) {
	article := strings.TrimSpace(args)
	if article == "" {
		b.reply(userID, "Please specify the product article.")
		return
	}

	err := b.DB.ProductRemove(ctx, userID, article)
	if err != nil {
		if errors.Is(err, database.ErrNoDocumentsModified) {
			b.reply(userID, "No tracked product with that article.")
			return
		}
		b.Logger.Errorf("handleRemove: Error removing Product with article: %s for UserID: %d, err: %v",
			article, userID, err)
		b.reply(userID, "Something went wrong, please try again later.")
		return
	}
	b.Logger.Infof("handleRemove: Removed product with article: %s for UserID: %d", article, userID)
	b.reply(userID, fmt.Sprintf("Product with article %s is no longer tracked.", article))
}

func (b Bot) handleRemoveURL(ctx context.Context, userID int64, args string) {
	url := strings.TrimSpace(args)
	if url == "" {
		b.reply(userID, "Please specify the product link.")
		return
	}
	if !client.IsWildberriesURL(url) {
		b.reply(userID, "Please specify a valid Wildberries product link.")
		return
	}

	products, err := b.DB.ProductsFindByUser(ctx, userID)
	if err != nil {
		b.Logger.Errorf("handleRemoveURL: Error getting Products for UserID: %d, err: %v", userID, err)
		b.reply(userID, "Something went wrong, please try again later.")
		return
	}
	for article, p := range products {
		if p.URL != url {
			continue
		}
		if err := b.DB.ProductRemove(ctx, userID, article); err != nil {
			b.Logger.Errorf("handleRemoveURL: Error removing Product with article: %s for UserID: %d, err: %v",
				article, userID, err)
			b.reply(userID, "Something went wrong, please try again later.")
			return
		}
		b.Logger.Infof("handleRemoveURL: Removed product with article: %s for UserID: %d", article, userID)
		b.reply(userID, fmt.Sprintf("Product is no longer tracked:\nName: %s\nArticle: %s", p.Name, article))
		return
	}
	b.reply(userID, "No tracked product with that link.")
}

func (b Bot) handleSetInterval(ctx context.Context, userID int64, args string) {
	args = strings.TrimSpace(args)
	if args == "" {
		interval, err := b.DB.UserIntervalFind(ctx, userID)
		if err != nil {
			b.Logger.Errorf("handleSetInterval: Error getting interval for UserID: %d, err: %v", userID, err)
			b.reply(userID, "Something went wrong, please try again later.")
			return
		}
		b.reply(userID, fmt.Sprintf(
			"Your current check interval: %d minute(s)\nUse /set_interval <minutes> to change it.", interval))
		return
	}

	interval, err := strconv.Atoi(args)
	if err != nil {
		b.reply(userID, "Please specify a valid number of minutes.")
		return
	}
	if interval < 1 {
		b.reply(userID, "The interval must be at least 1 minute.")
		return
	}

	if err := b.DB.UserIntervalUpsert(ctx, userID, interval); err != nil {
		b.Logger.Errorf("handleSetInterval: Error setting interval %d for UserID: %d, err: %v",
			interval, userID, err)
		b.reply(userID, "Something went wrong, please try again later.")
		return
	}
	b.Logger.Infof("handleSetInterval: UserID: %d interval set to %d minute(s)", userID, interval)
	b.reply(userID, fmt.Sprintf("Your price check interval is now %d minute(s).", interval))
}

func (b Bot) handleURL(ctx context.Context, userID int64, text string) {
	url := strings.TrimSpace(text)
	if !client.IsWildberriesURL(url) {
		b.reply(userID, "Please send a valid Wildberries product link.")
		return
	}

	product, err := b.Client.WildberriesGetProduct(ctx, url, true)
	if err != nil {
		b.Logger.Errorf("handleURL: Error getting product from url: %s for UserID: %d, err: %v", url, userID, err)
		b.reply(userID, "Could not get product information.")
		return
	}

	err = b.DB.ProductUpsert(ctx, database.Product{
		UserID:  userID,
		Article: product.Article,
		URL:     url,
		Name:    product.Name,
		Price:   product.Price,
	})
	if err != nil {
		b.Logger.Errorf("handleURL: Error upserting Product with article: %s for UserID: %d, err: %v",
			product.Article, userID, err)
		b.reply(userID, "Something went wrong, please try again later.")
		return
	}

	b.Logger.Infof("handleURL: Product added: %s, article: %s, UserID: %d",
		misc.StringLimit(product.Name, 45), product.Article, userID)
	b.reply(userID, fmt.Sprintf(
		"Now tracking:\nName: %s\nArticle: %s\nCurrent price: %d ₽",
		product.Name, product.Article, product.Price))
}
