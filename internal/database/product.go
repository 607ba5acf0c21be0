package database

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Product struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    int64              `bson:"user_id"`
	Article   string             `bson:"article"`
	URL       string             `bson:"url"`
	Name      string             `bson:"name"`
	Price     int                `bson:"price"`
	CreatedAt primitive.DateTime `bson:"created_at"`
	UpdatedAt primitive.DateTime `bson:"updated_at"`
}

// ProductUpsert inserts a tracked product or, when the user already
// tracks the same article, overwrites its url, name and price.
func (db Database) ProductUpsert(ctx context.Context, p Product) error {
	now := primitive.NewDateTimeFromTime(time.Now())
	_, err := db.Collection(CollectionProducts).UpdateOne(
		ctx,
		bson.M{"user_id": p.UserID, "article": p.Article},
		bson.M{
			"$set": bson.M{
				"url":        p.URL,
				"name":       p.Name,
				"price":      p.Price,
				"updated_at": now,
			},
			"$setOnInsert": bson.M{"created_at": now},
		},
		options.Update().SetUpsert(true),
	)
	return errors.Wrapf(err, "error upserting Product with article: %s for UserID: %d", p.Article, p.UserID)
}

func (db Database) ProductRemove(ctx context.Context, userID int64, article string) error {
	res, err := db.Collection(CollectionProducts).DeleteOne(
		ctx,
		bson.M{"user_id": userID, "article": article},
	)
	if err != nil {
		return errors.Wrapf(err, "error removing Product with article: %s for UserID: %d", article, userID)
	}
	if res.DeletedCount == 0 {
		return ErrNoDocumentsModified
	}
	return nil
}

func (db Database) ProductPriceUpdate(ctx context.Context, userID int64, article string, price int) error {
	res, err := db.Collection(CollectionProducts).UpdateOne(
		ctx,
		bson.M{"user_id": userID, "article": article},
		bson.M{"$set": bson.M{
			"price":      price,
			"updated_at": primitive.NewDateTimeFromTime(time.Now()),
		}},
	)
	if err != nil {
		return errors.Wrapf(err, "error updating price to %d for Product with article: %s, UserID: %d",
			price, article, userID)
	}
	if res.MatchedCount == 0 {
		return ErrNoDocumentsModified
	}
	return nil
}

// ProductsFindByUser returns the user's tracked products keyed by article.
func (db Database) ProductsFindByUser(ctx context.Context, userID int64) (map[string]Product, error) {
	cur, err := db.Collection(CollectionProducts).Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, errors.Wrapf(err, "error getting cursor to find Products for UserID: %d", userID)
	}
	var ps []Product
	if err = cur.All(ctx, &ps); err != nil {
		return nil, errors.Wrapf(err, "error getting Products from cursor for UserID: %d", userID)
	}
	products := make(map[string]Product, len(ps))
	for _, p := range ps {
		products[p.Article] = p
	}
	return products, nil
}

// ProductsFindAll returns every tracked product grouped by user, then
// keyed by article.
func (db Database) ProductsFindAll(ctx context.Context) (map[int64]map[string]Product, error) {
	cur, err := db.Collection(CollectionProducts).Find(ctx, bson.M{})
	if err != nil {
		return nil, errors.Wrap(err, "error getting cursor to find all Products")
	}
	var ps []Product
	if err = cur.All(ctx, &ps); err != nil {
		return nil, errors.Wrap(err, "error getting all Products from cursor")
	}
	products := make(map[int64]map[string]Product)
	for _, p := range ps {
		if products[p.UserID] == nil {
			products[p.UserID] = make(map[string]Product)
		}
		products[p.UserID][p.Article] = p
	}
	return products, nil
}

func (db Database) ProductsCount(ctx context.Context) (int64, error) {
	n, err := db.Collection(CollectionProducts).CountDocuments(ctx, bson.M{})
	return n, errors.Wrap(err, "error counting Products")
}
