package database

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type User struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	UserID        int64              `bson:"user_id"`
	CheckInterval int                `bson:"check_interval"`
	LastCheckTime *time.Time         `bson:"last_check_time,omitempty"`
	CreatedAt     primitive.DateTime `bson:"created_at"`
}

// UserIntervalFind returns the user's configured check interval in
// minutes, or the configured default when the user has never set one.
func (db Database) UserIntervalFind(ctx context.Context, userID int64) (int, error) {
	var u User
	err := db.Collection(CollectionUsers).FindOne(ctx, bson.M{"user_id": userID}).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return db.DefaultCheckInterval, nil
		}
		return db.DefaultCheckInterval, errors.Wrapf(err, "error finding User with UserID: %d", userID)
	}
	if u.CheckInterval < 1 {
		return db.DefaultCheckInterval, nil
	}
	return u.CheckInterval, nil
}

func (db Database) UserIntervalUpsert(ctx context.Context, userID int64, interval int) error {
	if interval < 1 {
		return errors.Errorf("invalid check interval: %d, minimum: 1 minute", interval)
	}
	_, err := db.Collection(CollectionUsers).UpdateOne(
		ctx,
		bson.M{"user_id": userID},
		bson.M{
			"$set":         bson.M{"check_interval": interval},
			"$setOnInsert": bson.M{"created_at": primitive.NewDateTimeFromTime(time.Now())},
		},
		options.Update().SetUpsert(true),
	)
	return errors.Wrapf(err, "error upserting check interval %d for UserID: %d", interval, userID)
}

// UserIntervalsFindAll returns the configured interval of every known
// user. Users without a stored interval are absent from the map.
func (db Database) UserIntervalsFindAll(ctx context.Context) (map[int64]int, error) {
	cur, err := db.Collection(CollectionUsers).Find(ctx, bson.M{})
	if err != nil {
		return nil, errors.Wrap(err, "error getting cursor to find all Users")
	}
	var us []User
	if err = cur.All(ctx, &us); err != nil {
		return nil, errors.Wrap(err, "error getting all Users from cursor")
	}
	intervals := make(map[int64]int, len(us))
	for _, u := range us {
		if u.CheckInterval >= 1 {
			intervals[u.UserID] = u.CheckInterval
		}
	}
	return intervals, nil
}

// UserLastCheckFind returns nil when the user has never completed a check.
func (db Database) UserLastCheckFind(ctx context.Context, userID int64) (*time.Time, error) {
	var u User
	err := db.Collection(CollectionUsers).FindOne(ctx, bson.M{"user_id": userID}).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "error finding User with UserID: %d", userID)
	}
	return u.LastCheckTime, nil
}

func (db Database) UserLastCheckUpdate(ctx context.Context, userID int64, t time.Time) error {
	_, err := db.Collection(CollectionUsers).UpdateOne(
		ctx,
		bson.M{"user_id": userID},
		bson.M{
			"$set":         bson.M{"last_check_time": t},
			"$setOnInsert": bson.M{"created_at": primitive.NewDateTimeFromTime(time.Now())},
		},
		options.Update().SetUpsert(true),
	)
	return errors.Wrapf(err, "error updating last check time for UserID: %d", userID)
}

func (db Database) UsersCount(ctx context.Context) (int64, error) {
	n, err := db.Collection(CollectionUsers).CountDocuments(ctx, bson.M{})
	return n, errors.Wrap(err, "error counting Users")
}
