package storage

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"taskboard-api/domain"
)

// Mongo is the MongoDB-backed Store.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongo connects to the given MongoDB URI and verifies the connection
// with a ping before returning.
func NewMongo(ctx context.Context, uri, dbName string) (*Mongo, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(10 * time.Second)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return &Mongo{client: client, db: client.Database(dbName)}, nil
}

// Close disconnects the underlying client.
func (s *Mongo) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Mongo) FindOne(ctx context.Context, collection string, filter Filter, out any) error {
	err := s.db.Collection(collection).FindOne(ctx, bson.M(filter)).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrNotFound
	}
	return err
}

func (s *Mongo) FindAll(ctx context.Context, collection string, filter Filter, out any) error {
	cur, err := s.db.Collection(collection).Find(ctx, bson.M(filter))
	if err != nil {
		return err
	}
	return cur.All(ctx, out)
}

func (s *Mongo) Insert(ctx context.Context, collection string, doc any) error {
	_, err := s.db.Collection(collection).InsertOne(ctx, doc)
	return err
}

func (s *Mongo) UpdateFields(ctx context.Context, collection string, filter Filter, fields map[string]any) error {
	_, err := s.db.Collection(collection).UpdateOne(ctx, bson.M(filter), bson.M{"$set": bson.M(fields)})
	return err
}

func (s *Mongo) DeleteOne(ctx context.Context, collection string, filter Filter) error {
	_, err := s.db.Collection(collection).DeleteOne(ctx, bson.M(filter))
	return err
}

func (s *Mongo) DeleteMany(ctx context.Context, collection string, filter Filter) error {
	_, err := s.db.Collection(collection).DeleteMany(ctx, bson.M(filter))
	return err
}

func (s *Mongo) ListSorted(ctx context.Context, collection string, filter Filter, sortField string, descending bool, limit int64, out any) error {
	order := 1
	if descending {
		order = -1
	}
	opts := options.Find().SetSort(bson.D{{Key: sortField, Value: order}})
	if limit > 0 {
		opts = opts.SetLimit(limit)
	}
	cur, err := s.db.Collection(collection).Find(ctx, bson.M(filter), opts)
	if err != nil {
		return err
	}
	return cur.All(ctx, out)
}
