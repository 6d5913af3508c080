package database

import (
	"context"
	"fmt"
	"time"

	"github.com/shashiranjanraj/kisanmart/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var Mongo *mongo.Database

// ConnectMongo dials MONGO_URI and selects MONGO_DATABASE.
func ConnectMongo(ctx context.Context) error {
	db, err := OpenMongo(ctx, config.MongoURI(), config.MongoDatabase())
	if err != nil {
		return err
	}
	Mongo = db
	return nil
}

func OpenMongo(ctx context.Context, uri, name string) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetConnectTimeout(5*time.Second).
		SetServerSelectionTimeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("database: mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("database: mongo ping: %w", err)
	}
	return client.Database(name), nil
}

func DisconnectMongo(ctx context.Context) error {
	if Mongo == nil {
		return nil
	}
	return Mongo.Client().Disconnect(ctx)
}
