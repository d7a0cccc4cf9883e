package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/tierhub/internal/app/system/timeouts"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var (
	mongoURI string
	mongoDB  string
)

var rootCmd = &cobra.Command{
	Use:           "tierhubctl",
	Short:         "Operator tooling for TierHub",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&mongoURI, "uri", "mongodb://localhost:27017", "MongoDB connection URI")
	rootCmd.PersistentFlags().StringVar(&mongoDB, "db", "tier_hub", "MongoDB database name")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(validateCmd)
}

// connect opens a Mongo connection for one command invocation. The caller
// is responsible for calling the returned cleanup function.
func connect(ctx context.Context) (*mongo.Database, func(), error) {
	connectCtx, cancel := context.WithTimeout(ctx, timeouts.Connect())
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}

	cleanup := func() {
		dctx, dcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer dcancel()
		_ = client.Disconnect(dctx)
	}
	return client.Database(mongoDB), cleanup, nil
}
