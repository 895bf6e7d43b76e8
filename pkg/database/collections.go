package database

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DisruptionsCollection = "disruptions"
	TripUpdatesCollection = "trip_updates"
)

// Records past their publication end are kept a week for the audit trail.
const disruptionRetention = 7 * 24 * 60 * 60

// Trip updates only matter on their reference day.
const tripUpdateRetention = 2 * 24 * 60 * 60

func createIndexes() {
	createDisruptionsIndexes()
	createTripUpdatesIndexes()
}

func createDisruptionsIndexes() {
	disruptionsCollection := GetCollection(DisruptionsCollection)
	disruptionsIndex := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "updated_at", Value: 1}, {Key: "_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "contributor", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "publication_period.end", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(disruptionRetention),
		},
	}

	_, err := disruptionsCollection.Indexes().CreateMany(context.Background(), disruptionsIndex, options.CreateIndexes())
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}
}

func createTripUpdatesIndexes() {
	tripUpdatesCollection := GetCollection(TripUpdatesCollection)
	tripUpdatesIndex := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "vehicle_journey_uri", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(tripUpdateRetention),
		},
	}

	_, err := tripUpdatesCollection.Indexes().CreateMany(context.Background(), tripUpdatesIndex, options.CreateIndexes())
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}
}
