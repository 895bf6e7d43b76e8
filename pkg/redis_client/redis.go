package redis_client

import (
	"context"
	"strconv"

	"github.com/adjust/rmq/v5"
	"github.com/redis/go-redis/v9"
	"github.com/travigo/disruptions/pkg/util"
)

var Client *redis.Client
var QueueConnection rmq.Connection

const defaultConnectionAddress = "localhost:6379"
const defaultConnectionPassword = ""
const defaultDatabase = 0

func Connect() error {
	address := defaultConnectionAddress
	password := defaultConnectionPassword
	database := defaultDatabase

	env := util.GetEnvironmentVariables()

	if env["TRAVIGO_REDIS_ADDRESS"] != "" {
		address = env["TRAVIGO_REDIS_ADDRESS"]
	}

	if env["TRAVIGO_REDIS_PASSWORD"] != "" {
		password = env["TRAVIGO_REDIS_PASSWORD"]
	}

	if env["TRAVIGO_REDIS_DATABASE"] != "" {
		n, err := strconv.Atoi(env["TRAVIGO_REDIS_DATABASE"])
		if err != nil {
			return err
		}
		database = n
	}

	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       database,
	})

	return Use(client)
}

// Use installs an existing client, opening the queue connection on top of it.
func Use(client *redis.Client) error {
	if err := client.Ping(context.Background()).Err(); err != nil {
		return err
	}

	connection, err := rmq.OpenConnectionWithRedisClient("travigo-disruptions", client, nil)
	if err != nil {
		return err
	}

	Client = client
	QueueConnection = connection

	return nil
}
