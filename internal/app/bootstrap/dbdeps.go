// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/tripdesk/internal/app/system/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	TripDeskMongoClient   *mongo.Client
	TripDeskMongoDatabase *mongo.Database

	// Redis is nil when redis_addr is blank.
	Redis *redis.Client

	// Process-wide collectors, shared by the purge worker and the HTTP layer.
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
}
