package sink

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.uber.org/zap"

	"neuralflow/internal/domain"
)

const defaultMongoDatabase = "neuralflow"

// mongoSink implements Sink for MongoDB. Each lead is one document keyed by
// its id.
type mongoSink struct {
	client *mongo.Client
	coll   *mongo.Collection
	log    *zap.Logger
}

type leadDoc struct {
	ID            string    `bson:"_id"`
	Email         string    `bson:"email"`
	Type          string    `bson:"type"`
	Message       string    `bson:"message,omitempty"`
	Status        string    `bson:"status"`
	ReferralCode  string    `bson:"referralCode,omitempty"`
	ReferredBy    string    `bson:"referredBy,omitempty"`
	ReferralCount int       `bson:"referralCount"`
	CreatedAt     time.Time `bson:"createdAt"`
}

func toDoc(l domain.Lead) leadDoc {
	return leadDoc{
		ID:            l.ID,
		Email:         l.Email,
		Type:          string(l.Type),
		Message:       l.Message,
		Status:        string(l.Status),
		ReferralCode:  l.ReferralCode,
		ReferredBy:    l.ReferredBy,
		ReferralCount: l.ReferralCount,
		CreatedAt:     l.Timestamp.UTC(),
	}
}

// buildMongoURI returns a connection string from cfg. A full URI in cfg.URI
// wins; Atlas style <password> placeholders are filled in.
func buildMongoURI(cfg Config, password string) string {
	if cfg.URI != "" {
		uri := cfg.URI
		if password != "" {
			uri = strings.ReplaceAll(uri, "<password>", password)
			uri = strings.ReplaceAll(uri, "<db_password>", password)
		}
		return uri
	}
	port := cfg.Port
	if port == 0 {
		port = 27017
	}
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	if cfg.Username != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.Username, password, host, port)
	}
	return fmt.Sprintf("mongodb://%s:%d", host, port)
}

func newMongoSink(cfg Config, password string, log *zap.Logger) (*mongoSink, error) {
	uri := buildMongoURI(cfg, password)
	dbName := cfg.Database
	if dbName == "" {
		dbName = defaultMongoDatabase
	}

	logURI := uri
	if password != "" {
		logURI = strings.ReplaceAll(logURI, password, "***")
	}
	log.Debug("connecting", zap.String("uri", logURI), zap.String("database", dbName))

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	return &mongoSink{
		client: client,
		coll:   client.Database(dbName).Collection(cfg.Table),
		log:    log,
	}, nil
}

func (s *mongoSink) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.client.Ping(ctx, readpref.Primary())
}

// UpsertLeads replaces every document by id in one unordered bulk write.
func (s *mongoSink) UpsertLeads(ctx context.Context, leads []domain.Lead) (int, error) {
	if len(leads) == 0 {
		return 0, nil
	}
	models := make([]mongo.WriteModel, 0, len(leads))
	for _, l := range leads {
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.D{{Key: "_id", Value: l.ID}}).
			SetReplacement(toDoc(l)).
			SetUpsert(true))
	}

	res, err := s.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, fmt.Errorf("bulk upsert: %w", err)
	}
	s.log.Info("leads upserted",
		zap.String("collection", s.coll.Name()),
		zap.Int64("matched", res.MatchedCount),
		zap.Int64("upserted", res.UpsertedCount),
	)
	return len(leads), nil
}

func (s *mongoSink) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
