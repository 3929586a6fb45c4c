package storage

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sh1zzle/activetime-project/internal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection        = "users"
	sleepCollection        = "sleeps"
	productivityCollection = "productivity"
)

// MongoConn is a lazily opened database handle. The first caller connects;
// later callers reuse the client. A failed connect is not cached, so the next
// call retries.
type MongoConn struct {
	uri    string
	dbName string
	logger internal.Logger

	mu     sync.Mutex
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoConn(uri, dbName string, logger internal.Logger) *MongoConn {
	return &MongoConn{uri: uri, dbName: dbName, logger: logger}
}

func (c *MongoConn) Database(ctx context.Context) (*mongo.Database, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		return c.db, nil
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(c.uri))
	if err != nil {
		c.logger.Errorf("failed to connect to mongo: %v", err)
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		c.logger.Errorf("failed to ping mongo: %v", err)
		_ = client.Disconnect(ctx)
		return nil, err
	}

	db := client.Database(c.dbName)
	if err := ensureIndexes(ctx, db); err != nil {
		c.logger.Errorf("failed to create mongo indexes: %v", err)
		_ = client.Disconnect(ctx)
		return nil, err
	}
	c.client, c.db = client, db
	c.logger.Infof("connected to mongo database %q", c.dbName)
	return db, nil
}

func (c *MongoConn) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	err := c.client.Disconnect(ctx)
	c.client, c.db = nil, nil
	return err
}

func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	if _, err := db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}
	if _, err := db.Collection(sleepCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "start_time", Value: -1}},
	}); err != nil {
		return err
	}
	_, err := db.Collection(productivityCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

type MongoStorage struct {
	conn   *MongoConn
	logger internal.Logger
}

func NewMongoStorage(conn *MongoConn, logger internal.Logger) *MongoStorage {
	return &MongoStorage{conn: conn, logger: logger}
}

func (m *MongoStorage) Close(ctx context.Context) error {
	return m.conn.Close(ctx)
}

func (m *MongoStorage) collection(ctx context.Context, name string) (*mongo.Collection, error) {
	db, err := m.conn.Database(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection(name), nil
}

func rangeFilter(field string, opts ListOptions) bson.M {
	r := bson.M{}
	if !opts.From.IsZero() {
		r["$gte"] = opts.From
	}
	if !opts.To.IsZero() {
		r["$lte"] = opts.To
	}
	if len(r) == 0 {
		return nil
	}
	return bson.M{field: r}
}

func findOptions(sortField string, opts ListOptions) *options.FindOptions {
	fo := options.Find().SetSort(bson.D{{Key: sortField, Value: -1}}).SetSkip(int64(opts.Offset))
	if opts.Limit > 0 {
		fo.SetLimit(int64(opts.Limit))
	}
	return fo
}

// --- UserRepository ---
func (m *MongoStorage) CreateUser(ctx context.Context, u *internal.User) error {
	coll, err := m.collection(ctx, usersCollection)
	if err != nil {
		return err
	}
	doc := *u
	doc.Email = strings.ToLower(doc.Email)
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		m.logger.Errorf("failed to insert user: %v", err)
		return err
	}
	return nil
}

func (m *MongoStorage) findUser(ctx context.Context, filter bson.M) (*internal.User, error) {
	coll, err := m.collection(ctx, usersCollection)
	if err != nil {
		return nil, err
	}
	var u internal.User
	if err := coll.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		m.logger.Errorf("failed to load user: %v", err)
		return nil, err
	}
	return &u, nil
}

func (m *MongoStorage) GetUserByEmail(ctx context.Context, email string) (*internal.User, error) {
	return m.findUser(ctx, bson.M{"email": strings.ToLower(email)})
}

func (m *MongoStorage) GetUserByID(ctx context.Context, id string) (*internal.User, error) {
	return m.findUser(ctx, bson.M{"_id": id})
}

// --- SleepLogRepository ---
func (m *MongoStorage) SaveSleepLog(ctx context.Context, log *internal.SleepLog) error {
	coll, err := m.collection(ctx, sleepCollection)
	if err != nil {
		return err
	}
	if _, err := coll.InsertOne(ctx, log); err != nil {
		m.logger.Errorf("failed to insert sleep log: %v", err)
		return err
	}
	return nil
}

func (m *MongoStorage) FindSleepLog(ctx context.Context, userID string, start, end time.Time) (*internal.SleepLog, error) {
	coll, err := m.collection(ctx, sleepCollection)
	if err != nil {
		return nil, err
	}
	var l internal.SleepLog
	err = coll.FindOne(ctx, bson.M{
		"user_id":    userID,
		"start_time": bson.M{"$eq": start},
		"end_time":   bson.M{"$eq": end},
	}).Decode(&l)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		m.logger.Errorf("failed to find sleep log: %v", err)
		return nil, err
	}
	return &l, nil
}

func (m *MongoStorage) ListSleepLogs(ctx context.Context, userID string, opts ListOptions) ([]internal.SleepLog, int, error) {
	coll, err := m.collection(ctx, sleepCollection)
	if err != nil {
		return nil, 0, err
	}
	filter := bson.M{"user_id": userID}
	for k, v := range rangeFilter("start_time", opts) {
		filter[k] = v
	}
	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		m.logger.Errorf("failed to count sleep logs: %v", err)
		return nil, 0, err
	}
	cur, err := coll.Find(ctx, filter, findOptions("start_time", opts))
	if err != nil {
		m.logger.Errorf("failed to query sleep logs: %v", err)
		return nil, 0, err
	}
	logs := []internal.SleepLog{}
	if err := cur.All(ctx, &logs); err != nil {
		m.logger.Errorf("failed to decode sleep logs: %v", err)
		return nil, 0, err
	}
	return logs, int(total), nil
}

// --- ProductivityRepository ---
func (m *MongoStorage) CreateProductivity(ctx context.Context, p *internal.Productivity) error {
	coll, err := m.collection(ctx, productivityCollection)
	if err != nil {
		return err
	}
	if _, err := coll.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		m.logger.Errorf("failed to insert productivity: %v", err)
		return err
	}
	return nil
}

func (m *MongoStorage) UpdateProductivity(ctx context.Context, p *internal.Productivity) error {
	coll, err := m.collection(ctx, productivityCollection)
	if err != nil {
		return err
	}
	res, err := coll.ReplaceOne(ctx, bson.M{"_id": p.ID, "user_id": p.UserID}, p)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		m.logger.Errorf("failed to update productivity: %v", err)
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoStorage) DeleteProductivity(ctx context.Context, userID, id string) error {
	coll, err := m.collection(ctx, productivityCollection)
	if err != nil {
		return err
	}
	res, err := coll.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		m.logger.Errorf("failed to delete productivity: %v", err)
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoStorage) GetProductivity(ctx context.Context, userID, id string) (*internal.Productivity, error) {
	coll, err := m.collection(ctx, productivityCollection)
	if err != nil {
		return nil, err
	}
	var p internal.Productivity
	err = coll.FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		m.logger.Errorf("failed to load productivity: %v", err)
		return nil, err
	}
	return &p, nil
}

func (m *MongoStorage) ListProductivity(ctx context.Context, userID string, opts ListOptions) ([]internal.Productivity, int, error) {
	coll, err := m.collection(ctx, productivityCollection)
	if err != nil {
		return nil, 0, err
	}
	filter := bson.M{"user_id": userID}
	for k, v := range rangeFilter("date", opts) {
		filter[k] = v
	}
	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		m.logger.Errorf("failed to count productivity: %v", err)
		return nil, 0, err
	}
	cur, err := coll.Find(ctx, filter, findOptions("date", opts))
	if err != nil {
		m.logger.Errorf("failed to query productivity: %v", err)
		return nil, 0, err
	}
	entries := []internal.Productivity{}
	if err := cur.All(ctx, &entries); err != nil {
		m.logger.Errorf("failed to decode productivity: %v", err)
		return nil, 0, err
	}
	return entries, int(total), nil
}

// --- Compile-time assertions ---
var _ UserRepository = (*MongoStorage)(nil)
var _ SleepLogRepository = (*MongoStorage)(nil)
var _ ProductivityRepository = (*MongoStorage)(nil)
