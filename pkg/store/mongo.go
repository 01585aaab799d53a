package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/kintree/pkg/errors"
	"github.com/matzehuels/kintree/pkg/tree"
)

// Collection names within the configured database.
const (
	personsCollection       = "persons"
	relationshipsCollection = "relationships"
)

// MongoConfig configures the MongoDB connection.
type MongoConfig struct {
	URI      string // e.g. "mongodb://localhost:27017"
	Database string // e.g. "kintree"
}

// MongoStore is a MongoDB-backed record store for server deployments.
// Change notification covers mutations made through this instance;
// cross-instance coordination is out of scope.
type MongoStore struct {
	client        *mongo.Client
	persons       *mongo.Collection
	relationships *mongo.Collection
	changes       *notifier
}

// NewMongoStore connects to MongoDB and verifies the connection with a
// ping. A unique index on the record ID field guards against duplicate
// inserts racing across instances.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo %s: %w", cfg.URI, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo %s: %w", cfg.URI, err)
	}

	db := client.Database(cfg.Database)
	s := &MongoStore{
		client:        client,
		persons:       db.Collection(personsCollection),
		relationships: db.Collection(relationshipsCollection),
		changes:       newNotifier(),
	}

	idIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	for _, coll := range []*mongo.Collection{s.persons, s.relationships} {
		if _, err := coll.Indexes().CreateOne(ctx, idIndex); err != nil {
			_ = client.Disconnect(ctx)
			return nil, fmt.Errorf("create index on %s: %w", coll.Name(), err)
		}
	}
	return s, nil
}

func (s *MongoStore) ListPersons(ctx context.Context) ([]tree.Person, error) {
	opts := options.Find().SetSort(bson.D{{Key: "id", Value: 1}})
	cur, err := s.persons.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "list persons")
	}
	var out []tree.Person
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "decode persons")
	}
	return out, nil
}

func (s *MongoStore) GetPerson(ctx context.Context, id string) (tree.Person, error) {
	var p tree.Person
	err := s.persons.FindOne(ctx, bson.M{"id": id}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return tree.Person{}, errors.New(errors.ErrCodePersonNotFound, "person %s not found", id)
	}
	if err != nil {
		return tree.Person{}, errors.Wrap(errors.ErrCodeStore, err, "get person %s", id)
	}
	return p, nil
}

func (s *MongoStore) AddPerson(ctx context.Context, p tree.Person) (tree.Person, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if _, err := s.persons.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return tree.Person{}, errors.New(errors.ErrCodeDuplicateRecord, "person %s already exists", p.ID)
		}
		return tree.Person{}, errors.Wrap(errors.ErrCodeStore, err, "insert person %s", p.ID)
	}
	s.changes.notify()
	return p, nil
}

func (s *MongoStore) UpdatePerson(ctx context.Context, p tree.Person) error {
	res, err := s.persons.ReplaceOne(ctx, bson.M{"id": p.ID}, p)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "update person %s", p.ID)
	}
	if res.MatchedCount == 0 {
		return errors.New(errors.ErrCodePersonNotFound, "person %s not found", p.ID)
	}
	s.changes.notify()
	return nil
}

func (s *MongoStore) DeletePerson(ctx context.Context, id string) error {
	res, err := s.persons.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "delete person %s", id)
	}
	if res.DeletedCount == 0 {
		return errors.New(errors.ErrCodePersonNotFound, "person %s not found", id)
	}
	// Cascade: relationships referencing the person go with them.
	filter := bson.M{"$or": []bson.M{{"from": id}, {"to": id}}}
	if _, err := s.relationships.DeleteMany(ctx, filter); err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "cascade delete relationships of %s", id)
	}
	s.changes.notify()
	return nil
}

func (s *MongoStore) ListRelationships(ctx context.Context) ([]tree.Relationship, error) {
	opts := options.Find().SetSort(bson.D{{Key: "id", Value: 1}})
	cur, err := s.relationships.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "list relationships")
	}
	var out []tree.Relationship
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "decode relationships")
	}
	return out, nil
}

func (s *MongoStore) AddRelationship(ctx context.Context, r tree.Relationship) (tree.Relationship, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	existing, err := s.ListRelationships(ctx)
	if err != nil {
		return tree.Relationship{}, err
	}
	hasPerson := func(id string) bool {
		n, err := s.persons.CountDocuments(ctx, bson.M{"id": id})
		return err == nil && n > 0
	}
	r, err = validateRelationship(r, hasPerson, existing)
	if err != nil {
		return tree.Relationship{}, err
	}

	if _, err := s.relationships.InsertOne(ctx, r); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return tree.Relationship{}, errors.New(errors.ErrCodeDuplicateRecord, "relationship %s already exists", r.ID)
		}
		return tree.Relationship{}, errors.Wrap(errors.ErrCodeStore, err, "insert relationship %s", r.ID)
	}
	s.changes.notify()
	return r, nil
}

func (s *MongoStore) DeleteRelationship(ctx context.Context, id string) error {
	res, err := s.relationships.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "delete relationship %s", id)
	}
	if res.DeletedCount == 0 {
		return errors.New(errors.ErrCodeNotFound, "relationship %s not found", id)
	}
	s.changes.notify()
	return nil
}

func (s *MongoStore) Snapshot(ctx context.Context) (tree.Snapshot, error) {
	persons, err := s.ListPersons(ctx)
	if err != nil {
		return tree.Snapshot{}, err
	}
	relationships, err := s.ListRelationships(ctx)
	if err != nil {
		return tree.Snapshot{}, err
	}
	return tree.Snapshot{Persons: persons, Relationships: relationships}, nil
}

func (s *MongoStore) Watch(ctx context.Context) <-chan struct{} {
	return s.changes.subscribe(ctx)
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

var _ Store = (*MongoStore)(nil)
