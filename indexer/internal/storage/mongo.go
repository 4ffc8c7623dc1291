package storage

import (
	"context"
	"time"

	"github.com/juju/errors"
	"github.com/kamva/mgm/v3"
	"github.com/kamva/mgm/v3/operator"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoSyncRecordKey = "torrents"

var _ mgm.Model = (*MongoSyncRecord)(nil)

type MongoSyncRecord struct {
	Key          string     `bson:"_id"`
	MaxSyncedID  int64      `bson:"max_synced_id"`
	LastSyncTime *time.Time `bson:"last_sync_time"`
}

func (r *MongoSyncRecord) CollectionName() string {
	return "sync_record"
}

func (r *MongoSyncRecord) PrepareID(id interface{}) (interface{}, error) {
	return id, nil
}

func (r *MongoSyncRecord) GetID() interface{} {
	return r.Key
}

func (r *MongoSyncRecord) SetID(id interface{}) {
	r.Key = id.(string)
}

// MongoCursorStore keeps the cursor in one document of the sync_record collection.
type MongoCursorStore struct {
	coll *mgm.Collection
	key  string
}

func NewMongoCursorStore() *MongoCursorStore {
	return &MongoCursorStore{
		coll: mgm.Coll(&MongoSyncRecord{}),
		key:  mongoSyncRecordKey,
	}
}

func (s *MongoCursorStore) ReadCursor(ctx context.Context) (*Cursor, error) {
	record := &MongoSyncRecord{}
	err := s.coll.FindByIDWithCtx(ctx, s.key, record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &Cursor{MaxSyncedID: record.MaxSyncedID, LastSyncTime: record.LastSyncTime}, nil
}

func (s *MongoCursorStore) UpsertCursor(ctx context.Context, id int64) error {
	opts := &options.UpdateOptions{}
	opts.SetUpsert(true)
	_, err := s.coll.UpdateByID(ctx, s.key, bson.M{
		operator.Set: bson.M{
			"max_synced_id":  id,
			"last_sync_time": time.Now(),
		},
	}, opts)
	if err != nil {
		return errors.Trace(err)
	}
	return nil
}
