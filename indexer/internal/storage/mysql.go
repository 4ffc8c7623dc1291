package storage

import (
	"context"
	"time"

	"github.com/juju/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const syncRecordID = 1

// InfoDict is one crawled torrent row.
type InfoDict struct {
	ID         int64  `gorm:"column:id;primaryKey"`
	InfoHash   []byte `gorm:"column:infohash"`
	Dictionary []byte `gorm:"column:infohashDictionary"`
	Seeders    int    `gorm:"column:seeders"`
	Leechers   int    `gorm:"column:leechers"`
	Peers      int    `gorm:"column:peers"`
	FindTime   *int64 `gorm:"column:find_time"`
	Lang       *int8  `gorm:"column:lang"`
}

func (InfoDict) TableName() string {
	return "info_dict"
}

const infoDictColumns = "id, infohash, infohashDictionary, " +
	"COALESCE(seeders, 0) AS seeders, COALESCE(leechers, 0) AS leechers, COALESCE(peers, 0) AS peers, " +
	"find_time, lang"

type MySQLSource struct {
	db *gorm.DB
}

func NewMySQLSource(db *gorm.DB) *MySQLSource {
	return &MySQLSource{db: db}
}

// MaxPrimaryKey returns the highest id in info_dict, 0 for an empty table.
func (s *MySQLSource) MaxPrimaryKey(ctx context.Context) (int64, error) {
	var ret int64
	row := s.db.WithContext(ctx).Model(&InfoDict{}).Select("COALESCE(MAX(id), 0)").Row()
	err := row.Scan(&ret)
	if err != nil {
		return 0, errors.Trace(err)
	}
	return ret, nil
}

// PageAfter returns at most pageSize rows with id > cursorID in ascending id order.
func (s *MySQLSource) PageAfter(ctx context.Context, cursorID int64, pageSize int) ([]*InfoDict, error) {
	ret := make([]*InfoDict, 0, pageSize)
	err := s.db.WithContext(ctx).
		Select(infoDictColumns).
		Where("id > ?", cursorID).
		Order("id").
		Limit(pageSize).
		Find(&ret).Error
	if err != nil {
		return nil, errors.Trace(err)
	}
	return ret, nil
}

type SyncRecord struct {
	ID           int64      `gorm:"column:id;primaryKey"`
	MaxSyncedID  int64      `gorm:"column:max_synced_id"`
	LastSyncTime *time.Time `gorm:"column:last_sync_time"`
}

func (SyncRecord) TableName() string {
	return "torrent_sync_record"
}

// MySQLCursorStore keeps the cursor in the single row id=1 of torrent_sync_record.
type MySQLCursorStore struct {
	db *gorm.DB
}

func NewMySQLCursorStore(db *gorm.DB) *MySQLCursorStore {
	return &MySQLCursorStore{db: db}
}

func (s *MySQLCursorStore) ReadCursor(ctx context.Context) (*Cursor, error) {
	record := SyncRecord{}
	err := s.db.WithContext(ctx).First(&record, syncRecordID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &Cursor{MaxSyncedID: record.MaxSyncedID, LastSyncTime: record.LastSyncTime}, nil
}

func (s *MySQLCursorStore) UpsertCursor(ctx context.Context, id int64) error {
	now := time.Now()
	record := SyncRecord{ID: syncRecordID, MaxSyncedID: id, LastSyncTime: &now}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"max_synced_id", "last_sync_time"}),
	}).Create(&record).Error
	if err != nil {
		return errors.Trace(err)
	}
	return nil
}
