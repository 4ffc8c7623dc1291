package svc

import (
	"context"

	"bt-search/common/language"
	"bt-search/indexer/internal/config"
	"bt-search/indexer/internal/storage"

	"github.com/juju/errors"
	"github.com/zeromicro/go-zero/core/logx"
)

type ServiceContext struct {
	Config     config.Config
	Source     Source
	Cursors    CursorStore
	Index      *storage.ESIndex
	Classifier *language.Classifier
	Indexer    *Indexer
	Admin      *Admin
	Scheduler  *Scheduler
	Stats      *Stats
	Trigger    *Trigger
}

func NewServiceContext(ctx context.Context, c config.Config) *ServiceContext {
	svcCtx := &ServiceContext{
		Config: c,
	}
	err := svcCtx.initStorage(ctx)
	if err != nil {
		logx.Errorf("Failed to initialize storage: %+v", err)
		panic(err)
	}
	svcCtx.Classifier, err = language.NewClassifier(c.LanguageCacheSize, c.LanguageCacheTTL)
	if err != nil {
		logx.Errorf("Failed to initialize language classifier: %+v", err)
		panic(err)
	}
	svcCtx.Indexer = NewIndexer(svcCtx.Source, svcCtx.Cursors, svcCtx.Index, svcCtx.Classifier, Options{
		QuerySize:      c.QuerySize,
		BulkSize:       c.BulkSize,
		BulkBytes:      c.BulkBytes,
		PageInterval:   c.PageInterval,
		RetryInterval:  c.RetryInterval,
		MaxPageRetries: c.MaxPageRetries,
	})
	svcCtx.Admin = NewAdmin(ctx, svcCtx.Indexer, svcCtx.Index)
	svcCtx.Scheduler = NewScheduler(ctx, svcCtx.Indexer, c.SyncInterval, c.SyncOnStart)
	svcCtx.Stats = NewStats(ctx, svcCtx.Indexer, svcCtx.Index, c.StatsInterval)
	if len(c.AMQP) > 0 {
		svcCtx.Trigger, err = NewTrigger(ctx, c.AMQP, c.TriggerTopic, svcCtx.Admin)
		if err != nil {
			logx.Errorf("Failed to initialize sync trigger: %+v", err)
			panic(err)
		}
	}
	return svcCtx
}

func (s *ServiceContext) initStorage(ctx context.Context) error {
	c := s.Config
	db, err := storage.InitDB(c.MySQL, c.DBTimeout)
	if err != nil {
		return errors.Annotatef(err, "init mysql")
	}
	s.Source = storage.NewMySQLSource(db)
	switch c.CursorStore {
	case "mongo":
		err = storage.InitMongo(c.MongoDB, c.Mongo, c.DBTimeout)
		if err != nil {
			return errors.Annotatef(err, "init mongo")
		}
		s.Cursors = storage.NewMongoCursorStore()
	default:
		s.Cursors = storage.NewMySQLCursorStore(db)
	}
	s.Index, err = storage.NewESIndex(c.ElasticSearch, c.Index, c.ESTimeout)
	if err != nil {
		return errors.Annotatef(err, "init elasticsearch")
	}
	return s.Index.EnsureIndex(ctx)
}
