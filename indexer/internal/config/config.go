package config

import (
	"time"

	"github.com/zeromicro/go-zero/core/proc"
	"github.com/zeromicro/go-zero/core/service"
)

type Config struct {
	service.ServiceConf
	MySQL         string
	Mongo         string `json:",optional"`
	MongoDB       string `json:",default=bt_search"`
	ElasticSearch string
	Index         string `json:",default=torrents"`
	CursorStore   string `json:",default=mysql,options=mysql|mongo"`
	AMQP          string `json:",optional"`
	TriggerTopic  string `json:",default=torrent_new"`

	QuerySize      int           `json:",default=1000"`
	BulkSize       int           `json:",default=500"`
	BulkBytes      int           `json:",default=52428800"`
	PageInterval   time.Duration `json:",default=1s"`
	RetryInterval  time.Duration `json:",default=5s"`
	MaxPageRetries int           `json:",default=0"`
	SyncInterval   time.Duration `json:",default=1m"`
	SyncOnStart    bool          `json:",default=true"`
	StatsInterval  time.Duration `json:",default=30s"`

	DBTimeout time.Duration `json:",default=30s"`
	ESTimeout time.Duration `json:",default=60s"`

	LanguageCacheSize int           `json:",default=10000"`
	LanguageCacheTTL  time.Duration `json:",default=24h"`

	ForceQuitSeconds int `json:",default=20"`
}

func (c *Config) MustSetUp() {
	c.ServiceConf.MustSetUp()
	proc.SetTimeToForceQuit(time.Duration(c.ForceQuitSeconds) * time.Second)
}
