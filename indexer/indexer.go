package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"bt-search/indexer/internal/config"
	"bt-search/indexer/internal/svc"

	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/service"
)

var (
	configFile = flag.String("f", "etc/indexer.yaml", "the config file")
	syncMode   = flag.String("sync", "", "run a single sync (10k, 100k or full) and exit")
	publish    = flag.String("trigger", "", "publish a sync request (10k, 100k or full) to running indexers and exit")
)

func main() {
	flag.Parse()

	var c config.Config
	conf.MustLoad(*configFile, &c)
	c.MustSetUp()

	if len(*publish) > 0 {
		err := svc.PublishTrigger(c.AMQP, c.TriggerTopic, *publish)
		if err != nil {
			logx.Errorf("Failed to publish sync trigger: %+v", err)
			os.Exit(1)
		}
		logx.Infof("Published sync trigger %s to %s", *publish, c.TriggerTopic)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	svcCtx := svc.NewServiceContext(ctx, c)

	if len(*syncMode) > 0 {
		code := runOnce(ctx, svcCtx, *syncMode)
		stop()
		os.Exit(code)
	}

	group := service.NewServiceGroup()
	defer group.Stop()

	group.Add(svcCtx.Admin)
	group.Add(svcCtx.Scheduler)
	group.Add(svcCtx.Stats)
	if svcCtx.Trigger != nil {
		group.Add(svcCtx.Trigger)
	}

	logx.Info("Starting indexer...")
	group.Start()
}

func runOnce(ctx context.Context, svcCtx *svc.ServiceContext, mode string) int {
	defer svcCtx.Index.Stop()
	limit, err := svc.ParseSyncMode(mode)
	if err != nil {
		logx.Errorf("Invalid -sync: %v", err)
		return 2
	}
	report, err := svcCtx.Indexer.Run(ctx, limit)
	if err != nil {
		logx.Errorf("Sync failed: %+v", err)
		return 1
	}
	logx.Infof("Synced %d rows, indexed %d, errors %d, cursor %d", report.Processed, report.Indexed, report.Errors, report.LastID)
	return 0
}
