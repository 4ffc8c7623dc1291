package svc

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v2/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/juju/errors"
	"github.com/zeromicro/go-zero/core/logx"
)

const (
	handlerNameSyncTrigger = "sync_trigger"
)

// Trigger starts syncs on request of messages published to the trigger topic, e.g. by
// the crawler after it stored new torrents. The payload selects the sync mode.
type Trigger struct {
	ctx    context.Context
	admin  *Admin
	router *message.Router
}

func NewTrigger(ctx context.Context, amqpURI, topic string, admin *Admin) (*Trigger, error) {
	amqpConfig := amqp.NewDurablePubSubConfig(amqpURI, amqp.GenerateQueueNameConstant(handlerNameSyncTrigger))
	amqpConfig.Consume.Qos.PrefetchCount = 1
	subscriber, err := amqp.NewSubscriber(amqpConfig, watermill.NewStdLogger(false, false))
	if err != nil {
		return nil, errors.Trace(err)
	}
	router, err := message.NewRouter(message.RouterConfig{}, watermill.NewStdLogger(false, false))
	if err != nil {
		return nil, errors.Trace(err)
	}
	ret := &Trigger{
		ctx:    ctx,
		admin:  admin,
		router: router,
	}
	router.AddNoPublisherHandler(handlerNameSyncTrigger, topic, subscriber, ret.consume)
	return ret, nil
}

func (t *Trigger) consume(msg *message.Message) error {
	return t.handle(string(msg.Payload))
}

func (t *Trigger) handle(payload string) error {
	limit, err := ParseSyncMode(payload)
	if err != nil {
		// malformed requests are acked and dropped
		logx.Errorf("Ignored sync trigger: %v", err)
		return nil
	}
	t.admin.Trigger(limit)
	return nil
}

// PublishTrigger asks the indexers consuming topic to start a sync in the given mode.
func PublishTrigger(amqpURI, topic, mode string) error {
	_, err := ParseSyncMode(mode)
	if err != nil {
		return err
	}
	amqpConfig := amqp.NewDurablePubSubConfig(amqpURI, amqp.GenerateQueueNameConstant(handlerNameSyncTrigger))
	publisher, err := amqp.NewPublisher(amqpConfig, watermill.NewStdLogger(false, false))
	if err != nil {
		return errors.Trace(err)
	}
	defer publisher.Close()
	err = publisher.Publish(topic, message.NewMessage(watermill.NewUUID(), []byte(mode)))
	if err != nil {
		return errors.Trace(err)
	}
	return nil
}

func (t *Trigger) Start() {
	err := t.router.Run(t.ctx)
	if err != nil {
		logx.Errorf("Router error: %+v", err)
	}
}

func (t *Trigger) Stop() {
	t.router.Close()
}
