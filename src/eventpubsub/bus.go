package eventpubsub

import (
	"github.com/asaskevich/EventBus"
	log "github.com/sirupsen/logrus"
)

const (
	FillTopic      = "FillEvent"
	RiskAlertTopic = "RiskAlertEvent"
	RejectedTopic  = "OrderRejectedEvent"
)

// Bus carries observation-only notifications out of the simulation loop:
// fills, order rejections and risk alerts. Subscribers run synchronously so
// a run stays deterministic.
type Bus struct {
	inner EventBus.Bus
}

func NewBus() *Bus {
	return &Bus{inner: EventBus.New()}
}

func (b *Bus) Publish(topic string, event interface{}) {
	if b == nil {
		return
	}

	b.inner.Publish(topic, event)
}

func (b *Bus) Subscribe(topic string, callbackFn interface{}) error {
	if err := b.inner.Subscribe(topic, callbackFn); err != nil {
		return err
	}

	log.Infof("subscribed to topic %s", topic)
	return nil
}

func (b *Bus) Unsubscribe(topic string, callbackFn interface{}) error {
	return b.inner.Unsubscribe(topic, callbackFn)
}
