package online

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/fxamacker/cbor/v2"
	"github.com/sirupsen/logrus"

	"github.com/kisumi/kisumi/internal/core"
)

// PresenceMessage is the CBOR payload published for every presence event.
type PresenceMessage struct {
	Event     string `cbor:"event"`
	UserID    uint64 `cbor:"user_id"`
	Name      string `cbor:"name"`
	Variant   string `cbor:"variant,omitempty"`
	Country   string `cbor:"country,omitempty"`
	Timestamp int64  `cbor:"timestamp"`
}

// MQTTPublisher mirrors presence events to an MQTT topic so that other
// services can follow who is online.
type MQTTPublisher struct {
	Logger *logrus.Logger
	Topic  string

	client mqtt.Client
	now    func() time.Time
}

// NewMQTTPublisher connects to the broker named in the config.
func NewMQTTPublisher(cfg *core.Config, logger *logrus.Logger) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.MQTT.Broker)
	opts.SetClientID(cfg.MQTT.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetKeepAlive(60 * time.Second)

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		logger.Info("MQTT connected")
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		logger.Warnf("MQTT connection lost: %v", err)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect failed: %w", token.Error())
	}
	return newMQTTPublisher(client, cfg.MQTT.Topic, logger), nil
}

func newMQTTPublisher(client mqtt.Client, topic string, logger *logrus.Logger) *MQTTPublisher {
	return &MQTTPublisher{Logger: logger, Topic: topic, client: client, now: time.Now}
}

func (p *MQTTPublisher) OnPresence(_ context.Context, ev Event) {
	if !p.client.IsConnected() {
		return
	}

	msg := PresenceMessage{
		Event:     ev.Kind.String(),
		UserID:    ev.User.ID(),
		Name:      ev.User.Name(),
		Timestamp: p.now().Unix(),
	}
	if ev.Session != nil {
		msg.Variant = ev.Session.Variant.String()
		msg.Country = ev.Session.Location.CountryCode
	}

	payload, err := cbor.Marshal(msg)
	if err != nil {
		p.Logger.Warnf("failed to marshal presence message: %v", err)
		return
	}

	token := p.client.Publish(p.Topic, 1, false, payload)
	go func() {
		token.Wait()
		if token.Error() != nil {
			p.Logger.WithFields(logrus.Fields{"topic": p.Topic}).Warnf("MQTT publish failed: %v", token.Error())
		}
	}()
}

func (p *MQTTPublisher) Close() {
	p.client.Disconnect(5000)
}
