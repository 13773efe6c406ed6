package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/lefinal/memorama/errors"
	"github.com/lefinal/memorama/event"
	"go.uber.org/zap"
	"net/url"
	"sync"
	"time"
)

// DefaultClientID is the MQTT client id if none is configured.
const DefaultClientID = "memorama-server"

const mqttKeepAlive = 8

const mqttQOS = 0

// Topic is an MQTT topic.
type Topic string

// Config is the config for the Base.
type Config struct {
	// MQTTAddr is the address where the MQTT-server is found.
	MQTTAddr string
	// ClientID is the MQTT client id.
	ClientID string
}

// Newsletter is used with Portal.Subscribe in order to subscribe to topics.
type Newsletter[payloadT any] struct {
	unregisterFn func()
	// Receive receives when a new message for the subscribed topic was received.
	// When the Newsletter is unsubscribed, the Receive-channel will be closed.
	Receive <-chan event.Event[payloadT]
}

// Unsubscribe the Newsletter.
func (sub *Newsletter[payload]) Unsubscribe() {
	sub.unregisterFn()
}

// publisher is used for publishing MQTT events.
type publisher interface {
	Publish(ctx context.Context, publish *paho.Publish) (*paho.PublishResponse, error)
}

// mqttBroker manages subscriptions at the MQTT server.
type mqttBroker interface {
	Subscribe(ctx context.Context, s *paho.Subscribe) (*paho.Suback, error)
	Unsubscribe(ctx context.Context, u *paho.Unsubscribe) (*paho.Unsuback, error)
}

// connection is an established MQTT connection.
type connection interface {
	publisher
	mqttBroker
}

// Base is a wrapper for all connection related stuff for a Portal. Using the
// Base, you only need to Open the Base and then use portals via NewPortal.
type Base interface {
	// Open the connection. Stays opened until the given context.Context is done.
	Open(ctx context.Context) error
	// NewPortal creates a new Portal that uses the connection from the Base.
	NewPortal(name string) Portal
}

type basePortal struct {
	logger *zap.Logger
	config Config
	// brokerURL is the URL of the MQTT broker.
	brokerURL *url.URL
	// mqttRouter dispatches received messages to the handlers registered by
	// gateway.
	mqttRouter *paho.StandardRouter
	// gateway is responsible for registering subscription requests as well as
	// multiplexing and forwarding messages.
	gateway *gateway
	// conn is the current connection. It is nil while not connected.
	conn connection
	// connMutex locks conn.
	connMutex sync.RWMutex
}

// Portal allows subscribing to and publishing on topics.
type Portal interface {
	// Subscribe returns a Newsletter for the given Topic.
	Subscribe(ctx context.Context, topic Topic) *Newsletter[any]
	// Publish the given payload to the Topic. It will catch any errors during
	// publishing and log them using the Logger.
	Publish(ctx context.Context, topic Topic, payload interface{})
	// Logger is needed in order to provide error logging for Subscribe as generics
	// are not supported for methods.
	Logger() *zap.Logger
}

// NewBase creates a Base with the given Config. Open it with Base.Open.
// Portals can be created before opening.
func NewBase(logger *zap.Logger, config Config) (Base, error) {
	// Parse URL.
	brokerURL, err := url.Parse(config.MQTTAddr)
	if err != nil {
		return nil, errors.FromErr("invalid mqtt addr", errors.ErrBadRequest, errors.KindInvalidConfig, err,
			errors.Details{"was": config.MQTTAddr})
	}
	if config.ClientID == "" {
		config.ClientID = DefaultClientID
	}
	b := &basePortal{
		logger:     logger,
		config:     config,
		brokerURL:  brokerURL,
		mqttRouter: paho.NewStandardRouter(),
	}
	b.gateway = newGateway(logger.Named("gateway"), b, b.mqttRouter)
	return b, nil
}

// Open the base portal and keep the connection to the MQTT server until the
// given context.Context is done.
func (b *basePortal) Open(ctx context.Context) error {
	// Establish MQTT connection.
	conn, err := autopaho.NewConnection(ctx, b.genClientConfig())
	if err != nil {
		return errors.NewInternalErrorFromErr(err, "create mqtt server connection failed", nil)
	}
	// Wait until we are done.
	<-ctx.Done()
	b.setConn(nil)
	// Shutdown MQTT connection.
	disconnectTimeout, cancelDisconnectTimeout := context.WithTimeout(context.Background(), 3*time.Second)
	err = conn.Disconnect(disconnectTimeout)
	cancelDisconnectTimeout()
	if err != nil {
		return errors.NewInternalErrorFromErr(err, "disconnect from mqtt server failed", nil)
	}
	return nil
}

func (b *basePortal) setConn(conn connection) {
	b.connMutex.Lock()
	defer b.connMutex.Unlock()
	b.conn = conn
}

func (b *basePortal) currentConn() (connection, error) {
	b.connMutex.RLock()
	defer b.connMutex.RUnlock()
	if b.conn == nil {
		return nil, errors.Error{
			Code:    errors.ErrCommunication,
			Message: "not connected to mqtt server",
		}
	}
	return b.conn, nil
}

// Publish using the current connection.
func (b *basePortal) Publish(ctx context.Context, publish *paho.Publish) (*paho.PublishResponse, error) {
	conn, err := b.currentConn()
	if err != nil {
		return nil, err
	}
	return conn.Publish(ctx, publish)
}

// Subscribe using the current connection.
func (b *basePortal) Subscribe(ctx context.Context, s *paho.Subscribe) (*paho.Suback, error) {
	conn, err := b.currentConn()
	if err != nil {
		return nil, err
	}
	return conn.Subscribe(ctx, s)
}

// Unsubscribe using the current connection.
func (b *basePortal) Unsubscribe(ctx context.Context, u *paho.Unsubscribe) (*paho.Unsuback, error) {
	conn, err := b.currentConn()
	if err != nil {
		return nil, err
	}
	return conn.Unsubscribe(ctx, u)
}

// genClientConfig generates the autopaho.ClientConfig that is ready to launch.
func (b *basePortal) genClientConfig() autopaho.ClientConfig {
	return autopaho.ClientConfig{
		BrokerUrls: []*url.URL{b.brokerURL},
		KeepAlive:  mqttKeepAlive,
		OnConnectionUp: func(cm *autopaho.ConnectionManager, _ *paho.Connack) {
			b.logger.Info("mqtt server connection established")
			b.setConn(cm)
			// Subscriptions are lost with a new session.
			go b.gateway.resubscribeAll()
		},
		OnConnectError: func(err error) {
			b.setConn(nil)
			errors.Log(b.logger, errors.Error{
				Code:    errors.ErrCommunication,
				Err:     err,
				Message: "mqtt server connection failed",
			})
		},
		ClientConfig: paho.ClientConfig{
			ClientID: b.config.ClientID,
			Router:   b.mqttRouter,
			OnServerDisconnect: func(disconnect *paho.Disconnect) {
				b.setConn(nil)
				reason := fmt.Sprintf("reason code %d", disconnect.ReasonCode)
				if disconnect.Properties != nil {
					reason = disconnect.Properties.ReasonString
				}
				errors.Log(b.logger, errors.Error{
					Code:    errors.ErrCommunication,
					Message: fmt.Sprintf("mqtt server requested disconnect: %s", reason),
				})
			},
			OnClientError: func(err error) {
				b.setConn(nil)
				errors.Log(b.logger, errors.Error{
					Code:    errors.ErrCommunication,
					Err:     err,
					Message: "mqtt server connection client error",
				})
			},
		},
	}
}

// NewPortal creates a new Portal that can be used to subscribe to topics and
// events.
func (b *basePortal) NewPortal(name string) Portal {
	return &portal{
		logger:    b.logger.Named(name),
		gateway:   b.gateway,
		publisher: b,
	}
}

// Subscribe to the given Portal for the Topic. The returned Newsletter contains
// an already unmarshalled payload. Messages that fail to unmarshal, are
// dropped. However, the error is logged to Portal.Logger.
func Subscribe[payloadT any](ctx context.Context, portal Portal, topic Topic) *Newsletter[payloadT] {
	rawSub := portal.Subscribe(ctx, topic)
	receiveParsed := make(chan event.Event[payloadT])
	go func() {
		defer close(receiveParsed)
		for e := range rawSub.Receive {
			// Parse payload.
			var payload payloadT
			err := json.Unmarshal(e.Publish.Payload, &payload)
			if err != nil {
				errors.Log(portal.Logger(), errors.FromErr("parse payload failed", errors.ErrBadRequest,
					errors.KindDecodeJSON, err, errors.Details{
						"topic":   e.Publish.Topic,
						"payload": string(e.Publish.Payload),
					}))
				continue
			}
			// Forward
			select {
			case <-ctx.Done():
				return
			case receiveParsed <- event.Event[payloadT]{
				Publish: e.Publish,
				Payload: payload,
			}:
			}
		}
	}()
	return &Newsletter[payloadT]{
		unregisterFn: rawSub.unregisterFn,
		Receive:      receiveParsed,
	}
}

// portal provides a higher-level API for Base that makes it easier to conduct
// tests, etc.
type portal struct {
	logger *zap.Logger
	// gateway is used for subscribing to MQTT topics via Subscribe.
	gateway *gateway
	// publisher is used for publishing MQTT messages via Publish.
	publisher publisher
}

// Subscribe for the given Topic using the portal's gateway.
func (p *portal) Subscribe(ctx context.Context, topic Topic) *Newsletter[any] {
	subLifetime, cancelSub := context.WithCancel(ctx)
	forward := p.gateway.subscribe(subLifetime, topic)
	return &Newsletter[any]{
		unregisterFn: cancelSub,
		Receive:      forward,
	}
}

// Publish the given payload to the Topic.
func (p *portal) Publish(ctx context.Context, topic Topic, payload interface{}) {
	// Marshal payload.
	payloadRaw, err := json.Marshal(payload)
	if err != nil {
		errors.Log(p.logger, errors.FromErr("marshal payload for publishing", errors.ErrInternal,
			errors.KindEncodeJSON, err, errors.Details{"topic": topic}))
		return
	}
	// Publish.
	_, err = p.publisher.Publish(ctx, &paho.Publish{
		QoS:     mqttQOS,
		Topic:   string(topic),
		Payload: payloadRaw,
	})
	if err != nil {
		errors.Log(p.logger, errors.Wrap(err, "publish message failed", errors.Details{
			"topic": topic,
		}))
		return
	}
}

// Logger returns the portal's logger which is needed because of missing
// features regarding generics.
func (p *portal) Logger() *zap.Logger {
	return p.logger
}
