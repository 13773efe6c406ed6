package portal

import (
	"context"
	"github.com/eclipse/paho.golang/paho"
	"github.com/lefinal/memorama/errors"
	"github.com/lefinal/memorama/event"
	"go.uber.org/zap"
	"sync"
	"time"
)

// brokerRequestTimeout is the timeout for subscribing and unsubscribing at the
// MQTT server.
const brokerRequestTimeout = 3 * time.Second

// mqttInboundRouter abstracts paho.Router with only stuff that is needed for
// gateway.
type mqttInboundRouter interface {
	RegisterHandler(topic string, handler paho.MessageHandler)
	UnregisterHandler(topic string)
}

// subscription is a container for the lifetime context.Context and the channel
// to forward the received paho.Publish message to.
type subscription struct {
	lifetime context.Context
	forward  chan event.Event[any]
}

// registeredHandler is a container for subscriptions to serve.
type registeredHandler struct {
	// subscriptions contains all active subscriptions that are served by the
	// handler.
	subscriptions map[*subscription]struct{}
	// subscriptionsMutex locks subscriptions. It is held while forwarding so
	// that forward channels are not closed in the meantime.
	subscriptionsMutex sync.RWMutex
}

// Handler returns a paho.MessageHandler that forwards to all subscriptions for
// the handler.
func (handler *registeredHandler) Handler() paho.MessageHandler {
	return func(publish *paho.Publish) {
		// Forward to all listeners.
		var allForwarded sync.WaitGroup
		handler.subscriptionsMutex.RLock()
		defer handler.subscriptionsMutex.RUnlock()
		for sub := range handler.subscriptions {
			allForwarded.Add(1)
			go func(sub *subscription) {
				defer allForwarded.Done()
				select {
				case <-sub.lifetime.Done():
				case sub.forward <- event.Event[any]{Publish: publish}:
				}
			}(sub)
		}
		allForwarded.Wait()
	}
}

// gateway is used for multiplexing MQTT subscriptions and forwarding received
// messages according to them. Topics are subscribed at the MQTT server as long
// as at least one subscription exists.
type gateway struct {
	logger *zap.Logger
	// broker is used for subscribing at the MQTT server.
	broker mqttBroker
	// inbound is the actual router that performs the matching.
	inbound mqttInboundRouter
	// registeredHandlers holds all handlers by subscribed topics.
	registeredHandlers map[Topic]*registeredHandler
	// registeredHandlersMutex locks registeredHandlers.
	registeredHandlersMutex sync.Mutex
}

func newGateway(logger *zap.Logger, broker mqttBroker, inbound mqttInboundRouter) *gateway {
	return &gateway{
		logger:             logger,
		broker:             broker,
		inbound:            inbound,
		registeredHandlers: make(map[Topic]*registeredHandler),
	}
}

// subscribe for the given Topic and forward messages to the returned channel
// until the context.Context is done. The channel is closed afterwards.
func (g *gateway) subscribe(lifetime context.Context, topic Topic) <-chan event.Event[any] {
	g.registeredHandlersMutex.Lock()
	defer g.registeredHandlersMutex.Unlock()
	// Check if already existing.
	handlerRef, ok := g.registeredHandlers[topic]
	if !ok {
		handlerRef = &registeredHandler{subscriptions: make(map[*subscription]struct{})}
		g.registeredHandlers[topic] = handlerRef
		g.inbound.RegisterHandler(string(topic), handlerRef.Handler())
		g.subscribeAtBroker(topic)
	}
	// Add subscription.
	sub := &subscription{
		lifetime: lifetime,
		forward:  make(chan event.Event[any]),
	}
	handlerRef.subscriptionsMutex.Lock()
	handlerRef.subscriptions[sub] = struct{}{}
	handlerRef.subscriptionsMutex.Unlock()
	// Unsubscribe when lifetime done.
	go func() {
		<-lifetime.Done()
		g.unsubscribe(topic, sub)
	}()
	return sub.forward
}

// subscribeAtBroker subscribes the given Topic at the MQTT server. Failures are
// logged as the subscription is renewed with the next connection.
func (g *gateway) subscribeAtBroker(topic Topic) {
	ctx, cancel := context.WithTimeout(context.Background(), brokerRequestTimeout)
	defer cancel()
	_, err := g.broker.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: map[string]paho.SubscribeOptions{
			string(topic): {QoS: mqttQOS},
		},
	})
	if err != nil {
		errors.Log(g.logger, errors.Wrap(err, "subscribe at mqtt server", errors.Details{"topic": topic}))
		return
	}
	g.logger.Debug("subscribed to topic", zap.Any("topic", topic))
}

// unsubscribe the given subscription for the Topic. Only gateway should call
// this!
func (g *gateway) unsubscribe(topic Topic, sub *subscription) {
	g.registeredHandlersMutex.Lock()
	defer g.registeredHandlersMutex.Unlock()
	// Get handler.
	handler, ok := g.registeredHandlers[topic]
	if !ok {
		errors.Log(g.logger, errors.NewInternalError("unsubscribe called for unknown registered handler",
			errors.Details{"topic": topic}))
		return
	}
	// Remove subscription.
	handler.subscriptionsMutex.Lock()
	if _, ok := handler.subscriptions[sub]; !ok {
		handler.subscriptionsMutex.Unlock()
		errors.Log(g.logger, errors.NewInternalError("unsubscribe with unknown subscription for handler",
			errors.Details{"topic": topic}))
		return
	}
	delete(handler.subscriptions, sub)
	close(sub.forward)
	remaining := len(handler.subscriptions)
	handler.subscriptionsMutex.Unlock()
	// Check if subscriptions left as then we do not need to unregister the handler.
	if remaining > 0 {
		return
	}
	// Unregister handler.
	delete(g.registeredHandlers, topic)
	g.inbound.UnregisterHandler(string(topic))
	ctx, cancel := context.WithTimeout(context.Background(), brokerRequestTimeout)
	defer cancel()
	_, err := g.broker.Unsubscribe(ctx, &paho.Unsubscribe{Topics: []string{string(topic)}})
	if err != nil {
		errors.Log(g.logger, errors.Wrap(err, "unsubscribe at mqtt server", errors.Details{"topic": topic}))
		return
	}
	g.logger.Debug("unsubscribed from topic", zap.Any("topic", topic))
}

// resubscribeAll subscribes all topics with active subscriptions at the MQTT
// server again.
func (g *gateway) resubscribeAll() {
	g.registeredHandlersMutex.Lock()
	defer g.registeredHandlersMutex.Unlock()
	for topic := range g.registeredHandlers {
		g.subscribeAtBroker(topic)
	}
}
