package kiosk

import (
	"context"
	"encoding/json"
	"github.com/gorilla/websocket"
	"github.com/lefinal/memorama/games"
	"github.com/lefinal/memorama/registration"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// hubSuite tests Hub with real websocket connections.
type hubSuite struct {
	suite.Suite
	ctx    context.Context
	cancel context.CancelFunc
	events *games.EventStoreMock
	hub    *Hub
	server *httptest.Server
}

func (suite *hubSuite) SetupTest() {
	suite.ctx, suite.cancel = context.WithTimeout(context.Background(), timeout)
	suite.events = &games.EventStoreMock{}
	rng, err := games.NewRand()
	suite.Require().NoError(err)
	suite.hub = NewHub(zap.New(zapcore.NewNopCore()), testConfig(), Deps{
		Events:      suite.events,
		Scores:      &games.ScoreStoreMock{},
		Players:     &registration.PlayerStoreMock{},
		DeckBuilder: games.NewDeckBuilder(rng),
	})
	suite.server = httptest.NewServer(suite.hub.HandleWS(suite.ctx))
}

func (suite *hubSuite) TearDownTest() {
	suite.cancel()
	suite.server.Close()
	suite.hub.Wait()
}

func (suite *hubSuite) dial() *websocket.Conn {
	url := "ws" + strings.TrimPrefix(suite.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.DialContext(suite.ctx, url, nil)
	suite.Require().NoError(err, "dial should not fail")
	return conn
}

func (suite *hubSuite) TestListEvents() {
	suite.events.On("ActiveEvents", mock.Anything).Return([]games.Event{testEvent(2)}, nil)
	conn := suite.dial()
	defer func() { _ = conn.Close() }()
	suite.Require().NoError(conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"list-events"}`)))
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	for {
		_, raw, err := conn.ReadMessage()
		suite.Require().NoError(err, "read should not fail")
		var message Message
		suite.Require().NoError(json.Unmarshal(raw, &message))
		if message.MessageType != MessageTypeEvents {
			continue
		}
		var events []MessageEvent
		suite.Require().NoError(json.Unmarshal(message.Payload, &events))
		suite.Len(events, 1, "should list events")
		return
	}
}

func (suite *hubSuite) TestStats() {
	conn := suite.dial()
	suite.Eventually(func() bool {
		return suite.hub.Stats().Kiosks == 1
	}, timeout, 10*time.Millisecond, "should register kiosk")
	suite.Equal(0, suite.hub.Stats().Sessions, "should have no sessions")
	_ = conn.Close()
	suite.Eventually(func() bool {
		return suite.hub.Stats().Kiosks == 0
	}, timeout, 10*time.Millisecond, "should unregister kiosk")
}

func TestHub(t *testing.T) {
	suite.Run(t, new(hubSuite))
}
