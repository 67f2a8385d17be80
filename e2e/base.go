// Package e2e drives a real relay server over loopback TCP with real clients.
package e2e

import (
	"chat-relay/client"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/session"
	"chat-relay/sink"
	"context"
	"fmt"
	"net"
	"time"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

const restartInterval = 20 * time.Millisecond

type BaseRelaySuite struct {
	suite.Suite
	Config       Config
	Orchestrator *runtime.Orchestrator
	Address      string
	served       chan error
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseRelaySuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
}

// SetupTest starts a fresh server on an ephemeral loopback port for every test
func (s *BaseRelaySuite) SetupTest() {
	log := logs.GetLoggerFromString(s.Config.LogLevel)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	s.Require().NoError(err)

	s.Orchestrator, err = runtime.NewOrchestrator(log, workers.NewSupervisor(log, restartInterval),
		runtime.Options{Session: session.Config{WriteTimeout: time.Second}})
	s.Require().NoError(err)

	s.Address = listener.Addr().String()
	s.served = make(chan error, 1)
	go func() { s.served <- s.Orchestrator.Serve(context.Background(), listener) }()
}

func (s *BaseRelaySuite) TearDownTest() {
	s.Orchestrator.Stop()
	select {
	case err := <-s.served:
		s.NoError(err)
	case <-time.After(s.Config.ReceiveTimeout):
		s.Fail("server did not stop in time")
	}
}

// Step prints a colorized header for a scenario step in logs
func (s *BaseRelaySuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// Sessions counts the connected clients, the log sink excluded.
func (s *BaseRelaySuite) Sessions() int {
	return len(lo.Without(s.Orchestrator.Room().Members(), sink.LogSinkID))
}

// Connect dials count clients and waits until all of them joined the room,
// so nothing sent afterwards can be missed.
func (s *BaseRelaySuite) Connect(count int) []*client.Client {
	expected := s.Sessions() + count
	clients := make([]*client.Client, 0, count)
	for i := 0; i < count; i++ {
		c, err := client.Dial(context.Background(), s.Address, logs.GetLoggerFromString(s.Config.LogLevel))
		s.Require().NoError(err, "Failed to connect to relay at "+s.Address)
		s.T().Cleanup(func() { _ = c.Close() })
		clients = append(clients, c)
	}
	s.Require().Eventually(func() bool { return s.Sessions() == expected },
		s.Config.ReceiveTimeout, 5*time.Millisecond)
	return clients
}

// RequireReceived asserts the next body received by c.
func (s *BaseRelaySuite) RequireReceived(c *client.Client, expected string) {
	body, err := c.Receive(s.Config.ReceiveTimeout)
	s.Require().NoError(err)
	s.Require().Equal(expected, string(body))
}

// RequireSilent asserts c receives nothing for the silence timeout.
func (s *BaseRelaySuite) RequireSilent(c *client.Client) {
	_, err := c.Receive(s.Config.SilenceTimeout)
	s.Require().Error(err)
	var netErr net.Error
	s.Require().ErrorAs(err, &netErr)
	s.Require().True(netErr.Timeout(), "expected a timeout, got %v", err)
}
