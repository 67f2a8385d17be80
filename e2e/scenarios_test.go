package e2e

import (
	"chat-relay/domain"
	errs "chat-relay/errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

type testBroadcastSuite struct {
	BaseRelaySuite
}

func TestBroadcastSuite(t *testing.T) {
	suite.Run(t, &testBroadcastSuite{})
}

func (s *testBroadcastSuite) TestSenderIsExcluded() {
	s.Step("Connect A and B")
	clients := s.Connect(2)
	a, b := clients[0], clients[1]

	s.Step("A sends hello")
	s.Require().NoError(a.Send("hello\n"))

	s.Step("B receives hello, A receives nothing")
	s.RequireReceived(b, "hello")
	s.RequireSilent(a)
}

func (s *testBroadcastSuite) TestEveryOtherClientReceivesOnce() {
	s.Step("Connect A, B and C")
	clients := s.Connect(3)
	a, b, c := clients[0], clients[1], clients[2]

	s.Step("C sends hi")
	s.Require().NoError(c.Send("hi\n"))

	s.Step("A and B each receive exactly one message")
	s.RequireReceived(a, "hi")
	s.RequireReceived(b, "hi")
	s.RequireSilent(a)
	s.RequireSilent(b)
	s.RequireSilent(c)
}

func (s *testBroadcastSuite) TestOversizedHeaderIsNeverForwarded() {
	clients := s.Connect(2)

	s.Step("Decode a frame announcing 600 bytes")
	frame := domain.NewFrame([]byte("0600" + strings.Repeat("x", 600)))
	_, err := frame.Decode()
	s.Require().ErrorIs(err, errs.ErrHeaderTooLarge)
	body, err := frame.Body()
	s.Require().Error(err)
	s.Require().Nil(body)

	s.Step("Nothing is forwarded")
	s.Require().Zero(s.Orchestrator.Room().Deliver(nil, frame))
	for _, c := range clients {
		s.RequireSilent(c)
	}
}

func (s *testBroadcastSuite) TestAbruptDisconnectIsRemoved() {
	s.Step("Connect A, B and C")
	clients := s.Connect(3)
	a, b, c := clients[0], clients[1], clients[2]

	s.Step("A closes its socket")
	s.Require().NoError(a.Close())
	s.Require().Eventually(func() bool { return s.Sessions() == 2 },
		s.Config.ReceiveTimeout, s.Config.SilenceTimeout/10)

	s.Step("B sends, only C is reached")
	s.Require().NoError(b.Send("still here\n"))
	s.RequireReceived(c, "still here")
	s.RequireSilent(b)
}

func (s *testBroadcastSuite) TestLongLineIsTruncated() {
	clients := s.Connect(2)
	line := strings.Repeat("a", domain.MaxBodyLength) + strings.Repeat("b", 100)

	s.Require().NoError(clients[0].Send(line))

	s.RequireReceived(clients[1], line[:domain.MaxBodyLength])
}

func (s *testBroadcastSuite) TestPerSenderOrder() {
	clients := s.Connect(2)
	const count = 50
	for i := 0; i < count; i++ {
		s.Require().NoError(clients[0].Send(strings.Repeat("m", i)))
	}
	for i := 0; i < count; i++ {
		s.RequireReceived(clients[1], strings.Repeat("m", i))
	}
}
