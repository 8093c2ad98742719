package e2e

import (
	"context"
	"devmatch/auth"
	"devmatch/client"
	"devmatch/ws"
	"fmt"
	"time"

	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"
)

type BaseWsSuite struct {
	suite.Suite
	Config Config
	issuer *auth.TokenIssuer
}

// SetupSuite loads the environment configuration before running tests.
// Without a server to talk to, the suite is skipped.
func (s *BaseWsSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.ServerAddr == "" || s.Config.AuthSecret == "" {
		s.T().Skip("SERVER_ADDR and AUTH_SECRET are required for end-to-end scenarios")
	}
	s.issuer = auth.NewTokenIssuer(s.Config.AuthSecret, time.Hour)
}

// Connect opens a websocket connection for identity, anonymous when empty.
func (s *BaseWsSuite) Connect(name, identity string) *client.Client {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)

	token := ""
	if identity != "" {
		var err error
		token, err = s.issuer.Generate(identity)
		s.Require().NoError(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	c, err := client.Dial(ctx, s.Config.ServerAddr, identity, token)
	s.Require().NoError(err, "Failed to connect to server at "+s.Config.ServerAddr)
	s.T().Cleanup(func() { _ = c.Close() })
	return c
}

// Await waits for an event and logs it when E2E_DEBUG_JSON is enabled.
func (s *BaseWsSuite) Await(c *client.Client, name string) ws.Envelope {
	start := time.Now()
	envelope, err := c.Await(name, 10*time.Second)
	s.Require().NoError(err)
	s.T().Logf("WS %s in %v", name, time.Since(start))
	if s.Config.DebugJSON {
		s.T().Logf("DATA: %s", string(envelope.Data))
	}
	return envelope
}
