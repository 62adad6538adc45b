package testserver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/wellnest/internal/domain/activity"
	"github.com/rpggio/wellnest/internal/domain/auth"
	"github.com/rpggio/wellnest/internal/domain/autosave"
	"github.com/rpggio/wellnest/internal/domain/record"
	"github.com/rpggio/wellnest/internal/identity"
	"github.com/rpggio/wellnest/internal/mcp"
	"github.com/rpggio/wellnest/internal/notify"
	"github.com/rpggio/wellnest/internal/sqlite"
	"github.com/rpggio/wellnest/internal/transport"
	"github.com/stretchr/testify/require"
)

// Options tunes the stack. Zero values use short test timings.
type Options struct {
	Quiescence time.Duration
	OAuth      *identity.OAuth
}

// TestServer is the full stack over an in-memory database.
type TestServer struct {
	Server    *httptest.Server
	DB        *sqlite.DB
	Identity  *identity.Service
	Session   *auth.Session
	Records   *record.Service
	Feed      *notify.Feed
	Mailer    *identity.LogMailer
	Workspace *mcp.Workspace
	MCP       *sdkmcp.Server
}

func New(t *testing.T, opts Options) *TestServer {
	t.Helper()
	ctx := context.Background()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	mailer := identity.NewLogMailer(nil)
	idp := identity.NewService(
		sqlite.NewUserRepository(db),
		sqlite.NewTokenRepository(db),
		identity.NewTokenIssuer("test-secret", "wellnest", "wellnest"),
		opts.OAuth,
		mailer,
		identity.Config{SiteURL: "http://localhost:8080/"},
		nil,
	)
	prefs := sqlite.NewPreferenceRepository(db)
	feed := notify.NewFeed(0, nil)

	session := auth.NewSession(identity.NewClient(idp, prefs, nil), prefs, feed, nil)
	require.NoError(t, session.Start(ctx))

	records := record.NewService(sqlite.NewRecordRepository(db), sqlite.NewActivityRepository(db), nil)
	activities := activity.NewService(sqlite.NewActivityRepository(db), nil)

	quiescence := opts.Quiescence
	if quiescence == 0 {
		quiescence = 50 * time.Millisecond
	}
	workspace := mcp.NewWorkspace(records, session, feed, autosave.Options{Quiescence: quiescence}, nil)

	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Auth:          session,
			Records:       records,
			Activity:      activities,
			Notifications: feed,
			Workspace:     workspace,
		},
	})
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(func(*http.Request) *sdkmcp.Server { return mcpServer }, nil)

	httpOpts := transport.Options{
		Records:  records,
		Resolver: idp,
		MCP:      mcpHandler,
	}
	if opts.OAuth != nil {
		httpOpts.OAuth = idp
	}
	server := httptest.NewServer(transport.NewServer(httpOpts))

	ts := &TestServer{
		Server:    server,
		DB:        db,
		Identity:  idp,
		Session:   session,
		Records:   records,
		Feed:      feed,
		Mailer:    mailer,
		Workspace: workspace,
		MCP:       mcpServer,
	}

	t.Cleanup(func() {
		server.Close()
		workspace.Close()
		session.Close()
		_ = db.Close()
	})

	return ts
}

// Connect opens an in-memory MCP client session against the server.
func (ts *TestServer) Connect(t *testing.T) *sdkmcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	st, ct := sdkmcp.NewInMemoryTransports()
	ss, err := ts.MCP.Connect(ctx, st, nil)
	require.NoError(t, err)

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = cs.Close()
		_ = ss.Wait()
	})
	return cs
}

// SignUp creates an account and waits until the session reflects it.
func (ts *TestServer) SignUp(t *testing.T, email, password string) string {
	t.Helper()
	require.NoError(t, ts.Session.SignUp(context.Background(), email, password))
	require.Eventually(t, func() bool {
		_, err := ts.Session.CurrentUserID()
		return err == nil
	}, 2*time.Second, 5*time.Millisecond)
	userID, err := ts.Session.CurrentUserID()
	require.NoError(t, err)
	return userID
}
