package mcp

import (
	"context"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/wellnest/internal/domain/activity"
	"github.com/rpggio/wellnest/internal/domain/auth"
	"github.com/rpggio/wellnest/internal/domain/record"
	"github.com/rpggio/wellnest/internal/notify"
)

// AuthService defines auth session operations needed by MCP.
type AuthService interface {
	IdentitySource
	State() auth.State
	SignUp(ctx context.Context, email, password string) error
	SignIn(ctx context.Context, email, password string, rememberMe bool) error
	SignOut(ctx context.Context) error
	SignInWithExternalProvider(ctx context.Context, provider string) (string, error)
	CompleteExternalSignIn(ctx context.Context, address string) (string, error)
	RequestPasswordReset(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, newPassword string) error
}

// RecordService defines record reads needed by MCP. Writes go through the
// workspace editors.
type RecordService interface {
	ListPublished(ctx context.Context) ([]record.Record, error)
	ListOwned(ctx context.Context, userID string) ([]record.Record, error)
	Get(ctx context.Context, viewerID, id string) (*record.Record, error)
}

// ActivityService defines activity operations needed by MCP.
type ActivityService interface {
	RecordHistory(ctx context.Context, userID, recordID string) ([]activity.ActivityEntry, error)
}

// NotificationFeed is the user-facing notification log.
type NotificationFeed interface {
	Recent(n int) []notify.Notification
	Drain() []notify.Notification
}

// Services contains all domain services needed by MCP.
type Services struct {
	Auth          AuthService
	Records       RecordService
	Activity      ActivityService
	Notifications NotificationFeed
	Workspace     *Workspace
}

// Config contains server configuration.
type Config struct {
	Services Services
	Version  string
	Logger   *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	version := cfg.Version
	if version == "" {
		version = "0.1.0"
	}
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "wellnest",
		Version: version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
	})

	registerDocResources(server)

	server.AddReceivingMiddleware(identityMiddleware(cfg.Services.Auth))
	server.AddReceivingMiddleware(sessionMiddleware())
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, cfg.Services)

	return server
}
