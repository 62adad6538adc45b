package identity_test

import (
	"testing"
	"time"

	"github.com/rpggio/wellnest/internal/identity"
	"github.com/rpggio/wellnest/internal/sqlite"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "test-secret"
	testIssuer   = "wellnest-test"
	testAudience = "wellnest-app"
)

type fixture struct {
	db     *sqlite.DB
	svc    *identity.Service
	mailer *identity.LogMailer
	issuer *identity.TokenIssuer
}

func newFixture(t *testing.T, oauth *identity.OAuth) *fixture {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { db.Close() })

	issuer := identity.NewTokenIssuer(testSecret, testIssuer, testAudience)
	mailer := identity.NewLogMailer(nil)
	svc := identity.NewService(
		sqlite.NewUserRepository(db),
		sqlite.NewTokenRepository(db),
		issuer,
		oauth,
		mailer,
		identity.Config{
			AccessTTL:   time.Hour,
			RefreshTTL:  24 * time.Hour,
			RecoveryTTL: time.Hour,
			SiteURL:     "http://localhost:8080/",
		},
		nil,
	)
	return &fixture{db: db, svc: svc, mailer: mailer, issuer: issuer}
}
