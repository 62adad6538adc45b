package auth_test

import (
	"testing"

	"github.com/rpggio/wellnest/internal/domain/auth"
	"github.com/stretchr/testify/require"
)

func TestExtractTokens(t *testing.T) {
	tests := []struct {
		name    string
		address string
		found   bool
		cleaned string
		access  string
		typ     string
		wantErr bool
	}{
		{
			name:    "fragment tokens",
			address: "https://app.example.com/#access_token=a1&refresh_token=r1&expires_in=3600&token_type=bearer",
			found:   true,
			cleaned: "https://app.example.com/",
			access:  "a1",
		},
		{
			name:    "query tokens keep other params",
			address: "https://app.example.com/reset-password?lang=en&access_token=a2&type=recovery",
			found:   true,
			cleaned: "https://app.example.com/reset-password?lang=en",
			access:  "a2",
			typ:     "recovery",
		},
		{
			name:    "no tokens",
			address: "https://app.example.com/editor/42?x=1",
			found:   false,
			cleaned: "https://app.example.com/editor/42?x=1",
		},
		{
			name:    "query tokens keep route fragment",
			address: "https://app.example.com/reset-password?access_token=a3&type=recovery#/dashboard",
			found:   true,
			cleaned: "https://app.example.com/reset-password#/dashboard",
			access:  "a3",
			typ:     "recovery",
		},
		{
			name:    "query tokens keep unparsable fragment",
			address: "https://app.example.com/?access_token=a4#notes;2",
			found:   true,
			cleaned: "https://app.example.com/#notes;2",
			access:  "a4",
		},
		{
			name:    "route fragment without tokens",
			address: "https://app.example.com/#/dashboard",
			found:   false,
			cleaned: "https://app.example.com/#/dashboard",
		},
		{
			name:    "provider error",
			address: "https://app.example.com/#error=access_denied&error_description=User+cancelled",
			found:   true,
			cleaned: "https://app.example.com/",
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tokens, cleaned, found, err := auth.ExtractTokens(tc.address)
			require.Equal(t, tc.found, found)
			require.Equal(t, tc.cleaned, cleaned)
			if tc.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), "User cancelled")
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.access, tokens.AccessToken)
			require.Equal(t, tc.typ, tokens.Type)
		})
	}
}

func TestExtractTokens_ExpiresIn(t *testing.T) {
	tokens, _, found, err := auth.ExtractTokens("http://localhost/#access_token=x&expires_in=120")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 120, tokens.ExpiresIn)
}
