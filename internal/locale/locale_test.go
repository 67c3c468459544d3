package locale

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsa09-nsa09/splitup-frontend/internal/domain"
)

func TestResolve(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "ru"},
		{"kk-KZ", "kk"},
		{"KK", "kk"},
		{"en-US", "ru"},
		{"en-US,hy;q=0.8", "hy"},
		{"ky", "ky"},
		{"!!not a tag", "ru"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, Resolve(tc.in))
		})
	}
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported(" TG "))
	assert.False(t, IsSupported("en"))
}

func TestPreferencesDefaultWhenMissing(t *testing.T) {
	p := NewPreferences(filepath.Join(t.TempDir(), "locale.json"))
	require.NoError(t, p.Load())
	assert.Equal(t, Default, p.Locale())
}

func TestPreferencesPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs", "locale.json")
	p := NewPreferences(path)
	require.NoError(t, p.Set("UZ"))
	assert.Equal(t, "uz", p.Locale())

	reloaded := NewPreferences(path)
	require.NoError(t, reloaded.Load())
	assert.Equal(t, "uz", reloaded.Locale())
}

func TestPreferencesRejectUnsupported(t *testing.T) {
	p := NewPreferences(filepath.Join(t.TempDir(), "locale.json"))
	err := p.Set("fr")
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.Equal(t, Default, p.Locale())
}

func TestPreferencesIgnoreUnknownStoredValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locale.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"locale":"de"}`), 0o600))

	p := NewPreferences(path)
	require.NoError(t, p.Load())
	assert.Equal(t, Default, p.Locale())
}
