package cookies

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

const playwrightExport = `[
  {"name": "c_user", "value": "1000", "domain": ".facebook.com", "path": "/", "expires": 1893456000.5, "httpOnly": false, "secure": true, "sameSite": "None"},
  {"name": "xs", "value": "abc", "domain": ".facebook.com", "path": "/", "expires": -1, "httpOnly": true, "secure": true}
]`

func TestParseArray(t *testing.T) {
	records, err := Parse([]byte(playwrightExport))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "c_user", records[0].Name)
	assert.Equal(t, ".facebook.com", records[0].Domain)
	assert.Equal(t, 1893456000.5, records[0].Expires)
	assert.Equal(t, "None", records[0].SameSite)
	assert.False(t, records[0].Session())

	assert.True(t, records[1].Session())
	assert.True(t, records[1].HTTPOnly)
}

func TestParseAlternateExpiryKeys(t *testing.T) {
	records, err := Parse([]byte(`[
		{"name": "a", "value": "1", "domain": "x", "path": "/", "expiry": 1700000000},
		{"name": "b", "value": "2", "domain": "x", "path": "/", "expirationDate": 1800000000.25}
	]`))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, float64(1700000000), records[0].Expires)
	assert.Equal(t, 1800000000.25, records[1].Expires)
}

func TestParseStorageState(t *testing.T) {
	records, err := Parse([]byte(`{"cookies": ` + playwrightExport + `, "origins": []}`))
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestParseErrors(t *testing.T) {
	records, err := Parse([]byte("   "))
	assert.NoError(t, err)
	assert.Empty(t, records)

	_, err = Parse([]byte("[{"))
	assert.ErrorContains(t, err, "failed to parse cookie list")

	_, err = Parse([]byte(`{"cookies": 3}`))
	assert.ErrorContains(t, err, "failed to parse storage state")
}

func TestExpiry(t *testing.T) {
	now := time.Unix(1750000000, 0)
	records := []Record{
		{Name: "old", Expires: 1600000000},
		{Name: "session", Expires: -1},
		{Name: "fresh", Expires: 1900000000},
	}

	kept := DropExpired(records, now)
	require.Len(t, kept, 2)
	assert.Equal(t, "session", kept[0].Name)
	assert.Equal(t, "fresh", kept[1].Name)

	assert.True(t, records[1].ExpiresAt().IsZero())
	assert.Equal(t, int64(1900000000), records[2].ExpiresAt().Unix())
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facebook_cookies.json")
	require.NoError(t, os.WriteFile(path, []byte(playwrightExport), 0600))

	records, err := FileSource{Path: path}.Load()
	require.NoError(t, err)
	assert.Len(t, records, 2)

	_, err = FileSource{Path: filepath.Join(t.TempDir(), "missing.json")}.Load()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKeyringSource(t *testing.T) {
	keyring.MockInit()

	src := KeyringSource{Account: "marketplace"}
	_, err := src.Load()
	assert.ErrorIs(t, err, ErrNotFound)

	records, err := Parse([]byte(playwrightExport))
	require.NoError(t, err)
	require.NoError(t, src.Save(records))

	loaded, err := src.Load()
	require.NoError(t, err)
	assert.Equal(t, records, loaded)

	require.NoError(t, src.Delete())
	assert.ErrorIs(t, src.Delete(), ErrNotFound)

	_, err = KeyringSource{}.Load()
	assert.Error(t, err)
}

func TestVaultSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cookies.vault")
	records, err := Parse([]byte(playwrightExport))
	require.NoError(t, err)

	v := VaultSource{Path: path, Passphrase: "correct horse"}
	_, err = v.Load()
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, v.Save(records))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "c_user")

	got, err := v.Load()
	require.NoError(t, err)
	assert.Equal(t, records, got)

	_, err = VaultSource{Path: path, Passphrase: "wrong"}.Load()
	assert.Error(t, err)

	_, err = VaultSource{Path: path}.Load()
	assert.ErrorIs(t, err, ErrNoPassphrase)
}
