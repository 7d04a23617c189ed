package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgharvest/pkg/config"
	"imgharvest/pkg/cookies"
)

func TestCookieParams(t *testing.T) {
	records := []cookies.Record{
		{Name: "c_user", Value: "1", Domain: ".facebook.com", Path: "/", Expires: 1893456000, Secure: true, SameSite: "None"},
		{Name: "xs", Value: "2", Domain: ".facebook.com", Path: "/", Expires: -1, HTTPOnly: true, SameSite: "unspecified"},
		{Name: "", Value: "dropped"},
		{Name: "c_user", Value: "no domain"},
	}

	params := cookieParams(records)
	require.Len(t, params, 2)

	assert.Equal(t, "c_user", params[0].Name)
	require.NotNil(t, params[0].Expires)
	assert.Equal(t, int64(1893456000), time.Time(*params[0].Expires).Unix())
	assert.Equal(t, network.CookieSameSiteNone, params[0].SameSite)
	assert.True(t, params[0].Secure)

	assert.Nil(t, params[1].Expires)
	assert.True(t, params[1].HTTPOnly)
	assert.Empty(t, params[1].SameSite)
}

func TestAllocatorOptions(t *testing.T) {
	base := len(NewChromeLauncher(config.BrowserConfig{}, nil).allocatorOptions())
	withExtras := len(NewChromeLauncher(config.BrowserConfig{UserAgent: "ua", ExecPath: "/usr/bin/chromium"}, nil).allocatorOptions())
	assert.Equal(t, base+2, withExtras)
}

func TestScriptedSessionWalksFrames(t *testing.T) {
	l := &ScriptedLauncher{Script: Script{
		Frames:       [][]string{{"a"}, {"a", "b"}, {"c"}},
		NextSelector: "next",
	}}
	ctx := context.Background()

	sess, err := l.OpenSession(ctx, SessionOptions{ViewportWidth: 1920, ViewportHeight: 1080})
	require.NoError(t, err)

	got, err := sess.Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got)

	for _, want := range [][]string{{"a", "b"}, {"c"}} {
		ok, err := sess.HasNext(ctx, "next")
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, sess.Click(ctx, "next"))
		got, _ = sess.Collect(ctx)
		assert.Equal(t, want, got)
	}

	ok, _ := sess.HasNext(ctx, "next")
	assert.False(t, ok)
	assert.Error(t, sess.Click(ctx, "next"))

	require.NoError(t, sess.Close())
	s := l.Sessions()[0]
	assert.True(t, s.Closed)
	assert.Equal(t, 3, s.NextClicks())
	assert.Equal(t, 1920, s.Options.ViewportWidth)
}

func TestScriptedLauncherErrors(t *testing.T) {
	boom := errors.New("no chrome")
	_, err := (&ScriptedLauncher{Script: Script{OpenErr: boom}}).OpenSession(context.Background(), SessionOptions{})
	assert.ErrorIs(t, err, boom)

	sess, err := (&ScriptedLauncher{Script: Script{ClickErr: map[string]error{"img": boom}}}).OpenSession(context.Background(), SessionOptions{})
	require.NoError(t, err)
	assert.ErrorIs(t, sess.Click(context.Background(), "img"), boom)

	sess, err = (&ScriptedLauncher{Script: Script{CookieErr: boom}}).OpenSession(context.Background(), SessionOptions{})
	require.NoError(t, err)
	assert.ErrorIs(t, sess.SetCookies(context.Background(), []cookies.Record{{Name: "a", Domain: "b"}}), boom)
}
