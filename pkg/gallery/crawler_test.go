package gallery

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgharvest/pkg/browser"
	"imgharvest/pkg/cookies"
	errs "imgharvest/pkg/errors"
	"imgharvest/pkg/logger"
)

const next = "next"

func testOptions(tl *logger.TestLogger) Options {
	opts := DefaultOptions()
	opts.NextSelector = next
	opts.SettleDelay = 0
	opts.StepDelay = 0
	if tl != nil {
		opts.Logger = tl
	}
	return opts
}

var seed = []cookies.Record{{Name: "c_user", Value: "1", Domain: ".facebook.com", Path: "/"}}

func cdn(i int) string {
	return fmt.Sprintf("https://scontent.xx.fbcdn.net/v/%d.jpg", i)
}

func TestCrawlCollectsAcrossFrames(t *testing.T) {
	l := &browser.ScriptedLauncher{Script: browser.Script{
		NextSelector: next,
		Frames: [][]string{
			{cdn(1), "https://static.xx.fbcdn.net/rsrc/logo.png"},
			{cdn(1), cdn(2)},
			{cdn(3)},
		},
	}}

	got, err := New(l, testOptions(nil)).Crawl(context.Background(), "https://www.facebook.com/marketplace/item/1", seed)

	require.NoError(t, err)
	assert.Equal(t, []string{cdn(1), cdn(2), cdn(3)}, got)

	s := l.Sessions()[0]
	assert.True(t, s.Closed)
	assert.Equal(t, []string{"https://www.facebook.com/marketplace/item/1"}, s.Navigated)
	assert.Equal(t, "img", s.Clicks[0], "gallery opened by clicking the first photo")
	assert.Equal(t, seed, s.Cookies)
	assert.Equal(t, 1920, s.Options.ViewportWidth)
	assert.Equal(t, 1080, s.Options.ViewportHeight)
}

func TestCrawlWithoutNextControl(t *testing.T) {
	l := &browser.ScriptedLauncher{Script: browser.Script{
		NextSelector: next,
		Frames:       [][]string{{cdn(1), cdn(2)}},
	}}

	got, err := New(l, testOptions(nil)).Crawl(context.Background(), "https://www.facebook.com/item", seed)

	require.NoError(t, err)
	assert.Equal(t, []string{cdn(1), cdn(2)}, got)
	assert.Zero(t, l.Sessions()[0].NextClicks())
}

func TestCrawlStopsAfterStableIterations(t *testing.T) {
	l := &browser.ScriptedLauncher{Script: browser.Script{
		NextSelector: next,
		Frames:       [][]string{{cdn(1)}},
		Endless:      true,
	}}
	opts := testOptions(nil)
	opts.MaxAttempts = 4

	got, err := New(l, opts).Crawl(context.Background(), "https://www.facebook.com/item", seed)

	require.NoError(t, err)
	assert.Equal(t, []string{cdn(1)}, got)
	s := l.Sessions()[0]
	// one productive iteration, then four without growth
	assert.Equal(t, 5, s.Collects)
	assert.Equal(t, 4, s.NextClicks())
}

func TestCrawlResetsStableCountOnGrowth(t *testing.T) {
	frames := [][]string{{cdn(0)}, {cdn(0)}, {cdn(0)}, {cdn(1)}, {cdn(1)}, {cdn(1)}}
	l := &browser.ScriptedLauncher{Script: browser.Script{NextSelector: next, Frames: frames, Endless: true}}
	opts := testOptions(nil)
	opts.MaxAttempts = 3

	got, err := New(l, opts).Crawl(context.Background(), "https://www.facebook.com/item", seed)

	require.NoError(t, err)
	assert.Equal(t, []string{cdn(0), cdn(1)}, got)
	// growth at iterations 1 and 4, then three stable iterations
	assert.Equal(t, 7, l.Sessions()[0].Collects)
}

func TestCrawlRespectsStepBudget(t *testing.T) {
	var frames [][]string
	for i := 0; i < 100; i++ {
		frames = append(frames, []string{cdn(i)})
	}
	l := &browser.ScriptedLauncher{Script: browser.Script{NextSelector: next, Frames: frames}}
	opts := testOptions(nil)
	opts.MaxSteps = 5

	got, err := New(l, opts).Crawl(context.Background(), "https://www.facebook.com/item", seed)

	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestCrawlToleratesAutomationFailures(t *testing.T) {
	tl := logger.NewTestLogger()
	l := &browser.ScriptedLauncher{Script: browser.Script{
		NextSelector: next,
		Frames:       [][]string{{cdn(1)}, {cdn(2)}},
		NavigateErr:  errs.Automation(context.DeadlineExceeded, "navigate"),
		ClickErr: map[string]error{
			"img": errors.New("no photo to click"),
			next:  errors.New("detached node"),
		},
	}}

	got, err := New(l, testOptions(tl)).Crawl(context.Background(), "https://www.facebook.com/item", seed)

	require.NoError(t, err)
	assert.Equal(t, []string{cdn(1)}, got)
	assert.True(t, tl.HasMessage("navigation incomplete, continuing with rendered page"))
	assert.True(t, l.Sessions()[0].Closed)
}

func TestCrawlSessionFailureIsResourceError(t *testing.T) {
	l := &browser.ScriptedLauncher{Script: browser.Script{OpenErr: errors.New("chrome not found")}}

	got, err := New(l, testOptions(nil)).Crawl(context.Background(), "https://www.facebook.com/item", seed)

	assert.Nil(t, got)
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeResource, errs.TypeOf(err))
}

func TestCrawlWithoutCookiesIsDegraded(t *testing.T) {
	tl := logger.NewTestLogger()
	l := &browser.ScriptedLauncher{Script: browser.Script{NextSelector: next, Frames: [][]string{{cdn(1)}}}}

	got, err := New(l, testOptions(tl)).Crawl(context.Background(), "https://www.facebook.com/item", nil)

	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Len(t, tl.GetMessagesByLevel("WARN"), 1)
}

func TestCrawlCancelledContext(t *testing.T) {
	l := &browser.ScriptedLauncher{Script: browser.Script{NextSelector: next, Frames: [][]string{{cdn(1)}}, Endless: true}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(l, testOptions(nil)).Crawl(ctx, "https://www.facebook.com/item", seed)
	assert.Equal(t, errs.ErrorTypeResource, errs.TypeOf(err))
}

func TestCrawlContinuesWhenCookiesRejected(t *testing.T) {
	l := &browser.ScriptedLauncher{Script: browser.Script{
		NextSelector: next,
		Frames:       [][]string{{cdn(1)}, {cdn(2)}},
		CookieErr:    errs.Automation(errors.New("Invalid cookie fields"), "set cookies"),
	}}
	tl := logger.NewTestLogger()

	got, err := New(l, testOptions(tl)).Crawl(context.Background(), "https://www.facebook.com/item", seed)

	require.NoError(t, err)
	assert.Equal(t, []string{cdn(1), cdn(2)}, got)
	assert.True(t, tl.HasMessage("session cookies rejected, continuing without them"))
	assert.Empty(t, l.Sessions()[0].Cookies)
}
