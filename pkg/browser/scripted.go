package browser

import (
	"context"
	"errors"
	"sync"

	"imgharvest/pkg/cookies"
)

// Script describes what a ScriptedSession renders. Frames[i] is the set of
// image sources visible after i clicks on NextSelector.
type Script struct {
	Frames       [][]string
	NextSelector string
	// Endless keeps the next control visible on the last frame
	Endless bool

	OpenErr     error
	CookieErr   error
	NavigateErr error
	ClickErr    map[string]error
	CollectErr  error
}

// ScriptedLauncher replays a Script instead of driving a real browser
type ScriptedLauncher struct {
	Script Script

	mu       sync.Mutex
	sessions []*ScriptedSession
}

// OpenSession returns a new ScriptedSession or Script.OpenErr
func (l *ScriptedLauncher) OpenSession(ctx context.Context, opts SessionOptions) (Session, error) {
	if l.Script.OpenErr != nil {
		return nil, l.Script.OpenErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := &ScriptedSession{script: l.Script, Options: opts}
	l.mu.Lock()
	l.sessions = append(l.sessions, s)
	l.mu.Unlock()
	return s, nil
}

// Sessions returns every session opened so far
func (l *ScriptedLauncher) Sessions() []*ScriptedSession {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*ScriptedSession(nil), l.sessions...)
}

// ScriptedSession records the calls made against it
type ScriptedSession struct {
	script  Script
	Options SessionOptions

	mu        sync.Mutex
	frame     int
	Cookies   []cookies.Record
	Navigated []string
	Clicks    []string
	Collects  int
	Closed    bool
}

// SetCookies records the seeded cookies unless Script.CookieErr is set
func (s *ScriptedSession) SetCookies(ctx context.Context, records []cookies.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.script.CookieErr != nil {
		return s.script.CookieErr
	}
	s.Cookies = append([]cookies.Record(nil), records...)
	return nil
}

func (s *ScriptedSession) Navigate(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Navigated = append(s.Navigated, url)
	return s.script.NavigateErr
}

func (s *ScriptedSession) Click(ctx context.Context, selector string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Clicks = append(s.Clicks, selector)
	if err := s.script.ClickErr[selector]; err != nil {
		return err
	}
	if selector == s.script.NextSelector {
		if !s.hasNextLocked() {
			return errors.New("next control not present")
		}
		if s.frame < len(s.script.Frames)-1 {
			s.frame++
		}
	}
	return nil
}

func (s *ScriptedSession) Collect(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Collects++
	if s.script.CollectErr != nil {
		return nil, s.script.CollectErr
	}
	if len(s.script.Frames) == 0 {
		return nil, nil
	}
	return append([]string(nil), s.script.Frames[s.frame]...), nil
}

func (s *ScriptedSession) HasNext(ctx context.Context, selector string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if selector != s.script.NextSelector {
		return false, nil
	}
	return s.hasNextLocked(), nil
}

func (s *ScriptedSession) hasNextLocked() bool {
	return s.script.Endless || s.frame < len(s.script.Frames)-1
}

func (s *ScriptedSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}

// NextClicks counts clicks on the next control
func (s *ScriptedSession) NextClicks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.Clicks {
		if c == s.script.NextSelector {
			n++
		}
	}
	return n
}
