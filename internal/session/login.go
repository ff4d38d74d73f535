// Package session captures a Tistory login from a real browser window.
// Tistory has no public posting API, so the user logs in interactively and
// the session cookies drive the manage API afterwards.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/tkman/postpilot/internal/blog"
)

const (
	loginURL = "https://www.tistory.com/auth/login"

	// authCookieName marks a completed Kakao/Tistory login.
	authCookieName = "TSSESSION"

	pollInterval = 2 * time.Second
)

// Options configures a login capture.
type Options struct {
	// Timeout bounds the whole interactive login. Default 5 minutes.
	Timeout time.Duration

	// Confirm, when non-nil, lets the caller force an immediate cookie
	// check, for users who finished logging in but whose auth cookie the
	// poll has not picked up yet. A receive with no auth cookie present
	// fails the capture.
	Confirm <-chan struct{}
}

// CaptureLogin opens a visible browser window on the Tistory login page,
// waits for the user to finish logging in, and returns the captured
// tistory cookies. Login completion is detected by polling for the auth
// cookie.
func CaptureLogin(ctx context.Context, opts Options) ([]blog.Cookie, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	l := launcher.New().
		Headless(false).
		Set("disable-blink-features", "AutomationControlled")
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}
	defer l.Cleanup()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}
	defer browser.Close()

	page, err := stealth.Page(browser)
	if err != nil {
		return nil, fmt.Errorf("opening page: %w", err)
	}
	if err := page.Navigate(loginURL); err != nil {
		return nil, fmt.Errorf("opening login page: %w", err)
	}

	slog.Info("waiting for login in the browser window", "timeout", timeout)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		confirmed := false
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("login not completed: %w", ctx.Err())
		case <-opts.Confirm:
			confirmed = true
		case <-ticker.C:
		}

		raw, err := browser.GetCookies()
		if err != nil {
			slog.Warn("reading browser cookies failed", "error", err)
			continue
		}

		cookies := tistoryCookies(raw)
		if hasAuthCookie(cookies) {
			slog.Info("login detected", "cookies", len(cookies))
			return cookies, nil
		}
		if confirmed {
			return nil, fmt.Errorf("auth cookie %s not found, login did not complete", authCookieName)
		}
	}
}

// tistoryCookies converts and filters browser cookies down to the tistory
// domains the manage API needs.
func tistoryCookies(raw []*proto.NetworkCookie) []blog.Cookie {
	var out []blog.Cookie
	for _, c := range raw {
		if !strings.Contains(c.Domain, "tistory") {
			continue
		}
		out = append(out, blog.Cookie{Name: c.Name, Value: c.Value, Domain: c.Domain})
	}
	return out
}

func hasAuthCookie(cookies []blog.Cookie) bool {
	for _, c := range cookies {
		if c.Name == authCookieName && c.Value != "" {
			return true
		}
	}
	return false
}
