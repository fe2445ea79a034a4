// Package browser is the control channel to a live, human-visible Chrome.
//
// The scrape engine never talks CDP directly, it drives these interfaces;
// tests substitute scripted fakes for them.
package browser

import (
	"context"
	"net/http"
)

// Page drives one browser tab.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector, value string) error
	// SelectOption sets the value of a <select> element and fires its
	// change event.
	SelectOption(ctx context.Context, selector, value string) error
	// Visible reports whether the selector matches an element that is
	// currently rendered. A missing element is not an error.
	Visible(ctx context.Context, selector string) (bool, error)
	Text(ctx context.Context, selector string) (string, error)
	Title(ctx context.Context) (string, error)
	// Content returns the full serialized HTML of the page.
	Content(ctx context.Context) (string, error)
	// Location returns the tab's current URL.
	Location(ctx context.Context) (string, error)
	Close(ctx context.Context) error
}

// Browser is an attached browser instance.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	// Pages lists the currently open tabs.
	Pages(ctx context.Context) ([]Page, error)
	// Cookies returns all cookies held by the browser, including the ones
	// minted when a human clears the anti-bot challenge.
	Cookies(ctx context.Context) ([]*http.Cookie, error)
	Close(ctx context.Context) error
}
