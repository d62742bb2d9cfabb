package browser

import (
	"time"

	"github.com/okian/sofascout/pkg/logger"
)

// Options configure a Session.
type Options struct {
	Headless  bool
	Bin       string
	UserAgent string
	// APIRoot selects which responses are published.
	APIRoot string
	// Home is loaded once after the page opens so in-page fetches run on
	// the site's origin. Empty skips it.
	Home string

	NavigationTimeout time.Duration
	TabTimeout        time.Duration
	// FetchRate bounds in-page fetches per second; <= 0 disables the limit.
	FetchRate float64

	Logger logger.Logger
}

func (o *Options) defaults() {
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = 30 * time.Second
	}
	if o.TabTimeout <= 0 {
		o.TabTimeout = 3 * time.Second
	}
	if o.Logger == nil {
		o.Logger = logger.Get().Named("browser")
	}
}

const (
	viewportWidth  = 1440
	viewportHeight = 900
)
