// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"sync"
	"time"
)

// BodyReader produces a response body. Implementations may fail, for example
// when the browser has already evicted the body.
type BodyReader func() ([]byte, error)

// Exchange is one observed network response.
type Exchange struct {
	RequestID  string
	URL        string
	Status     int
	ObservedAt time.Time

	read BodyReader
	once sync.Once
	body []byte
	err  error
}

// NewExchange builds an Exchange whose body is read lazily through read.
func NewExchange(requestID, url string, status int, read BodyReader) *Exchange {
	return &Exchange{
		RequestID:  requestID,
		URL:        url,
		Status:     status,
		ObservedAt: time.Now(),
		read:       read,
	}
}

// Body returns the response body. The reader runs at most once; later calls
// return the same bytes or the same error.
func (e *Exchange) Body() ([]byte, error) {
	e.once.Do(func() {
		if e.read == nil {
			e.err = ErrNoBody
			return
		}
		e.body, e.err = e.read()
	})
	return e.body, e.err
}

// Matches reports whether the exchange is a 200 response under root whose URL contains pattern.
func (e *Exchange) Matches(root, pattern string) bool {
	return e.Status == StatusOK && strings.Contains(e.URL, root) && strings.Contains(e.URL, pattern)
}

// StatusOK is the only status a correlated response may carry.
const StatusOK = 200
