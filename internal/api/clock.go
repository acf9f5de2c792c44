package api

import (
	"net/http"
	"sync/atomic"
	"time"
)

// clockSkew tracks the difference between the server clock and the local
// clock as reported by the most recent Date header.
type clockSkew struct {
	offset atomic.Int64
}

func (c *clockSkew) Offset() time.Duration {
	return time.Duration(c.offset.Load())
}

// observe records server time minus local time. Missing or unparseable Date
// headers leave the offset unchanged.
func (c *clockSkew) observe(h http.Header, now time.Time) {
	value := h.Get("Date")
	if value == "" {
		return
	}
	serverTime, err := http.ParseTime(value)
	if err != nil {
		return
	}
	c.offset.Store(int64(serverTime.Sub(now)))
}

func (c *clockSkew) adjust(now time.Time) time.Time {
	return now.Add(c.Offset())
}
