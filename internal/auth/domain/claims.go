package domain

import "time"

// Claims is a decoded and validated token payload.
type Claims struct {
	Subject        int64
	IssuedAt       time.Time
	ExpirationTime time.Time
	Custom         map[string]string
}

// Get returns a custom claim value.
func (c *Claims) Get(name string) (string, bool) {
	v, ok := c.Custom[name]
	return v, ok
}
