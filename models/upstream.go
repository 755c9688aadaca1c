package models

import (
	"fmt"
	"time"
)

// Upstream describes where relayed requests are sent
type Upstream struct {
	Scheme       string        `json:"scheme"`
	Host         string        `json:"host"`
	Path         string        `json:"path"`
	UserAgent    string        `json:"userAgent"`
	Timeout      time.Duration `json:"timeout"`
	MaxBodyBytes int64         `json:"maxBodyBytes"`
}

// Origin returns scheme://host
func (u Upstream) Origin() string {
	return fmt.Sprintf("%s://%s", u.Scheme, u.Host)
}
