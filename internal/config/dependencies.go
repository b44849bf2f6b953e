package config

import (
	"time"

	"ghost-crew/internal/cache"
	"ghost-crew/internal/repository"
	"ghost-crew/internal/websocket"

	"github.com/go-playground/validator/v10"
)

// Dependencies is built once in main and handed to the HTTP layer.
type Dependencies struct {
	Store     repository.Store
	JobCache  cache.JobCache
	Hub       *websocket.Hub
	Validate  *validator.Validate
	SecretKey []byte
	TokenTTL  time.Duration
	UploadDir string

	RateLimitMax int
	AllowOrigins string

	// Now is the clock used for "today" and status timestamps.
	Now func() time.Time
}

// Normalize fills optional fields with working defaults.
func (d *Dependencies) Normalize() {
	if d.JobCache == nil {
		d.JobCache = cache.Nop{}
	}
	if d.Validate == nil {
		d.Validate = validator.New()
	}
	if d.TokenTTL == 0 {
		d.TokenTTL = 12 * time.Hour
	}
	if d.UploadDir == "" {
		d.UploadDir = "uploads"
	}
	if d.AllowOrigins == "" {
		d.AllowOrigins = "*"
	}
	if d.Now == nil {
		d.Now = time.Now
	}
}

// Today is the current UTC calendar date in YYYY-MM-DD form.
func (d *Dependencies) Today() string {
	return d.Now().UTC().Format("2006-01-02")
}
