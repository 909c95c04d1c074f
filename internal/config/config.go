// Package config loads the job configuration from an optional CUE file,
// validated against an embedded schema that also supplies the defaults.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaCUE string

// Config is the decoded configuration.
type Config struct {
	Database            string `json:"database"`
	BatchSize           int    `json:"batchSize"`
	DefaultDeliveryHour string `json:"defaultDeliveryHour"`
	Timezone            string `json:"timezone"`
	AppURL              string `json:"appURL"`
	Email               Email  `json:"email"`
	Chat                Chat   `json:"chat"`
	Listen              string `json:"listen"`
}

// Email configures the email channel.
type Email struct {
	Sender string `json:"sender"`
}

// Chat configures the chat channel. An empty WebhookURL queues chat
// messages in the store outbox instead of posting them.
type Chat struct {
	WebhookURL string `json:"webhookURL"`
	By         string `json:"by"`
}

// Default returns the configuration used when no file is given.
func Default() (Config, error) {
	return Load("")
}

// Load reads the CUE file at path, unifies it with the schema and decodes
// the result. An empty path yields the defaults. Unknown fields and values
// outside the schema are errors.
func Load(path string) (Config, error) {
	var src []byte
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		src = data
	}
	return parse(path, src)
}

func parse(filename string, src []byte) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile config schema: %w", err)
	}
	v := schema.LookupPath(cue.ParsePath("#Config"))

	if len(src) > 0 {
		user := ctx.CompileBytes(src, cue.Filename(filename))
		if err := user.Err(); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", filename, err)
		}
		v = v.Unify(user)
	}

	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", filename, err)
	}

	var c Config
	if err := v.Decode(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return c, nil
}

// Location loads the configured time zone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
