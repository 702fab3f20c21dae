// Package fake generates the throwaway users and posts the scenarios send.
package fake

import (
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

// ISO8601 is the timestamp layout used for postDate values.
const ISO8601 = "2006-01-02T15:04:05.000Z07:00"

type Generator struct {
	faker *gofakeit.Faker
	now   func() time.Time
}

type Option func(*Generator)

// WithClock replaces time.Now, for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// New returns a Generator. A seed of 0 picks a random seed.
func New(seed int64, opts ...Option) *Generator {
	g := &Generator{
		faker: gofakeit.New(seed),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Email returns a fake address with a unique suffix in the local part, so
// repeated runs against the same API never hit "email already exists".
func (g *Generator) Email() string {
	local, domain, _ := strings.Cut(strings.ToLower(g.faker.Email()), "@")
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return local + "." + suffix + "@" + domain
}

func (g *Generator) Password() string {
	return g.faker.Password(true, true, true, false, false, 12)
}

// User returns a fresh email/password pair.
func (g *Generator) User() (email, password string) {
	return g.Email(), g.Password()
}

func (g *Generator) PostID() int {
	return g.faker.Number(100_000, 999_999)
}

func (g *Generator) JobArea() string {
	return g.faker.JobLevel()
}

func (g *Generator) UserName() string {
	return g.faker.Username()
}

func (g *Generator) Sentence() string {
	return g.faker.Sentence(6)
}

func (g *Generator) Paragraph() string {
	return g.faker.Paragraph(1, 3, 12, " ")
}

// Now returns the current time in UTC, formatted with millisecond precision.
func (g *Generator) Now() string {
	return g.now().UTC().Format(ISO8601)
}
