package rythm

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dangdungcntt/go-rythm/internal/cache"
	"github.com/dangdungcntt/go-rythm/internal/dialect"
)

// Cache stores the output of tag invocations marked with .cache().
type Cache = cache.Store

// NewMemoryCache returns an in-process LRU cache holding at most
// maxEntries outputs. Zero picks a default size.
func NewMemoryCache(maxEntries int) Cache {
	return cache.NewMemoryStore(maxEntries)
}

// RedisOptions configure NewRedisCache.
type RedisOptions = cache.RedisOptions

// NewRedisCache returns a cache shared through Redis.
func NewRedisCache(opts RedisOptions) Cache {
	return cache.NewRedisStore(opts)
}

type options struct {
	logger      zerolog.Logger
	cache       Cache
	dialect     string
	dialects    []*dialect.Dialect
	maxAttempts int
	maxDepth    int
	compact     bool
}

func defaultOptions() *options {
	return &options{
		logger:   log.Logger,
		dialects: dialect.Defaults(),
	}
}

// Option configures an Engine.
type Option func(*options)

// WithLogger sets the logger for compilation and render diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithCache enables caching of tag invocations marked with .cache().
// Without it such invocations always render.
func WithCache(c Cache) Option {
	return func(o *options) { o.cache = c }
}

// WithDialect compiles every template in the named dialect instead of
// negotiating one. The built-in dialects are "basic" and "rythm".
func WithDialect(name string) Option {
	return func(o *options) { o.dialect = name }
}

// WithCompact collapses whitespace in literal text, except inside
// @nocompact blocks.
func WithCompact(on bool) Option {
	return func(o *options) { o.compact = on }
}

// WithMaxDepth bounds nested tag calls, includes and layouts at render time.
func WithMaxDepth(n int) Option {
	return func(o *options) { o.maxDepth = n }
}

// WithMaxAttempts bounds how many times a template is reparsed while
// looking for a dialect that accepts it.
func WithMaxAttempts(n int) Option {
	return func(o *options) { o.maxAttempts = n }
}
