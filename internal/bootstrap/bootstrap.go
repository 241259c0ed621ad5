// Package bootstrap replaces a daemon's inherited environment with a vetted
// set read from a trusted file.
//
// A file holds one entry per line. Lines starting with '#' or a space, and
// empty lines, are ignored. NAME=VALUE sets NAME to VALUE verbatim. A bare
// NAME copies the value NAME had in the environment that was active when Load
// was called, and is skipped if it had none.
//
// Load mutates process-wide state and is not safe for concurrent use. Call it
// once at startup, or serialize calls and keep readers of the environment out
// of the way while it runs: between the reset and the install the environment
// is empty.
package bootstrap

import (
	"errors"
	"io/fs"
	"os"
	"runtime"

	"daemonenv/internal/env"
	"daemonenv/internal/logging"
)

// Bootstrapper owns the environment tables it installs into a Space.
type Bootstrapper struct {
	space    env.Space
	owned    *env.Table
	log      *logging.Logger
	capacity int
	crlf     bool
}

type Option func(*Bootstrapper)

func WithLogger(l *logging.Logger) Option {
	return func(b *Bootstrapper) { b.log = l.WithComponent("bootstrap") }
}

// WithCRLF turns line-ending normalization on or off. It defaults to on for
// Windows only.
func WithCRLF(on bool) Option {
	return func(b *Bootstrapper) { b.crlf = on }
}

// WithCapacity overrides env.Capacity.
func WithCapacity(n int) Option {
	return func(b *Bootstrapper) { b.capacity = n }
}

func New(space env.Space, opts ...Option) *Bootstrapper {
	b := &Bootstrapper{
		space:    space,
		log:      logging.Nop(),
		capacity: env.Capacity,
		crlf:     runtime.GOOS == "windows",
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Load replaces the environment with the one described by the file at path and
// returns the number of variables installed, each name counted once.
//
// An empty path, or a path that does not exist, leaves an empty environment
// and is not an error. On any error the environment is left empty, never
// partially populated.
func (b *Bootstrapper) Load(path string) (int, error) {
	prev := b.space.Current()
	lookup := env.Snapshot(prev)

	if b.owned != nil && prev == b.owned {
		b.owned.Release()
	}
	b.owned = nil

	b.space.Clear()
	if path == "" {
		return 0, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			b.log.Event("read environment from "+path, "path", path, "entries", 0)
			return 0, nil
		}
		return 0, b.fail(&BootstrapError{Kind: KindOpenFailed, Path: path, Err: err})
	}
	defer f.Close()

	next := env.NewTable(b.capacity)
	installed := false
	defer func() {
		if !installed {
			next.Release()
		}
	}()

	if err := env.Parse(f, lookup, next, env.ParseOptions{CRLF: b.crlf}); err != nil {
		return 0, b.fail(classify(path, err))
	}

	if err := b.space.Install(next); err != nil {
		b.space.Clear()
		return 0, b.fail(&BootstrapError{Kind: KindInstallFailed, Path: path, Err: err})
	}
	installed = true
	b.owned = next

	// Later duplicates of a name occupy capacity but are never installed.
	count := len(next.Environ())
	b.log.Event("read environment from "+path, "path", path, "entries", count)
	return count, nil
}

// Owned returns the table installed by the last successful Load, or nil.
func (b *Bootstrapper) Owned() *env.Table { return b.owned }

func (b *Bootstrapper) fail(err *BootstrapError) error {
	b.log.Failure(err, "could not set up the environment", "path", err.Path, "kind", err.Kind.String())
	return err
}
