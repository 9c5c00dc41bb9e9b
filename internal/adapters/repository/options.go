package repository

import "github.com/okian/cinerank/pkg/logger"

// Option applies a configuration option to a BadgerStore.
type Option func(*badgerOptions)

type badgerOptions struct {
	inMemory   bool
	syncWrites bool
	log        logger.Logger
}

// WithInMemory keeps the Badger database in memory; the path is ignored.
func WithInMemory() Option {
	return func(o *badgerOptions) {
		o.inMemory = true
	}
}

// WithSyncWrites makes every write fsync before returning.
func WithSyncWrites(sync bool) Option {
	return func(o *badgerOptions) {
		o.syncWrites = sync
	}
}

// WithLogger routes Badger's internal logging through l.
func WithLogger(l logger.Logger) Option {
	return func(o *badgerOptions) {
		if l != nil {
			o.log = l
		}
	}
}
