package mgo

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type Config struct {
	Uri         string
	Database    string
	Username    string
	Password    string
	MaxPoolSize uint64
}

type MongoManager struct {
	mu        sync.RWMutex
	db        *mongo.Database
	readyCh   chan struct{} // closed once, on first successful connect
	readyOnce sync.Once

	lastErr atomic.Value // error
}

var globalMgr = &MongoManager{readyCh: make(chan struct{})}

func Manager() *MongoManager { return globalMgr }

// StartAsync runs until ctx is done; closes readyCh on the first successful
// connect and keeps reconnecting with backoff when the health check fails.
func StartAsync(ctx context.Context, cfg *Config) {
	go func() {
		const (
			baseBackoff = 200 * time.Millisecond
			maxBackoff  = 5 * time.Second
			healthEvery = 10 * time.Second
			failThresh  = 3
		)

		for {
			// connect phase with backoff
			attempt := 0
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				db, err := connect(ctx, cfg)
				if err == nil {
					globalMgr.mu.Lock()
					globalMgr.db = db
					globalMgr.mu.Unlock()
					globalMgr.readyOnce.Do(func() { close(globalMgr.readyCh) })
					break
				}

				globalMgr.lastErr.Store(err)

				backoff := baseBackoff << attempt
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
				jitter := time.Duration(rand.Int63n(int64(backoff/5) + 1))
				timer := time.NewTimer(backoff - jitter/2)
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
				if attempt < 6 {
					attempt++
				}
			}

			// health-check phase
			fail := 0
			ticker := time.NewTicker(healthEvery)
			lost := false
			for !lost {
				select {
				case <-ctx.Done():
					ticker.Stop()
					globalMgr.disconnect()
					return
				case <-ticker.C:
					globalMgr.mu.RLock()
					db := globalMgr.db
					globalMgr.mu.RUnlock()
					if db == nil {
						lost = true
						break
					}
					if err := db.Client().Ping(ctx, readpref.Primary()); err != nil {
						fail++
						globalMgr.lastErr.Store(err)
						if fail >= failThresh {
							globalMgr.disconnect()
							lost = true
						}
					} else {
						fail = 0
					}
				}
			}
			ticker.Stop()
		}
	}()
}

// WaitReady blocks until the first connect succeeds or ctx is done.
func WaitReady(ctx context.Context) error {
	select {
	case <-globalMgr.readyCh:
		return nil
	case <-ctx.Done():
		if err, ok := globalMgr.lastErr.Load().(error); ok && err != nil {
			return fmt.Errorf("mongo not ready: %w", err)
		}
		return ctx.Err()
	}
}

// DB returns the active database handle, nil while disconnected.
func (m *MongoManager) DB() *mongo.Database {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.db
}

func (m *MongoManager) disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db != nil {
		_ = m.db.Client().Disconnect(context.Background())
		m.db = nil
	}
}

func connect(ctx context.Context, cfg *Config) (*mongo.Database, error) {
	opts := options.Client().ApplyURI(cfg.Uri)
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}
	if cfg.Username != "" {
		opts.SetAuth(options.Credential{Username: cfg.Username, Password: cfg.Password})
	}

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cli, err := mongo.Connect(cctx, opts)
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(cctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, err
	}
	return cli.Database(cfg.Database), nil
}
