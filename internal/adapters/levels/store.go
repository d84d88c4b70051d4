// Package levels keeps the latest GEX, liquidity-trigger and IV snapshots
// published on the bus and serves them through ports.LevelProvider.
package levels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"signalGenerator/internal/domain"
	"signalGenerator/internal/ports"
)

// Bus channels and the Redis key holding the last GEX snapshot.
const (
	ChannelGex   = "gex.levels"
	ChannelLT    = "lt.levels"
	ChannelIV    = "iv.skew"
	GexLatestKey = "gex_levels_latest"
)

// Freshness reports when each feed last updated; zero means never.
type Freshness struct {
	Gex time.Time `json:"gex"`
	LT  time.Time `json:"lt"`
	IV  time.Time `json:"iv"`
}

// Store is safe for concurrent use.
type Store struct {
	logger ports.Logger
	now    func() time.Time

	mu        sync.RWMutex
	gex       *domain.GexLevels
	lt        *domain.LTLevels
	iv        *domain.IVSkew
	freshness Freshness
}

// NewStore returns an empty store.
func NewStore(logger ports.Logger) *Store {
	return &Store{logger: logger, now: time.Now}
}

// GexLevels implements ports.LevelProvider.
func (s *Store) GexLevels() *domain.GexLevels {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gex
}

// LTLevels implements ports.LevelProvider.
func (s *Store) LTLevels() *domain.LTLevels {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lt
}

// IVSkew implements ports.LevelProvider.
func (s *Store) IVSkew() *domain.IVSkew {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.iv
}

// Freshness returns the last update time of each feed.
func (s *Store) Freshness() Freshness {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.freshness
}

// SetGex replaces the GEX snapshot.
func (s *Store) SetGex(g *domain.GexLevels) {
	s.mu.Lock()
	s.gex = g
	s.freshness.Gex = s.now()
	s.mu.Unlock()
}

// SetLT replaces the liquidity-trigger snapshot.
func (s *Store) SetLT(l *domain.LTLevels) {
	s.mu.Lock()
	s.lt = l
	s.freshness.LT = s.now()
	s.mu.Unlock()
}

// SetIV replaces the IV skew reading.
func (s *Store) SetIV(iv *domain.IVSkew) {
	s.mu.Lock()
	s.iv = iv
	s.freshness.IV = s.now()
	s.mu.Unlock()
}

// Seed loads the cached GEX snapshot so evaluation can start before the next
// publish. A missing key is not an error.
func (s *Store) Seed(ctx context.Context, client *redis.Client) error {
	raw, err := client.Get(ctx, GexLatestKey).Bytes()
	if errors.Is(err, redis.Nil) {
		s.logger.Info(ctx, "No cached GEX levels found", map[string]interface{}{"key": GexLatestKey})
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: get %s: %w", ports.ErrQueryFailed, GexLatestKey, err)
	}
	g := &domain.GexLevels{}
	if err := json.Unmarshal(raw, g); err != nil {
		return fmt.Errorf("%w: %s: %w", ports.ErrDecodeFailed, GexLatestKey, err)
	}
	g.FromCache = true
	s.SetGex(g)
	s.logger.Info(ctx, "Seeded GEX levels from cache", map[string]interface{}{
		"putWall": g.PutWall, "gammaFlip": g.GammaFlip, "supports": len(g.Support),
	})
	return nil
}

// Subscribe follows the three level channels on bus.
func (s *Store) Subscribe(ctx context.Context, bus ports.MessageBus) error {
	subs := []struct {
		channel string
		handle  func([]byte) error
	}{
		{ChannelGex, func(b []byte) error {
			g := &domain.GexLevels{}
			if err := json.Unmarshal(b, g); err != nil {
				return err
			}
			s.SetGex(g)
			return nil
		}},
		{ChannelLT, func(b []byte) error {
			l := &domain.LTLevels{}
			if err := json.Unmarshal(b, l); err != nil {
				return err
			}
			s.SetLT(l)
			return nil
		}},
		{ChannelIV, func(b []byte) error {
			iv := &domain.IVSkew{}
			if err := json.Unmarshal(b, iv); err != nil {
				return err
			}
			s.SetIV(iv)
			return nil
		}},
	}
	for _, sub := range subs {
		handle := sub.handle
		err := bus.Subscribe(ctx, sub.channel, func(ctx context.Context, channel string, payload []byte) {
			if err := handle(payload); err != nil {
				s.logger.Warn(ctx, "Dropping undecodable level update", map[string]interface{}{
					"channel": channel, "error": fmt.Errorf("%w: %w", ports.ErrDecodeFailed, err).Error(),
				})
				return
			}
			s.logger.Debug(ctx, "Level update received", map[string]interface{}{"channel": channel})
		})
		if err != nil {
			return err
		}
	}
	return nil
}
