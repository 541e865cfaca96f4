package utils

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRegisterCooldown   = errors.New("registration attempted too frequently")
	ErrRegisterDailyLimit = errors.New("daily registration limit reached for this address")
)

// RegistrationGuard throttles sign-ups per client IP using Redis counters.
// Without a client, or when Redis errors, it fails open.
type RegistrationGuard struct {
	rc        *redis.Client
	cooldown  time.Duration
	maxPerDay int
	now       func() time.Time
}

func NewRegistrationGuard(rc *redis.Client, cooldown time.Duration, maxPerDay int) *RegistrationGuard {
	return &RegistrationGuard{rc: rc, cooldown: cooldown, maxPerDay: maxPerDay, now: time.Now}
}

func regKey(parts ...string) string {
	key := "reg"
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

// Allow checks the cooldown and the daily quota for ip. A passing call starts a new cooldown.
func (g *RegistrationGuard) Allow(ctx context.Context, ip string) error {
	if g == nil || g.rc == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	if g.maxPerDay > 0 {
		n, err := g.rc.Get(ctx, g.dailyKey(ip)).Int()
		if err != nil && !errors.Is(err, redis.Nil) {
			L().Warnf("registration quota lookup failed: %v", err)
			return nil
		}
		if n >= g.maxPerDay {
			return ErrRegisterDailyLimit
		}
	}

	if g.cooldown > 0 {
		ok, err := g.rc.SetNX(ctx, regKey("cooldown", ip), "1", g.cooldown).Result()
		if err != nil {
			L().Warnf("registration cooldown failed: %v", err)
			return nil
		}
		if !ok {
			return ErrRegisterCooldown
		}
	}
	return nil
}

// Succeeded counts a completed registration toward today's quota.
func (g *RegistrationGuard) Succeeded(ctx context.Context, ip string) {
	if g == nil || g.rc == nil || g.maxPerDay <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	key := g.dailyKey(ip)
	if err := g.rc.Incr(ctx, key).Err(); err != nil {
		return
	}
	now := g.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
	_ = g.rc.ExpireAt(ctx, key, midnight).Err()
}

func (g *RegistrationGuard) dailyKey(ip string) string {
	return regKey("day", ip, g.now().Format("20060102"))
}
