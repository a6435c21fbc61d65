package users

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const contactsKeyPrefix = "saltapi:proposal:contacts:"

// ContactsCache caches proposal contacts in Redis. Concurrent misses for
// the same proposal share one store lookup.
type ContactsCache struct {
	next   ContactsFinder
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

// NewContactsCache wraps next. A nil client or a non-positive ttl disables caching.
func NewContactsCache(next ContactsFinder, client *redis.Client, ttl time.Duration, logger *slog.Logger) *ContactsCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContactsCache{next: next, client: client, ttl: ttl, logger: logger}
}

// FindProposalContacts returns the cached contacts or loads them. Redis
// failures fall through to the store.
func (c *ContactsCache) FindProposalContacts(ctx context.Context, proposalCode string) (ProposalContacts, error) {
	if c.client == nil || c.ttl <= 0 {
		return c.next.FindProposalContacts(ctx, proposalCode)
	}
	key := contactsKeyPrefix + proposalCode
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var contacts ProposalContacts
		if err := json.Unmarshal(payload, &contacts); err == nil {
			return contacts, nil
		}
		c.logger.Warn("contacts cache corrupt entry", slog.String("key", key))
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("contacts cache get", slog.String("key", key), slog.Any("error", err))
	}

	resultChan := c.group.DoChan(key, func() (interface{}, error) {
		contacts, err := c.next.FindProposalContacts(ctx, proposalCode)
		if err != nil {
			return ProposalContacts{}, err
		}
		if raw, err := json.Marshal(contacts); err == nil {
			if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
				c.logger.Warn("contacts cache set", slog.String("key", key), slog.Any("error", err))
			}
		}
		return contacts, nil
	})
	select {
	case <-ctx.Done():
		return ProposalContacts{}, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return ProposalContacts{}, res.Err
		}
		return res.Val.(ProposalContacts), nil
	}
}

// Invalidate drops the cached contacts of a proposal.
func (c *ContactsCache) Invalidate(ctx context.Context, proposalCode string) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, contactsKeyPrefix+proposalCode).Err()
}

var _ ContactsFinder = (*ContactsCache)(nil)
