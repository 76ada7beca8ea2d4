package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// ViewPreference is the persisted per-user calendar state: the last view
// type and agenda filter. The views never read it themselves; the page layer
// loads it and passes plain configuration in.
type ViewPreference struct {
	View      string          `json:"view"`
	Lookahead AgendaLookahead `json:"lookahead,omitempty"`
	Query     string          `json:"query,omitempty"`
}

func DefaultViewPreference() ViewPreference {
	return ViewPreference{View: "week", Lookahead: Lookahead30Days}
}

// PreferenceStore keeps view preferences in Redis, keyed per user. A missing
// key yields the default preference, not an error.
type PreferenceStore struct {
	client *redis.Client
}

func NewPreferenceStore(client *redis.Client) *PreferenceStore {
	return &PreferenceStore{client: client}
}

func preferenceKey(userId string) string {
	return "clas-agenda:view-preference:" + userId
}

func (s *PreferenceStore) Get(ctx context.Context, userId string) (ViewPreference, error) {
	raw, err := s.client.Get(ctx, preferenceKey(userId)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return DefaultViewPreference(), nil
		}

		return ViewPreference{}, fmt.Errorf("failed to get view preference: %w", err)
	}

	var pref ViewPreference

	err = json.Unmarshal([]byte(raw), &pref)
	if err != nil {
		return ViewPreference{}, fmt.Errorf("failed to decode view preference: %w", err)
	}

	return pref, nil
}

func (s *PreferenceStore) Set(ctx context.Context, userId string, pref ViewPreference) error {
	raw, err := json.Marshal(pref)
	if err != nil {
		return fmt.Errorf("failed to encode view preference: %w", err)
	}

	err = s.client.Set(ctx, preferenceKey(userId), raw, 0).Err()
	if err != nil {
		return fmt.Errorf("failed to store view preference: %w", err)
	}

	return nil
}
