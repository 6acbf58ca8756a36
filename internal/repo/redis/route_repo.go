package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/zhangqi6627/tgchatbot/internal/domain/model"
)

const routePrefix = "route:"

var ErrRouteNotFound = errors.New("user route not found")

// RouteRepo persists the user-to-topic bijection. One record per user,
// keyed by the private chat id.
type RouteRepo struct {
	client *goredis.Client
}

func NewRouteRepo(client *goredis.Client) *RouteRepo {
	return &RouteRepo{client: client}
}

func (r *RouteRepo) Get(ctx context.Context, userID int64) (model.UserRoute, error) {
	if r.client == nil {
		return model.UserRoute{}, fmt.Errorf("redis client is nil")
	}

	raw, err := r.client.Get(ctx, routeKey(userID)).Result()
	if err == goredis.Nil {
		return model.UserRoute{}, ErrRouteNotFound
	}
	if err != nil {
		return model.UserRoute{}, fmt.Errorf("get user route: %w", err)
	}

	var route model.UserRoute
	if err := json.Unmarshal([]byte(raw), &route); err != nil {
		// Malformed state is treated as absent, not as a handler crash.
		return model.UserRoute{}, ErrRouteNotFound
	}
	return route, nil
}

func (r *RouteRepo) Save(ctx context.Context, userID int64, route model.UserRoute) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	raw, err := json.Marshal(route)
	if err != nil {
		return fmt.Errorf("marshal user route: %w", err)
	}

	if err := r.client.Set(ctx, routeKey(userID), raw, 0).Err(); err != nil {
		return fmt.Errorf("save user route: %w", err)
	}
	return nil
}

// FindByThread resolves the user behind a forum thread with a linear scan
// over all routes. Conversation counts are expected to stay small.
func (r *RouteRepo) FindByThread(ctx context.Context, threadID int64) (int64, model.UserRoute, error) {
	if r.client == nil {
		return 0, model.UserRoute{}, fmt.Errorf("redis client is nil")
	}

	iter := r.client.Scan(ctx, 0, routePrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		raw, err := r.client.Get(ctx, key).Result()
		if err == goredis.Nil {
			continue
		}
		if err != nil {
			return 0, model.UserRoute{}, fmt.Errorf("get route %s: %w", key, err)
		}

		var route model.UserRoute
		if err := json.Unmarshal([]byte(raw), &route); err != nil {
			continue
		}
		if route.ThreadID != threadID {
			continue
		}

		userID, err := strconv.ParseInt(strings.TrimPrefix(key, routePrefix), 10, 64)
		if err != nil {
			continue
		}
		return userID, route, nil
	}
	if err := iter.Err(); err != nil {
		return 0, model.UserRoute{}, fmt.Errorf("scan routes: %w", err)
	}

	return 0, model.UserRoute{}, ErrRouteNotFound
}

// SetClosedByThread flips the closed flag on every route mapped to the
// thread. Used when staff close or reopen the topic through the forum UI.
func (r *RouteRepo) SetClosedByThread(ctx context.Context, threadID int64, closed bool) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	iter := r.client.Scan(ctx, 0, routePrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		raw, err := r.client.Get(ctx, key).Result()
		if err == goredis.Nil {
			continue
		}
		if err != nil {
			return fmt.Errorf("get route %s: %w", key, err)
		}

		var route model.UserRoute
		if err := json.Unmarshal([]byte(raw), &route); err != nil {
			continue
		}
		if route.ThreadID != threadID {
			continue
		}

		route.Closed = closed
		updated, err := json.Marshal(route)
		if err != nil {
			return fmt.Errorf("marshal route %s: %w", key, err)
		}
		if err := r.client.Set(ctx, key, updated, 0).Err(); err != nil {
			return fmt.Errorf("update route %s: %w", key, err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan routes: %w", err)
	}
	return nil
}

func routeKey(userID int64) string {
	return routePrefix + strconv.FormatInt(userID, 10)
}
