package utils

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const hotPostsKey = "hot_posts"

// HotPosts keeps a redis sorted set of post IDs scored by activity.
type HotPosts struct {
	client *redis.Client
}

func NewHotPosts(client *redis.Client) *HotPosts {
	return &HotPosts{client: client}
}

// Bump adds delta to a post's score, creating the member when absent.
func (h *HotPosts) Bump(ctx context.Context, postID uint, delta float64) {
	if h == nil || h.client == nil {
		return
	}
	h.client.ZIncrBy(ctx, hotPostsKey, delta, strconv.FormatUint(uint64(postID), 10))
}

// Remove drops a deleted post from the ranking.
func (h *HotPosts) Remove(ctx context.Context, postID uint) {
	if h == nil || h.client == nil {
		return
	}
	h.client.ZRem(ctx, hotPostsKey, strconv.FormatUint(uint64(postID), 10))
}

type HotEntry struct {
	PostID uint    `json:"post_id"`
	Score  float64 `json:"score"`
}

// Top returns the highest-scored posts, best first.
func (h *HotPosts) Top(ctx context.Context, limit int64) ([]HotEntry, error) {
	if h == nil || h.client == nil {
		return []HotEntry{}, nil
	}

	members, err := h.client.ZRevRangeWithScores(ctx, hotPostsKey, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]HotEntry, 0, len(members))
	for _, m := range members {
		raw, ok := m.Member.(string)
		if !ok {
			continue
		}
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			continue
		}
		entries = append(entries, HotEntry{PostID: uint(id), Score: m.Score})
	}
	return entries, nil
}
