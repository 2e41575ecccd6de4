package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateSessionCache invalidates all session-related caches
func InvalidateSessionCache(ctx context.Context, cm *CacheManager, sessionID, ownerID string) {
	SafeDelete(ctx, cm.Session,
		fmt.Sprintf("id:%s", sessionID),
		fmt.Sprintf("code:%s", sessionID))

	SafeInvalidatePattern(ctx, cm.Session, fmt.Sprintf("owner:%s:*", ownerID))
	SafeInvalidatePattern(ctx, cm.Session, "list:*")
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("session:%s:*", sessionID))
}

// InvalidateParticipantCache invalidates participant caches for one session
func InvalidateParticipantCache(ctx context.Context, cm *CacheManager, sessionID string) {
	SafeInvalidatePattern(ctx, cm.Participant, fmt.Sprintf("session:%s:*", sessionID))
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("session:%s:*", sessionID))
}
