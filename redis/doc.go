// Package redis wraps go-redis with the service logger, configuration
// conventions and component lifecycle. It backs the suggestion cache.
//
// TypedStore stores JSON values under a key prefix:
//
//	store := redis.NewTypedStore[speaker.MeetingSuggestions](client, "speakerid:suggestions")
//	store.Save(ctx, "42", &s, 10*time.Minute)
package redis
