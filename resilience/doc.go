// Package resilience retries transient failures and trips a circuit breaker
// around dependencies that keep failing.
//
//	db, err := resilience.Retry(ctx, resilience.RetryConfig{
//	    MaxAttempts: 3,
//	    RetryIf:     isTransient,
//	}, open)
//
//	cb := resilience.NewBreaker(resilience.DefaultBreakerConfig("redis"))
//	err = cb.Execute(func() error { return client.Ping(ctx) })
package resilience
