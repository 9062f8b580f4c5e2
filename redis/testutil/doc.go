// Package testutil provides a miniredis-backed Redis component for tests.
//
//	rc := testutil.NewComponent()
//	gtestutil.T(t).Setup(rc)
//	cache := rediscache.New(rc.Client(), time.Minute)
package testutil
