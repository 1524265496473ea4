// Package client is the calling side of an authgate session.
//
// A Transport attaches the stored access token to outgoing requests and, on
// a 401, performs at most one refresh-then-retry cycle. Concurrent 401s
// share a single in-flight refresh. Tokens live in a TokenStore; MemoryStore
// serves one process and RedisStore shares a session across processes.
//
// A Session groups the store, transport and *http.Client so request-building
// code receives its session explicitly:
//
//	sess, err := client.NewSession(client.Options{
//		Store:      client.NewMemoryStore(),
//		RefreshURL: "https://api.example.com/api/v1/auth/refresh",
//	})
//	resp, err := sess.Client().Get("https://api.example.com/api/v1/users/me")
package client
