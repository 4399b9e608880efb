package redis

import "github.com/redis/rueidis"

// NewStoreForTest wraps an arbitrary (usually mock) client. Test use only.
func NewStoreForTest(c rueidis.Client) *Store {
	return &Store{client: c}
}
