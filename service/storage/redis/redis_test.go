package redis

import (
	"testing"
)

func TestInitRedisUnreachable(t *testing.T) {
	// port 1 is never listening; the ping inside InitRedis must fail and the
	// error must reach the caller so boot can abort
	err := InitRedis(Config{Addr: "127.0.0.1:1"})
	if err == nil {
		t.Fatal("InitRedis against an unreachable address should fail")
	}

	defer func() {
		if recover() == nil {
			t.Fatal("GetRedis without a successful init should panic")
		}
	}()
	GetRedis()
}
