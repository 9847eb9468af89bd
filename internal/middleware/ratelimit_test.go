package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scripterStub struct {
	redis.Scripter
	keys []string
	args []interface{}
	val  interface{}
}

func (s *scripterStub) EvalSha(ctx context.Context, sha1 string, keys []string, args ...interface{}) *redis.Cmd {
	s.keys, s.args = keys, args
	cmd := redis.NewCmd(ctx)
	cmd.SetVal(s.val)
	return cmd
}

func TestRedisWindowIncr(t *testing.T) {
	stub := &scripterStub{val: int64(4)}
	count, err := NewRedisWindow(stub).Incr(context.Background(), "rl:user:v-1", 90*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
	assert.Equal(t, []string{"rl:user:v-1"}, stub.keys)
	assert.Equal(t, []interface{}{int64(90000)}, stub.args)
}

func TestRedisWindowUnexpectedResult(t *testing.T) {
	_, err := NewRedisWindow(&scripterStub{val: []interface{}{"x"}}).Incr(context.Background(), "k", 0)
	require.Error(t, err)
}

func TestNewRedisWindowNil(t *testing.T) {
	assert.Nil(t, NewRedisWindow(nil))
}
