package infrastructure

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"returnremind/internal/pkg/httpclient"
	"returnremind/internal/pkg/redis"
	"returnremind/internal/service/notification/domain"
)

func TestRedisDeliveryLog(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewFromUniversal(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	defer client.Close()
	l := NewRedisDeliveryLog(client, time.Hour)

	first, err := l.MarkOnce(ctx, "n1")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := l.MarkOnce(ctx, "n1")
	require.NoError(t, err)
	assert.False(t, again)

	require.NoError(t, l.Forget(ctx, "n1"))
	retry, err := l.MarkOnce(ctx, "n1")
	require.NoError(t, err)
	assert.True(t, retry)

	mr.FastForward(2 * time.Hour)
	expired, err := l.MarkOnce(ctx, "n1")
	require.NoError(t, err)
	assert.True(t, expired)
}

func TestHTTPMailer(t *testing.T) {
	var got mailRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	m := NewHTTPMailer(httpclient.NewClient(noop.NewTracerProvider().Tracer("test")), srv.URL+"/v3/mail/send", "secret", "noreply@returnremind.com")
	err := m.Send(context.Background(), domain.Email{To: "alice@example.com", Subject: "Return deadline TODAY: Jacket", Body: "body"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, "noreply@returnremind.com", got.From.Email)
	require.Len(t, got.Personalizations, 1)
	assert.Equal(t, "alice@example.com", got.Personalizations[0].To[0].Email)
	assert.Equal(t, "Return deadline TODAY: Jacket", got.Subject)
	assert.Equal(t, []mailContent{{Type: "text/plain", Value: "body"}}, got.Content)
}

func TestLogMailer(t *testing.T) {
	assert.NoError(t, NewLogMailer().Send(context.Background(), domain.Email{To: "a", Subject: "s"}))
}
