package realtime

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func fanoutRouter(members int) (*Router, []*fakeHandle) {
	registry := NewRegistry()
	router := NewRouter(registry, nil, zerolog.Nop())
	handles := make([]*fakeHandle, 0, members)
	for i := 0; i < members; i++ {
		handle := newFakeHandle(fmt.Sprintf("conn-%d", i), UserID(i+1))
		registry.Register(handle)
		router.Join(1, handle)
		handles = append(handles, handle)
	}
	return router, handles
}

func TestRouterConversationFanoutP95Under50ms(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping fan-out latency check in short mode")
	}

	router, handles := fanoutRouter(500)
	rounds := 200
	durations := make([]time.Duration, 0, rounds)

	for i := 0; i < rounds; i++ {
		start := time.Now()
		delivered := router.SendToConversation(context.Background(), 1, EventMessageNew, map[string]int{"seq": i})
		durations = append(durations, time.Since(start))
		require.Equal(t, len(handles), delivered)
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	p95 := durations[int(float64(len(durations))*0.95)-1]
	require.LessOrEqual(t, p95, 50*time.Millisecond, "fan-out p95 was %s", p95)
	require.Len(t, handles[499].received(), rounds)
}

func BenchmarkRouterSendToConversation(b *testing.B) {
	router, _ := fanoutRouter(100)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		router.SendToConversation(ctx, 1, EventMessageNew, i)
	}
}
