package sessionstorage

import (
	"context"
	"testing"
	"time"

	"github.com/cccteam/accessgate/mock/mock_sessionstorage"
	"github.com/go-playground/errors/v5"
	"go.uber.org/mock/gomock"
)

func TestPurge(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mirror := mock_sessionstorage.NewMockMirror(gomock.NewController(t))
	start := time.Now()
	gomock.InOrder(
		mirror.EXPECT().PurgeBefore(gomock.Any(), gomock.Any()).Return(int64(0), errors.New("connection reset")),
		mirror.EXPECT().PurgeBefore(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, cutoff time.Time) (int64, error) {
			if !cutoff.Before(start) {
				t.Errorf("cutoff = %v, want before %v", cutoff, start)
			}
			cancel()

			return 3, nil
		}),
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		Purge(ctx, mirror, time.Millisecond, time.Hour)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Purge() did not return after cancel")
	}
}
