package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/predexchange/predex/internal/domain"
)

// fakeBus records StreamRead calls and serves canned messages.
type fakeBus struct {
	msgs      []domain.StreamMessage
	gotStream string
	gotLastID string
	gotCount  int
}

func (f *fakeBus) Publish(context.Context, string, []byte) error { return nil }

func (f *fakeBus) Subscribe(context.Context, string) (<-chan []byte, error) { return nil, nil }

func (f *fakeBus) StreamAppend(context.Context, string, []byte) error { return nil }

func (f *fakeBus) StreamRead(_ context.Context, stream, lastID string, count int) ([]domain.StreamMessage, error) {
	f.gotStream = stream
	f.gotLastID = lastID
	f.gotCount = count
	return f.msgs, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTransferLogReadsStream(t *testing.T) {
	bus := &fakeBus{msgs: []domain.StreamMessage{
		{ID: "1-0", Payload: []byte(`{"to":"0x01","denom":"utoken","amount":100}`)},
		{ID: "2-0", Payload: []byte(`{"to":"0x02","denom":"utoken","amount":250}`)},
	}}
	svc := NewAdminService(nil, nil, bus, discardLogger())

	msgs, err := svc.TransferLog(context.Background(), "", 50)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "1-0", msgs[0].ID)

	require.Equal(t, StreamTransfers, bus.gotStream)
	require.Equal(t, "0", bus.gotLastID, "empty cursor reads from the beginning")
	require.Equal(t, 50, bus.gotCount)
}

func TestTransferLogPassesCursor(t *testing.T) {
	bus := &fakeBus{}
	svc := NewAdminService(nil, nil, bus, discardLogger())

	msgs, err := svc.TransferLog(context.Background(), "3-1", 10)
	require.NoError(t, err)
	require.Empty(t, msgs)
	require.Equal(t, "3-1", bus.gotLastID)
}

func TestTransferLogWithoutBus(t *testing.T) {
	svc := NewAdminService(nil, nil, nil, discardLogger())

	msgs, err := svc.TransferLog(context.Background(), "", 50)
	require.NoError(t, err)
	require.Empty(t, msgs)
}
