package feed

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/sirupsen/logrus"
)

// StreamFeedHandler handles GET /v1/feed/stream. Every connected client is one
// feed observer.
type StreamFeedHandler struct {
	Feed   subscriber
	Logger *logrus.Logger
}

// NewStreamFeedHandler creates a new StreamFeedHandler.
func NewStreamFeedHandler(f subscriber, logger *logrus.Logger) *StreamFeedHandler {
	return &StreamFeedHandler{Feed: f, Logger: logger}
}

// Register registers the feed stream endpoint with the Huma API.
func (h *StreamFeedHandler) Register(api huma.API) {
	sse.Register(api, huma.Operation{
		OperationID: "stream-feed",
		Method:      http.MethodGet,
		Path:        "/v1/feed/stream",
		Summary:     "Stream feed",
		Description: "Sends a state event for every Feed State change while the client stays connected.",
		Tags:        []string{"Feed"},
	}, map[string]any{
		"state": FeedState{},
	}, h.handle)
}

func (h *StreamFeedHandler) handle(ctx context.Context, _ *struct{}, send sse.Sender) {
	sub := h.Feed.Subscribe()
	defer sub.Close()

	entry := h.Logger.WithField("subscription", sub.ID.String())
	entry.Info("Handler.stream-feed.Connected")
	defer entry.Info("Handler.stream-feed.Disconnected")

	for {
		select {
		case state, ok := <-sub.Updates():
			if !ok {
				return
			}
			if err := send.Data(toFeedState(state)); err != nil {
				entry.WithError(err).Warn("Handler.stream-feed.Send")
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
