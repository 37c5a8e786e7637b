package feed

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/carson-networks/txfeed/internal/logging"
)

// GetFeedOutput is the Huma output for reading the feed.
type GetFeedOutput struct {
	Body FeedState
}

// GetFeedHandler handles GET /v1/feed.
type GetFeedHandler struct {
	Feed subscriber
}

// NewGetFeedHandler creates a new GetFeedHandler.
func NewGetFeedHandler(f subscriber) *GetFeedHandler {
	return &GetFeedHandler{Feed: f}
}

// Register registers the get feed endpoint with the Huma API.
func (h *GetFeedHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-feed",
		Method:      http.MethodGet,
		Path:        "/v1/feed",
		Summary:     "Get feed",
		Description: "Joins the shared transaction feed and returns the first settled state.",
		Tags:        []string{"Feed"},
	}, h.handle)
}

func (h *GetFeedHandler) handle(ctx context.Context, _ *struct{}) (*GetFeedOutput, error) {
	sub := h.Feed.Subscribe()
	defer sub.Close()

	logData := logging.GetLogData(ctx)
	if logData != nil {
		logData.AddData("subscription", sub.ID.String())
	}

	for {
		select {
		case state, ok := <-sub.Updates():
			if !ok {
				return nil, huma.NewError(http.StatusServiceUnavailable, "feed closed")
			}
			if state.Loading {
				continue
			}
			if logData != nil {
				logData.AddData("transactionCount", state.Snapshot.Len())
			}
			return &GetFeedOutput{Body: toFeedState(state)}, nil
		case <-ctx.Done():
			return nil, huma.NewError(http.StatusGatewayTimeout, "feed did not settle", ctx.Err())
		}
	}
}
