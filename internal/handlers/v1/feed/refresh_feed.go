package feed

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/carson-networks/txfeed/internal/logging"
)

// RefreshFeedResponse reports whether the request reached a running feed.
type RefreshFeedResponse struct {
	Accepted bool `json:"accepted" doc:"False when no observer keeps the feed active"`
}

// RefreshFeedOutput is the Huma output for a manual refresh.
type RefreshFeedOutput struct {
	Body RefreshFeedResponse
}

// RefreshFeedHandler handles POST /v1/feed/refresh.
type RefreshFeedHandler struct {
	Refresher refresher
}

// NewRefreshFeedHandler creates a new RefreshFeedHandler.
func NewRefreshFeedHandler(r refresher) *RefreshFeedHandler {
	return &RefreshFeedHandler{Refresher: r}
}

// Register registers the refresh endpoint with the Huma API.
func (h *RefreshFeedHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "refresh-feed",
		Method:        http.MethodPost,
		Path:          "/v1/feed/refresh",
		DefaultStatus: http.StatusAccepted,
		Summary:       "Refresh feed",
		Description:   "Asks the active feed to fetch the transaction list now.",
		Tags:          []string{"Feed"},
	}, h.handle)
}

func (h *RefreshFeedHandler) handle(ctx context.Context, _ *struct{}) (*RefreshFeedOutput, error) {
	accepted := h.Refresher.RefreshNow()
	if logData := logging.GetLogData(ctx); logData != nil {
		logData.AddData("accepted", accepted)
	}
	return &RefreshFeedOutput{Body: RefreshFeedResponse{Accepted: accepted}}, nil
}
