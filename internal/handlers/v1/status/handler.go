package status

import (
	"errors"
	"net/http"

	"github.com/carson-networks/txfeed/internal/logging"
)

type observerCounter interface {
	Observers() int
}

type Handler struct {
	Feed observerCounter
}

func NewHandler(feed observerCounter) Handler {
	return Handler{Feed: feed}
}

func (h *Handler) Handler(w http.ResponseWriter, req *http.Request, logData *logging.LogData) error {
	if req.Method != http.MethodGet {
		w.WriteHeader(http.StatusBadRequest)
		return errors.New("status: method not GET")
	}

	logData.AddData("observers", h.Feed.Observers())
	w.WriteHeader(http.StatusOK)
	return nil
}
