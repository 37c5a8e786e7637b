package transaction

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"github.com/danielgtaylor/huma/v2"

	"github.com/carson-networks/txfeed/internal/creation"
	"github.com/carson-networks/txfeed/internal/logging"
	"github.com/carson-networks/txfeed/internal/service"
)

// CreateTransactionBody is the request body for creating a transaction.
type CreateTransactionBody struct {
	Amount string `json:"amount" doc:"Decimal amount, at least 1"`
}

// CreateTransactionInput is the Huma input for creating a transaction.
type CreateTransactionInput struct {
	Body CreateTransactionBody
}

// CreationState is the API response model for the outcome of a submission.
type CreationState struct {
	Pending bool   `json:"pending" doc:"A submission is still in flight"`
	Message string `json:"message,omitempty" doc:"Confirmation shown after a successful creation"`
	Error   string `json:"error,omitempty" doc:"Why the commission service did not register the transaction"`
}

// CreateTransactionOutput is the Huma output for creating a transaction.
type CreateTransactionOutput struct {
	Status int
	Body   CreationState
}

// transactionSubmitter is the interface for submitting a new transaction.
type transactionSubmitter interface {
	SubmitAmount(ctx context.Context, raw string) (creation.CreationState, error)
}

// CreateTransactionHandler handles POST /v1/transaction.
type CreateTransactionHandler struct {
	Submitter transactionSubmitter
}

// NewCreateTransactionHandler creates a new CreateTransactionHandler.
func NewCreateTransactionHandler(s transactionSubmitter) *CreateTransactionHandler {
	return &CreateTransactionHandler{Submitter: s}
}

// Register registers the create transaction endpoint with the Huma API.
func (h *CreateTransactionHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-transaction",
		Method:        http.MethodPost,
		Path:          "/v1/transaction",
		DefaultStatus: http.StatusCreated,
		Summary:       "Create transaction",
		Description:   "Registers a new transaction with the commission service and refreshes the feed.",
		Tags:          []string{"Transactions"},
	}, h.handle)
}

func (h *CreateTransactionHandler) handle(ctx context.Context, input *CreateTransactionInput) (*CreateTransactionOutput, error) {
	state, err := h.Submitter.SubmitAmount(ctx, input.Body.Amount)

	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		return nil, huma.NewError(http.StatusBadRequest, "invalid transaction", fieldDetails(validationErr, input.Body.Amount)...)
	}
	if err != nil {
		return nil, huma.NewError(http.StatusInternalServerError, "failed to create transaction", err)
	}

	if logData := logging.GetLogData(ctx); logData != nil && state.Error != "" {
		logData.AddData("creationError", state.Error)
	}
	if state.Error != "" {
		return nil, huma.NewError(http.StatusBadGateway, state.Error)
	}

	return &CreateTransactionOutput{
		Status: http.StatusCreated,
		Body: CreationState{
			Pending: state.Pending,
			Message: state.Message,
		},
	}, nil
}

// fieldDetails reports each rejected field. Only amount is user input.
func fieldDetails(validationErr *service.ValidationError, amount string) []error {
	fields := make([]string, 0, len(validationErr.Fields))
	for field := range validationErr.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	details := make([]error, len(fields))
	for i, field := range fields {
		detail := &huma.ErrorDetail{
			Message:  validationErr.Fields[field],
			Location: "body." + field,
		}
		if field == creation.FieldAmount {
			detail.Value = amount
		}
		details[i] = detail
	}
	return details
}
