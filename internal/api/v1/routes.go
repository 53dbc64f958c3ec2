// Package v1 provides the push status API handlers.
package v1

import (
	"context"
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/mailpush/pushd/internal/api/common"
	"github.com/mailpush/pushd/internal/notification"
)

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks -source=routes.go PushService

// PushService is what the handlers need from the running daemon
type PushService interface {
	// Current returns the last published notification state
	Current() notification.State
	// RunningAccounts lists accounts with a running worker
	RunningAccounts() []string
	// DisablePushForAllAccounts sets every account's push mode to NONE
	DisablePushForAllAccounts()
	// Refresh rereads accounts and settings changed by another process
	Refresh(ctx context.Context) error
}

// StatusResponse is the reply of GET /status
type StatusResponse struct {
	State    notification.State `json:"state"`
	Message  string             `json:"message"`
	Accounts []string           `json:"accounts"`
}

// AccountResponse is the reply of GET /accounts/{uuid}
type AccountResponse struct {
	UUID    string `json:"uuid"`
	Running bool   `json:"running"`
}

// Routes holds the handlers
type Routes struct {
	service PushService
}

// Router creates the push API router
func Router(svc PushService) http.Handler {
	routes := &Routes{service: svc}

	r := chi.NewRouter()
	r.Get("/status", routes.getStatus)
	r.Get("/accounts/{uuid}", routes.getAccount)
	r.Post("/disable", routes.disable)
	r.Post("/refresh", routes.refresh)

	return r
}

func (rr *Routes) running() []string {
	accounts := slices.Clone(rr.service.RunningAccounts())
	if accounts == nil {
		accounts = []string{}
	}
	slices.Sort(accounts)
	return accounts
}

func (rr *Routes) getStatus(w http.ResponseWriter, _ *http.Request) {
	state := rr.service.Current()
	common.WriteJSONResponse(w, StatusResponse{
		State:    state,
		Message:  state.Message(),
		Accounts: rr.running(),
	}, http.StatusOK)
}

func (rr *Routes) getAccount(w http.ResponseWriter, r *http.Request) {
	id, err := common.GetAccountUUIDParam(r, "uuid")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	_, found := slices.BinarySearch(rr.running(), id)
	common.WriteJSONResponse(w, AccountResponse{UUID: id, Running: found}, http.StatusOK)
}

// disable only queues the request; workers stop on the next pass.
func (rr *Routes) disable(w http.ResponseWriter, _ *http.Request) {
	slog.Info("Push disable requested over the API")
	rr.service.DisablePushForAllAccounts()
	common.WriteJSONResponse(w, map[string]string{"status": "disabling"}, http.StatusAccepted)
}

func (rr *Routes) refresh(w http.ResponseWriter, r *http.Request) {
	if err := rr.service.Refresh(r.Context()); err != nil {
		slog.Error("Failed to refresh push configuration", "error", err)
		common.WriteErrorResponse(w, "Failed to refresh push configuration", http.StatusInternalServerError)
		return
	}
	common.WriteJSONResponse(w, map[string]string{"status": "refreshed"}, http.StatusOK)
}
