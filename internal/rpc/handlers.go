package rpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/si14444/roomie-backend/internal/auth"
	"github.com/si14444/roomie-backend/internal/calculator"
	"github.com/si14444/roomie-backend/internal/middleware"
	"github.com/si14444/roomie-backend/internal/models"
	"github.com/si14444/roomie-backend/internal/realtime"
	"github.com/si14444/roomie-backend/internal/service"
	"github.com/si14444/roomie-backend/internal/storage"
	"github.com/si14444/roomie-backend/internal/team"
)

// Handler wires the bill lifecycle service and the real-time hub into
// Connect endpoints.
type Handler struct {
	bills *service.BillService
	hub   *realtime.Hub
	teams team.Directory
	jwt   *auth.JWTManager
}

// NewHandler creates the RPC handler.
func NewHandler(bills *service.BillService, hub *realtime.Hub, teams team.Directory, jwt *auth.JWTManager) *Handler {
	return &Handler{bills: bills, hub: hub, teams: teams, jwt: jwt}
}

// Register mounts every procedure on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	opts := []connect.HandlerOption{
		connect.WithCodec(jsonCodec{}),
		connect.WithInterceptors(
			middleware.LoggingInterceptor(),
			middleware.RequireAuth(h.jwt),
		),
	}

	mux.Handle(ProcedureAddBill, connect.NewUnaryHandler(ProcedureAddBill, h.addBill, opts...))
	mux.Handle(ProcedureTogglePayment, connect.NewUnaryHandler(ProcedureTogglePayment, h.togglePayment, opts...))
	mux.Handle(ProcedureMarkBillPaid, connect.NewUnaryHandler(ProcedureMarkBillPaid, h.markBillAsPaid, opts...))
	mux.Handle(ProcedureExtendDueDate, connect.NewUnaryHandler(ProcedureExtendDueDate, h.extendDueDate, opts...))
	mux.Handle(ProcedureDeleteBill, connect.NewUnaryHandler(ProcedureDeleteBill, h.deleteBill, opts...))
	mux.Handle(ProcedureGetPaymentLink, connect.NewUnaryHandler(ProcedureGetPaymentLink, h.getPaymentLink, opts...))
	mux.Handle(ProcedureListBills, connect.NewUnaryHandler(ProcedureListBills, h.listBills, opts...))
	mux.Handle(ProcedureGetStatistics, connect.NewUnaryHandler(ProcedureGetStatistics, h.getStatistics, opts...))

	// Streaming handlers bypass unary interceptors; WatchBills checks
	// the bearer token itself.
	streamOpts := []connect.HandlerOption{connect.WithCodec(jsonCodec{})}
	mux.Handle(ProcedureWatchBills, connect.NewServerStreamHandler(ProcedureWatchBills, h.watchBills, streamOpts...))
}

// actor resolves the acting member from the authenticated context,
// checking membership against the authoritative roster. Roles always
// come from the team directory, never from the token.
func (h *Handler) actor(ctx context.Context) (models.TeamMember, string, error) {
	memberID := middleware.GetMemberID(ctx)
	teamID := middleware.GetTeamID(ctx)
	if memberID == "" || teamID == "" {
		return models.TeamMember{}, "", connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}

	members, err := h.teams.GetTeamMembers(ctx, teamID)
	if err != nil {
		return models.TeamMember{}, "", asConnectError(err)
	}
	member, ok := team.MemberByID(members, memberID)
	if !ok {
		return models.TeamMember{}, "", connect.NewError(connect.CodePermissionDenied,
			fmt.Errorf("member %s is not on team %s", memberID, teamID))
	}
	return member, teamID, nil
}

func (h *Handler) addBill(ctx context.Context, req *connect.Request[AddBillRequest]) (*connect.Response[AddBillResponse], error) {
	actor, teamID, err := h.actor(ctx)
	if err != nil {
		return nil, err
	}

	bill, err := h.bills.AddBill(ctx, teamID, actor, service.AddBillInput{
		Name:          req.Msg.Name,
		Amount:        req.Msg.Amount,
		AccountNumber: req.Msg.AccountNumber,
		Bank:          req.Msg.Bank,
		Category:      models.Category(req.Msg.Category),
		SplitType:     models.SplitType(req.Msg.SplitType),
		CustomSplit:   req.Msg.CustomSplit,
		DueDate:       req.Msg.DueDate,
	})
	if err != nil {
		return nil, asConnectError(err)
	}
	return connect.NewResponse(&AddBillResponse{Bill: *bill}), nil
}

func (h *Handler) togglePayment(ctx context.Context, req *connect.Request[TogglePaymentRequest]) (*connect.Response[TogglePaymentResponse], error) {
	actor, teamID, err := h.actor(ctx)
	if err != nil {
		return nil, err
	}

	bill, err := h.bills.TogglePayment(ctx, teamID, req.Msg.BillID, req.Msg.MemberID, actor)
	if err != nil {
		return nil, asConnectError(err)
	}
	return connect.NewResponse(&TogglePaymentResponse{Bill: *bill}), nil
}

func (h *Handler) markBillAsPaid(ctx context.Context, req *connect.Request[MarkBillAsPaidRequest]) (*connect.Response[MarkBillAsPaidResponse], error) {
	actor, teamID, err := h.actor(ctx)
	if err != nil {
		return nil, err
	}

	bill, err := h.bills.MarkBillAsPaid(ctx, teamID, req.Msg.BillID, actor)
	if err != nil {
		return nil, asConnectError(err)
	}
	return connect.NewResponse(&MarkBillAsPaidResponse{Bill: *bill}), nil
}

func (h *Handler) extendDueDate(ctx context.Context, req *connect.Request[ExtendDueDateRequest]) (*connect.Response[ExtendDueDateResponse], error) {
	actor, teamID, err := h.actor(ctx)
	if err != nil {
		return nil, err
	}

	bill, err := h.bills.ExtendDueDate(ctx, teamID, req.Msg.BillID, actor)
	if err != nil {
		return nil, asConnectError(err)
	}
	return connect.NewResponse(&ExtendDueDateResponse{Bill: *bill}), nil
}

func (h *Handler) deleteBill(ctx context.Context, req *connect.Request[DeleteBillRequest]) (*connect.Response[DeleteBillResponse], error) {
	actor, teamID, err := h.actor(ctx)
	if err != nil {
		return nil, err
	}

	if err := h.bills.DeleteBill(ctx, teamID, req.Msg.BillID, actor); err != nil {
		return nil, asConnectError(err)
	}
	return connect.NewResponse(&DeleteBillResponse{}), nil
}

func (h *Handler) getPaymentLink(ctx context.Context, req *connect.Request[GetPaymentLinkRequest]) (*connect.Response[GetPaymentLinkResponse], error) {
	_, teamID, err := h.actor(ctx)
	if err != nil {
		return nil, err
	}

	data, err := h.bills.GetPaymentLink(ctx, teamID, req.Msg.BillID)
	if err != nil {
		return nil, asConnectError(err)
	}
	return connect.NewResponse(&GetPaymentLinkResponse{Data: paymentLinkFromModel(data)}), nil
}

func (h *Handler) listBills(ctx context.Context, req *connect.Request[ListBillsRequest]) (*connect.Response[ListBillsResponse], error) {
	_, teamID, err := h.actor(ctx)
	if err != nil {
		return nil, err
	}

	adapter, release, err := h.hub.Acquire(ctx, teamID)
	if err != nil {
		return nil, asConnectError(err)
	}
	defer release()

	snapshot := adapter.Snapshot()
	return connect.NewResponse(&ListBillsResponse{Bills: snapshot.Bills}), nil
}

func (h *Handler) getStatistics(ctx context.Context, req *connect.Request[GetStatisticsRequest]) (*connect.Response[GetStatisticsResponse], error) {
	_, teamID, err := h.actor(ctx)
	if err != nil {
		return nil, err
	}

	adapter, release, err := h.hub.Acquire(ctx, teamID)
	if err != nil {
		return nil, asConnectError(err)
	}
	defer release()

	snapshot := adapter.Snapshot()
	return connect.NewResponse(&GetStatisticsResponse{Statistics: statisticsFromModel(snapshot.Statistics)}), nil
}

// watchBills streams one snapshot immediately and then one per committed
// change, until the client disconnects.
func (h *Handler) watchBills(ctx context.Context, req *connect.Request[WatchBillsRequest], stream *connect.ServerStream[WatchBillsResponse]) error {
	claims, err := middleware.ClaimsFromAuthorization(h.jwt, req.Header().Get("Authorization"))
	if err != nil {
		return connect.NewError(connect.CodeUnauthenticated, err)
	}

	members, err := h.teams.GetTeamMembers(ctx, claims.TeamID)
	if err != nil {
		return asConnectError(err)
	}
	if _, ok := team.MemberByID(members, claims.MemberID); !ok {
		return connect.NewError(connect.CodePermissionDenied,
			fmt.Errorf("member %s is not on team %s", claims.MemberID, claims.TeamID))
	}

	adapter, release, err := h.hub.Acquire(ctx, claims.TeamID)
	if err != nil {
		return asConnectError(err)
	}
	defer release()

	snapshots, stop := adapter.Watch()
	defer stop()

	slog.Info("watch started", "team_id", claims.TeamID, "member_id", claims.MemberID)
	for {
		select {
		case <-ctx.Done():
			return nil
		case snapshot, ok := <-snapshots:
			if !ok {
				return nil
			}
			err := stream.Send(&WatchBillsResponse{
				Bills:      snapshot.Bills,
				Statistics: statisticsFromModel(snapshot.Statistics),
			})
			if err != nil {
				return err
			}
		}
	}
}

// asConnectError maps domain errors onto Connect status codes.
func asConnectError(err error) error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return err
	}

	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, calculator.ErrInvalidSplit):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, service.ErrPermissionDenied):
		return connect.NewError(connect.CodePermissionDenied, err)
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, team.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, service.ErrMutationInFlight):
		return connect.NewError(connect.CodeAborted, err)
	case errors.Is(err, storage.ErrSync):
		return connect.NewError(connect.CodeUnavailable, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
