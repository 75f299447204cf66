package rpc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/si14444/roomie-backend/internal/auth"
	"github.com/si14444/roomie-backend/internal/models"
	"github.com/si14444/roomie-backend/internal/notify"
	"github.com/si14444/roomie-backend/internal/realtime"
	"github.com/si14444/roomie-backend/internal/service"
	"github.com/si14444/roomie-backend/internal/storage/sqlite"
)

const testSecret = "test-secret-key-for-rpc-tests"

type testEnv struct {
	server *httptest.Server
	jwt    *auth.JWTManager
}

func (e *testEnv) token(t *testing.T, memberID, teamID string) string {
	t.Helper()
	token, err := e.jwt.Generate(memberID, teamID)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return token
}

// callClient builds a unary client for one procedure.
func callClient[Req, Res any](env *testEnv, procedure string) *connect.Client[Req, Res] {
	return connect.NewClient[Req, Res](http.DefaultClient, env.server.URL+procedure, connect.WithCodec(jsonCodec{}))
}

func authed[Req any](req *connect.Request[Req], token string) *connect.Request[Req] {
	req.Header().Set("Authorization", "Bearer "+token)
	return req
}

// setupTestServer stands up the full stack on a real temp-file store:
// store, lifecycle service, hub, notification emitter, and RPC handler.
func setupTestServer(t *testing.T) (*testEnv, func()) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()

	store, err := sqlite.New(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.CreateTeam(ctx, "team-1", "Apartment 4B"); err != nil {
		t.Fatalf("failed to create team: %v", err)
	}
	for _, m := range []models.TeamMember{
		{ID: "alice", Role: models.RoleOwner},
		{ID: "bob", Role: models.RoleAdmin},
		{ID: "carol", Role: models.RoleMember},
	} {
		if err := store.AddTeamMember(ctx, "team-1", m); err != nil {
			t.Fatalf("failed to add member: %v", err)
		}
	}

	emitter := notify.NewEmitter(store)
	bills := service.NewBillService(store, store, emitter, nil)
	hub := realtime.NewHub(store, store, nil)
	jwtManager := auth.NewJWTManager(testSecret, time.Hour)

	mux := http.NewServeMux()
	NewHandler(bills, hub, store, jwtManager).Register(mux)

	server := httptest.NewServer(mux)

	cleanup := func() {
		server.Close()
		hub.Close()
		store.Close()
		os.Remove(tmpFile.Name())
	}
	return &testEnv{server: server, jwt: jwtManager}, cleanup
}

func addBillRequest() *AddBillRequest {
	return &AddBillRequest{
		Name:      "Electricity",
		Amount:    10000,
		Category:  "utility",
		SplitType: "equal",
		DueDate:   time.Date(2026, 3, 25, 0, 0, 0, 0, time.UTC),
	}
}

func addBill(t *testing.T, env *testEnv, token string) models.Bill {
	t.Helper()
	client := callClient[AddBillRequest, AddBillResponse](env, ProcedureAddBill)
	resp, err := client.CallUnary(context.Background(), authed(connect.NewRequest(addBillRequest()), token))
	if err != nil {
		t.Fatalf("AddBill failed: %v", err)
	}
	return resp.Msg.Bill
}

func TestAddBillRPC(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()

	token := env.token(t, "carol", "team-1")
	bill := addBill(t, env, token)

	if bill.ID == "" {
		t.Error("expected generated bill id")
	}
	if bill.CreatedBy != "carol" {
		t.Errorf("expected createdBy carol, got %s", bill.CreatedBy)
	}
	if len(bill.Payments) != 3 {
		t.Errorf("expected 3 payment entries, got %d", len(bill.Payments))
	}
}

func TestAddBillRPCValidation(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()

	token := env.token(t, "alice", "team-1")
	client := callClient[AddBillRequest, AddBillResponse](env, ProcedureAddBill)

	req := addBillRequest()
	req.Amount = -1
	_, err := client.CallUnary(context.Background(), authed(connect.NewRequest(req), token))
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("expected CodeInvalidArgument, got %v", err)
	}
}

func TestRPCAuthentication(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()

	client := callClient[AddBillRequest, AddBillResponse](env, ProcedureAddBill)

	// No token.
	_, err := client.CallUnary(context.Background(), connect.NewRequest(addBillRequest()))
	if connect.CodeOf(err) != connect.CodeUnauthenticated {
		t.Errorf("expected CodeUnauthenticated without token, got %v", err)
	}

	// Garbage token.
	_, err = client.CallUnary(context.Background(), authed(connect.NewRequest(addBillRequest()), "not-a-token"))
	if connect.CodeOf(err) != connect.CodeUnauthenticated {
		t.Errorf("expected CodeUnauthenticated for bad token, got %v", err)
	}

	// Valid token for a member not on the roster.
	stranger := env.token(t, "mallory", "team-1")
	_, err = client.CallUnary(context.Background(), authed(connect.NewRequest(addBillRequest()), stranger))
	if connect.CodeOf(err) != connect.CodePermissionDenied {
		t.Errorf("expected CodePermissionDenied for non-member, got %v", err)
	}
}

func TestTogglePaymentRPC(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()

	owner := env.token(t, "alice", "team-1")
	bill := addBill(t, env, owner)

	client := callClient[TogglePaymentRequest, TogglePaymentResponse](env, ProcedureTogglePayment)

	// Member toggles their own share.
	carol := env.token(t, "carol", "team-1")
	resp, err := client.CallUnary(context.Background(), authed(connect.NewRequest(&TogglePaymentRequest{
		BillID:   bill.ID,
		MemberID: "carol",
	}), carol))
	if err != nil {
		t.Fatalf("TogglePayment failed: %v", err)
	}
	if !resp.Msg.Bill.Payments["carol"].Paid {
		t.Error("expected carol marked paid")
	}

	// Plain member may not toggle someone else's share.
	_, err = client.CallUnary(context.Background(), authed(connect.NewRequest(&TogglePaymentRequest{
		BillID:   bill.ID,
		MemberID: "bob",
	}), carol))
	if connect.CodeOf(err) != connect.CodePermissionDenied {
		t.Errorf("expected CodePermissionDenied, got %v", err)
	}
}

func TestMarkBillAsPaidRPC(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()

	owner := env.token(t, "alice", "team-1")
	bill := addBill(t, env, owner)

	client := callClient[MarkBillAsPaidRequest, MarkBillAsPaidResponse](env, ProcedureMarkBillPaid)
	resp, err := client.CallUnary(context.Background(), authed(connect.NewRequest(&MarkBillAsPaidRequest{BillID: bill.ID}), owner))
	if err != nil {
		t.Fatalf("MarkBillAsPaid failed: %v", err)
	}
	if !resp.Msg.Bill.FullyPaid() {
		t.Error("expected bill fully paid")
	}
}

func TestExtendDueDateRPC(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()

	owner := env.token(t, "alice", "team-1")
	bill := addBill(t, env, owner)

	client := callClient[ExtendDueDateRequest, ExtendDueDateResponse](env, ProcedureExtendDueDate)
	resp, err := client.CallUnary(context.Background(), authed(connect.NewRequest(&ExtendDueDateRequest{BillID: bill.ID}), owner))
	if err != nil {
		t.Fatalf("ExtendDueDate failed: %v", err)
	}
	if want := bill.DueDate.AddDate(0, 0, 7); !resp.Msg.Bill.DueDate.Equal(want) {
		t.Errorf("expected due date %v, got %v", want, resp.Msg.Bill.DueDate)
	}
}

func TestDeleteBillRPC(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()

	owner := env.token(t, "alice", "team-1")
	bill := addBill(t, env, owner)

	client := callClient[DeleteBillRequest, DeleteBillResponse](env, ProcedureDeleteBill)

	// Admin who did not create the bill cannot delete.
	bob := env.token(t, "bob", "team-1")
	_, err := client.CallUnary(context.Background(), authed(connect.NewRequest(&DeleteBillRequest{BillID: bill.ID}), bob))
	if connect.CodeOf(err) != connect.CodePermissionDenied {
		t.Errorf("expected CodePermissionDenied, got %v", err)
	}

	if _, err := client.CallUnary(context.Background(), authed(connect.NewRequest(&DeleteBillRequest{BillID: bill.ID}), owner)); err != nil {
		t.Fatalf("DeleteBill failed: %v", err)
	}

	// Gone now.
	_, err = client.CallUnary(context.Background(), authed(connect.NewRequest(&DeleteBillRequest{BillID: bill.ID}), owner))
	if connect.CodeOf(err) != connect.CodeNotFound {
		t.Errorf("expected CodeNotFound, got %v", err)
	}
}

func TestGetPaymentLinkRPC(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()

	owner := env.token(t, "alice", "team-1")
	bill := addBill(t, env, owner)

	client := callClient[GetPaymentLinkRequest, GetPaymentLinkResponse](env, ProcedureGetPaymentLink)
	resp, err := client.CallUnary(context.Background(), authed(connect.NewRequest(&GetPaymentLinkRequest{BillID: bill.ID}), owner))
	if err != nil {
		t.Fatalf("GetPaymentLink failed: %v", err)
	}
	if resp.Msg.Data == nil {
		t.Fatal("expected payment link data for unpaid bill")
	}
	if len(resp.Msg.Data.UnpaidShares) != 3 {
		t.Fatalf("expected 3 unpaid shares, got %d", len(resp.Msg.Data.UnpaidShares))
	}
	if resp.Msg.Data.UnpaidShares[0].MemberID != "alice" || resp.Msg.Data.UnpaidShares[0].Amount != 3334 {
		t.Errorf("unexpected first share: %+v", resp.Msg.Data.UnpaidShares[0])
	}

	// Settle everything; the link empties out.
	markClient := callClient[MarkBillAsPaidRequest, MarkBillAsPaidResponse](env, ProcedureMarkBillPaid)
	if _, err := markClient.CallUnary(context.Background(), authed(connect.NewRequest(&MarkBillAsPaidRequest{BillID: bill.ID}), owner)); err != nil {
		t.Fatalf("MarkBillAsPaid failed: %v", err)
	}
	resp, err = client.CallUnary(context.Background(), authed(connect.NewRequest(&GetPaymentLinkRequest{BillID: bill.ID}), owner))
	if err != nil {
		t.Fatalf("GetPaymentLink failed: %v", err)
	}
	if resp.Msg.Data != nil {
		t.Errorf("expected nil data for settled bill, got %+v", resp.Msg.Data)
	}
}

func TestListBillsAndStatisticsRPC(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()

	owner := env.token(t, "alice", "team-1")
	addBill(t, env, owner)

	listClient := callClient[ListBillsRequest, ListBillsResponse](env, ProcedureListBills)
	statsClient := callClient[GetStatisticsRequest, GetStatisticsResponse](env, ProcedureGetStatistics)

	// A single read after the mutation confirms sees the bill: the
	// adapter holds the committed snapshot before its first read serves.
	listResp, err := listClient.CallUnary(context.Background(), authed(connect.NewRequest(&ListBillsRequest{}), owner))
	if err != nil {
		t.Fatalf("ListBills failed: %v", err)
	}
	if len(listResp.Msg.Bills) != 1 {
		t.Fatalf("expected 1 bill in a single read, got %d", len(listResp.Msg.Bills))
	}

	resp, err := statsClient.CallUnary(context.Background(), authed(connect.NewRequest(&GetStatisticsRequest{}), owner))
	if err != nil {
		t.Fatalf("GetStatistics failed: %v", err)
	}
	if resp.Msg.Statistics.TotalAmount != 10000 {
		t.Errorf("expected total 10000, got %d", resp.Msg.Statistics.TotalAmount)
	}
	if debt := resp.Msg.Statistics.PerMemberDebt["alice"].TotalDebt; debt != 3334 {
		t.Errorf("expected alice debt 3334, got %d", debt)
	}
}

func TestWatchBillsRPC(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()

	owner := env.token(t, "alice", "team-1")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	watchClient := callClient[WatchBillsRequest, WatchBillsResponse](env, ProcedureWatchBills)
	stream, err := watchClient.CallServerStream(ctx, authed(connect.NewRequest(&WatchBillsRequest{}), owner))
	if err != nil {
		t.Fatalf("WatchBills failed: %v", err)
	}
	defer stream.Close()

	// First message is the current (empty) snapshot.
	if !stream.Receive() {
		t.Fatalf("expected initial snapshot, got %v", stream.Err())
	}
	if got := len(stream.Msg().Bills); got != 0 {
		t.Fatalf("expected empty initial snapshot, got %d bills", got)
	}

	// A mutation pushes a fresh snapshot down the stream.
	bill := addBill(t, env, owner)
	for stream.Receive() {
		msg := stream.Msg()
		if len(msg.Bills) == 1 {
			if msg.Bills[0].ID != bill.ID {
				t.Errorf("expected bill %s, got %s", bill.ID, msg.Bills[0].ID)
			}
			if msg.Statistics.TotalAmount != 10000 {
				t.Errorf("expected statistics total 10000, got %d", msg.Statistics.TotalAmount)
			}
			return
		}
	}
	t.Fatalf("stream ended before delivering the mutation: %v", stream.Err())
}

func TestWatchBillsRPCUnauthenticated(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()

	watchClient := callClient[WatchBillsRequest, WatchBillsResponse](env, ProcedureWatchBills)
	stream, err := watchClient.CallServerStream(context.Background(), connect.NewRequest(&WatchBillsRequest{}))
	if err == nil {
		// Some transports surface the error on first receive instead.
		if stream.Receive() {
			t.Fatal("expected stream rejection without token")
		}
		err = stream.Err()
		stream.Close()
	}
	if connect.CodeOf(err) != connect.CodeUnauthenticated {
		t.Errorf("expected CodeUnauthenticated, got %v", err)
	}
}
