package rpc

import (
	"time"

	"github.com/si14444/roomie-backend/internal/models"
	"github.com/si14444/roomie-backend/internal/service"
)

// Procedure paths for the bill service. Handlers are mounted at these
// paths and clients dial them directly.
const (
	ProcedureAddBill        = "/roomie.v1.BillService/AddBill"
	ProcedureTogglePayment  = "/roomie.v1.BillService/TogglePayment"
	ProcedureMarkBillPaid   = "/roomie.v1.BillService/MarkBillAsPaid"
	ProcedureExtendDueDate  = "/roomie.v1.BillService/ExtendDueDate"
	ProcedureDeleteBill     = "/roomie.v1.BillService/DeleteBill"
	ProcedureGetPaymentLink = "/roomie.v1.BillService/GetPaymentLink"
	ProcedureListBills      = "/roomie.v1.BillService/ListBills"
	ProcedureGetStatistics  = "/roomie.v1.BillService/GetStatistics"
	ProcedureWatchBills     = "/roomie.v1.BillService/WatchBills"
)

// AddBillRequest creates a new bill for the acting member's team.
// Amount and custom split values are minor currency units.
type AddBillRequest struct {
	Name          string           `json:"name"`
	Amount        int64            `json:"amount"`
	AccountNumber string           `json:"accountNumber,omitempty"`
	Bank          string           `json:"bank,omitempty"`
	Category      string           `json:"category"`
	SplitType     string           `json:"splitType"`
	CustomSplit   map[string]int64 `json:"customSplit,omitempty"`
	DueDate       time.Time        `json:"dueDate"`
}

type AddBillResponse struct {
	Bill models.Bill `json:"bill"`
}

type TogglePaymentRequest struct {
	BillID   string `json:"billId"`
	MemberID string `json:"memberId"`
}

type TogglePaymentResponse struct {
	Bill models.Bill `json:"bill"`
}

type MarkBillAsPaidRequest struct {
	BillID string `json:"billId"`
}

type MarkBillAsPaidResponse struct {
	Bill models.Bill `json:"bill"`
}

type ExtendDueDateRequest struct {
	BillID string `json:"billId"`
}

type ExtendDueDateResponse struct {
	Bill models.Bill `json:"bill"`
}

type DeleteBillRequest struct {
	BillID string `json:"billId"`
}

type DeleteBillResponse struct{}

type GetPaymentLinkRequest struct {
	BillID string `json:"billId"`
}

// MemberShare is one unpaid member's owed amount in minor units.
type MemberShare struct {
	MemberID string `json:"memberId"`
	Amount   int64  `json:"amount"`
}

// PaymentLinkData lists the outstanding shares on a bill.
type PaymentLinkData struct {
	BillID       string        `json:"billId"`
	BillName     string        `json:"billName"`
	UnpaidShares []MemberShare `json:"unpaidShares"`
}

// GetPaymentLinkResponse carries nil Data when the bill is fully paid:
// there is nothing left to request.
type GetPaymentLinkResponse struct {
	Data *PaymentLinkData `json:"data"`
}

type ListBillsRequest struct{}

type ListBillsResponse struct {
	Bills []models.Bill `json:"bills"`
}

// MemberDebt mirrors models.MemberDebt on the wire.
type MemberDebt struct {
	TotalDebt  int64 `json:"totalDebt"`
	PaidAmount int64 `json:"paidAmount"`
}

// Statistics mirrors models.Statistics on the wire.
type Statistics struct {
	TotalAmount     int64                 `json:"totalAmount"`
	PerPersonAmount int64                 `json:"perPersonAmount"`
	PerMemberDebt   map[string]MemberDebt `json:"perMemberDebt"`
}

type GetStatisticsRequest struct{}

type GetStatisticsResponse struct {
	Statistics Statistics `json:"statistics"`
}

type WatchBillsRequest struct{}

// WatchBillsResponse is one streamed snapshot: the full bill set plus
// the statistics derived from it.
type WatchBillsResponse struct {
	Bills      []models.Bill `json:"bills"`
	Statistics Statistics    `json:"statistics"`
}

func statisticsFromModel(stats models.Statistics) Statistics {
	out := Statistics{
		TotalAmount:     stats.TotalAmount,
		PerPersonAmount: stats.PerPersonAmount,
		PerMemberDebt:   make(map[string]MemberDebt, len(stats.PerMemberDebt)),
	}
	for id, debt := range stats.PerMemberDebt {
		out.PerMemberDebt[id] = MemberDebt{TotalDebt: debt.TotalDebt, PaidAmount: debt.PaidAmount}
	}
	return out
}

func paymentLinkFromModel(data *service.PaymentLinkData) *PaymentLinkData {
	if data == nil {
		return nil
	}
	out := &PaymentLinkData{
		BillID:       data.BillID,
		BillName:     data.BillName,
		UnpaidShares: make([]MemberShare, len(data.UnpaidShares)),
	}
	for i, share := range data.UnpaidShares {
		out.UnpaidShares[i] = MemberShare{MemberID: share.MemberID, Amount: share.Amount}
	}
	return out
}
