package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"reflect"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/hostelhub/fee-ledger/internal/domain"
	"github.com/hostelhub/fee-ledger/pkg/response"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LedgerService is what the HTTP layer needs from the ledger engine.
type LedgerService interface {
	GeneratePeriodForHostel(ctx context.Context, hostelID int64, period domain.Period) (*domain.GenerationResult, error)
	GeneratePeriodForAllHostels(ctx context.Context, period domain.Period) ([]*domain.GenerationResult, error)
	RecordPayment(ctx context.Context, req *domain.RecordPaymentRequest) (*domain.TransactionResult, error)
	RecordAdjustment(ctx context.Context, req *domain.RecordAdjustmentRequest) (*domain.TransactionResult, error)
	UpdateTransaction(ctx context.Context, req *domain.UpdateTransactionRequest) (*domain.TransactionResult, error)
	DeleteTransaction(ctx context.Context, transactionID uuid.UUID) (*domain.TransactionResult, error)
	RecalculateFeeTotals(ctx context.Context, feeID uuid.UUID) (*domain.MonthlyFee, error)
	VerifyFee(ctx context.Context, feeID uuid.UUID) (*domain.FeeVerification, error)
	GetTransactions(ctx context.Context, feeID uuid.UUID) ([]*domain.Transaction, error)
	GetMonthlyFees(ctx context.Context, studentID int64) ([]*domain.MonthlyFee, error)
	DiagnoseCarryForward(ctx context.Context, studentID int64, period domain.Period) (*domain.CarryForwardDiagnosis, error)
	PropagateFrom(ctx context.Context, studentID int64, changed domain.Period) (*domain.CascadeResult, error)
	RepairLedger(ctx context.Context) (*domain.RepairResult, error)
}

type LedgerHandler struct {
	service   LedgerService
	validator *validator.Validate
	logger    *zap.Logger
}

func NewLedgerHandler(service LedgerService, logger *zap.Logger) *LedgerHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerHandler{
		service:   service,
		validator: newValidator(),
		logger:    logger,
	}
}

func newValidator() *validator.Validate {
	v := validator.New()

	// money is validated as a number
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("period", func(fl validator.FieldLevel) bool {
		_, err := domain.ParsePeriod(fl.Field().String())
		return err == nil
	})

	return v
}

// Register mounts the ledger routes on api.
func (h *LedgerHandler) Register(api *mux.Router) {
	api.HandleFunc("/hostels/{hostelId}/periods/{period}/generate", h.GenerateForHostel).Methods("POST")
	api.HandleFunc("/periods/{period}/generate", h.GenerateForAllHostels).Methods("POST")

	api.HandleFunc("/payments", h.RecordPayment).Methods("POST")
	api.HandleFunc("/fees/{feeId}/adjustments", h.RecordAdjustment).Methods("POST")
	api.HandleFunc("/transactions/{transactionId}", h.UpdateTransaction).Methods("PUT")
	api.HandleFunc("/transactions/{transactionId}", h.DeleteTransaction).Methods("DELETE")

	api.HandleFunc("/fees/{feeId}/recalculate", h.RecalculateFee).Methods("POST")
	api.HandleFunc("/fees/{feeId}/verify", h.VerifyFee).Methods("GET")
	api.HandleFunc("/fees/{feeId}/transactions", h.GetTransactions).Methods("GET")

	api.HandleFunc("/students/{studentId}/fees", h.GetMonthlyFees).Methods("GET")
	api.HandleFunc("/students/{studentId}/periods/{period}/carry-forward", h.DiagnoseCarryForward).Methods("GET")
	api.HandleFunc("/students/{studentId}/cascade", h.TriggerCascade).Methods("POST")

	api.HandleFunc("/ledger/repair", h.RepairLedger).Methods("POST")
}

// GenerateForHostel handles POST /hostels/{hostelId}/periods/{period}/generate
func (h *LedgerHandler) GenerateForHostel(w http.ResponseWriter, r *http.Request) {
	hostelID, ok := int64Var(w, r, "hostelId")
	if !ok {
		return
	}
	period, ok := h.periodVar(w, r)
	if !ok {
		return
	}

	result, err := h.service.GeneratePeriodForHostel(r.Context(), hostelID, period)
	if err != nil {
		response.FromError(w, h.logger, err)
		return
	}

	if result.AlreadyGenerated {
		response.Success(w, result)
		return
	}
	response.Created(w, result)
}

// GenerateForAllHostels handles POST /periods/{period}/generate
func (h *LedgerHandler) GenerateForAllHostels(w http.ResponseWriter, r *http.Request) {
	period, ok := h.periodVar(w, r)
	if !ok {
		return
	}

	results, err := h.service.GeneratePeriodForAllHostels(r.Context(), period)
	if err != nil {
		response.FromError(w, h.logger, err)
		return
	}
	response.Success(w, results)
}

// RecordPayment handles POST /payments
func (h *LedgerHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req domain.RecordPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.RecordPayment(r.Context(), &req)
	if err != nil {
		response.FromError(w, h.logger, err)
		return
	}
	response.Created(w, result)
}

// RecordAdjustment handles POST /fees/{feeId}/adjustments
func (h *LedgerHandler) RecordAdjustment(w http.ResponseWriter, r *http.Request) {
	feeID, ok := uuidVar(w, r, "feeId")
	if !ok {
		return
	}

	var req domain.RecordAdjustmentRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.FeeID = feeID

	result, err := h.service.RecordAdjustment(r.Context(), &req)
	if err != nil {
		response.FromError(w, h.logger, err)
		return
	}
	response.Created(w, result)
}

// UpdateTransaction handles PUT /transactions/{transactionId}
func (h *LedgerHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID, ok := uuidVar(w, r, "transactionId")
	if !ok {
		return
	}

	var req domain.UpdateTransactionRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.TransactionID = transactionID

	result, err := h.service.UpdateTransaction(r.Context(), &req)
	if err != nil {
		response.FromError(w, h.logger, err)
		return
	}
	response.Success(w, result)
}

// DeleteTransaction handles DELETE /transactions/{transactionId}
func (h *LedgerHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID, ok := uuidVar(w, r, "transactionId")
	if !ok {
		return
	}

	result, err := h.service.DeleteTransaction(r.Context(), transactionID)
	if err != nil {
		response.FromError(w, h.logger, err)
		return
	}
	response.Success(w, result)
}

// RecalculateFee handles POST /fees/{feeId}/recalculate
func (h *LedgerHandler) RecalculateFee(w http.ResponseWriter, r *http.Request) {
	feeID, ok := uuidVar(w, r, "feeId")
	if !ok {
		return
	}

	fee, err := h.service.RecalculateFeeTotals(r.Context(), feeID)
	if err != nil {
		response.FromError(w, h.logger, err)
		return
	}
	response.Success(w, fee)
}

// VerifyFee handles GET /fees/{feeId}/verify
func (h *LedgerHandler) VerifyFee(w http.ResponseWriter, r *http.Request) {
	feeID, ok := uuidVar(w, r, "feeId")
	if !ok {
		return
	}

	verification, err := h.service.VerifyFee(r.Context(), feeID)
	if err != nil {
		if verification != nil {
			response.ErrorWithDetails(w, err, verification)
			return
		}
		response.FromError(w, h.logger, err)
		return
	}
	response.Success(w, verification)
}

// GetTransactions handles GET /fees/{feeId}/transactions
func (h *LedgerHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	feeID, ok := uuidVar(w, r, "feeId")
	if !ok {
		return
	}

	txns, err := h.service.GetTransactions(r.Context(), feeID)
	if err != nil {
		response.FromError(w, h.logger, err)
		return
	}
	response.Success(w, txns)
}

// GetMonthlyFees handles GET /students/{studentId}/fees
func (h *LedgerHandler) GetMonthlyFees(w http.ResponseWriter, r *http.Request) {
	studentID, ok := int64Var(w, r, "studentId")
	if !ok {
		return
	}

	fees, err := h.service.GetMonthlyFees(r.Context(), studentID)
	if err != nil {
		response.FromError(w, h.logger, err)
		return
	}
	response.Success(w, fees)
}

// DiagnoseCarryForward handles GET /students/{studentId}/periods/{period}/carry-forward
func (h *LedgerHandler) DiagnoseCarryForward(w http.ResponseWriter, r *http.Request) {
	studentID, ok := int64Var(w, r, "studentId")
	if !ok {
		return
	}
	period, ok := h.periodVar(w, r)
	if !ok {
		return
	}

	diagnosis, err := h.service.DiagnoseCarryForward(r.Context(), studentID, period)
	if err != nil {
		response.FromError(w, h.logger, err)
		return
	}
	response.Success(w, diagnosis)
}

// TriggerCascade handles POST /students/{studentId}/cascade
func (h *LedgerHandler) TriggerCascade(w http.ResponseWriter, r *http.Request) {
	studentID, ok := int64Var(w, r, "studentId")
	if !ok {
		return
	}

	var req domain.CascadeRequest
	if !h.decode(w, r, &req) {
		return
	}
	period, _ := domain.ParsePeriod(req.FromPeriod)

	result, err := h.service.PropagateFrom(r.Context(), studentID, period)
	if err != nil {
		response.FromError(w, h.logger, err)
		return
	}
	response.Success(w, result)
}

// RepairLedger handles POST /ledger/repair
func (h *LedgerHandler) RepairLedger(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.RepairLedger(r.Context())
	if err != nil {
		response.FromError(w, h.logger, err)
		return
	}
	response.Success(w, result)
}

// decode reads and validates a JSON body, writing the 400 itself on failure.
func (h *LedgerHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return false
	}
	return true
}

func int64Var(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(w, "Invalid "+name, err)
		return 0, false
	}
	return id, true
}

func uuidVar(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		response.BadRequest(w, "Invalid "+name, err)
		return uuid.Nil, false
	}
	return id, true
}

func (h *LedgerHandler) periodVar(w http.ResponseWriter, r *http.Request) (domain.Period, bool) {
	period, err := domain.ParsePeriod(mux.Vars(r)["period"])
	if err != nil {
		response.FromError(w, h.logger, err)
		return domain.Period{}, false
	}
	return period, true
}
