package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/nixflow/repair-tracker/internal/model"
	"github.com/nixflow/repair-tracker/internal/service"
)

// RepairHandler exposes the repair case endpoints: intake, lifecycle
// updates, notes, lookups and the reporting surface.
type RepairHandler struct {
	Repairs *service.RepairService
	Reports *service.ReportService
}

func NewRepairHandler(repairs *service.RepairService, reports *service.ReportService) *RepairHandler {
	return &RepairHandler{Repairs: repairs, Reports: reports}
}

func actorOf(c echo.Context) service.Actor {
	id, _ := c.Get("user_id").(uint64)
	username, _ := c.Get("username").(string)
	return service.Actor{ID: id, Username: username}
}

// List returns cases for the dashboard, newest first, with optional
// status, branch and free-text filters.
func (h *RepairHandler) List(c echo.Context) error {
	var f service.ListFilter
	if raw := c.QueryParam("status"); raw != "" {
		st, ok := model.ParseStatus(raw)
		if !ok {
			st, ok = model.ParseStatusLabel(raw)
		}
		if !ok {
			return fieldError(c, "status", "unknown status filter")
		}
		f.Status = st
	}
	if raw := c.QueryParam("branch"); raw != "" {
		b, ok := model.ParseBranch(raw)
		if !ok {
			return fieldError(c, "branch", "unknown branch")
		}
		f.Branch = b
	}
	f.Search = c.QueryParam("search")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	repairs, err := h.Repairs.ListRepairs(ctx, f)
	if err != nil {
		logrus.WithError(err).Error("list repairs failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "Failed to fetch repairs"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "repairs": repairs, "count": len(repairs)})
}

// StatusCounts returns per-status case totals for the dashboard tiles,
// largest first.
func (h *RepairHandler) StatusCounts(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	counts, err := h.Reports.StatusCounts(ctx)
	if err != nil {
		logrus.WithError(err).Error("status counts failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "Failed to fetch status counts"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "counts": counts})
}

// SearchQR resolves a scanned code (or pasted identifier) to a full case.
func (h *RepairHandler) SearchQR(c echo.Context) error {
	qr := c.QueryParam("qrData")
	if qr == "" {
		return fieldError(c, "qrData", "qrData is required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	detail, err := h.Repairs.GetRepair(ctx, qr)
	if err != nil {
		logrus.WithError(err).Error("qr search failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "Search failed"})
	}
	if detail == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": "Repair not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "repair": detail})
}

// Get serves the public tracking page: no auth, identifier may be the
// public code or the numeric row id.
func (h *RepairHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	detail, err := h.Repairs.GetRepair(ctx, c.Param("id"))
	if err != nil {
		logrus.WithError(err).Error("get repair failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "Failed to fetch repair"})
	}
	if detail == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": "Repair not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "repair": detail})
}

// createRequest is the JSON intake shape.  customerName/customer and
// estimatedCost/cost are accepted as aliases because both field names are
// in the wild across client versions.
type createRequest struct {
	CustomerName  string           `json:"customerName"`
	Customer      string           `json:"customer"`
	Phone         string           `json:"phone"`
	Device        string           `json:"device"`
	Branch        string           `json:"branch"`
	Issue         string           `json:"issue"`
	Warranty      bool             `json:"warranty"`
	EstimatedCost *decimal.Decimal `json:"estimatedCost"`
	Cost          *decimal.Decimal `json:"cost"`
	ReceivedDate  string           `json:"receivedDate"`
	RepairID      string           `json:"repairId"`
	ImageBase64   string           `json:"image"`
}

// createFields carries the normalized values through validation.
type createFields struct {
	CustomerName string `validate:"required,min=2,max=100"`
	Phone        string `validate:"required,phone"`
	Device       string `validate:"required,min=2,max=100"`
	Issue        string `validate:"required,min=4,max=1000"`
}

// Create registers a new case.  The endpoint accepts either JSON (with an
// optional base64 image) or multipart form data (with an optional image
// file part).
func (h *RepairHandler) Create(c echo.Context) error {
	in, branchRaw, err := h.bindCreate(c)
	if in == nil {
		return err // bindCreate already wrote the response
	}

	if err := c.Validate(&createFields{
		CustomerName: in.CustomerName,
		Phone:        in.Phone,
		Device:       in.Device,
		Issue:        in.Issue,
	}); err != nil {
		return validationResponse(c, err)
	}
	branch, ok := model.ParseBranch(branchRaw)
	if !ok {
		return fieldError(c, "branch", "unknown branch")
	}
	in.Branch = branch
	if in.EstimatedCost != nil && in.EstimatedCost.IsNegative() {
		return fieldError(c, "estimatedCost", "estimatedCost must not be negative")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	res, err := h.Repairs.CreateRepair(ctx, *in, actorOf(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateRepairID):
			return c.JSON(http.StatusConflict, echo.Map{"success": false, "error": err.Error()})
		case errors.Is(err, service.ErrImageProcessing):
			return c.JSON(http.StatusBadGateway, echo.Map{"success": false, "error": err.Error()})
		case errors.Is(err, service.ErrIDGenerationExhausted):
			logrus.WithError(err).Error("repair id space exhausted")
			return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": err.Error()})
		}
		logrus.WithError(err).Error("create repair failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "Failed to create repair"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"success":   true,
		"message":   "Repair created successfully",
		"repairId":  res.RepairID,
		"qrCodeUrl": res.QRCodeURL,
		"imageUrl":  res.ImageURL,
		"status":    res.Status,
	})
}

// bindCreate extracts CreateInput from either encoding.  On a client
// error it writes the 400 response itself and returns a nil input.
func (h *RepairHandler) bindCreate(c echo.Context) (*service.CreateInput, string, error) {
	in := &service.CreateInput{}
	var branch, received string

	if ct := c.Request().Header.Get(echo.HeaderContentType); isMultipart(ct) {
		in.CustomerName = firstOf(c.FormValue("customerName"), c.FormValue("customer"))
		in.Phone = c.FormValue("phone")
		in.Device = c.FormValue("device")
		in.Issue = c.FormValue("issue")
		in.Warranty = c.FormValue("warranty") == "true"
		in.RepairID = c.FormValue("repairId")
		branch = c.FormValue("branch")
		received = c.FormValue("receivedDate")

		if raw := firstOf(c.FormValue("estimatedCost"), c.FormValue("cost")); raw != "" {
			d, err := decimal.NewFromString(raw)
			if err != nil {
				return nil, "", fieldError(c, "estimatedCost", "estimatedCost must be a number")
			}
			in.EstimatedCost = &d
		}
		if fh, err := c.FormFile("image"); err == nil {
			f, err := fh.Open()
			if err != nil {
				return nil, "", fieldError(c, "image", "could not read image")
			}
			defer f.Close()
			data, err := io.ReadAll(f)
			if err != nil {
				return nil, "", fieldError(c, "image", "could not read image")
			}
			in.ImageBytes = data
		}
	} else {
		var req createRequest
		if err := c.Bind(&req); err != nil {
			return nil, "", c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "Invalid request body"})
		}
		in.CustomerName = firstOf(req.CustomerName, req.Customer)
		in.Phone = req.Phone
		in.Device = req.Device
		in.Issue = req.Issue
		in.Warranty = req.Warranty
		in.RepairID = req.RepairID
		in.ImageBase64 = req.ImageBase64
		branch = req.Branch
		received = req.ReceivedDate
		if req.EstimatedCost != nil {
			in.EstimatedCost = req.EstimatedCost
		} else if req.Cost != nil {
			in.EstimatedCost = req.Cost
		}
	}

	if received != "" {
		t, err := parseDate(received)
		if err != nil {
			return nil, "", fieldError(c, "receivedDate", "receivedDate must be an ISO date")
		}
		in.ReceivedDate = &t
	}
	return in, branch, nil
}

// updateRequest mirrors the status form; newStatus/status are aliases.
type updateRequest struct {
	NewStatus  string           `json:"newStatus"`
	Status     string           `json:"status"`
	Cost       *decimal.Decimal `json:"cost"`
	Branch     string           `json:"branch"`
	CostCenter *string          `json:"costCenter"`
	Notes      string           `json:"notes" validate:"max=1000"`
}

// UpdateStatus applies a lifecycle transition with optional cost, branch
// and cost-center changes, all folded into one history entry.
func (h *RepairHandler) UpdateStatus(c echo.Context) error {
	var req updateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "Invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return validationResponse(c, err)
	}

	label := firstOf(req.NewStatus, req.Status)
	if label == "" {
		return fieldError(c, "newStatus", "newStatus is required")
	}
	in := service.UpdateInput{StatusLabel: label, Notes: req.Notes}
	if req.Cost != nil {
		if req.Cost.IsNegative() {
			return fieldError(c, "cost", "cost must not be negative")
		}
		in.Cost = req.Cost
	}
	if req.Branch != "" {
		b, ok := model.ParseBranch(req.Branch)
		if !ok {
			return fieldError(c, "branch", "unknown branch")
		}
		in.Branch = b
	}
	if req.CostCenter != nil {
		cc, ok := model.ParseCostCenter(*req.CostCenter)
		if !ok {
			return fieldError(c, "costCenter", "costCenter must be Company or Customer")
		}
		in.CostCenter = &cc
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	detail, err := h.Repairs.UpdateStatus(ctx, c.Param("id"), in, actorOf(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRepairNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": "Repair not found"})
		case errors.Is(err, service.ErrInvalidStatus):
			return fieldError(c, "newStatus", "unknown status")
		}
		logrus.WithError(err).Error("update repair failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "Failed to update repair"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Status updated successfully", "repair": detail})
}

type noteRequest struct {
	NoteText string `json:"noteText" validate:"required,min=1,max=2000"`
}

// AddNote appends a free-form note to a case.
func (h *RepairHandler) AddNote(c echo.Context) error {
	var req noteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "Invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return validationResponse(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	note, err := h.Repairs.AddNote(ctx, c.Param("id"), req.NoteText, actorOf(c))
	if err != nil {
		if errors.Is(err, service.ErrRepairNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": "Repair not found"})
		}
		logrus.WithError(err).Error("add note failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "Failed to add note"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "note": note})
}

// Report aggregates cases over an optional received-date range and branch.
func (h *RepairHandler) Report(c echo.Context) error {
	f, err := h.bindReportFilter(c)
	if f == nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	rep, err := h.Reports.GenerateReport(ctx, *f)
	if err != nil {
		logrus.WithError(err).Error("report failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "Failed to generate report"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":     true,
		"data":        rep.Data,
		"stats":       rep.Stats,
		"recordCount": rep.RecordCount,
	})
}

// Export renders the same report as an xlsx workbook download.
func (h *RepairHandler) Export(c echo.Context) error {
	f, err := h.bindReportFilter(c)
	if f == nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	rep, err := h.Reports.GenerateReport(ctx, *f)
	if err != nil {
		logrus.WithError(err).Error("report export failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "Failed to generate report"})
	}

	wb, err := reportWorkbook(rep)
	if err != nil {
		logrus.WithError(err).Error("workbook build failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "Failed to export report"})
	}
	defer wb.Close()

	filename := "repair-report-" + time.Now().UTC().Format("2006-01-02") + ".xlsx"
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, filename))
	c.Response().Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Response().WriteHeader(http.StatusOK)
	return wb.Write(c.Response())
}

func (h *RepairHandler) bindReportFilter(c echo.Context) (*service.ReportFilter, error) {
	var f service.ReportFilter
	if raw := c.QueryParam("startDate"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			return nil, fieldError(c, "startDate", "startDate must be an ISO date")
		}
		f.Start = &t
	}
	if raw := c.QueryParam("endDate"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			return nil, fieldError(c, "endDate", "endDate must be an ISO date")
		}
		// The range is end-inclusive for the whole calendar day, whatever
		// time of day the client sent.
		t = endOfDay(t)
		f.End = &t
	}
	if raw := c.QueryParam("branch"); raw != "" {
		b, ok := model.ParseBranch(raw)
		if !ok {
			return nil, fieldError(c, "branch", "unknown branch")
		}
		f.Branch = b
	}
	return &f, nil
}

var reportColumns = []string{
	"Repair ID", "Customer", "Phone", "Device", "Branch", "Issue",
	"Received", "Warranty", "Cost", "Status", "Returned", "Cost Center",
}

func reportWorkbook(rep *service.Report) (*excelize.File, error) {
	wb := excelize.NewFile()
	const sheet = "Repairs"
	idx, err := wb.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	wb.SetActiveSheet(idx)
	if err := wb.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	for i, name := range reportColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := wb.SetCellValue(sheet, cell, name); err != nil {
			return nil, err
		}
	}
	for r, row := range rep.Data {
		values := []interface{}{
			row.RepairID, row.Customer, row.Phone, row.Device, row.Branch,
			row.Issue, row.Date, row.Warranty, row.EstimatedCost.String(),
			row.Status, row.ReturnDate, row.CostCenter,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, r+2)
			if err := wb.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}
	return wb, nil
}

func isMultipart(contentType string) bool {
	return strings.HasPrefix(contentType, echo.MIMEMultipartForm)
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// endOfDay clamps a timestamp to the last instant of its UTC calendar day.
func endOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
}

// parseDate accepts date-only or full RFC 3339 timestamps.
func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
