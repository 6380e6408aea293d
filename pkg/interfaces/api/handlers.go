package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/vsinha/cashew/pkg/application/dto"
	"github.com/vsinha/cashew/pkg/application/services"
	"github.com/vsinha/cashew/pkg/domain/entities"
)

const (
	dateLayout   = "2006-01-02"
	defaultLimit = 200
	maxLimit     = 5000
)

// ListItemsResponse is the response for GET /api/inventory
type ListItemsResponse struct {
	Items []*entities.InventoryItem `json:"items"`
	Total int                       `json:"total"`
}

// ListInventoryLogsResponse is the response for GET /api/inventory/logs
type ListInventoryLogsResponse struct {
	Logs  []*entities.InventoryLog `json:"logs"`
	Total int                      `json:"total"`
}

// ListProductionResponse is the response for GET /api/production
type ListProductionResponse struct {
	Logs  []*entities.ProductionLog `json:"logs"`
	Total int                       `json:"total"`
}

// ReorderLevelRequest is the body of PUT /api/inventory/{name}/reorder-level
type ReorderLevelRequest struct {
	ReorderLevel entities.Quantity `json:"reorder_level"`
}

// recordBody accepts the stage as text so a missing stage is an error rather
// than the zero stage
type recordBody struct {
	services.RecordRequest
	Stage string `json:"stage"`
}

// recordFailure is returned when a log was saved but its stock effects failed
type recordFailure struct {
	errorResponse
	Result *dto.RecordResult `json:"result"`
}

func (h *Handler) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.plant.Inventory.ListItems(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ListItemsResponse{Items: items, Total: len(items)})
}

func (h *Handler) handleLowStock(w http.ResponseWriter, r *http.Request) {
	items, err := h.plant.Inventory.LowStock(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ListItemsResponse{Items: items, Total: len(items)})
}

// handleInventoryLogs handles GET /api/inventory/logs.
// Query parameters: item, lot, reference, from, to, limit
func (h *Handler) handleInventoryLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, err := h.parseDateRange(q.Get("from"), q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := parseLimit(q.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	logs, err := h.plant.Inventory.ListLogs(r.Context(), entities.InventoryLogFilter{
		ItemName:  q.Get("item"),
		LotID:     q.Get("lot"),
		Reference: q.Get("reference"),
		From:      from,
		To:        to,
		Limit:     limit,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if logs == nil {
		logs = []*entities.InventoryLog{}
	}
	h.writeJSON(w, http.StatusOK, ListInventoryLogsResponse{Logs: logs, Total: len(logs)})
}

func (h *Handler) handleAdjust(w http.ResponseWriter, r *http.Request) {
	var req services.AdjustRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	result, err := h.plant.Inventory.FindAndUpdateOrCreate(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleReorderLevel(w http.ResponseWriter, r *http.Request) {
	var req ReorderLevelRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	item, err := h.plant.Inventory.SetReorderLevel(r.Context(), r.PathValue("name"), req.ReorderLevel)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, item)
}

func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request) {
	var body recordBody
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	stage, err := entities.ParseStage(body.Stage)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req := body.RecordRequest
	req.Stage = stage

	result, err := h.plant.Production.Record(r.Context(), req)
	if err != nil {
		if result == nil {
			h.writeServiceError(w, r, err)
			return
		}
		// The log is stored; report the failed stock update alongside it.
		status, message := statusFor(err), err.Error()
		if status == http.StatusInternalServerError {
			h.logger.Error("Inventory effect failed after log was saved",
				zap.String("log", result.Log.ID), zap.Error(err))
			message = "internal error"
		}
		h.writeJSON(w, status, recordFailure{
			errorResponse: errorResponse{Error: message, LogID: result.Log.ID},
			Result:        result,
		})
		return
	}
	h.writeJSON(w, http.StatusCreated, result)
}

// handleListProduction handles GET /api/production.
// Query parameters: stage, lot, operator, from, to (dates, inclusive), limit
func (h *Handler) handleListProduction(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := entities.ProductionFilter{
		LotID:    q.Get("lot"),
		Operator: q.Get("operator"),
	}
	if s := q.Get("stage"); s != "" {
		stage, err := entities.ParseStage(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Stage = &stage
	}
	var err error
	if filter.From, filter.To, err = h.parseDateRange(q.Get("from"), q.Get("to")); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if filter.Limit, err = parseLimit(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	logs, err := h.plant.Production.List(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if logs == nil {
		logs = []*entities.ProductionLog{}
	}
	h.writeJSON(w, http.StatusOK, ListProductionResponse{Logs: logs, Total: len(logs)})
}

func (h *Handler) handleGetProduction(w http.ResponseWriter, r *http.Request) {
	log, err := h.plant.Production.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, log)
}

func (h *Handler) handleDailyReport(w http.ResponseWriter, r *http.Request) {
	day, err := h.parseDay(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := h.plant.Reports.DailyReport(r.Context(), day)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handler) handleRangeReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("from") == "" || q.Get("to") == "" {
		writeError(w, http.StatusBadRequest, "from and to are required")
		return
	}
	from, err := time.ParseInLocation(dateLayout, q.Get("from"), h.location)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from date: must be YYYY-MM-DD")
		return
	}
	to, err := time.ParseInLocation(dateLayout, q.Get("to"), h.location)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to date: must be YYYY-MM-DD")
		return
	}

	report, err := h.plant.Reports.RangeReport(r.Context(), from, to)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handler) handleInventoryReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.plant.Reports.InventoryReport(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handler) handleListLots(w http.ResponseWriter, r *http.Request) {
	lots, err := h.plant.Trace.ListLots(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, lots)
}

func (h *Handler) handleTrace(w http.ResponseWriter, r *http.Request) {
	trace, err := h.plant.Trace.Trace(r.Context(), r.PathValue("lot"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, trace)
}

func (h *Handler) handleSummarizeDay(w http.ResponseWriter, r *http.Request) {
	day, err := h.parseDay(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	summary, err := h.plant.Summaries.SummarizeDay(r.Context(), day)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleSummarizeLot(w http.ResponseWriter, r *http.Request) {
	summary, err := h.plant.Summaries.SummarizeLot(r.Context(), r.PathValue("lot"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

// parseDay parses a YYYY-MM-DD date in the plant time zone, defaulting to today
func (h *Handler) parseDay(s string) (time.Time, error) {
	if s == "" {
		return services.StartOfDay(h.clock().In(h.location)), nil
	}
	day, err := time.ParseInLocation(dateLayout, s, h.location)
	if err != nil {
		return time.Time{}, errors.New("invalid date: must be YYYY-MM-DD")
	}
	return day, nil
}

// parseDateRange parses optional inclusive dates into a half-open [from, to)
// time range
func (h *Handler) parseDateRange(fromParam, toParam string) (time.Time, time.Time, error) {
	var from, to time.Time
	var err error
	if fromParam != "" {
		if from, err = time.ParseInLocation(dateLayout, fromParam, h.location); err != nil {
			return from, to, errors.New("invalid from date: must be YYYY-MM-DD")
		}
	}
	if toParam != "" {
		if to, err = time.ParseInLocation(dateLayout, toParam, h.location); err != nil {
			return from, to, errors.New("invalid to date: must be YYYY-MM-DD")
		}
		to = to.AddDate(0, 0, 1)
	}
	return from, to, nil
}

func parseLimit(s string) (int, error) {
	if s == "" {
		return defaultLimit, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > maxLimit {
		return 0, fmt.Errorf("invalid limit: must be 1-%d", maxLimit)
	}
	return n, nil
}
