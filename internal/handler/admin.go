package handler

import (
	"net/http"
	"runtime"
	"time"

	"storefront-api/internal/logger"
	"storefront-api/internal/model"
	"storefront-api/internal/repository"
	"storefront-api/internal/service"
	"storefront-api/pkg/response"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// AdminHandler handles admin-related HTTP requests.
type AdminHandler struct {
	rows      repository.RowRepository
	dbType    string // sqlite, postgres, mysql or mongodb
	sessions  *service.SessionService
	rowCache  *service.RowCache
	rank      *service.ViewRank
	market    *service.MarketService
	startTime time.Time
	log       *logrus.Entry
}

// AdminDeps groups the services the admin endpoints inspect and drive.
type AdminDeps struct {
	Rows     repository.RowRepository
	DBType   string
	Sessions *service.SessionService
	RowCache *service.RowCache
	Rank     *service.ViewRank
	Market   *service.MarketService
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(deps AdminDeps, log logrus.FieldLogger) *AdminHandler {
	return &AdminHandler{
		rows:      deps.Rows,
		dbType:    deps.DBType,
		sessions:  deps.Sessions,
		rowCache:  deps.RowCache,
		rank:      deps.Rank,
		market:    deps.Market,
		startTime: time.Now(),
		log:       logger.Component(log, "admin"),
	}
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := make(map[string]interface{})

	// System info
	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["db_type"] = h.dbType

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
		"heap_inuse_mb": float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	// Store stats
	store := map[string]interface{}{"status": "connected"}
	if n, err := h.sessions.Count(ctx); err == nil {
		store["sessions"] = n
	} else {
		store["status"] = "error"
		store["error"] = err.Error()
	}
	if n, err := h.rowCache.Pending(ctx); err == nil {
		store["scheduled_rows"] = n
	}
	if top, err := h.rank.Top(ctx, 10); err == nil {
		store["top_items"] = top
	}
	stats["redis"] = store

	// Backing database stats
	if h.rows != nil {
		dbStats, err := h.rows.GetStats(ctx)
		if err == nil {
			dbStats["status"] = "connected"
			stats["backing_db"] = dbStats
		} else {
			stats["backing_db"] = map[string]interface{}{
				"status": "error",
				"error":  err.Error(),
			}
		}
	} else {
		stats["backing_db"] = map[string]interface{}{
			"status": "not_configured",
		}
	}

	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}

// ScheduleRequest sets a row's refresh delay. Zero or less stops caching it.
type ScheduleRequest struct {
	DelaySeconds float64 `json:"delay_seconds"`
}

// ScheduleRow handles POST /api/v1/admin/rows/{row_id}/schedule
func (h *AdminHandler) ScheduleRow(w http.ResponseWriter, r *http.Request) {
	rowID := chi.URLParam(r, "row_id")

	var req ScheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}

	delay := time.Duration(req.DelaySeconds * float64(time.Second))
	if err := h.rowCache.Schedule(r.Context(), rowID, delay); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	h.log.WithFields(logrus.Fields{"row": rowID, "delay": delay}).Info("row scheduled")
	response.OK(w, map[string]interface{}{"row_id": rowID, "delay_seconds": req.DelaySeconds})
}

// PutRowRequest is the new content of a backing row.
type PutRowRequest struct {
	Data string `json:"data"`
}

// PutRow handles PUT /api/v1/admin/rows/{row_id}
func (h *AdminHandler) PutRow(w http.ResponseWriter, r *http.Request) {
	rowID := chi.URLParam(r, "row_id")

	var req PutRowRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}

	row := &model.Row{ID: rowID, Data: req.Data, UpdatedAt: time.Now()}
	if err := h.rows.UpsertRow(r.Context(), row); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	response.OK(w, row)
}

// GrantRequest gives a user an item, funds or both.
type GrantRequest struct {
	UserID string `json:"user_id"`
	ItemID string `json:"item_id"`
	Funds  int64  `json:"funds"`
}

// Grant handles POST /api/v1/admin/grants
func (h *AdminHandler) Grant(w http.ResponseWriter, r *http.Request) {
	var req GrantRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if err := service.ValidateUserID(req.UserID); err != nil {
		response.Error(w, toAPIError(err))
		return
	}

	if req.ItemID != "" {
		if err := h.market.GrantItem(r.Context(), req.UserID, req.ItemID); err != nil {
			writeError(w, r, h.log, err)
			return
		}
	}
	if req.Funds != 0 {
		if _, err := h.market.Deposit(r.Context(), req.UserID, req.Funds); err != nil {
			writeError(w, r, h.log, err)
			return
		}
	}

	acct, err := h.market.Account(r.Context(), req.UserID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	response.OK(w, acct)
}
