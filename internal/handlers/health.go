package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/n1kh11p/blokt-sub000/internal/storage"
	"gorm.io/gorm"
)

const healthTimeout = 2 * time.Second

// HealthHandler reports database reachability and free upload space.
type HealthHandler struct {
	db      *gorm.DB
	backend storage.Backend
	version string
}

func NewHealthHandler(db *gorm.DB, backend storage.Backend, version string) *HealthHandler {
	return &HealthHandler{db: db, backend: backend, version: version}
}

type healthResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version,omitempty"`
	Database    string `json:"database"`
	Storage     string `json:"storage,omitempty"`
	FreeBytes   uint64 `json:"free_bytes,omitempty"`
	StorageNote string `json:"storage_error,omitempty"`
}

func (h *HealthHandler) Health(c *gin.Context) {
	resp := healthResponse{Status: "ok", Version: h.version, Database: "ok"}
	code := http.StatusOK

	if err := h.pingDB(c.Request.Context()); err != nil {
		resp.Status = "degraded"
		resp.Database = err.Error()
		code = http.StatusServiceUnavailable
	}

	if h.backend != nil {
		resp.Storage = h.backend.Name()
		if dir := h.backend.SpoolDir(); dir == "" {
			resp.StorageNote = "remote backend, local free space not tracked"
		} else if free, err := storage.FreeBytes(dir); err != nil {
			resp.StorageNote = err.Error()
		} else {
			resp.FreeBytes = free
		}
	}

	c.JSON(code, resp)
}

func (h *HealthHandler) pingDB(ctx context.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	return sqlDB.PingContext(ctx)
}
