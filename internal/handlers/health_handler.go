package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/lettersontherocks/AI-Interview/internal/llm"
	"github.com/lettersontherocks/AI-Interview/internal/questionbank"
	"github.com/lettersontherocks/AI-Interview/internal/utils"
)

var errDatabaseMissing = errors.New("database not initialized")

const (
	serviceName    = "interview"
	serviceVersion = "1.0.0"
)

type ReadinessCheck struct {
	Status  string `json:"status"` // "ok" | "degraded" | "failed"
	Message string `json:"message,omitempty"`
}

type ReadinessResponse struct {
	Status  string                    `json:"status"` // "ready" | "not_ready"
	Service string                    `json:"service"`
	Checks  map[string]ReadinessCheck `json:"checks"`
}

type HealthHandler struct {
	db       *gorm.DB
	provider llm.Provider
	catalog  *questionbank.Catalog
	// fallback reports whether interviews can run without a provider.
	fallback bool
}

func NewHealthHandler(db *gorm.DB, provider llm.Provider, catalog *questionbank.Catalog, fallback bool) *HealthHandler {
	return &HealthHandler{db: db, provider: provider, catalog: catalog, fallback: fallback}
}

func (handler *HealthHandler) HealthzHandler(writer http.ResponseWriter, request *http.Request) {
	utils.JSON(writer, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": serviceName,
		"version": serviceVersion,
	})
}

func (handler *HealthHandler) ReadyzHandler(writer http.ResponseWriter, request *http.Request) {
	checks := make(map[string]ReadinessCheck)
	allChecksPass := true

	if err := handler.pingDatabase(request.Context()); err != nil {
		checks["database"] = ReadinessCheck{Status: "failed", Message: err.Error()}
		allChecksPass = false
	} else {
		checks["database"] = ReadinessCheck{Status: "ok"}
	}

	switch {
	case handler.provider != nil:
		checks["provider"] = ReadinessCheck{Status: "ok"}
	case handler.fallback:
		checks["provider"] = ReadinessCheck{Status: "degraded", Message: "AI provider not initialized, serving fallback questions"}
	default:
		checks["provider"] = ReadinessCheck{Status: "failed", Message: "AI provider not initialized"}
		allChecksPass = false
	}

	if handler.catalog == nil || handler.catalog.Size() == 0 {
		checks["catalog"] = ReadinessCheck{Status: "failed", Message: "Position catalog not loaded"}
		allChecksPass = false
	} else {
		checks["catalog"] = ReadinessCheck{Status: "ok"}
	}

	response := ReadinessResponse{Service: serviceName, Checks: checks}
	if allChecksPass {
		response.Status = "ready"
		utils.JSON(writer, http.StatusOK, response)
	} else {
		response.Status = "not_ready"
		utils.JSON(writer, http.StatusServiceUnavailable, response)
	}
}

func (handler *HealthHandler) pingDatabase(ctx context.Context) error {
	if handler.db == nil {
		return errDatabaseMissing
	}
	sqlDB, err := handler.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}
