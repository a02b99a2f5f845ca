package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rafabene/avantpro-avatars/internal/handlers/dto"
	"github.com/rafabene/avantpro-avatars/internal/services"
)

// ConsistencySweeper executa a manutenção de consistência
type ConsistencySweeper interface {
	EnsureConsistency(ctx context.Context) (services.SweepReport, error)
}

// StaleRefresher atualiza gravatars vencidos
type StaleRefresher interface {
	RefreshStale(ctx context.Context) (services.StaleRefreshReport, error)
}

// MaintenanceHandler expõe as tarefas de manutenção de avatar
type MaintenanceHandler struct {
	sweeper ConsistencySweeper
	stale   StaleRefresher
}

// NewMaintenanceHandler cria um novo MaintenanceHandler
func NewMaintenanceHandler(sweeper ConsistencySweeper, stale StaleRefresher) *MaintenanceHandler {
	return &MaintenanceHandler{sweeper: sweeper, stale: stale}
}

// Register registra as rotas de manutenção no grupo informado
func (h *MaintenanceHandler) Register(rg *gin.RouterGroup) {
	maintenance := rg.Group("/maintenance/avatars")
	{
		maintenance.POST("/consistency", h.EnsureConsistency)
		maintenance.POST("/stale-gravatars", h.RefreshStale)
	}
}

// EnsureConsistency executa uma varredura de consistência
//
//	@Summary	Executa a varredura de consistência de avatares
//	@Tags		maintenance
//	@Produce	json
//	@Success	200	{object}	services.SweepReport
//	@Failure	409	{object}	dto.ErrorResponse
//	@Router		/maintenance/avatars/consistency [post]
func (h *MaintenanceHandler) EnsureConsistency(c *gin.Context) {
	report, err := h.sweeper.EnsureConsistency(c.Request.Context())
	if err != nil {
		dto.WriteProblem(c, dto.ErrorResponseFor(c, err))
		return
	}
	c.JSON(http.StatusOK, report)
}

// RefreshStale atualiza os gravatars vencidos
//
//	@Summary	Atualiza gravatars vencidos
//	@Tags		maintenance
//	@Produce	json
//	@Success	200	{object}	services.StaleRefreshReport
//	@Router		/maintenance/avatars/stale-gravatars [post]
func (h *MaintenanceHandler) RefreshStale(c *gin.Context) {
	report, err := h.stale.RefreshStale(c.Request.Context())
	if err != nil {
		dto.WriteProblem(c, dto.ErrorResponseFor(c, err))
		return
	}
	c.JSON(http.StatusOK, report)
}
