package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventario-bom/internal/application/conversion"
	"github.com/jhoicas/inventario-bom/internal/application/dto"
)

// ConversionHandler dispara y consulta el job de conversión de datos legados (protegido).
type ConversionHandler struct {
	uc *conversion.UseCase
}

// NewConversionHandler construye el handler.
func NewConversionHandler(uc *conversion.UseCase) *ConversionHandler {
	return &ConversionHandler{uc: uc}
}

// Trigger godoc
// @Summary      Iniciar conversión de datos legados
// @Description  Encola el job y responde de inmediato con su ID. 409 si ya hay uno en curso.
// @Tags         conversions
// @Security     Bearer
// @Produce      json
// @Success      202  {object}  dto.TriggerConversionResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/conversions [post]
func (h *ConversionHandler) Trigger(c *fiber.Ctx) error {
	jobID, err := h.uc.Trigger(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(dto.TriggerConversionResponse{JobID: jobID})
}

// GetStatus godoc
// @Summary      Estado del job de conversión
// @Tags         conversions
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del job"
// @Success      200  {object}  dto.ConversionJobResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/conversions/{id} [get]
func (h *ConversionHandler) GetStatus(c *fiber.Ctx) error {
	job, err := h.uc.GetStatus(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromConversionJob(job))
}

// List godoc
// @Summary      Historial de conversiones
// @Tags         conversions
// @Security     Bearer
// @Produce      json
// @Param        limit  query     int  false  "Límite"  default(20)
// @Success      200    {array}   dto.ConversionJobResponse
// @Router       /api/conversions [get]
func (h *ConversionHandler) List(c *fiber.Ctx) error {
	jobs, err := h.uc.List(c.UserContext(), c.QueryInt("limit", 20))
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.ConversionJobResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, dto.FromConversionJob(j))
	}
	return c.JSON(out)
}
