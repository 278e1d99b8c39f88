package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/screwcat/internal/models"
	"github.com/charlesng35/screwcat/internal/services"
	apperrors "github.com/charlesng35/screwcat/pkg/errors"
	"github.com/charlesng35/screwcat/pkg/response"
)

// HeaderCacheInvalidation reports that a committed write could not clear cached reads.
const HeaderCacheInvalidation = "X-Cache-Invalidation"

// ScrewHandler serves one version of the screw catalog. Versions differ only in whether the
// list endpoint paginates.
type ScrewHandler struct {
	svc      *services.CatalogService
	paginate bool
}

func NewScrewHandler(svc *services.CatalogService, paginate bool) *ScrewHandler {
	return &ScrewHandler{svc: svc, paginate: paginate}
}

type createScrewRequest struct {
	Name     string         `json:"name" validate:"required,max=255"`
	Material string         `json:"material" validate:"max=255"`
	Category string         `json:"category" validate:"max=255"`
	Price    models.Decimal `json:"price" validate:"required,decimal"`
	Quantity models.Decimal `json:"quantity" validate:"required,decimal"`
	Note     string         `json:"note"`
}

type updateScrewRequest struct {
	ID            uint           `json:"id"`
	Name          string         `json:"name" validate:"required,max=255"`
	Note          string         `json:"note"`
	Price         models.Decimal `json:"price" validate:"required,decimal"`
	Quantity      models.Decimal `json:"quantity" validate:"required,decimal"`
	Material      string         `json:"material" validate:"required,max=255"`
	ComponentType *string        `json:"componentType" validate:"omitempty,max=255"`
}

type deleteScrewRequest struct {
	Name string `json:"name"`
}

// GET /screws
func (h *ScrewHandler) List(c *gin.Context) {
	opts := services.ListOptions{Paginate: h.paginate}
	if h.paginate {
		opts.Page = parseIntQuery(c, "page", 0)
	}

	result, err := h.svc.List(requestContext(c), opts)
	if err != nil {
		response.Error(c, err)
		return
	}

	if !h.paginate {
		response.Success(c, http.StatusOK, result.Items)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, result.Items,
		response.NewPagination(result.Page, result.PageSize, result.Total))
}

// GET /screws/:id
func (h *ScrewHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	view, err := h.svc.Get(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// POST /screws
func (h *ScrewHandler) Create(c *gin.Context) {
	var body createScrewRequest
	if !bindAndValidate(c, &body) {
		return
	}

	result, err := h.svc.Create(requestContext(c), services.CreateFastenerInput{
		Name:     strings.TrimSpace(body.Name),
		Material: strings.TrimSpace(body.Material),
		Category: strings.TrimSpace(body.Category),
		Price:    body.Price,
		Quantity: body.Quantity,
		Note:     body.Note,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	writeResult(c, result)
}

// PATCH /screws/:id
func (h *ScrewHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var body updateScrewRequest
	if !bindAndValidate(c, &body) {
		return
	}
	if body.ID != 0 && body.ID != id {
		response.Error(c, apperrors.NewValidation("id does not match the request path", apperrors.FieldError{
			Field:   "id",
			Message: "id does not match the request path",
			Code:    "mismatch",
			Value:   body.ID,
		}))
		return
	}

	input := services.UpdateFastenerInput{
		ID:       id,
		Name:     strings.TrimSpace(body.Name),
		Note:     body.Note,
		Price:    body.Price,
		Quantity: body.Quantity,
		Material: strings.TrimSpace(body.Material),
	}
	if body.ComponentType != nil {
		componentType := strings.TrimSpace(*body.ComponentType)
		input.ComponentType = &componentType
	}

	result, err := h.svc.Update(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeResult(c, result)
}

// DELETE /screws/:id
// The body may name the fastener; without a name the path id selects it.
func (h *ScrewHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var body deleteScrewRequest
	if !bindOptionalJSON(c, &body) {
		return
	}

	result, err := h.svc.Delete(requestContext(c), services.DeleteFastenerInput{
		ID:   id,
		Name: strings.TrimSpace(body.Name),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	writeResult(c, result)
}

// GET /screws/types
func (h *ScrewHandler) Types(c *gin.Context) {
	types, err := h.svc.ListTypes(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, types)
}

// GET /screws/materials
func (h *ScrewHandler) Materials(c *gin.Context) {
	materials, err := h.svc.ListMaterials(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, materials)
}

func writeResult(c *gin.Context, result *services.WriteResult) {
	if result.CacheStale {
		c.Header(HeaderCacheInvalidation, "failed")
	}
	response.Success(c, http.StatusOK, result.Fastener)
}
