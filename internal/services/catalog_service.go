package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/charlesng35/screwcat/internal/models"
	"github.com/charlesng35/screwcat/internal/monitoring"
	apperrors "github.com/charlesng35/screwcat/pkg/errors"
	"github.com/charlesng35/screwcat/pkg/logger"
)

// DefaultPageSize is the number of fasteners returned per page.
const DefaultPageSize = 50

// CatalogService manages fasteners and their reference dimensions.
type CatalogService struct {
	db          *gorm.DB
	invalidator *Invalidator
	pageSize    int
	strict      bool
	log         *zap.Logger
}

// CatalogOption customises a CatalogService.
type CatalogOption func(*CatalogService)

// WithInvalidator clears cached reads after every committed write.
func WithInvalidator(inv *Invalidator) CatalogOption {
	return func(s *CatalogService) { s.invalidator = inv }
}

// WithPageSize overrides DefaultPageSize.
func WithPageSize(size int) CatalogOption {
	return func(s *CatalogService) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

// WithStrictInvalidation makes a failed invalidation fail the write request.
func WithStrictInvalidation(strict bool) CatalogOption {
	return func(s *CatalogService) { s.strict = strict }
}

// NewCatalogService constructs a catalog service once a database handle is supplied.
func NewCatalogService(db *gorm.DB, opts ...CatalogOption) (*CatalogService, error) {
	if db == nil {
		return nil, errors.New("catalog service: db is required")
	}
	svc := &CatalogService{
		db:       db,
		pageSize: DefaultPageSize,
		log:      logger.WithModule("catalog"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

func ensuredContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// FastenerView is a fastener joined with its type and material names.
type FastenerView struct {
	ID            uint           `json:"id"`
	Name          string         `json:"name"`
	Quantity      models.Decimal `json:"quantity"`
	ComponentType string         `json:"componentType"`
	Material      string         `json:"material"`
	Category      string         `json:"category"`
	Price         models.Decimal `json:"price"`
	Note          string         `json:"note,omitempty"`
	ImageURL      string         `json:"imageUrl,omitempty"`
}

// ReferenceView is an id/name pair from a reference table.
type ReferenceView struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// ListOptions controls fastener listing. Page is zero-based and only used when Paginate is set.
type ListOptions struct {
	Paginate bool
	Page     int
}

// ListResult carries one page (or all) of fasteners.
type ListResult struct {
	Items    []FastenerView
	Page     int
	PageSize int
	Total    int64
}

// CreateFastenerInput captures the fields accepted when creating a fastener.
// Category names the fastener type and doubles as the description.
type CreateFastenerInput struct {
	Name     string
	Material string
	Category string
	Price    models.Decimal
	Quantity models.Decimal
	Note     string
}

// UpdateFastenerInput replaces every mutable field. A nil ComponentType keeps the current type.
type UpdateFastenerInput struct {
	ID            uint
	Name          string
	Note          string
	Price         models.Decimal
	Quantity      models.Decimal
	Material      string
	ComponentType *string
}

// DeleteFastenerInput selects the fastener to delete by name, or by ID when Name is blank.
type DeleteFastenerInput struct {
	ID   uint
	Name string
}

// WriteResult is the outcome of a committed write. CacheStale is set when cached reads
// could not be invalidated.
type WriteResult struct {
	Fastener   *models.Fastener
	CacheStale bool
}

func (s *CatalogService) viewQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Table("t_screw AS s").
		Select("s.id, s.name, s.quantity, s.price, s.note, s.image_url, " +
			"t.name AS component_type, t.name AS category, m.name AS material").
		Joins("JOIN t_screw_type t ON t.id = s.type_id").
		Joins("JOIN t_screw_material m ON m.id = s.material_id").
		Scopes(models.ActiveIn("s"))
}

// List returns non-deleted fasteners ordered by id.
func (s *CatalogService) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	ctx = ensuredContext(ctx)

	result := &ListResult{Items: []FastenerView{}}
	query := s.viewQuery(ctx).Order("s.id")

	if opts.Paginate {
		page := opts.Page
		if page < 0 {
			page = 0
		}
		if err := s.db.WithContext(ctx).Model(&models.Fastener{}).Scopes(models.Active).Count(&result.Total).Error; err != nil {
			return nil, fmt.Errorf("catalog service: count fasteners: %w", err)
		}
		result.Page = page
		result.PageSize = s.pageSize

		pages := (result.Total + int64(s.pageSize) - 1) / int64(s.pageSize)
		if int64(page) >= pages {
			return result, nil
		}
		query = query.Limit(s.pageSize).Offset(page * s.pageSize)
	}

	if err := query.Scan(&result.Items).Error; err != nil {
		return nil, fmt.Errorf("catalog service: list fasteners: %w", err)
	}
	if !opts.Paginate {
		result.Total = int64(len(result.Items))
	}
	return result, nil
}

// Get returns one non-deleted fastener.
func (s *CatalogService) Get(ctx context.Context, id uint) (*FastenerView, error) {
	ctx = ensuredContext(ctx)

	var views []FastenerView
	if err := s.viewQuery(ctx).Where("s.id = ?", id).Limit(1).Scan(&views).Error; err != nil {
		return nil, fmt.Errorf("catalog service: get fastener: %w", err)
	}
	if len(views) == 0 {
		return nil, notFound()
	}
	return &views[0], nil
}

// Create inserts a fastener. Unknown type or material names fall back to the sentinel rows
// and the size is always the sentinel.
func (s *CatalogService) Create(ctx context.Context, input CreateFastenerInput) (*WriteResult, error) {
	ctx = ensuredContext(ctx)

	var typeID, materialID uint
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		typeID, _, err = s.resolve(gctx, &models.FastenerType{}, input.Category, models.DefaultTypeID)
		return err
	})
	g.Go(func() (err error) {
		materialID, _, err = s.resolve(gctx, &models.Material{}, input.Material, models.DefaultMaterialID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("catalog service: resolve references: %w", err)
	}

	fastener := &models.Fastener{
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Category),
		Quantity:    input.Quantity,
		Price:       input.Price,
		Note:        input.Note,
		TypeID:      typeID,
		SizeID:      models.DefaultSizeID,
		MaterialID:  materialID,
	}

	err := s.db.WithContext(ctx).Create(fastener).Error
	monitoring.RecordCatalogWrite("create", err)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.ErrResourceExists.
				WithMessage(fmt.Sprintf("Screw %q already exists for this type", fastener.Name)).
				WithInternal(err)
		}
		return nil, fmt.Errorf("catalog service: create fastener: %w", err)
	}

	return s.afterWrite(ctx, fastener, 0)
}

// Update replaces the mutable fields of an existing fastener. Material, and ComponentType when
// supplied, must name existing rows.
func (s *CatalogService) Update(ctx context.Context, input UpdateFastenerInput) (*WriteResult, error) {
	ctx = ensuredContext(ctx)

	var fastener models.Fastener
	if err := s.db.WithContext(ctx).Scopes(models.Active).First(&fastener, input.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound()
		}
		return nil, fmt.Errorf("catalog service: load fastener: %w", err)
	}

	var (
		materialID, typeID       uint
		materialFound, typeFound bool
		componentType            string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		materialID, materialFound, err = s.resolve(gctx, &models.Material{}, input.Material, 0)
		return err
	})
	if input.ComponentType != nil {
		componentType = *input.ComponentType
		g.Go(func() (err error) {
			typeID, typeFound, err = s.resolve(gctx, &models.FastenerType{}, componentType, 0)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("catalog service: resolve references: %w", err)
	}

	var fields []apperrors.FieldError
	if !materialFound {
		fields = append(fields, apperrors.FieldError{
			Field: "material", Code: "unknown", Value: input.Material,
			Message: fmt.Sprintf("Unknown material: %s", input.Material),
		})
	}
	if input.ComponentType != nil && !typeFound {
		fields = append(fields, apperrors.FieldError{
			Field: "componentType", Code: "unknown", Value: componentType,
			Message: fmt.Sprintf("Unknown screw type: %s", componentType),
		})
	}
	if len(fields) > 0 {
		return nil, apperrors.NewValidation("Unknown reference", fields...).WithInternal(ErrUnknownReference)
	}

	updates := map[string]interface{}{
		"name":        strings.TrimSpace(input.Name),
		"note":        input.Note,
		"price":       input.Price,
		"quantity":    input.Quantity,
		"material_id": materialID,
	}
	if input.ComponentType != nil {
		updates["type_id"] = typeID
	}

	res := s.db.WithContext(ctx).Model(&models.Fastener{}).
		Where("id = ? AND is_deleted = ?", fastener.ID, false).
		Updates(updates)
	monitoring.RecordCatalogWrite("update", res.Error)
	if res.Error != nil {
		if isUniqueConstraintError(res.Error) {
			return nil, apperrors.ErrResourceExists.
				WithMessage(fmt.Sprintf("Screw %q already exists for this type", input.Name)).
				WithInternal(res.Error)
		}
		return nil, fmt.Errorf("catalog service: update fastener: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.NewBadRequest("Operation failed").WithInternal(ErrNoRowsAffected)
	}

	if err := s.db.WithContext(ctx).First(&fastener, fastener.ID).Error; err != nil {
		return nil, fmt.Errorf("catalog service: reload fastener: %w", err)
	}
	return s.afterWrite(ctx, &fastener, fastener.ID)
}

// Delete soft-deletes a fastener selected by name, or by id when no name is given.
func (s *CatalogService) Delete(ctx context.Context, input DeleteFastenerInput) (*WriteResult, error) {
	ctx = ensuredContext(ctx)

	query := s.db.WithContext(ctx).Scopes(models.Active).Order("id")
	if name := strings.TrimSpace(input.Name); name != "" {
		query = query.Where("name = ?", name)
	} else {
		query = query.Where("id = ?", input.ID)
	}

	var fastener models.Fastener
	if err := query.First(&fastener).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound()
		}
		return nil, fmt.Errorf("catalog service: load fastener: %w", err)
	}

	res := s.db.WithContext(ctx).Model(&models.Fastener{}).
		Where("id = ? AND is_deleted = ?", fastener.ID, false).
		Update("is_deleted", true)
	monitoring.RecordCatalogWrite("delete", res.Error)
	if res.Error != nil {
		return nil, fmt.Errorf("catalog service: delete fastener: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.NewBadRequest("Operation failed").WithInternal(ErrNoRowsAffected)
	}

	fastener.IsDeleted = true
	return s.afterWrite(ctx, &fastener, fastener.ID)
}

// ListTypes returns non-deleted fastener types.
func (s *CatalogService) ListTypes(ctx context.Context) ([]ReferenceView, error) {
	return s.listReference(ensuredContext(ctx), &models.FastenerType{})
}

// ListMaterials returns non-deleted materials.
func (s *CatalogService) ListMaterials(ctx context.Context) ([]ReferenceView, error) {
	return s.listReference(ensuredContext(ctx), &models.Material{})
}

func (s *CatalogService) listReference(ctx context.Context, model interface{}) ([]ReferenceView, error) {
	views := []ReferenceView{}
	if err := s.db.WithContext(ctx).Model(model).Scopes(models.Active).
		Select("id", "name").Order("id").Scan(&views).Error; err != nil {
		return nil, fmt.Errorf("catalog service: list reference data: %w", err)
	}
	return views, nil
}

// resolve looks up a non-deleted reference row by exact name, returning fallback when none matches.
func (s *CatalogService) resolve(ctx context.Context, model interface{}, name string, fallback uint) (uint, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return fallback, false, nil
	}
	var ids []uint
	if err := s.db.WithContext(ctx).Model(model).Scopes(models.Active).
		Where("name = ?", name).Order("id").Limit(1).Pluck("id", &ids).Error; err != nil {
		return 0, false, err
	}
	if len(ids) == 0 {
		return fallback, false, nil
	}
	return ids[0], true, nil
}

func (s *CatalogService) afterWrite(ctx context.Context, fastener *models.Fastener, id uint) (*WriteResult, error) {
	result := &WriteResult{Fastener: fastener}
	if err := s.invalidator.Fastener(ctx, id); err != nil {
		if s.strict {
			return nil, apperrors.NewDependencyFailure("Cache invalidation failed", err)
		}
		result.CacheStale = true
	}
	return result, nil
}

func notFound() error {
	return apperrors.NewNotFound("Screw not found").WithInternal(ErrFastenerNotFound)
}
