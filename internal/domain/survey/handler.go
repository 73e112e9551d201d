package survey

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dsr/dsr/internal/platform/auth"
	"github.com/dsr/dsr/pkg/pagination"
)

// Handler exposes the record API over HTTP. It holds no state beyond the
// service and translates the error taxonomy to status codes.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	records := g.Group("/records")
	records.POST("", h.CreateRecord)
	records.GET("", h.ListRecords)
	records.GET("/search", h.SearchRecords)
	records.GET("/area-search", h.SearchByArea)
	records.GET("/advanced-search", h.SearchAdvanced)
	records.GET("/provinces", h.ListProvinces)
	records.GET("/amphoes", h.ListAmphoes)
	records.GET("/tambons", h.ListTambons)
	records.POST("/pdf-batch", h.GenerateReportBatch)
	records.GET("/:id", h.GetRecord)
	records.PUT("/:id", h.UpdateRecord)
	records.DELETE("/:id", h.DeleteRecord, auth.RequireRole("admin"))
	records.POST("/:id/pdf", h.GenerateReport)
	records.POST("/:id/export", h.ExportRecord)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "record not found")
	case errors.Is(err, ErrRender):
		return echo.NewHTTPError(http.StatusInternalServerError, "document generation failed")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

func recordID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid record id")
	}
	return id, nil
}

func (h *Handler) CreateRecord(c echo.Context) error {
	var rec DrugRecord
	if err := c.Bind(&rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	created, err := h.service.Create(c.Request().Context(), &rec)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) GetRecord(c echo.Context) error {
	id, err := recordID(c)
	if err != nil {
		return err
	}
	rec, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) ListRecords(c echo.Context) error {
	p := pagination.FromContext(c)
	items, total, err := h.service.List(c.Request().Context(), p.Limit, p.Offset())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p))
}

func (h *Handler) UpdateRecord(c echo.Context) error {
	id, err := recordID(c)
	if err != nil {
		return err
	}
	var upd RecordUpdate
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	rec, err := h.service.Update(c.Request().Context(), id, &upd)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) DeleteRecord(c echo.Context) error {
	id, err := recordID(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SearchRecords(c echo.Context) error {
	p := pagination.FromContext(c)
	f := SearchFilters{
		Keyword:  c.QueryParam("keyword"),
		IDCard:   c.QueryParam("id_card"),
		Province: c.QueryParam("province"),
	}
	items, total, err := h.service.Search(c.Request().Context(), f, p.Limit, p.Offset())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p))
}

func (h *Handler) SearchByArea(c echo.Context) error {
	p := pagination.FromContext(c)
	f := AreaFilters{
		Province: c.QueryParam("province"),
		Amphoe:   c.QueryParam("amphoe"),
		Tambon:   c.QueryParam("tambon"),
		Moo:      c.QueryParam("moo"),
		HouseNo:  c.QueryParam("house_no"),
	}
	items, total, err := h.service.SearchArea(c.Request().Context(), f, p.Limit, p.Offset())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p))
}

func (h *Handler) SearchAdvanced(c echo.Context) error {
	p := pagination.FromContext(c)
	f := AdvancedFilters{
		FirstName: c.QueryParam("first_name"),
		LastName:  c.QueryParam("last_name"),
		Nickname:  c.QueryParam("nickname"),
		IDCard:    c.QueryParam("id_card"),
		Province:  c.QueryParam("province"),
		Amphoe:    c.QueryParam("amphoe"),
		Tambon:    c.QueryParam("tambon"),
		StartDate: c.QueryParam("start_date"),
		EndDate:   c.QueryParam("end_date"),
		Status:    c.QueryParam("status"),
	}
	if v := c.QueryParam("age_start"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.AgeStart = &n
		}
	}
	if v := c.QueryParam("age_end"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.AgeEnd = &n
		}
	}
	if v := c.QueryParam("has_used_drugs"); v != "" {
		b := v == "true" || v == "1"
		f.HasUsedDrugs = &b
	}
	if v := c.QueryParams()["drug_types"]; len(v) > 0 {
		f.DrugTypes = v
	}

	items, total, err := h.service.SearchAdvanced(c.Request().Context(), f, p.Limit, p.Offset())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p))
}

func (h *Handler) ListProvinces(c echo.Context) error {
	values, err := h.service.Provinces(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": values})
}

func (h *Handler) ListAmphoes(c echo.Context) error {
	province := c.QueryParam("province")
	if province == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "province is required")
	}
	values, err := h.service.Amphoes(c.Request().Context(), province)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": values})
}

func (h *Handler) ListTambons(c echo.Context) error {
	province := c.QueryParam("province")
	amphoe := c.QueryParam("amphoe")
	if province == "" || amphoe == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "province and amphoe are required")
	}
	values, err := h.service.Tambons(c.Request().Context(), province, amphoe)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": values})
}

// renderOptions reads the cache controls shared by the report routes.
// useCache defaults to on, cacheTime is in seconds.
func renderOptions(c echo.Context) (bool, time.Duration) {
	useCache := c.QueryParam("useCache") != "false"
	var ttl time.Duration
	if v := c.QueryParam("cacheTime"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			ttl = time.Duration(n) * time.Second
		}
	}
	return useCache, ttl
}

func (h *Handler) GenerateReport(c echo.Context) error {
	id, err := recordID(c)
	if err != nil {
		return err
	}
	useCache, ttl := renderOptions(c)

	rec, path, err := h.service.RenderReport(c.Request().Context(), id, useCache, ttl)
	if err != nil {
		return httpError(err)
	}
	if c.QueryParam("download") == "true" {
		return c.Attachment(path, filepath.Base(path))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"record_number": rec.RecordNumber,
		"file_path":     path,
		"file_name":     filepath.Base(path),
	})
}

type batchRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

func (h *Handler) GenerateReportBatch(c echo.Context) error {
	var req batchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.IDs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "ids is required")
	}
	useCache, _ := renderOptions(c)

	results := h.service.RenderBatch(c.Request().Context(), req.IDs, useCache)
	succeeded := 0
	for _, res := range results {
		if res.Success {
			succeeded++
		}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"total":     len(results),
		"succeeded": succeeded,
		"results":   results,
	})
}

func (h *Handler) ExportRecord(c echo.Context) error {
	id, err := recordID(c)
	if err != nil {
		return err
	}
	_, path, err := h.service.Export(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.Attachment(path, filepath.Base(path))
}
