package echoapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/osama-eldrieny/cohort-manager-sub000/core"
	"github.com/osama-eldrieny/cohort-manager-sub000/core/student"
)

type entityApi struct {
	store     core.Store
	validator *core.Validator
}

func registerEntityAPI(g *echo.Group, store core.Store, v *core.Validator) {
	api := entityApi{
		store:     store,
		validator: v,
	}

	g.GET("/export", api.export)
	g.POST("/"+core.Students.Name, api.upsertStudent)

	for _, entity := range core.AllEntities {
		eg := g.Group("/" + entity.Name)
		eg.GET("", api.query(entity))
		eg.PUT("", api.replace(entity))
		eg.DELETE("/:id", api.destroy(entity))
	}
}

// StudentPayload is the body of POST /v1/students. Students are matched by email.
type StudentPayload struct {
	Name     string      `json:"name" validate:"required,notblank"`
	Email    string      `json:"email" validate:"required,email"`
	Cohort   null.String `json:"cohort"`
	Status   null.String `json:"status"`
	Location null.String `json:"location"`
}

func (p StudentPayload) student() student.Student {
	return student.Student{
		Name:     null.StringFrom(core.CleanString(p.Name)),
		Email:    null.StringFrom(core.CleanString(p.Email, true)),
		Cohort:   p.Cohort,
		Status:   p.Status,
		Location: p.Location,
	}
}

// Handlers

func (api *entityApi) query(entity core.Entity) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		records, err := api.store.ReadAll(ctx.Request().Context(), entity)
		if err != nil {
			return errors.Wrapf(err, "reading %s", entity)
		}
		var ord Ordering
		ord.Bind(ctx)
		core.SortRecords(records, ord.Orderings)
		return ctx.JSON(http.StatusOK, records)
	}
}

// replace swaps the entity's content for the posted JSON array.
func (api *entityApi) replace(entity core.Entity) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		records, err := decodeRecords(ctx)
		if err != nil {
			return err
		}
		n, err := api.store.ReplaceAll(ctx.Request().Context(), entity, records)
		if err != nil {
			return errors.Wrapf(err, "replacing %s", entity)
		}
		return ctx.JSON(http.StatusOK, echo.Map{"count": n})
	}
}

// decodeRecords reads a JSON array of objects from the request body. Numbers are kept as written.
func decodeRecords(ctx echo.Context) ([]core.Record, error) {
	var raws []json.RawMessage
	if err := json.NewDecoder(ctx.Request().Body).Decode(&raws); err != nil || raws == nil {
		return nil, core.NewValidationError(errors.New("body must be a JSON array of objects"))
	}
	records := make([]core.Record, 0, len(raws))
	for i, raw := range raws {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var rec core.Record
		if err := dec.Decode(&rec); err != nil || rec == nil {
			return nil, core.NewValidationError(nil, core.FieldError{Field: fmt.Sprintf("[%d]", i), Error: "must be an object"})
		}
		records = append(records, rec)
	}
	return records, nil
}

func (api *entityApi) destroy(entity core.Entity) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		id := ctx.Param("id")
		if err := api.store.DeleteByID(ctx.Request().Context(), entity, id); err != nil {
			return errors.Wrapf(err, "deleting %s %s", entity, id)
		}
		return ctx.NoContent(http.StatusNoContent)
	}
}

func (api *entityApi) upsertStudent(ctx echo.Context) error {
	var data StudentPayload
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StudentPayload")
	}
	if err := api.validator.Check(data, ""); err != nil {
		return err
	}

	rec := data.student().Record()
	if err := api.store.UpsertByKey(ctx.Request().Context(), core.Students, "email", rec); err != nil {
		return errors.Wrap(err, "upserting student")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *entityApi) export(ctx echo.Context) error {
	out := make(map[string][]core.Record, len(core.AllEntities))
	for _, entity := range core.AllEntities {
		records, err := api.store.ReadAll(ctx.Request().Context(), entity)
		if err != nil {
			return errors.Wrapf(err, "reading %s", entity)
		}
		out[entity.Name] = records
	}
	return ctx.JSON(http.StatusOK, out)
}
