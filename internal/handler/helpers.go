package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"marketstock/internal/apierror"
	"marketstock/internal/dto"
	"marketstock/internal/middleware"
	"marketstock/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

func init() {
	// Report JSON field names rather than Go field names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails; the
// caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid JSON: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

func validateStruct(c *gin.Context, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusUnprocessableEntity, apierror.Coded(apierror.CodeValidation, err.Error()))
			return false
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// bindFilter reads the shared listing query parameters.
func bindFilter(c *gin.Context) (dto.ListFilter, bool) {
	var f dto.ListFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid query: "+err.Error()))
		return f, false
	}
	if !validateStruct(c, &f) {
		return f, false
	}
	return f, true
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

// companyID reads the tenant the token is scoped to. RequireCompany runs
// first on every tenant route, so a miss here is a wiring bug.
func companyID(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.CompanyID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("token is not scoped to a company"))
	}
	return id, ok
}

// classify maps the domain error taxonomy onto an HTTP status and code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusUnprocessableEntity, apierror.CodeValidation
	case errors.Is(err, service.ErrReferenceNotFound):
		return http.StatusNotFound, apierror.CodeNotFound
	case errors.Is(err, service.ErrInsufficientStock):
		return http.StatusConflict, apierror.CodeInsufficientStock
	case errors.Is(err, service.ErrConfiguration):
		return http.StatusPreconditionFailed, apierror.CodeConfiguration
	case errors.Is(err, service.ErrExternalFeed):
		return http.StatusBadGateway, apierror.CodeExternalFeed
	default:
		return http.StatusInternalServerError, apierror.CodeInternal
	}
}

// respondError writes a domain error. Anything unmapped is handed to the
// ErrorHandler middleware, which logs it and answers a generic 500.
func respondError(c *gin.Context, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		return
	}
	c.JSON(status, apierror.Coded(code, err.Error()))
}
