package ctx_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	appctx "github.com/shashiranjanraj/kisanmart/pkg/ctx"
	"github.com/shashiranjanraj/kisanmart/pkg/orm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuccessEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	appctx.Wrap(func(c *appctx.Context) {
		c.Success(map[string]any{"name": "Neem Oil"})
	})(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":{"name":"Neem Oil"}}`, rec.Body.String())
}

func TestPaginatedAndList(t *testing.T) {
	rec := httptest.NewRecorder()
	appctx.Wrap(func(c *appctx.Context) {
		c.Paginated([]int{1, 2}, orm.NewPagination(1, 2, 0).WithTotal(5))
	})(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.JSONEq(t, `{"success":true,"data":[1,2],"pagination":{"page":1,"limit":2,"total":5,"pages":3}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	appctx.Wrap(func(c *appctx.Context) {
		c.List([]string{}, 0)
	})(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.JSONEq(t, `{"success":true,"data":[],"count":0}`, rec.Body.String())
}

func TestParamAndQueryHelpers(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/products/{id}", appctx.Wrap(func(c *appctx.Context) {
		assert.Equal(t, "abc", c.Param("id"))
		assert.Equal(t, 3, c.QueryInt("page", 1))
		assert.Equal(t, 12, c.QueryInt("limit", 12))
		require.NotNil(t, c.QueryFloat("minPrice"))
		assert.Equal(t, 99.5, *c.QueryFloat("minPrice"))
		assert.Nil(t, c.QueryFloat("maxPrice"))
		assert.True(t, c.QueryBool("inStock"))
		c.Success(nil)
	}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/abc?page=3&limit=x&minPrice=99.5&inStock=true", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBindJSONValid(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"John","email":"john@example.com"}`))

	appctx.Wrap(func(c *appctx.Context) {
		var input struct {
			Name  string `json:"name"  validate:"required"`
			Email string `json:"email" validate:"required,email"`
		}
		require.True(t, c.BindJSON(&input))
		assert.Equal(t, "John", input.Name)
		c.Success(nil)
	})(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBindJSONValidationFailureIs400(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":""}`))

	appctx.Wrap(func(c *appctx.Context) {
		var input struct {
			Name string `json:"name" validate:"required"`
		}
		assert.False(t, c.BindJSON(&input))
		assert.Equal(t, http.StatusBadRequest, c.WrittenStatus())
	})(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"errors":{"name":"The name field is required."}`)
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestBindJSONMalformed(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))

	appctx.Wrap(func(c *appctx.Context) {
		var input struct{ Name string }
		assert.False(t, c.BindJSON(&input))
	})(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid JSON")
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")

	appctx.Wrap(func(c *appctx.Context) {
		assert.Equal(t, "1.2.3.4", c.ClientIP())
		c.Success(nil)
	})(httptest.NewRecorder(), req)
}

func TestErrorResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	appctx.Wrap(func(c *appctx.Context) {
		c.Error(http.StatusNotFound, "Product not found")
	})(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Product not found"}`, rec.Body.String())
}
