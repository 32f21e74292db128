package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "kasa/internal/errors"
	"kasa/internal/models"
	"kasa/internal/pagination"
)

func setupCategoryRouter(categories *mockCategoryService) *gin.Engine {
	h := NewCategoryHandler(categories)
	r := newRouter()
	r.POST("/categories", h.CreateCategory)
	r.GET("/categories", h.GetUserCategories)
	r.GET("/categories/:id", h.GetCategoryByID)
	r.DELETE("/categories/:id", h.DeleteCategory)
	return r
}

func TestCategoryHandler_CreateCategory(t *testing.T) {
	t.Run("with parent", func(t *testing.T) {
		var gotParent *string
		categories := &mockCategoryService{createCategoryFn: func(userID, name string, ct models.CategoryType, _ string, parentID *string) (*models.Category, error) {
			gotParent = parentID
			return &models.Category{UserID: userID, Name: name, Type: ct, ParentID: parentID}, nil
		}}
		r := setupCategoryRouter(categories)

		rec := doRequest(r, http.MethodPost, "/categories", `{"name":"Rent","type":"expense","parent_id":"`+otherID+`"}`)
		assertStatus(t, rec, http.StatusCreated)
		if gotParent == nil || *gotParent != otherID {
			t.Errorf("expected parent %s, got %v", otherID, gotParent)
		}
	})

	t.Run("invalid type", func(t *testing.T) {
		r := setupCategoryRouter(&mockCategoryService{})
		rec := doRequest(r, http.MethodPost, "/categories", `{"name":"Rent","type":"asset"}`)
		assertStatus(t, rec, http.StatusBadRequest)
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})
}

func TestCategoryHandler_GetUserCategories(t *testing.T) {
	var gotType *models.CategoryType
	categories := &mockCategoryService{getUserCategoriesFn: func(_ string, ct *models.CategoryType, _ pagination.PageRequest) (*pagination.PageResponse[models.Category], error) {
		gotType = ct
		resp := pagination.NewPageResponse[models.Category](nil, 1, 20, 0)
		return &resp, nil
	}}
	r := setupCategoryRouter(categories)

	assertStatus(t, doRequest(r, http.MethodGet, "/categories?type=income", ""), http.StatusOK)
	if gotType == nil || *gotType != models.CategoryTypeIncome {
		t.Errorf("expected income filter, got %v", gotType)
	}

	assertStatus(t, doRequest(r, http.MethodGet, "/categories", ""), http.StatusOK)
	if gotType != nil {
		t.Errorf("expected no type filter, got %v", *gotType)
	}

	assertStatus(t, doRequest(r, http.MethodGet, "/categories?type=bogus", ""), http.StatusBadRequest)
}

func TestCategoryHandler_DeleteCategory(t *testing.T) {
	categories := &mockCategoryService{deleteCategoryFn: func(string, string) error {
		return apperrors.ErrCategoryInUse
	}}
	r := setupCategoryRouter(categories)

	rec := doRequest(r, http.MethodDelete, "/categories/"+accountID, "")
	assertStatus(t, rec, http.StatusConflict)
	assertErrorCode(t, parseJSON(t, rec), "CATEGORY_IN_USE")
}
