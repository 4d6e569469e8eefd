package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/declared-as-ala/backend/internal/model"
	"github.com/declared-as-ala/backend/internal/repository"
)

type fakeAdminService struct {
	deliveredErr error
	deliveredIDs []string
}

func (f *fakeAdminService) ListOrders(ctx context.Context, filter repository.OrderListFilter) ([]*model.Order, int64, error) {
	return nil, 0, nil
}

func (f *fakeAdminService) MarkDelivered(ctx context.Context, orderID string) error {
	if f.deliveredErr != nil {
		return f.deliveredErr
	}
	f.deliveredIDs = append(f.deliveredIDs, orderID)
	return nil
}

func markDeliveredContext(orderID string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPut, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("orderID")
	c.SetParamValues(orderID)
	return c, rec
}

func TestMarkDeliveredOK(t *testing.T) {
	svc := &fakeAdminService{}
	h := NewAdminHandler(svc)

	c, rec := markDeliveredContext("ord_1")
	require.NoError(t, h.MarkDelivered(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"ord_1"}, svc.deliveredIDs)
}

func TestMarkDeliveredUnknownOrder(t *testing.T) {
	h := NewAdminHandler(&fakeAdminService{deliveredErr: gorm.ErrRecordNotFound})

	c, _ := markDeliveredContext("ord_ghost")
	err := h.MarkDelivered(c)
	require.Error(t, err)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.Code)
}

func TestMarkDeliveredDatabaseFailureIsNotNotFound(t *testing.T) {
	h := NewAdminHandler(&fakeAdminService{deliveredErr: errors.New("connection reset")})

	c, _ := markDeliveredContext("ord_1")
	err := h.MarkDelivered(c)
	require.Error(t, err)

	var httpErr *echo.HTTPError
	assert.False(t, errors.As(err, &httpErr), "database failure must not be shaped as a client error")
}
