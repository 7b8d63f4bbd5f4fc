package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ehopn/invoice_go_server/internal/api/middleware"
	"github.com/ehopn/invoice_go_server/internal/model"
	"github.com/ehopn/invoice_go_server/internal/model/dto"
	"github.com/ehopn/invoice_go_server/internal/pkg/chapa"
	"github.com/ehopn/invoice_go_server/internal/repository"
	"github.com/ehopn/invoice_go_server/internal/service"
	"github.com/ehopn/invoice_go_server/internal/testutil"
)

// chapaStub 模拟支付网关，核验一律按 success 应答
func chapaStub(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/transaction/initialize", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "success",
			"data":   map[string]string{"checkout_url": "https://checkout.chapa.co/test"},
		})
	})
	mux.HandleFunc("/transaction/verify/", func(w http.ResponseWriter, r *http.Request) {
		txRef := strings.TrimPrefix(r.URL.Path, "/transaction/verify/")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "success",
			"data": map[string]interface{}{
				"status":   "success",
				"amount":   1500,
				"currency": "ETB",
				"tx_ref":   txRef,
			},
		})
	})
	return httptest.NewServer(mux)
}

func setupSubscriptionRouter(t *testing.T) (*gin.Engine, *gorm.DB, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	cfg := handlerTestConfig()
	gateway := chapaStub(t)

	subscriptionService := service.NewSubscriptionService(
		repository.NewSubscriptionRepository(db),
		repository.NewUserRepository(db),
		repository.NewInvoiceRepository(db),
		chapa.NewClient("test-secret", gateway.URL),
		nil,
		cfg,
	)
	handler := NewSubscriptionHandler(subscriptionService)

	router := gin.New()
	router.GET("/subscription/plans", handler.Plans)
	router.GET("/subscription/webhook", handler.Webhook)

	sub := router.Group("/subscription", middleware.Auth(cfg.JWT.Secret))
	{
		sub.POST("", handler.Create)
		sub.GET("/current", handler.Current)
		sub.POST("/checkout", handler.Checkout)
		sub.POST("/verify", handler.VerifyPayment)
		sub.POST("/cancel", handler.Cancel)
	}

	cleanup := func() {
		gateway.Close()
		testutil.CleanupTestDB(t, db)
	}

	return router, db, cleanup
}

func TestSubscriptionHandler_Plans_Public(t *testing.T) {
	router, _, cleanup := setupSubscriptionRouter(t)
	defer cleanup()

	w := performRequest(router, "GET", "/subscription/plans", nil)
	resp := parseResponse(t, w)

	assert.Equal(t, http.StatusOK, w.Code)
	plans := resp.Data.([]interface{})
	require.Len(t, plans, 3)
	free := plans[0].(map[string]interface{})
	assert.Equal(t, model.PlanFree, free["name"])
}

func TestSubscriptionHandler_Checkout(t *testing.T) {
	router, db, cleanup := setupSubscriptionRouter(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	w := authedRequest(t, router, "POST", "/subscription/checkout", user.ID, dto.CheckoutRequest{
		PlanID: "pro",
	})
	resp := parseResponse(t, w)

	assert.Equal(t, http.StatusOK, w.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "https://checkout.chapa.co/test", data["checkout_url"])
	assert.Contains(t, data["tx_ref"], "chapa-")
}

func TestSubscriptionHandler_Checkout_UnknownPlan(t *testing.T) {
	router, db, cleanup := setupSubscriptionRouter(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	w := authedRequest(t, router, "POST", "/subscription/checkout", user.ID, dto.CheckoutRequest{
		PlanID: "platinum",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubscriptionHandler_Checkout_GatewayRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })
	cfg := handlerTestConfig()

	// 网关拒绝发起支付
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "failed",
			"message": "Invalid currency",
		})
	}))
	t.Cleanup(gateway.Close)

	subscriptionService := service.NewSubscriptionService(
		repository.NewSubscriptionRepository(db),
		repository.NewUserRepository(db),
		repository.NewInvoiceRepository(db),
		chapa.NewClient("test-secret", gateway.URL),
		nil,
		cfg,
	)
	handler := NewSubscriptionHandler(subscriptionService)

	router := gin.New()
	sub := router.Group("/subscription", middleware.Auth(cfg.JWT.Secret))
	sub.POST("/checkout", handler.Checkout)

	user := testutil.TestUser(t, db)
	w := authedRequest(t, router, "POST", "/subscription/checkout", user.ID, dto.CheckoutRequest{
		PlanID: "pro",
	})
	resp := parseResponse(t, w)

	// 网关的报错按 400 透传给前端
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "Invalid currency")
}

func TestSubscriptionHandler_VerifyFlow(t *testing.T) {
	router, db, cleanup := setupSubscriptionRouter(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	w := authedRequest(t, router, "POST", "/subscription/checkout", user.ID, dto.CheckoutRequest{
		PlanID: "pro",
	})
	resp := parseResponse(t, w)
	require.Equal(t, http.StatusOK, w.Code)
	txRef := resp.Data.(map[string]interface{})["tx_ref"].(string)

	w = authedRequest(t, router, "POST", "/subscription/verify", user.ID, dto.VerifyPaymentRequest{
		TxRef: txRef,
	})
	resp = parseResponse(t, w)

	assert.Equal(t, http.StatusOK, w.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, model.PlanPro, data["plan"])
	assert.Equal(t, model.SubscriptionStatusActive, data["status"])
}

func TestSubscriptionHandler_Webhook(t *testing.T) {
	router, db, cleanup := setupSubscriptionRouter(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	w := authedRequest(t, router, "POST", "/subscription/checkout", user.ID, dto.CheckoutRequest{
		PlanID: "business",
	})
	resp := parseResponse(t, w)
	require.Equal(t, http.StatusOK, w.Code)
	txRef := resp.Data.(map[string]interface{})["tx_ref"].(string)

	// 网关回调不带认证
	w = performRequest(router, "GET", "/subscription/webhook?trx_ref="+txRef, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	sub, err := repository.NewSubscriptionRepository(db).GetByUserID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PlanBusiness, sub.Plan)
	assert.Equal(t, model.SubscriptionStatusActive, sub.Status)
}

func TestSubscriptionHandler_Webhook_MissingRef(t *testing.T) {
	router, _, cleanup := setupSubscriptionRouter(t)
	defer cleanup()

	w := performRequest(router, "GET", "/subscription/webhook", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubscriptionHandler_Current(t *testing.T) {
	router, db, cleanup := setupSubscriptionRouter(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	testutil.TestInvoice(t, db, user.ID)

	w := authedRequest(t, router, "GET", "/subscription/current", user.ID, nil)
	resp := parseResponse(t, w)

	assert.Equal(t, http.StatusOK, w.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, model.PlanFree, data["plan"])
	assert.Equal(t, float64(1), data["uploads_used"])
}

func TestSubscriptionHandler_Cancel(t *testing.T) {
	router, db, cleanup := setupSubscriptionRouter(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	testutil.TestSubscription(t, db, user.ID, testutil.WithSubPlan(model.PlanPro))

	w := authedRequest(t, router, "POST", "/subscription/cancel", user.ID, nil)
	resp := parseResponse(t, w)

	assert.Equal(t, http.StatusOK, w.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, model.PlanFree, data["plan"])
}

func TestSubscriptionHandler_CreateFree(t *testing.T) {
	router, db, cleanup := setupSubscriptionRouter(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	w := authedRequest(t, router, "POST", "/subscription", user.ID, dto.CreateSubscriptionRequest{
		PlanID: "free",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
}
