package handler

import (
	"net/http"
	"testing"

	"github.com/hqops/stocktrack/internal/entity"
	"github.com/hqops/stocktrack/internal/repository"
	"github.com/hqops/stocktrack/internal/service"
	"github.com/hqops/stocktrack/internal/testutil"
)

func setupInventoryTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	router := testutil.SetupRouter()

	repos := repository.NewRepositories(db)
	h := NewInventoryHandler(service.NewInventoryService(db, repos))

	api := testutil.AuthGroup(router, "/api/v1")
	api.POST("/inventory", h.Create)
	api.GET("/inventory", h.List)
	api.GET("/inventory/:id", h.Get)
	api.POST("/inventory/:id/engineer-test", h.SendForTest)
	api.PUT("/inventory/:id/status", h.RecordTestResult)
	api.GET("/inventory/:id/status-logs", h.StatusLogs)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func TestInventoryCreateAndFlow(t *testing.T) {
	env := setupInventoryTest(t)
	testutil.SeedTestUser(t, env.DB, "log-1", "Log One", "logistic")
	testutil.SeedTestUser(t, env.DB, "eng-1", "Eng One", "engineer")
	logToken := testutil.GenerateTestToken("log-1", "Log One", "log1@test.com", "logistic")
	engToken := testutil.GenerateTestToken("eng-1", "Eng One", "eng1@test.com", "engineer")

	// 入库
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/inventory", map[string]interface{}{
		"type":          "Hdd",
		"name_product":  "WD Blue 4TB",
		"serial_number": "SN-HTTP-001",
		"location":      "Warehouse A",
	}, logToken)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	partID := data["part_id"].(string)
	if data["status"] != entity.PartStatusPendingTest {
		t.Errorf("status = %v", data["status"])
	}

	// 送测
	w2 := testutil.DoRequest(env.Router, "POST", "/api/v1/inventory/"+partID+"/engineer-test", nil, logToken)
	if w2.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w2.Code, w2.Body.String())
	}

	// 工程师记录结果
	w3 := testutil.DoRequest(env.Router, "PUT", "/api/v1/inventory/"+partID+"/status", map[string]interface{}{
		"health": "100% healthy",
		"status": "Good",
	}, engToken)
	if w3.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w3.Code, w3.Body.String())
	}
	resp3 := testutil.ParseResponse(w3)
	data3 := resp3["data"].(map[string]interface{})
	if data3["status"] != entity.PartStatusGood {
		t.Errorf("status = %v", data3["status"])
	}

	// 流转历史两条
	w4 := testutil.DoRequest(env.Router, "GET", "/api/v1/inventory/"+partID+"/status-logs", nil, logToken)
	if w4.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w4.Code, w4.Body.String())
	}
	resp4 := testutil.ParseResponse(w4)
	items := resp4["data"].(map[string]interface{})["items"].([]interface{})
	if len(items) != 2 {
		t.Errorf("expected 2 status logs, got %d", len(items))
	}
}

func TestInventoryRoleGateOverHTTP(t *testing.T) {
	env := setupInventoryTest(t)
	testutil.SeedTestUser(t, env.DB, "usr-1", "User One", "user")
	userToken := testutil.GenerateTestToken("usr-1", "User One", "usr1@test.com", "user")

	// user不能入库
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/inventory", map[string]interface{}{
		"type":          "Ram",
		"name_product":  "Kingston 32GB",
		"serial_number": "SN-HTTP-403",
	}, userToken)
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403, got %d: %s", w.Code, w.Body.String())
	}

	// 无token一律401
	w2 := testutil.DoRequest(env.Router, "GET", "/api/v1/inventory", nil, "")
	if w2.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", w2.Code)
	}

	// 未知角色fail closed
	ghostToken := testutil.GenerateTestToken("gh-1", "Ghost", "gh@test.com", "superuser")
	w3 := testutil.DoRequest(env.Router, "GET", "/api/v1/inventory", nil, ghostToken)
	if w3.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 for unknown role, got %d: %s", w3.Code, w3.Body.String())
	}

	// token只认Authorization header，query param不作数
	w4 := testutil.DoRequest(env.Router, "GET", "/api/v1/inventory?token="+userToken, nil, "")
	if w4.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401 for query-param token, got %d: %s", w4.Code, w4.Body.String())
	}
}

func TestInventoryErrorMapping(t *testing.T) {
	env := setupInventoryTest(t)
	testutil.SeedTestUser(t, env.DB, "log-1", "Log One", "logistic")
	logToken := testutil.GenerateTestToken("log-1", "Log One", "log1@test.com", "logistic")

	// 不存在的零件404
	w := testutil.DoRequest(env.Router, "GET", "/api/v1/inventory/no-such-part", nil, logToken)
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d: %s", w.Code, w.Body.String())
	}

	// 重复序列号409
	body := map[string]interface{}{
		"type":          "Hdd",
		"name_product":  "WD Blue 4TB",
		"serial_number": "SN-HTTP-DUP",
	}
	testutil.DoRequest(env.Router, "POST", "/api/v1/inventory", body, logToken)
	w2 := testutil.DoRequest(env.Router, "POST", "/api/v1/inventory", body, logToken)
	if w2.Code != http.StatusConflict {
		t.Fatalf("Expected 409, got %d: %s", w2.Code, w2.Body.String())
	}

	// 未知硬件类别400
	w3 := testutil.DoRequest(env.Router, "POST", "/api/v1/inventory", map[string]interface{}{
		"type":          "Gpu",
		"name_product":  "RTX",
		"serial_number": "SN-HTTP-VAL",
	}, logToken)
	if w3.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %s", w3.Code, w3.Body.String())
	}

	// 未知状态过滤条件400
	w4 := testutil.DoRequest(env.Router, "GET", "/api/v1/inventory?status=Broken", nil, logToken)
	if w4.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for unknown status filter, got %d: %s", w4.Code, w4.Body.String())
	}
}
