package handler

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/bitfantasy/vms/internal/vms/entity"
	"github.com/bitfantasy/vms/internal/vms/testutil"
)

func TestVendorCRUD(t *testing.T) {
	_, r, token := setupAPI(t)

	// 创建，编码自动生成
	w := testutil.DoRequest(r, "POST", "/api/v1/vendors", map[string]interface{}{
		"name":            "宁波精工轴承",
		"contact_details": "sales@nbjg.example.com",
		"address":         "浙江省宁波市北仑区",
	}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("create vendor: status %d body %s", w.Code, w.Body.String())
	}
	data := dataOf(t, testutil.ParseResponse(w))
	vendorID := data["id"].(string)

	wantCode := fmt.Sprintf("V-%d-0001", time.Now().Year())
	if data["code"] != wantCode {
		t.Errorf("code = %v, want %s", data["code"], wantCode)
	}

	// 列表
	w = testutil.DoRequest(r, "GET", "/api/v1/vendors", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("list vendors: status %d", w.Code)
	}
	list := dataOf(t, testutil.ParseResponse(w))
	items, ok := list["items"].([]interface{})
	if !ok || len(items) != 1 {
		t.Fatalf("expected 1 vendor in list, got %v", list["items"])
	}

	// 更新
	w = testutil.DoRequest(r, "PUT", "/api/v1/vendors/"+vendorID, map[string]interface{}{
		"name": "宁波精工轴承有限公司",
	}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("update vendor: status %d", w.Code)
	}

	w = testutil.DoRequest(r, "GET", "/api/v1/vendors/"+vendorID, nil, token)
	data = dataOf(t, testutil.ParseResponse(w))
	if data["name"] != "宁波精工轴承有限公司" {
		t.Errorf("name = %v after update", data["name"])
	}

	// 删除后不可见
	w = testutil.DoRequest(r, "DELETE", "/api/v1/vendors/"+vendorID, nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("delete vendor: status %d", w.Code)
	}
	w = testutil.DoRequest(r, "GET", "/api/v1/vendors/"+vendorID, nil, token)
	if w.Code != http.StatusNotFound {
		t.Errorf("get deleted vendor: got %d, want 404", w.Code)
	}
}

func TestVendorSearch(t *testing.T) {
	db, r, token := setupAPI(t)
	testutil.SeedVendor(t, db, "v-s-001", "V-2026-8001", "上海明达电子")
	testutil.SeedVendor(t, db, "v-s-002", "V-2026-8002", "苏州恒力机械")

	w := testutil.DoRequest(r, "GET", "/api/v1/vendors?search=明达", nil, token)
	list := dataOf(t, testutil.ParseResponse(w))
	items := list["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("expected 1 match, got %d", len(items))
	}
	first := items[0].(map[string]interface{})
	if first["name"] != "上海明达电子" {
		t.Errorf("matched wrong vendor: %v", first["name"])
	}
}

func TestVendorPerformanceEndpoint(t *testing.T) {
	db, r, token := setupAPI(t)
	vendor := testutil.SeedVendor(t, db, "v-p-001", "V-2026-8003", "测试供应商")

	w := testutil.DoRequest(r, "GET", "/api/v1/vendors/"+vendor.ID+"/performance", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("get performance: status %d", w.Code)
	}
	data := dataOf(t, testutil.ParseResponse(w))

	if data["code"] != vendor.Code || data["name"] != vendor.Name {
		t.Errorf("identity fields mismatch: %v", data)
	}
	for _, field := range []string{"on_time_delivery_rate", "quality_rating_avg", "average_response_time", "fulfillment_rate"} {
		if v, ok := data[field].(float64); !ok || v != 0 {
			t.Errorf("%s = %v, want 0 for fresh vendor", field, data[field])
		}
	}

	w = testutil.DoRequest(r, "GET", "/api/v1/vendors/no-such-id/performance", nil, token)
	if w.Code != http.StatusNotFound {
		t.Errorf("performance of unknown vendor: got %d, want 404", w.Code)
	}
}

func TestVendorHistoryPagination(t *testing.T) {
	db, r, token := setupAPI(t)
	vendor := testutil.SeedVendor(t, db, "v-h-001", "V-2026-8004", "测试供应商")

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		snap := &entity.HistoricalPerformance{
			ID:                 fmt.Sprintf("hist-%s-%d", vendor.ID, i),
			VendorID:           vendor.ID,
			RecordedAt:         base.Add(time.Duration(i) * time.Minute),
			OnTimeDeliveryRate: float64(i) / 10,
		}
		if err := db.Create(snap).Error; err != nil {
			t.Fatalf("seed snapshot: %v", err)
		}
	}

	w := testutil.DoRequest(r, "GET", "/api/v1/vendors/"+vendor.ID+"/history?page=1&page_size=2", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("get history: status %d", w.Code)
	}
	list := dataOf(t, testutil.ParseResponse(w))
	items := list["items"].([]interface{})
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	pg := list["pagination"].(map[string]interface{})
	if pg["total"].(float64) != 5 || pg["total_pages"].(float64) != 3 {
		t.Errorf("pagination = %v, want total 5 pages 3", pg)
	}

	// 新的在前
	first := items[0].(map[string]interface{})
	if first["on_time_delivery_rate"].(float64) != 0.4 {
		t.Errorf("first item on-time rate = %v, want 0.4", first["on_time_delivery_rate"])
	}
}

func TestVendorHistoryExport(t *testing.T) {
	db, r, token := setupAPI(t)
	vendor := testutil.SeedVendor(t, db, "v-e-001", "V-2026-8005", "测试供应商")

	snap := &entity.HistoricalPerformance{
		ID:                  "hist-export-001",
		VendorID:            vendor.ID,
		RecordedAt:          time.Now(),
		OnTimeDeliveryRate:  0.75,
		QualityRatingAvg:    4.2,
		AverageResponseTime: 360,
		FulfillmentRate:     0.8,
	}
	if err := db.Create(snap).Error; err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}

	w := testutil.DoRequest(r, "GET", "/api/v1/vendors/"+vendor.ID+"/history/export", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("export history: status %d body %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("content type = %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, vendor.Code) {
		t.Errorf("content disposition = %s, want filename containing %s", cd, vendor.Code)
	}
	if w.Body.Len() == 0 {
		t.Error("empty export body")
	}
}
