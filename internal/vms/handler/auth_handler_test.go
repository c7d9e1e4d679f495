package handler

import (
	"net/http"
	"testing"

	"github.com/bitfantasy/vms/internal/vms/testutil"
)

func TestRegisterAndLogin(t *testing.T) {
	_, r, _ := setupAPI(t)

	w := testutil.DoRequest(r, "POST", "/api/v1/auth/register", map[string]interface{}{
		"username": "zhangsan",
		"email":    "zhangsan@example.com",
		"password": "secret-pass-1",
	}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("register: status %d body %s", w.Code, w.Body.String())
	}
	data := dataOf(t, testutil.ParseResponse(w))
	if _, exposed := data["password_hash"]; exposed {
		t.Error("password hash exposed in response")
	}

	// 重复用户名
	w = testutil.DoRequest(r, "POST", "/api/v1/auth/register", map[string]interface{}{
		"username": "zhangsan",
		"password": "secret-pass-2",
	}, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("duplicate register: got %d, want 400", w.Code)
	}

	// 登录成功签发令牌对
	w = testutil.DoRequest(r, "POST", "/api/v1/auth/login", map[string]interface{}{
		"username": "zhangsan",
		"password": "secret-pass-1",
	}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login: status %d body %s", w.Code, w.Body.String())
	}
	tokens := dataOf(t, testutil.ParseResponse(w))
	access, _ := tokens["access_token"].(string)
	refresh, _ := tokens["refresh_token"].(string)
	if access == "" || refresh == "" {
		t.Fatalf("missing tokens: %v", tokens)
	}

	// 签发的访问令牌可以访问受保护接口
	w = testutil.DoRequest(r, "GET", "/api/v1/vendors", nil, access)
	if w.Code != http.StatusOK {
		t.Errorf("issued token rejected: status %d", w.Code)
	}

	// 密码错误
	w = testutil.DoRequest(r, "POST", "/api/v1/auth/login", map[string]interface{}{
		"username": "zhangsan",
		"password": "wrong-pass",
	}, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: got %d, want 401", w.Code)
	}

	// 刷新令牌换新令牌对
	w = testutil.DoRequest(r, "POST", "/api/v1/auth/refresh", map[string]interface{}{
		"refresh_token": refresh,
	}, "")
	if w.Code != http.StatusOK {
		t.Errorf("refresh: status %d body %s", w.Code, w.Body.String())
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	_, r, _ := setupAPI(t)

	w := testutil.DoRequest(r, "POST", "/api/v1/auth/register", map[string]interface{}{
		"username": "lisi",
		"password": "short",
	}, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("short password: got %d, want 400", w.Code)
	}
}
