package handler

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestContext(t *testing.T, cookies ...*http.Cookie) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	for _, cookie := range cookies {
		c.Request.AddCookie(cookie)
	}
	return c, w
}

func TestFlashes_RoundTrip(t *testing.T) {
	messages := []string{"第一条提示", "second message"}

	encoded := encodeFlashes(messages)
	decoded := decodeFlashes(encoded)

	if !reflect.DeepEqual(messages, decoded) {
		t.Fatalf("expected %v, got %v", messages, decoded)
	}
}

func TestDecodeFlashes_Garbage(t *testing.T) {
	if got := decodeFlashes("not-base64!!!"); got != nil {
		t.Fatalf("expected nil for garbage input, got %v", got)
	}
	if got := decodeFlashes(""); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}

func TestSetFlash_ThenTake(t *testing.T) {
	c, w := newTestContext(t)
	setFlash(c, "余额已清零。")

	resp := w.Result()
	var flashCookie *http.Cookie
	for _, cookie := range resp.Cookies() {
		if cookie.Name == flashCookieName {
			flashCookie = cookie
		}
	}
	if flashCookie == nil {
		t.Fatal("expected flash cookie to be set")
	}

	// 带着 cookie 模拟下一次请求
	c2, _ := newTestContext(t, &http.Cookie{Name: flashCookieName, Value: flashCookie.Value})
	flashes := takeFlashes(c2)
	if len(flashes) != 1 || flashes[0] != "余额已清零。" {
		t.Fatalf("expected one flash, got %v", flashes)
	}
}

func TestSetFlash_Appends(t *testing.T) {
	existing := encodeFlashes([]string{"first"})
	c, w := newTestContext(t, &http.Cookie{Name: flashCookieName, Value: existing})
	setFlash(c, "second")

	resp := w.Result()
	for _, cookie := range resp.Cookies() {
		if cookie.Name == flashCookieName {
			got := decodeFlashes(cookie.Value)
			want := []string{"first", "second"}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("expected %v, got %v", want, got)
			}
			return
		}
	}
	t.Fatal("expected flash cookie to be set")
}

func TestTakeFlashes_Empty(t *testing.T) {
	c, _ := newTestContext(t)
	if got := takeFlashes(c); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}
