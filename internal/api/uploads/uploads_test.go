package uploads

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func TestCallbackAuthorized(t *testing.T) {
	tests := []struct {
		name      string
		secret    string
		presented string
		want      bool
	}{
		{"matching secret", "s3cret", "s3cret", true},
		{"wrong secret", "s3cret", "guess", false},
		{"missing header", "s3cret", "", false},
		{"unconfigured secret disables callbacks", "", "anything", false},
		{"both empty still denied", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := callbackAuthorized(tt.secret, tt.presented); got != tt.want {
				t.Errorf("callbackAuthorized(%q, %q) = %v, want %v", tt.secret, tt.presented, got, tt.want)
			}
		})
	}
}

func newCallbackContext(t *testing.T, path, body, secret string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	if secret != "" {
		c.Request.Header.Set(ConvertSecretHeader, secret)
	}
	return c, rec
}

func TestConvertCallbacksRejectBadSecret(t *testing.T) {
	h := &Handler{convertSecret: "s3cret", logger: zap.NewNop()}

	c, rec := newCallbackContext(t, "/api/videos/convert/error", `{"key":"a@x.com/1000_clip.mov"}`, "guess")
	h.ConvertError(c)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("ConvertError with bad secret = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	c, rec = newCallbackContext(t, "/api/videos/convert/complete",
		`{"key":"a@x.com/1000_clip.mov","newKey":"a@x.com/1000_clip.mp4"}`, "")
	h.ConvertComplete(c)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("ConvertComplete without secret = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestConvertCallbacksDisabledWithoutSecret(t *testing.T) {
	h := &Handler{logger: zap.NewNop()}

	c, rec := newCallbackContext(t, "/api/videos/convert/error", `{"key":"a@x.com/1000_clip.mov"}`, "anything")
	h.ConvertError(c)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("ConvertError with no configured secret = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
