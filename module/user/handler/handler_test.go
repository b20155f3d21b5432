package handler

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	"PulseChat/service/storage/object"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func multipartCtx(t *testing.T, fields map[string]string, avatarName, avatarData string) *gin.Context {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	if avatarName != "" {
		fw, err := w.CreateFormFile("avatar", avatarName)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write([]byte(avatarData)); err != nil {
			t.Fatalf("write avatar: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest("POST", "/api/v1/auth/signup", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = req
	return c
}

func jsonCtx(t *testing.T, body string) *gin.Context {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/v1/auth/signup", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = req
	return c
}

func TestSignupFormMultipartWithAvatar(t *testing.T) {
	store, err := object.NewDiskStore(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	c := multipartCtx(t, map[string]string{
		"username": "ann",
		"password": "secret1",
		"name":     "Ann",
	}, "me.png", "img-bytes")

	req, avatarURL, err := signupForm(c, store)
	if err != nil {
		t.Fatalf("signupForm: %v", err)
	}
	if req.Username != "ann" || req.Password != "secret1" || req.Name != "Ann" {
		t.Fatalf("fields = %+v", req)
	}
	if !strings.HasPrefix(avatarURL, "/uploads/") || !strings.HasSuffix(avatarURL, ".png") {
		t.Fatalf("avatarURL = %q, want a stored /uploads url", avatarURL)
	}
}

func TestSignupFormMultipartWithoutAvatar(t *testing.T) {
	store, err := object.NewDiskStore(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	c := multipartCtx(t, map[string]string{"username": "bob", "password": "secret1"}, "", "")

	req, avatarURL, err := signupForm(c, store)
	if err != nil {
		t.Fatalf("signupForm: %v", err)
	}
	if req.Username != "bob" || avatarURL != "" {
		t.Fatalf("req=%+v avatarURL=%q, want no avatar", req, avatarURL)
	}
}

func TestSignupFormMultipartMissingCredentials(t *testing.T) {
	store, err := object.NewDiskStore(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	c := multipartCtx(t, map[string]string{"username": "ann"}, "", "")

	if _, _, err := signupForm(c, store); err == nil {
		t.Fatal("multipart signup without a password should fail")
	}
}

func TestSignupFormJSON(t *testing.T) {
	c := jsonCtx(t, `{"username":"ann","password":"secret1","name":"Ann"}`)

	req, avatarURL, err := signupForm(c, nil)
	if err != nil {
		t.Fatalf("signupForm: %v", err)
	}
	if req.Username != "ann" || req.Name != "Ann" || avatarURL != "" {
		t.Fatalf("req=%+v avatarURL=%q", req, avatarURL)
	}
}
