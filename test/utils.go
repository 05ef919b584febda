package test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"wardrobeapi/config"
)

const JWTSecret = "test-secret"

func JsonString(model interface{}) string {
	bytes, _ := json.Marshal(model)
	return string(bytes)
}

// TestConfig is a valid configuration that needs no external services.
func TestConfig() *config.Config {
	return &config.Config{
		Env:            "test",
		Port:           "8083",
		RateLimit:      100,
		JWTSecret:      JWTSecret,
		MaxUploadBytes: 5 * 1024 * 1024,
		Storage: config.StorageConfig{
			Provider:     config.StorageGCS,
			Bucket:       MockBucket,
			SignedURLTTL: time.Hour,
		},
		Timeouts: config.TimeoutConfig{
			Storage:  time.Second,
			Classify: time.Second,
			Generate: time.Second,
			Matting:  time.Second,
		},
	}
}

func NewJSONRequest(method string, target string, param interface{}) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(JsonString(param)))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	return req
}

func GenerateUserToken(userPk string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userPk,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 72)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	t, err := token.SignedString([]byte(JWTSecret))
	if err != nil {
		log.Fatalf("Error when signing user token for %s. Error %s ", userPk, err)
	}
	return t
}

func NewJSONAuthRequest(method string, target string, userPk string, param interface{}) *http.Request {
	req := NewJSONRequest(method, target, param)
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", GenerateUserToken(userPk)))
	return req
}

// FormFile is one file part of a multipart request.
type FormFile struct {
	Field       string
	Filename    string
	ContentType string
	Content     []byte
}

func NewMultipartRequest(method string, target string, fields map[string]string, files ...FormFile) *http.Request {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		writer.WriteField(key, value)
	}
	for _, file := range files {
		header := make(map[string][]string)
		header["Content-Disposition"] = []string{
			fmt.Sprintf(`form-data; name="%s"; filename="%s"`, file.Field, file.Filename),
		}
		contentType := file.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header["Content-Type"] = []string{contentType}
		part, err := writer.CreatePart(header)
		if err != nil {
			log.Fatalf("create multipart part: %v", err)
		}
		part.Write(file.Content)
	}
	writer.Close()

	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Add("Accept", "application/json")
	return req
}

func NewMultipartAuthRequest(method string, target string, userPk string, fields map[string]string, files ...FormFile) *http.Request {
	req := NewMultipartRequest(method, target, fields, files...)
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", GenerateUserToken(userPk)))
	return req
}

func Contains(items []string, lookFor string) bool {
	for i := 0; i < len(items); i++ {
		if items[i] == lookFor {
			return true
		}
	}
	return false
}

func IntPointer(i int) *int {
	return &i
}

func Float64Pointer(f float64) *float64 {
	return &f
}
