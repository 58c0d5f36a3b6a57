package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func requestWithOrigin(origin string) *http.Request {
	r, _ := http.NewRequest(http.MethodGet, "/api/v1/ws", nil)
	if origin != "" {
		r.Header.Set("Origin", origin)
	}
	return r
}

func TestCheckOrigin(t *testing.T) {
	check := checkOrigin([]string{"https://app.example.com"})

	assert.True(t, check(requestWithOrigin("")), "non-browser clients have no origin")
	assert.True(t, check(requestWithOrigin("http://localhost:3000")))
	assert.True(t, check(requestWithOrigin("http://127.0.0.1:5173")))
	assert.True(t, check(requestWithOrigin("https://app.example.com")))
	assert.False(t, check(requestWithOrigin("https://evil.example.com")))
}

func TestCheckOriginEmptyAllowList(t *testing.T) {
	check := checkOrigin(nil)

	assert.True(t, check(requestWithOrigin("http://localhost:3000")))
	assert.False(t, check(requestWithOrigin("https://app.example.com")))
}
