package httputil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"test"}`))

	var dest struct {
		Name string `json:"name"`
	}
	require.NoError(t, ParseJSON(req, &dest))
	assert.Equal(t, "test", dest.Name)
}

func TestParseJSON_Invalid(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{broken`))

	var dest map[string]interface{}
	err := ParseJSON(req, &dest)
	assert.ErrorContains(t, err, "invalid JSON")
}

func TestParseJSONOrError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`not json`))

	var dest map[string]interface{}
	ok := ParseJSONOrError(rec, req, &dest)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParsePathInt64(t *testing.T) {
	router := mux.NewRouter()

	var got int64
	var gotErr error
	router.HandleFunc("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		got, gotErr = ParsePathInt64(r, "id")
	})

	tests := []struct {
		name    string
		path    string
		want    int64
		wantErr bool
	}{
		{"valid id", "/items/42", 42, false},
		{"negative id", "/items/-1", -1, false},
		{"non-numeric id", "/items/abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			router.ServeHTTP(httptest.NewRecorder(), req)

			if tt.wantErr {
				assert.Error(t, gotErr)
			} else {
				require.NoError(t, gotErr)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParsePathInt64_MissingParam(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/items", nil)
	_, err := ParsePathInt64(req, "id")
	assert.ErrorContains(t, err, "missing path parameter")
}

func TestParseQueryInt(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		defaultVal int
		want       int
		wantErr    bool
	}{
		{"present", "/?limit=50", 100, 50, false},
		{"absent uses default", "/", 100, 100, false},
		{"zero", "/?limit=0", 100, 0, false},
		{"negative parses, validation is the caller's job", "/?skip=-5", 0, -5, false},
		{"not a number", "/?limit=abc", 100, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			key := "limit"
			if strings.Contains(tt.url, "skip") {
				key = "skip"
			}
			got, err := ParseQueryInt(req, key, tt.defaultVal)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
