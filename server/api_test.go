package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/rpublish/rpublish/server/articles"
	"github.com/rpublish/rpublish/server/identity"
	"github.com/stretchr/testify/require"
)

type testClient struct {
	t      *testing.T
	base   string
	client *http.Client
}

func setupAPI(t *testing.T) *testClient {
	t.Helper()
	srv, err := NewServer(logs.NewTestingLog(t), Options{
		Root:      t.TempDir(),
		AdminSeed: &identity.Seed{Username: "admin", Password: "hunter2"},
	})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.httpRouter)
	t.Cleanup(ts.Close)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testClient{
		t:      t,
		base:   ts.URL,
		client: &http.Client{Jar: jar},
	}
}

func (c *testClient) do(method, path string, body any) (int, []byte) {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.base+path, reader)
	require.NoError(c.t, err)
	resp, err := c.client.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp.StatusCode, raw
}

func (c *testClient) login(username, password string) int {
	code, _ := c.do("POST", "/api/auth/login", map[string]string{"username": username, "password": password})
	return code
}

func TestLogin(t *testing.T) {
	c := setupAPI(t)

	// Unknown user and wrong password are indistinguishable to the client
	code, body := c.do("POST", "/api/auth/login", map[string]string{"username": "nobody", "password": "x"})
	require.Equal(t, http.StatusUnauthorized, code)
	require.Equal(t, "Invalid credentials", string(body))
	code, body = c.do("POST", "/api/auth/login", map[string]string{"username": "admin", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, code)
	require.Equal(t, "Invalid credentials", string(body))

	// No session yet
	code, _ = c.do("GET", "/api/auth/check", nil)
	require.Equal(t, http.StatusUnauthorized, code)

	require.Equal(t, http.StatusOK, c.login("admin", "hunter2"))

	code, body = c.do("GET", "/api/auth/check", nil)
	require.Equal(t, http.StatusOK, code)
	check := struct {
		Username    string `json:"username"`
		Permissions string `json:"permissions"`
	}{}
	require.NoError(t, json.Unmarshal(body, &check))
	require.Equal(t, "admin", check.Username)
	require.Contains(t, check.Permissions, string(identity.UserPermissionAdmin))

	// Logout twice is fine
	code, _ = c.do("POST", "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = c.do("GET", "/api/auth/check", nil)
	require.Equal(t, http.StatusUnauthorized, code)
}

func TestArticleAPI(t *testing.T) {
	c := setupAPI(t)
	require.Equal(t, http.StatusOK, c.login("admin", "hunter2"))

	// Create
	code, body := c.do("POST", "/api/articles", nil)
	require.Equal(t, http.StatusOK, code)
	created := struct {
		ID string `json:"id"`
	}{}
	require.NoError(t, json.Unmarshal(body, &created))
	require.NotEmpty(t, created.ID)

	code, body = c.do("GET", "/api/articles/"+created.ID, nil)
	require.Equal(t, http.StatusOK, code)
	article := struct {
		Title       string `json:"title"`
		Author      string `json:"author"`
		Status      string `json:"status"`
		IsPublished bool   `json:"is_published"`
	}{}
	require.NoError(t, json.Unmarshal(body, &article))
	require.Equal(t, articles.PlaceholderTitle, article.Title)
	require.Equal(t, "admin", article.Author)
	require.Equal(t, "draft", article.Status)
	require.False(t, article.IsPublished)

	// Not visible to the public while draft
	code, _ = c.do("GET", "/api/public/articles/"+created.ID, nil)
	require.Equal(t, http.StatusNotFound, code)

	// Update, then publish
	code, _ = c.do("PUT", "/api/articles/"+created.ID, map[string]string{"title": "Hello", "data": "body"})
	require.Equal(t, http.StatusOK, code)
	code, _ = c.do("POST", "/api/articles/"+created.ID+"/publish", nil)
	require.Equal(t, http.StatusOK, code)

	// The public endpoint needs no session
	anon := setupAnonClient(t, c)
	code, body = anon.do("GET", "/api/public/articles/"+created.ID, nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(body, &article))
	require.Equal(t, "Hello", article.Title)
	require.True(t, article.IsPublished)

	// List
	code, body = c.do("GET", "/api/articles?status=published", nil)
	require.Equal(t, http.StatusOK, code)
	list := struct {
		Articles map[string]articles.Metadata `json:"articles"`
		Total    int                          `json:"total"`
	}{}
	require.NoError(t, json.Unmarshal(body, &list))
	require.Equal(t, 1, list.Total)
	require.Contains(t, list.Articles, created.ID)

	// Unknown article is a 404
	code, _ = c.do("POST", "/api/articles/nope/publish", nil)
	require.Equal(t, http.StatusNotFound, code)

	// Delete
	code, _ = c.do("DELETE", "/api/articles/"+created.ID, nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = c.do("GET", "/api/articles/"+created.ID, nil)
	require.Equal(t, http.StatusNotFound, code)
}

// setupAnonClient shares the test server, but has no cookies.
func setupAnonClient(t *testing.T, c *testClient) *testClient {
	t.Helper()
	return &testClient{t: t, base: c.base, client: &http.Client{}}
}

func TestProtectedRoutesNeedSession(t *testing.T) {
	c := setupAPI(t)
	for _, route := range []struct{ method, path string }{
		{"POST", "/api/articles"},
		{"GET", "/api/articles"},
		{"GET", "/api/articles/x"},
		{"PUT", "/api/articles/x"},
		{"POST", "/api/articles/x/publish"},
		{"DELETE", "/api/articles/x"},
		{"POST", "/api/auth/logout"},
	} {
		code, _ := c.do(route.method, route.path, nil)
		require.Equal(t, http.StatusUnauthorized, code, "%v %v", route.method, route.path)
	}
}

func TestCreateUserRequiresAdmin(t *testing.T) {
	c := setupAPI(t)
	require.Equal(t, http.StatusOK, c.login("admin", "hunter2"))

	code, _ := c.do("POST", "/api/auth/user/create", map[string]string{
		"username": "writer", "password": "secret", "permissions": "e",
	})
	require.Equal(t, http.StatusOK, code)

	// The new editor cannot create users
	writer := setupAnonClient(t, c)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	writer.client.Jar = jar
	require.Equal(t, http.StatusOK, writer.login("writer", "secret"))
	code, _ = writer.do("POST", "/api/auth/user/create", map[string]string{
		"username": "other", "password": "x", "permissions": "e",
	})
	require.Equal(t, http.StatusForbidden, code)

	// But can author articles
	code, _ = writer.do("POST", "/api/articles", nil)
	require.Equal(t, http.StatusOK, code)
}
