package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"iadetakip/internal"
	"iadetakip/internal/storage"
	"iadetakip/internal/tracker"
)

const testPassword = "depo-1234"

func setupTestServer(t *testing.T, store storage.Store) (*httptest.Server, string) {
	t.Helper()
	router, err := NewRouter(tracker.New(store), Options{OperatorPassword: testPassword, JWTSecret: "test-secret"})
	if err != nil {
		t.Fatalf("router: %v", err)
	}
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	body, _ := json.Marshal(map[string]string{"password": testPassword})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var loginResp map[string]string
	json.NewDecoder(resp.Body).Decode(&loginResp)
	if loginResp["token"] == "" {
		t.Fatal("empty token from login")
	}
	return server, loginResp["token"]
}

func authRequest(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func uploadCSV(t *testing.T, url, token string, files map[string]string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(content))
	}
	mw.Close()

	req, _ := http.NewRequest(http.MethodPost, url, &buf)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestLoginEndpoint(t *testing.T) {
	server, _ := setupTestServer(t, storage.NewTestDB(t))

	body, _ := json.Marshal(map[string]string{"password": "wrong"})
	resp, _ := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, _ = http.Get(server.URL + "/api/status")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, _ = http.Get(server.URL + "/health")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health: %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestImportScanMissingFlow(t *testing.T) {
	server, token := setupTestServer(t, storage.NewTestDB(t))

	resp := uploadCSV(t, server.URL+"/api/expected/import", token, map[string]string{
		"liste.csv": "BARKOD;ISIM;TELEFON\n000123;A;1\n456;B;2\n;C;3\n",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("import: %d", resp.StatusCode)
	}
	var res internal.ImportResult
	json.NewDecoder(resp.Body).Decode(&res)
	if res.Written != 2 || res.Skipped != 1 {
		t.Fatalf("res=%+v", res)
	}

	resp = authRequest(t, http.MethodPost, server.URL+"/api/received/scan", token, map[string]string{"code": "123"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("scan: %d", resp.StatusCode)
	}

	resp = authRequest(t, http.MethodPost, server.URL+"/api/received/scan", token, map[string]string{"code": "---"})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("invalid scan: %d", resp.StatusCode)
	}

	resp = authRequest(t, http.MethodGet, server.URL+"/api/missing", token, nil)
	var missing []internal.MissingItem
	json.NewDecoder(resp.Body).Decode(&missing)
	if len(missing) != 1 || missing[0].Name != "B" {
		t.Fatalf("missing=%+v", missing)
	}

	resp = authRequest(t, http.MethodGet, server.URL+"/api/status", token, nil)
	var status statusResponse
	json.NewDecoder(resp.Body).Decode(&status)
	if status.Stats.Expected != 2 || status.Stats.Received != 1 || status.Stats.Missing != 1 {
		t.Fatalf("status=%+v", status)
	}
}

func TestImportWithoutValidRows(t *testing.T) {
	server, token := setupTestServer(t, storage.NewTestDB(t))
	resp := uploadCSV(t, server.URL+"/api/expected/import", token, map[string]string{"a.csv": "BARKOD\n\n000\n"})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d", resp.StatusCode)
	}
}

func TestDeleteEndpoints(t *testing.T) {
	server, token := setupTestServer(t, storage.NewTestDB(t))
	uploadCSV(t, server.URL+"/api/expected/import", token, map[string]string{"a.csv": "BARKOD\n1\n2\n3\n"})

	resp := authRequest(t, http.MethodDelete, server.URL+"/api/expected/0001", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete one: %d", resp.StatusCode)
	}
	resp = authRequest(t, http.MethodPost, server.URL+"/api/expected/delete", token, map[string][]string{"barcodes": {"2", "x"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete many: %d", resp.StatusCode)
	}
	resp = authRequest(t, http.MethodPost, server.URL+"/api/expected/delete", token, map[string][]string{"barcodes": {"x"}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("delete none: %d", resp.StatusCode)
	}

	resp = authRequest(t, http.MethodGet, server.URL+"/api/expected", token, nil)
	var items []internal.ExpectedItem
	json.NewDecoder(resp.Body).Decode(&items)
	if len(items) != 1 || items[0].Barcode != "3" {
		t.Fatalf("items=%+v", items)
	}

	resp = authRequest(t, http.MethodDelete, server.URL+"/api/all", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("clear all: %d", resp.StatusCode)
	}
	resp = authRequest(t, http.MethodGet, server.URL+"/api/expected", token, nil)
	var raw bytes.Buffer
	raw.ReadFrom(resp.Body)
	if strings.TrimSpace(raw.String()) != "[]" {
		t.Fatalf("body=%s", raw.String())
	}
}

func TestExportMissingDownload(t *testing.T) {
	server, token := setupTestServer(t, storage.NewTestDB(t))
	uploadCSV(t, server.URL+"/api/expected/import", token, map[string]string{"a.csv": "BARKOD;ISIM\n10;A\n"})

	resp := authRequest(t, http.MethodGet, server.URL+"/api/export/missing", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "Eksik_Iadeler_") {
		t.Fatalf("disposition=%q", cd)
	}

	f, err := excelize.OpenReader(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, _ := f.GetRows("EksikIadeler")
	if len(rows) != 2 || rows[1][0] != "10" {
		t.Fatalf("rows=%v", rows)
	}
}

func TestDisabledStoreReturns503(t *testing.T) {
	server, token := setupTestServer(t, storage.Disabled{Missing: []string{"SUPABASE_URL"}})

	resp := authRequest(t, http.MethodPost, server.URL+"/api/refresh", token, nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	resp = authRequest(t, http.MethodPost, server.URL+"/api/received/scan", token, map[string]string{"code": "1"})
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("scan status=%d", resp.StatusCode)
	}
}

func TestPasswordHashAcceptsBcrypt(t *testing.T) {
	hash, err := PasswordHash(testPassword)
	if err != nil {
		t.Fatal(err)
	}
	again, err := PasswordHash(string(hash))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(hash, again) {
		t.Fatal("bcrypt hash was rehashed")
	}
}

func TestScanPageIsPublic(t *testing.T) {
	server, _ := setupTestServer(t, storage.NewTestDB(t))

	for _, path := range []string{"/", "/scan"} {
		resp, err := http.Get(server.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		body := new(bytes.Buffer)
		body.ReadFrom(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: status=%d", path, resp.StatusCode)
		}
		if !strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
			t.Fatalf("%s: content-type=%q", path, resp.Header.Get("Content-Type"))
		}
		if !strings.Contains(body.String(), "/api/received/scan") {
			t.Fatalf("%s: page does not post scans", path)
		}
	}
}
