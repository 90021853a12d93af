package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ounjeeh/staples/internal/platform/httpx"
	"github.com/ounjeeh/staples/internal/platform/imageload"
	"github.com/ounjeeh/staples/internal/platform/objectstore"
	"github.com/ounjeeh/staples/internal/services/admin/upload"
	"github.com/ounjeeh/staples/internal/services/catalog/storage"
	"github.com/ounjeeh/staples/internal/services/catalog/storage/sqlite"
)

type testEnv struct {
	handler  http.Handler
	store    *sqlite.Store
	mediaDir string
	cookie   *http.Cookie
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	store, err := sqlite.Open(filepath.Join(dir, "catalog.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	mediaDir := filepath.Join(dir, "media")
	products, err := objectstore.NewFSBucket(mediaDir, "product-images", "http://localhost:8080/media")
	if err != nil {
		t.Fatalf("product bucket: %v", err)
	}
	team, err := objectstore.NewFSBucket(mediaDir, "team-photos", "http://localhost:8080/media")
	if err != nil {
		t.Fatalf("team bucket: %v", err)
	}
	verifier, err := NewVerifier(VerifierConfig{
		Marker:  store,
		Fetcher: imageload.FetcherFunc(func(context.Context, string) error { return nil }),
	})
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	t.Cleanup(verifier.Close)

	h, err := NewHandler(Config{
		Auth:          newTestAuth(t, nil),
		Products:      store,
		Team:          store,
		ProductImages: products,
		TeamPhotos:    team,
		Verifier:      verifier,
	})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	env := &testEnv{handler: h.Routes(), store: store, mediaDir: mediaDir}
	env.cookie = env.login(t)
	return env
}

func (e *testEnv) login(t *testing.T) *http.Cookie {
	t.Helper()
	rec := e.do(t, jsonRequest(http.MethodPost, "/admin/api/login", `{"password":"`+testPassword+`"}`), false)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d body %s", rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	t.Fatal("login set no session cookie")
	return nil
}

func (e *testEnv) do(t *testing.T, req *http.Request, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	if authed {
		req.AddCookie(e.cookie)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) objectExists(bucket, path string) bool {
	_, err := os.Stat(filepath.Join(e.mediaDir, bucket, filepath.FromSlash(path)))
	return err == nil
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func pngData(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// multipartRequest builds a form request; a nil image omits the file part.
func multipartRequest(t *testing.T, method, target string, fields map[string]string, image []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if image != nil {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="`+upload.Field+`"; filename="photo.png"`)
		header.Set("Content-Type", "image/png")
		part, err := mw.CreatePart(header)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(image); err != nil {
			t.Fatalf("write image: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return out
}

func TestLoginRejectsWrongPasswordOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, jsonRequest(http.MethodPost, "/admin/api/login", `{"password":"nope"}`), false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatal("rejected login set a cookie")
	}

	rec = env.do(t, jsonRequest(http.MethodPost, "/admin/api/login", `{}`), false)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty password status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestSessionCookieAttributes(t *testing.T) {
	env := newTestEnv(t)
	if !env.cookie.HttpOnly {
		t.Fatal("session cookie is not HttpOnly")
	}
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/admin/api/session", nil), true)
	if rec.Code != http.StatusOK {
		t.Fatalf("session status = %d", rec.Code)
	}
	if got := decode[sessionResponse](t, rec); !got.Admin {
		t.Fatal("session reports visitor")
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, httptest.NewRequest(http.MethodPost, "/admin/api/logout", nil), true)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != CookieName || cookies[0].MaxAge >= 0 {
		t.Fatalf("logout cookies = %+v", cookies)
	}
}

func TestAPIRequiresSession(t *testing.T) {
	env := newTestEnv(t)
	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/admin/api/products", nil),
		httptest.NewRequest(http.MethodDelete, "/admin/api/products/x", nil),
		httptest.NewRequest(http.MethodGet, "/admin/api/team", nil),
	} {
		rec := env.do(t, req, false)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s status = %d, want %d", req.Method, req.URL.Path, rec.Code, http.StatusUnauthorized)
		}
	}
}

func TestCreateProduct(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, multipartRequest(t, http.MethodPost, "/admin/api/products", map[string]string{
		"product_name": "Ofada Rice",
		"description":  "Locally grown, unpolished rice.",
		"category":     "grains",
		"price":        "4,500",
		"stock_status": "low-stock",
	}, pngData(t)), true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	got := decode[productResponse](t, rec)
	if got.ProductName != "Ofada Rice" || got.Category != "grains" || got.StockStatus != "low-stock" {
		t.Fatalf("product = %+v", got)
	}
	if got.PriceKobo == nil || *got.PriceKobo != 450000 || got.Price != "₦4,500" {
		t.Fatalf("price = %v %q", got.PriceKobo, got.Price)
	}
	if !strings.HasPrefix(got.ProductID, "product_") || !got.IsPrimary {
		t.Fatalf("product id = %q primary = %v", got.ProductID, got.IsPrimary)
	}
	if !strings.HasPrefix(got.ImageURL, "http://localhost:8080/media/product-images/products/") {
		t.Fatalf("image url = %q", got.ImageURL)
	}
	record, err := env.store.GetProductRecord(context.Background(), got.ID)
	if err != nil {
		t.Fatalf("GetProductRecord: %v", err)
	}
	if !env.objectExists("product-images", record.ImagePath) {
		t.Fatalf("image %q was not stored", record.ImagePath)
	}

	deadline := time.Now().Add(2 * time.Second)
	for record.VerifiedAt == nil {
		if time.Now().After(deadline) {
			t.Fatal("uploaded image was never verified")
		}
		time.Sleep(5 * time.Millisecond)
		if record, err = env.store.GetProductRecord(context.Background(), got.ID); err != nil {
			t.Fatalf("GetProductRecord: %v", err)
		}
	}

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/admin/api/products", nil), true)
	list := decode[[]productResponse](t, rec)
	if len(list) != 1 || list[0].ID != got.ID {
		t.Fatalf("list = %+v", list)
	}
}

func TestCreateProductValidation(t *testing.T) {
	env := newTestEnv(t)
	img := pngData(t)
	tests := []struct {
		name      string
		fields    map[string]string
		image     []byte
		wantField string
	}{
		{name: "missing name", fields: map[string]string{"category": "grains"}, image: img, wantField: "product_name"},
		{name: "unknown category", fields: map[string]string{"product_name": "Garri", "category": "snacks"}, image: img, wantField: "category"},
		{name: "negative price", fields: map[string]string{"product_name": "Garri", "price": "-5"}, image: img, wantField: "price"},
		{name: "unknown stock status", fields: map[string]string{"product_name": "Garri", "stock_status": "gone"}, image: img, wantField: "stock_status"},
		{name: "missing image", fields: map[string]string{"product_name": "Garri"}, wantField: "image"},
		{name: "not an image", fields: map[string]string{"product_name": "Garri"}, image: []byte("plain text"), wantField: "image"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, multipartRequest(t, http.MethodPost, "/admin/api/products", tc.fields, tc.image), true)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
			}
			if got := decode[httpx.ErrorBody](t, rec); got.Field != tc.wantField {
				t.Fatalf("field = %q, want %q (%s)", got.Field, tc.wantField, got.Error)
			}
		})
	}
	records, err := env.store.ListProductRecords(context.Background(), storage.ProductFilter{})
	if err != nil {
		t.Fatalf("ListProductRecords: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("invalid forms created %d records", len(records))
	}
}

func TestUpdateProductReplacesImage(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, multipartRequest(t, http.MethodPost, "/admin/api/products", map[string]string{
		"product_name": "Garri",
		"category":     "processed",
	}, pngData(t)), true)
	created := decode[productResponse](t, rec)
	before, err := env.store.GetProductRecord(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetProductRecord: %v", err)
	}

	rec = env.do(t, multipartRequest(t, http.MethodPut, "/admin/api/products/"+created.ID, map[string]string{
		"product_name": "Ijebu Garri",
		"category":     "processed",
		"price":        "1250.50",
	}, pngData(t)), true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	updated := decode[productResponse](t, rec)
	if updated.ProductName != "Ijebu Garri" || updated.Price != "₦1,250.50" {
		t.Fatalf("updated = %+v", updated)
	}
	if updated.ProductID != created.ProductID {
		t.Fatalf("product id changed to %q", updated.ProductID)
	}
	after, err := env.store.GetProductRecord(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetProductRecord: %v", err)
	}
	if after.ImagePath == before.ImagePath {
		t.Fatal("image path did not change")
	}
	if env.objectExists("product-images", before.ImagePath) {
		t.Fatal("old image was not deleted")
	}
	if !env.objectExists("product-images", after.ImagePath) {
		t.Fatal("new image was not stored")
	}
}

func TestUpdateProductKeepsImageWithoutUpload(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, multipartRequest(t, http.MethodPost, "/admin/api/products", map[string]string{
		"product_name": "Palm Oil",
		"category":     "oils",
	}, pngData(t)), true)
	created := decode[productResponse](t, rec)

	rec = env.do(t, multipartRequest(t, http.MethodPut, "/admin/api/products/"+created.ID, map[string]string{
		"product_name": "Red Palm Oil",
		"category":     "oils",
		"stock_status": "out-of-stock",
	}, nil), true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	updated := decode[productResponse](t, rec)
	if updated.ImageURL != created.ImageURL || updated.StockStatus != "out-of-stock" {
		t.Fatalf("updated = %+v", updated)
	}
}

func TestUpdateMissingProduct(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, multipartRequest(t, http.MethodPut, "/admin/api/products/missing", map[string]string{
		"product_name": "Beans",
	}, nil), true)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestDeleteProductRemovesRecordAndImage(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, multipartRequest(t, http.MethodPost, "/admin/api/products", map[string]string{
		"product_name": "Honey Beans",
		"category":     "grains",
	}, pngData(t)), true)
	created := decode[productResponse](t, rec)
	record, err := env.store.GetProductRecord(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetProductRecord: %v", err)
	}

	rec = env.do(t, httptest.NewRequest(http.MethodDelete, "/admin/api/products/"+created.ID, nil), true)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	if _, err := env.store.GetProductRecord(context.Background(), created.ID); err == nil {
		t.Fatal("record still exists")
	}
	if env.objectExists("product-images", record.ImagePath) {
		t.Fatal("image still exists")
	}

	rec = env.do(t, httptest.NewRequest(http.MethodDelete, "/admin/api/products/"+created.ID, nil), true)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestTeamMembers(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, multipartRequest(t, http.MethodPost, "/admin/api/team", map[string]string{
		"name":          "Adaeze Okafor",
		"role":          "Operations Lead",
		"display_order": "2",
	}, pngData(t)), true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	member := decode[teamResponse](t, rec)
	if member.DisplayOrder != 2 || !strings.Contains(member.ImageURL, "/team-photos/team/") {
		t.Fatalf("member = %+v", member)
	}

	rec = env.do(t, multipartRequest(t, http.MethodPost, "/admin/api/team", map[string]string{
		"name": "No Role",
	}, pngData(t)), true)
	if got := decode[httpx.ErrorBody](t, rec); rec.Code != http.StatusBadRequest || got.Field != "role" {
		t.Fatalf("status = %d field = %q", rec.Code, got.Field)
	}

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/admin/api/team", nil), true)
	if list := decode[[]teamResponse](t, rec); len(list) != 1 || list[0].ID != member.ID {
		t.Fatalf("team = %+v", list)
	}

	stored, err := env.store.GetTeamMember(context.Background(), member.ID)
	if err != nil {
		t.Fatalf("GetTeamMember: %v", err)
	}
	rec = env.do(t, httptest.NewRequest(http.MethodDelete, "/admin/api/team/"+member.ID, nil), true)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if env.objectExists("team-photos", stored.ImagePath) {
		t.Fatal("team photo still exists")
	}
}
