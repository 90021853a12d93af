package admin

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/ounjeeh/staples/internal/platform/errors"
	"github.com/ounjeeh/staples/internal/platform/httpx"
	"github.com/ounjeeh/staples/internal/platform/objectstore"
	"github.com/ounjeeh/staples/internal/platform/requestctx"
	"github.com/ounjeeh/staples/internal/services/admin/upload"
	"github.com/ounjeeh/staples/internal/services/catalog"
	"github.com/ounjeeh/staples/internal/services/catalog/storage"
)

// Route prefixes served by Handler.
const (
	APIPrefix = "/admin/api/"

	// ProductFolder is the folder product images are stored under.
	ProductFolder = "products"
	// TeamFolder is the folder team photos are stored under.
	TeamFolder = "team"

	maxFormBytes  = upload.MaxBytes + 1<<20
	maxLoginBytes = 4 << 10
)

// Config wires the admin API.
type Config struct {
	Auth          *Authenticator
	Products      storage.ProductStore
	Team          storage.TeamStore
	ProductImages objectstore.Bucket
	TeamPhotos    objectstore.Bucket
	// Verifier is optional; without it uploads are never marked verified.
	Verifier *Verifier
	Namer    upload.Namer
	Now      func() time.Time
	Logger   *zap.Logger
}

// Handler serves the hidden admin API.
type Handler struct {
	auth          *Authenticator
	products      storage.ProductStore
	team          storage.TeamStore
	productImages objectstore.Bucket
	teamPhotos    objectstore.Bucket
	verifier      *Verifier
	namer         upload.Namer
	now           func() time.Time
	logger        *zap.Logger
}

// NewHandler validates cfg and builds the admin API.
func NewHandler(cfg Config) (*Handler, error) {
	switch {
	case cfg.Auth == nil:
		return nil, errors.New("admin authenticator is required")
	case cfg.Products == nil || cfg.Team == nil:
		return nil, errors.New("admin stores are required")
	case cfg.ProductImages == nil || cfg.TeamPhotos == nil:
		return nil, errors.New("admin buckets are required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	namer := cfg.Namer
	if namer.Now == nil {
		namer.Now = now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		auth:          cfg.Auth,
		products:      cfg.Products,
		team:          cfg.Team,
		productImages: cfg.ProductImages,
		teamPhotos:    cfg.TeamPhotos,
		verifier:      cfg.Verifier,
		namer:         namer,
		now:           now,
		logger:        logger.Named("admin"),
	}, nil
}

// Routes returns the admin API mux. Every route except login and logout
// requires a session.
func (h *Handler) Routes() http.Handler {
	authed := http.NewServeMux()
	authed.HandleFunc("GET /admin/api/session", h.handleSession)
	authed.HandleFunc("GET /admin/api/products", h.handleListProducts)
	authed.HandleFunc("POST /admin/api/products", h.handleCreateProduct)
	authed.HandleFunc("PUT /admin/api/products/{id}", h.handleUpdateProduct)
	authed.HandleFunc("DELETE /admin/api/products/{id}", h.handleDeleteProduct)
	authed.HandleFunc("GET /admin/api/team", h.handleListTeam)
	authed.HandleFunc("POST /admin/api/team", h.handleCreateTeamMember)
	authed.HandleFunc("DELETE /admin/api/team/{id}", h.handleDeleteTeamMember)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /admin/api/login", h.handleLogin)
	mux.HandleFunc("POST /admin/api/logout", h.handleLogout)
	mux.Handle(APIPrefix, httpx.Chain(authed, h.auth.RequireAdmin(h.logger)))
	return mux
}

type loginRequest struct {
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, maxLoginBytes, &req); err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	if req.Password == "" {
		httpx.WriteError(w, h.logger, apperrors.Field("password", "Password is required"))
		return
	}
	token, expires, err := h.auth.Login(req.Password)
	if err != nil {
		h.logger.Info("admin login rejected", zap.String("request_id", requestctx.RequestID(r.Context())))
		httpx.WriteError(w, h.logger, err)
		return
	}
	writeCookie(w, r, token, expires)
	_ = httpx.WriteJSON(w, http.StatusOK, sessionResponse{Admin: true, ExpiresAt: &expires})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	clearCookie(w, r)
	w.WriteHeader(http.StatusNoContent)
}

type sessionResponse struct {
	Admin     bool       `json:"admin"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	_ = httpx.WriteJSON(w, http.StatusOK, sessionResponse{Admin: requestctx.Admin(r.Context()) != ""})
}

type productResponse struct {
	ID          string     `json:"id"`
	ProductID   string     `json:"productId"`
	ProductName string     `json:"productName"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category"`
	PriceKobo   *int64     `json:"priceKobo,omitempty"`
	Price       string     `json:"price,omitempty"`
	StockStatus string     `json:"stockStatus"`
	ImageURL    string     `json:"imageUrl"`
	IsPrimary   bool       `json:"isPrimary"`
	VerifiedAt  *time.Time `json:"verifiedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func toProductResponse(r storage.ProductRecord) productResponse {
	resp := productResponse{
		ID:          r.ID,
		ProductID:   r.ProductID,
		ProductName: r.ProductName,
		Description: r.Description,
		Category:    r.Category,
		PriceKobo:   r.PriceKobo,
		StockStatus: r.StockStatus,
		ImageURL:    r.ImageURL,
		IsPrimary:   r.IsPrimary,
		VerifiedAt:  r.VerifiedAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.PriceKobo != nil {
		resp.Price = catalog.FormatPrice(*r.PriceKobo)
	}
	return resp
}

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	filter := storage.ProductFilter{Category: strings.TrimSpace(r.URL.Query().Get("category"))}
	if filter.Category == string(catalog.CategoryAll) {
		filter.Category = ""
	}
	records, err := h.products.ListProductRecords(r.Context(), filter)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	out := make([]productResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toProductResponse(rec))
	}
	_ = httpx.WriteJSON(w, http.StatusOK, out)
}

// productForm holds the validated text fields of a product form.
type productForm struct {
	ProductID   string
	Name        string
	Description string
	Category    catalog.CategoryID
	PriceKobo   *int64
	StockStatus catalog.StockStatus
}

func parseProductForm(r *http.Request) (productForm, error) {
	form := productForm{
		ProductID:   strings.TrimSpace(r.FormValue("product_id")),
		Name:        strings.TrimSpace(r.FormValue("product_name")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Category:    catalog.CategoryID(strings.ToLower(strings.TrimSpace(r.FormValue("category")))),
		StockStatus: catalog.StockStatus(strings.ToLower(strings.TrimSpace(r.FormValue("stock_status")))),
	}
	if form.Name == "" {
		return productForm{}, apperrors.Field("product_name", "Product name is required")
	}
	if form.Category == "" {
		form.Category = catalog.CategoryGrains
	}
	if !catalog.ValidCategory(form.Category) {
		return productForm{}, apperrors.Field("category", "Please choose a valid category")
	}
	if form.StockStatus == "" {
		form.StockStatus = catalog.InStock
	}
	if !form.StockStatus.Valid() {
		return productForm{}, apperrors.Field("stock_status", "Please choose a valid stock status")
	}
	kobo, ok, err := catalog.ParsePrice(r.FormValue("price"))
	if err != nil {
		return productForm{}, apperrors.Field("price", "Price must be a non-negative amount like 4500 or 1250.50")
	}
	if ok {
		form.PriceKobo = &kobo
	}
	return form, nil
}

func (h *Handler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	if err := parseMultipart(w, r); err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	form, err := parseProductForm(r)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	fh := formFile(r)
	if fh == nil {
		httpx.WriteError(w, h.logger, apperrors.Field(upload.Field, "Please select an image"))
		return
	}
	stored, err := h.storeImage(r.Context(), h.productImages, ProductFolder, fh)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	if form.ProductID == "" {
		form.ProductID = fmt.Sprintf("product_%d", h.now().UnixMilli())
	}

	record, err := h.products.CreateProductRecord(r.Context(), storage.ProductRecord{
		ProductID:   form.ProductID,
		ProductName: form.Name,
		Description: form.Description,
		Category:    string(form.Category),
		PriceKobo:   form.PriceKobo,
		StockStatus: string(form.StockStatus),
		ImageURL:    stored.URL,
		ImagePath:   stored.Path,
		IsPrimary:   true,
	})
	if err != nil {
		h.discardObject(r.Context(), h.productImages, stored.Path)
		httpx.WriteError(w, h.logger, storeError(err, "Product"))
		return
	}
	h.logger.Info("product created",
		zap.String("record_id", record.ID),
		zap.String("product_id", record.ProductID),
		zap.String("request_id", requestctx.RequestID(r.Context())),
	)
	h.verify(record)
	_ = httpx.WriteJSON(w, http.StatusCreated, toProductResponse(record))
}

func (h *Handler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := h.products.GetProductRecord(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, h.logger, storeError(err, "Product"))
		return
	}
	if err := parseMultipart(w, r); err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	form, err := parseProductForm(r)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}

	updated := existing
	updated.ProductName = form.Name
	updated.Description = form.Description
	updated.Category = string(form.Category)
	updated.PriceKobo = form.PriceKobo
	updated.StockStatus = string(form.StockStatus)
	if form.ProductID != "" {
		updated.ProductID = form.ProductID
	}

	var replaced string
	if fh := formFile(r); fh != nil {
		stored, err := h.storeImage(r.Context(), h.productImages, ProductFolder, fh)
		if err != nil {
			httpx.WriteError(w, h.logger, err)
			return
		}
		updated.ImageURL = stored.URL
		updated.ImagePath = stored.Path
		replaced = existing.ImagePath
	}

	record, err := h.products.UpdateProductRecord(r.Context(), updated)
	if err != nil {
		if updated.ImagePath != existing.ImagePath {
			h.discardObject(r.Context(), h.productImages, updated.ImagePath)
		}
		httpx.WriteError(w, h.logger, storeError(err, "Product"))
		return
	}
	if replaced != "" {
		h.discardObject(r.Context(), h.productImages, replaced)
	}
	if record.ImageURL != existing.ImageURL {
		h.verify(record)
	}
	_ = httpx.WriteJSON(w, http.StatusOK, toProductResponse(record))
}

func (h *Handler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := h.products.GetProductRecord(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, h.logger, storeError(err, "Product"))
		return
	}
	if err := h.products.DeleteProductRecord(r.Context(), id); err != nil {
		httpx.WriteError(w, h.logger, storeError(err, "Product"))
		return
	}
	if h.verifier != nil {
		h.verifier.Forget(id)
	}
	h.discardObject(r.Context(), h.productImages, existing.ImagePath)
	w.WriteHeader(http.StatusNoContent)
}

type teamResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	ImageURL     string    `json:"imageUrl"`
	DisplayOrder int       `json:"displayOrder"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toTeamResponse(m storage.TeamMember) teamResponse {
	return teamResponse{
		ID:           m.ID,
		Name:         m.Name,
		Role:         m.Role,
		ImageURL:     m.ImageURL,
		DisplayOrder: m.DisplayOrder,
		CreatedAt:    m.CreatedAt,
	}
}

func (h *Handler) handleListTeam(w http.ResponseWriter, r *http.Request) {
	members, err := h.team.ListActiveTeamMembers(r.Context())
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	out := make([]teamResponse, 0, len(members))
	for _, m := range members {
		out = append(out, toTeamResponse(m))
	}
	_ = httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleCreateTeamMember(w http.ResponseWriter, r *http.Request) {
	if err := parseMultipart(w, r); err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	name := strings.TrimSpace(r.FormValue("name"))
	role := strings.TrimSpace(r.FormValue("role"))
	if name == "" {
		httpx.WriteError(w, h.logger, apperrors.Field("name", "Name is required"))
		return
	}
	if role == "" {
		httpx.WriteError(w, h.logger, apperrors.Field("role", "Role is required"))
		return
	}
	order := 0
	if raw := strings.TrimSpace(r.FormValue("display_order")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			httpx.WriteError(w, h.logger, apperrors.Field("display_order", "Display order must be a whole number"))
			return
		}
		order = parsed
	}
	fh := formFile(r)
	if fh == nil {
		httpx.WriteError(w, h.logger, apperrors.Field(upload.Field, "Please select an image"))
		return
	}
	stored, err := h.storeImage(r.Context(), h.teamPhotos, TeamFolder, fh)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	member, err := h.team.CreateTeamMember(r.Context(), storage.TeamMember{
		Name:         name,
		Role:         role,
		ImageURL:     stored.URL,
		ImagePath:    stored.Path,
		DisplayOrder: order,
		IsActive:     true,
	})
	if err != nil {
		h.discardObject(r.Context(), h.teamPhotos, stored.Path)
		httpx.WriteError(w, h.logger, storeError(err, "Team member"))
		return
	}
	_ = httpx.WriteJSON(w, http.StatusCreated, toTeamResponse(member))
}

func (h *Handler) handleDeleteTeamMember(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := h.team.GetTeamMember(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, h.logger, storeError(err, "Team member"))
		return
	}
	if err := h.team.DeleteTeamMember(r.Context(), id); err != nil {
		httpx.WriteError(w, h.logger, storeError(err, "Team member"))
		return
	}
	h.discardObject(r.Context(), h.teamPhotos, existing.ImagePath)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) storeImage(ctx context.Context, bucket objectstore.Bucket, folder string, fh *multipart.FileHeader) (upload.Stored, error) {
	img, err := upload.ReadFile(fh)
	if err != nil {
		return upload.Stored{}, err
	}
	stored, err := upload.Store(ctx, bucket, h.namer, folder, img)
	if errors.Is(err, objectstore.ErrExists) {
		return upload.Stored{}, apperrors.Wrap(apperrors.KindConflict, "An image with this name already exists, please retry", err)
	}
	return stored, err
}

func (h *Handler) discardObject(ctx context.Context, bucket objectstore.Bucket, path string) {
	if path == "" {
		return
	}
	if err := bucket.Delete(context.WithoutCancel(ctx), path); err != nil {
		h.logger.Warn("delete stored image", zap.String("path", path), zap.Error(err))
	}
}

func (h *Handler) verify(record storage.ProductRecord) {
	if h.verifier == nil || record.ImageURL == "" {
		return
	}
	if err := h.verifier.Track(record.ID, record.ImageURL); err != nil {
		h.logger.Warn("verify product image", zap.String("record_id", record.ID), zap.Error(err))
	}
}

func parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseMultipartForm(maxFormBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperrors.Error{Kind: apperrors.KindTooLarge, Field: upload.Field, Message: "Image must be less than 5MB"}
		}
		return apperrors.Wrap(apperrors.KindInvalidInput, "Expected a multipart form", err)
	}
	return nil
}

func formFile(r *http.Request) *multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	files := r.MultipartForm.File[upload.Field]
	if len(files) == 0 {
		return nil
	}
	return files[0]
}

func storeError(err error, noun string) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return apperrors.Wrap(apperrors.KindNotFound, noun+" not found", err)
	case errors.Is(err, storage.ErrAlreadyExists):
		return apperrors.Wrap(apperrors.KindConflict, noun+" already exists", err)
	default:
		return err
	}
}
