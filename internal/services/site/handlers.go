package site

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	"github.com/ounjeeh/staples/internal/platform/httpx"
	"github.com/ounjeeh/staples/internal/platform/imageload"
	"github.com/ounjeeh/staples/internal/platform/requestctx"
	"github.com/ounjeeh/staples/internal/services/catalog"
	"github.com/ounjeeh/staples/internal/services/inquiry"
	"github.com/ounjeeh/staples/internal/services/inquiry/locations"
	"github.com/ounjeeh/staples/internal/services/site/templates"
)

const (
	// PageSize is the number of product cards per listing page.
	PageSize = 2 * DefaultColumns
	// FeaturedCount is the number of products on the home page.
	FeaturedCount = 6

	maxInquiryBytes = 32 << 10
)

type handlers struct {
	source    *catalog.Source
	inquiries *inquiry.Service
	tracker   *ImageTracker
	health    func(context.Context) error
	logger    *zap.Logger
}

func (h *handlers) layout(path, title, description string) templates.Page {
	return templates.Page{
		Title:       title,
		Description: description,
		CurrentPath: path,
		WhatsAppURL: inquiry.WhatsAppBase,
	}
}

func (h *handlers) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()
	products, _ := h.source.Products(ctx)
	if len(products) > FeaturedCount {
		products = products[:FeaturedCount]
	}
	productSlots := productSlots(products, 0)
	team := h.source.Team(ctx)
	teamSlots := teamSlots(team)
	images := h.tracker.Page(1)
	images.Settle(ctx, productSlots)

	view := templates.HomeView{
		Categories:   catalog.Categories(),
		Featured:     productCards(images, products, productSlots),
		Serving:      catalog.ServingBlocks(),
		Testimonials: catalog.Testimonials(),
		Team:         teamCards(images, team, teamSlots),
		Inquiry:      templates.InquirySection(h.inquiryForm(inquiry.Submission{Mode: inquiry.ModeInquiry}, nil, products), nil),
	}
	h.writePage(w, r, http.StatusOK,
		h.layout(templates.PathHome, "", catalog.BrandName+" supplies clean, farm-fresh Nigerian staples to homes, institutions and food businesses."),
		templates.Home(view))
}

func (h *handlers) handleProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()
	category := catalog.ParseCategory(query.Get("category"))
	page := parsePage(query.Get("page"))

	all, origin := h.source.Products(ctx)
	filtered := catalog.Filter(all, category)
	pages := (len(filtered) + PageSize - 1) / PageSize
	if pages == 0 {
		pages = 1
	}
	if page > pages {
		page = pages
	}
	start := (page - 1) * PageSize
	end := min(start+PageSize, len(filtered))
	visible := filtered[start:end]

	images := h.tracker.Page(page)
	slots := productSlots(visible, start)
	images.Settle(ctx, slots)

	h.logger.Debug("products listed",
		zap.String("category", string(category)),
		zap.Int("page", page),
		zap.String("origin", string(origin)),
		zap.String("request_id", requestctx.RequestID(ctx)),
	)
	view := templates.ProductsView{
		Categories: catalog.Categories(),
		Active:     category,
		Cards:      productCards(images, visible, slots),
		Page:       page,
		HasNext:    page < pages,
	}
	title := "Products"
	if category != catalog.CategoryAll {
		title = catalog.CategoryTitle(category)
	}
	h.writePage(w, r, http.StatusOK, h.layout(templates.PathProducts, title, ""), templates.Products(view))
}

func (h *handlers) handleTeam(w http.ResponseWriter, r *http.Request) {
	team := h.source.Team(r.Context())
	slots := teamSlots(team)
	images := h.tracker.Page(1)
	images.Settle(r.Context(), slots)
	h.writePage(w, r, http.StatusOK, h.layout(templates.PathTeam, "Our Team", ""),
		templates.Team(templates.TeamView{Members: teamCards(images, team, slots)}))
}

func (h *handlers) handleInquiryForm(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	values := inquiry.Submission{
		Mode:        inquiry.ParseMode(query.Get("mode")),
		ProductName: strings.TrimSpace(query.Get("product")),
	}
	products, _ := h.source.Products(r.Context())
	h.writePage(w, r, http.StatusOK, h.layout(templates.PathInquiry, inquiryTitle(values.Mode), ""),
		templates.InquirySection(h.inquiryForm(values, nil, products), nil))
}

func (h *handlers) handleInquirySubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxInquiryBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	raw := inquiry.Submission{
		Name:        r.PostFormValue("name"),
		Email:       r.PostFormValue("email"),
		Phone:       r.PostFormValue("phone"),
		Message:     r.PostFormValue("message"),
		Mode:        inquiry.ParseMode(r.PostFormValue("mode")),
		ProductName: r.PostFormValue("product"),
		State:       r.PostFormValue("state"),
		City:        r.PostFormValue("city"),
	}
	page := h.layout(templates.PathInquiry, inquiryTitle(raw.Mode), "")

	result, err := h.inquiries.Submit(r.Context(), raw)
	if err != nil {
		fieldErrs, ok := inquiry.AsFieldErrors(err)
		if !ok {
			h.logger.Error("submit inquiry", zap.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		products, _ := h.source.Products(r.Context())
		h.writePage(w, r, http.StatusUnprocessableEntity, page,
			templates.InquirySection(h.inquiryForm(raw.Normalize(), fieldErrs, products), nil))
		return
	}
	h.writePage(w, r, http.StatusOK, page, templates.InquirySection(templates.InquiryForm{}, &templates.InquiryResult{
		Submission:   result.Submission,
		WhatsAppLink: result.WhatsAppLink,
	}))
}

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			_ = httpx.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Error: err.Error()})
			return
		}
	}
	_ = httpx.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (h *handlers) inquiryForm(values inquiry.Submission, errs inquiry.FieldErrors, products []catalog.Product) templates.InquiryForm {
	names := make([]string, 0, len(products))
	for _, p := range products {
		names = append(names, p.Name)
	}
	return templates.InquiryForm{
		Values:   values,
		Errors:   errs,
		States:   locations.States(),
		Products: names,
	}
}

func productCards(images *Page, products []catalog.Product, slots []Slot) []templates.ProductCard {
	cards := make([]templates.ProductCard, 0, len(products))
	for i, p := range products {
		cards = append(cards, templates.ProductCard{Product: p, Image: images.Image(slots[i])})
	}
	return cards
}

func teamCards(images *Page, members []catalog.TeamMember, slots []Slot) []templates.TeamCard {
	cards := make([]templates.TeamCard, 0, len(members))
	for i, m := range members {
		var img templ.Component
		if slots[i].Request.Locator != "" {
			img = images.Image(slots[i])
		}
		cards = append(cards, templates.TeamCard{Member: m, Image: img})
	}
	return cards
}

// productSlots places products in the listing grid starting at offset.
func productSlots(products []catalog.Product, offset int) []Slot {
	slots := make([]Slot, 0, len(products))
	for i, p := range products {
		slots = append(slots, Slot{
			Index: offset + i,
			Request: imageload.Request{
				Locator: p.Image,
				AltText: p.Name,
				Width:   800,
				Height:  600,
			},
		})
	}
	return slots
}

func teamSlots(members []catalog.TeamMember) []Slot {
	slots := make([]Slot, 0, len(members))
	for i, m := range members {
		slots = append(slots, Slot{
			Index: i,
			Request: imageload.Request{
				Locator: m.ImageURL,
				AltText: m.Name,
				Width:   400,
				Height:  400,
			},
		})
	}
	return slots
}

func parsePage(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func inquiryTitle(mode inquiry.Mode) string {
	if mode == inquiry.ModeOrder {
		return "Place an order"
	}
	return "Contact us"
}

// writePage renders body inside the layout into a buffer first so a render
// failure can still produce a clean 500.
func (h *handlers) writePage(w http.ResponseWriter, r *http.Request, status int, page templates.Page, body templ.Component) {
	var buf bytes.Buffer
	ctx := templ.WithChildren(r.Context(), body)
	if err := templates.Layout(page).Render(ctx, &buf); err != nil {
		h.logger.Error("render page", zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
