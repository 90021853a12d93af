// Package templates renders the public site pages.
package templates

import (
	"net/url"
	"strconv"
	"time"

	"github.com/a-h/templ"

	"github.com/ounjeeh/staples/internal/services/catalog"
	"github.com/ounjeeh/staples/internal/services/inquiry"
)

// Route paths linked from the layout.
const (
	PathHome     = "/"
	PathProducts = "/products"
	PathTeam     = "/team"
	PathInquiry  = "/inquiry"
)

// Page carries the shared layout context.
type Page struct {
	Title       string
	Description string
	CurrentPath string
	WhatsAppURL string
	Year        int
}

func (p Page) title() string {
	if p.Title == "" {
		return catalog.BrandName
	}
	return p.Title + " | " + catalog.BrandName
}

func (p Page) year() int {
	if p.Year == 0 {
		return time.Now().Year()
	}
	return p.Year
}

type navItem struct {
	path  string
	label string
}

var nav = []navItem{
	{PathHome, "Home"},
	{PathProducts, "Products"},
	{PathTeam, "Our Team"},
}

// ProductCard is one product with its tracked image.
type ProductCard struct {
	Product catalog.Product
	Image   templ.Component
}

// ProductsView is the products listing.
type ProductsView struct {
	Categories []catalog.Category
	Active     catalog.CategoryID
	Cards      []ProductCard
	Page       int
	HasNext    bool
}

func (v ProductsView) heading() string {
	if isAll(v.Active) {
		return "Our Products"
	}
	return catalog.CategoryTitle(v.Active)
}

func (v ProductsView) paged() bool {
	return v.Page > 1 || v.HasNext
}

func isAll(id catalog.CategoryID) bool {
	return id == catalog.CategoryAll || id == ""
}

// CategoryHref links to the listing filtered by id.
func CategoryHref(id catalog.CategoryID) string {
	if isAll(id) {
		return PathProducts
	}
	return PathProducts + "?" + url.Values{"category": {string(id)}}.Encode()
}

// OrderHref links to the order form prefilled with product.
func OrderHref(product string) string {
	return PathInquiry + "?" + url.Values{"mode": {"order"}, "product": {product}}.Encode() + "#inquiry"
}

func pageHref(active catalog.CategoryID, page int) string {
	values := url.Values{"page": {strconv.Itoa(page)}}
	if !isAll(active) {
		values.Set("category", string(active))
	}
	return PathProducts + "?" + values.Encode()
}

// TeamCard is one team member with a tracked photo.
type TeamCard struct {
	Member catalog.TeamMember
	Image  templ.Component
}

// HomeView is the landing page.
type HomeView struct {
	Categories   []catalog.Category
	Featured     []ProductCard
	Serving      []catalog.ServingBlock
	Testimonials []catalog.Testimonial
	Team         []TeamCard
	Inquiry      templ.Component
}

// TeamView is the team page.
type TeamView struct {
	Members []TeamCard
}

// InquiryForm is the order and inquiry form state.
type InquiryForm struct {
	Values   inquiry.Submission
	Errors   inquiry.FieldErrors
	States   []string
	Products []string
}

func (f InquiryForm) order() bool {
	return f.Values.Mode == inquiry.ModeOrder
}

func (f InquiryForm) heading() string {
	if f.order() {
		return "Place an order"
	}
	return "Send us an inquiry"
}

func (f InquiryForm) invalid(field string) bool {
	_, bad := f.Errors[field]
	return bad
}

// InquiryResult is shown after a valid submission.
type InquiryResult struct {
	Submission   inquiry.Submission
	WhatsAppLink string
}

func (r InquiryResult) message() string {
	if r.Submission.Mode == inquiry.ModeOrder {
		return "Your order request is ready. Continue on WhatsApp to confirm it with our team."
	}
	return "Your inquiry is ready. Continue on WhatsApp to chat with our team."
}
