package web

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"storefront/internal/cart"
	"storefront/internal/entity"
	"storefront/internal/feed"
	"storefront/internal/service"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

//go:embed templates/*.html
var templateFS embed.FS

const (
	placeholderImage = "/assets/images/placeholder.jpg"

	msgNoProducts     = "Nenhum produto encontrado."
	msgLoadFailed     = "Erro ao carregar produtos."
	msgFeedDisabled   = "Catálogo indisponível."
	msgHeroLoadFailed = "Erro ao carregar destaques"
)

// Renderer implements echo.Renderer over the embedded templates.
type Renderer struct {
	templates *template.Template
}

func NewRenderer() (*Renderer, error) {
	t, err := template.New("").Funcs(template.FuncMap{"brl": FormatBRL}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: t}, nil
}

func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

// Card is a product tile, built from either read path.
type Card struct {
	ID          string
	Name        string
	Description string
	PriceCents  int64
	ImageURL    string
}

type heroSlide struct {
	feed.Entry
	Index  int
	Active bool
}

type heroView struct {
	Slides  []heroSlide
	Error   string
	Current int
}

type indexPage struct {
	Hero           heroView
	HeroIntervalMs int64
	Query          string
	Products       []Card
	Message        string
	Cart           cartView
}

type fragmentPage struct {
	Cards   []Card
	Message string
	Hint    string
}

// Handler serves the storefront page and its HTML fragments. feed may be nil.
type Handler struct {
	products *service.ProductService
	orders   *service.OrderService
	feed     *feed.Service
}

func NewHandler(products *service.ProductService, orders *service.OrderService, feedService *feed.Service) *Handler {
	return &Handler{products: products, orders: orders, feed: feedService}
}

// Index renders the storefront --> /?q=
func (h *Handler) Index(c echo.Context) error {
	ctx := c.Request().Context()

	query := strings.TrimSpace(c.QueryParam("q"))
	var (
		products []*entity.Product
		err      error
	)
	if query != "" {
		products, err = h.products.Search(ctx, query)
	} else {
		products, err = h.products.ListProducts(ctx)
	}
	if err != nil {
		return c.String(http.StatusInternalServerError, msgLoadFailed)
	}

	// A fresh page always starts with an empty cart.
	view, err := newCartView(cart.New())
	if err != nil {
		return err
	}
	page := indexPage{
		HeroIntervalMs: HeroInterval.Milliseconds(),
		Query:          query,
		Products:       productCards(products),
		Cart:           view,
	}
	if len(products) == 0 {
		page.Message = msgNoProducts
	}

	if h.feed != nil {
		entries, err := h.feed.ListHero(ctx, feed.DefaultHeroLimit)
		if err != nil {
			page.Hero.Error = msgHeroLoadFailed
		} else {
			page.Hero.Slides = heroSlides(entries, 0)
		}
	}

	return c.Render(http.StatusOK, "index.html", page)
}

// HeroFragment renders the hero slides with one moved into view --> /fragments/hero?i=&dir=next|prev
func (h *Handler) HeroFragment(c echo.Context) error {
	if h.feed == nil {
		return c.Render(http.StatusServiceUnavailable, "hero.html", heroView{Error: msgFeedDisabled})
	}

	current := 0
	if raw := c.QueryParam("i"); raw != "" {
		var err error
		if current, err = strconv.Atoi(raw); err != nil {
			return c.String(http.StatusBadRequest, "invalid slide index")
		}
	}

	entries, err := h.feed.ListHero(c.Request().Context(), feed.DefaultHeroLimit)
	if err != nil {
		return c.Render(http.StatusOK, "hero.html", heroView{Error: msgHeroLoadFailed})
	}

	r := NewRotator(len(entries))
	r.Show(current)
	switch c.QueryParam("dir") {
	case "next":
		r.Next()
	case "prev":
		r.Prev()
	case "":
	default:
		return c.String(http.StatusBadRequest, "dir must be next or prev")
	}

	return c.Render(http.StatusOK, "hero.html", heroView{Slides: heroSlides(entries, r.Current()), Current: r.Current()})
}

// ProductsFragment renders feed cards --> /fragments/products?field=&value=&limit=
func (h *Handler) ProductsFragment(c echo.Context) error {
	if h.feed == nil {
		return c.Render(http.StatusServiceUnavailable, "fragment.html", fragmentPage{Message: msgFeedDisabled})
	}

	field, err := feed.ParseField(c.QueryParam("field"))
	if err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			return c.String(http.StatusBadRequest, "invalid limit")
		}
	}

	entries, err := h.feed.List(c.Request().Context(), field, strings.TrimSpace(c.QueryParam("value")), limit)
	if err != nil {
		page := fragmentPage{Message: msgLoadFailed}
		var loadErr *feed.LoadError
		if errors.As(err, &loadErr) {
			page.Hint = loadErr.Hint
		}
		return c.Render(http.StatusOK, "fragment.html", page)
	}
	if len(entries) == 0 {
		return c.Render(http.StatusOK, "fragment.html", fragmentPage{Message: msgNoProducts})
	}

	logger.Debug().Int("count", len(entries)).Str("field", field.String()).Msg("Rendered feed fragment")
	return c.Render(http.StatusOK, "fragment.html", fragmentPage{Cards: feedCards(entries)})
}

func productCards(products []*entity.Product) []Card {
	cards := make([]Card, 0, len(products))
	for _, p := range products {
		cards = append(cards, Card{
			ID:          strconv.FormatInt(p.ID, 10),
			Name:        p.Title,
			Description: p.Description,
			PriceCents:  p.PriceCents,
			ImageURL:    imageOrPlaceholder(p.ImageURL),
		})
	}
	return cards
}

func feedCards(entries []feed.Entry) []Card {
	cards := make([]Card, 0, len(entries))
	for _, e := range entries {
		name := e.Name
		if name == "" {
			name = "Produto"
		}
		cards = append(cards, Card{
			ID:          e.ID,
			Name:        name,
			Description: e.Description,
			PriceCents:  e.PriceCents,
			ImageURL:    imageOrPlaceholder(e.ImageURL),
		})
	}
	return cards
}

func heroSlides(entries []feed.Entry, active int) []heroSlide {
	slides := make([]heroSlide, len(entries))
	for i, e := range entries {
		slides[i] = heroSlide{Entry: e, Index: i, Active: i == active}
	}
	return slides
}

func imageOrPlaceholder(url string) string {
	if url == "" {
		return placeholderImage
	}
	return url
}
