package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/kisanmart/app/services"
	"github.com/shashiranjanraj/kisanmart/pkg/ctx"
)

type ProductController struct {
	catalog *services.CatalogService
	images  *services.ImageService
}

func NewProductController(catalog *services.CatalogService, images *services.ImageService) *ProductController {
	return &ProductController{catalog: catalog, images: images}
}

// Index lists products:
//
//	GET /api/products?category=Herbicides&minPrice=100&search=neem&inStock=true&sort=price_asc&page=2&limit=12
func (pc *ProductController) Index(c *ctx.Context) {
	items, page, err := pc.catalog.List(c.Context(), services.ProductQuery{
		Category: c.Query("category"),
		MinPrice: c.QueryFloat("minPrice"),
		MaxPrice: c.QueryFloat("maxPrice"),
		Search:   c.Query("search"),
		InStock:  c.QueryBool("inStock"),
		Sort:     c.Query("sort"),
		Page:     c.QueryInt("page", 1),
		Limit:    c.QueryInt("limit", 12),
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.Paginated(items, page)
}

func (pc *ProductController) Featured(c *ctx.Context) {
	items, err := pc.catalog.Featured(c.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(items)
}

func (pc *ProductController) Show(c *ctx.Context) {
	p, err := pc.catalog.Get(c.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(p)
}

func (pc *ProductController) Store(c *ctx.Context) {
	var in services.ProductInput
	if !c.BindJSON(&in) {
		return
	}
	p, err := pc.catalog.Create(c.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Created(p)
}

func (pc *ProductController) Update(c *ctx.Context) {
	var patch services.ProductPatch
	if !c.DecodeJSON(&patch) {
		return
	}
	p, err := pc.catalog.Update(c.Context(), c.Param("id"), patch)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(p)
}

func (pc *ProductController) Destroy(c *ctx.Context) {
	if err := pc.catalog.Delete(c.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Message("Product removed", nil)
}

// Upload stores the multipart "images" files and returns their URLs.
func (pc *ProductController) Upload(c *ctx.Context) {
	limit := int64(services.MaxImagesPerUpload*services.MaxImageBytes + 1<<20)
	c.R.Body = http.MaxBytesReader(c.W, c.R.Body, limit)
	if err := c.R.ParseMultipartForm(8 << 20); err != nil {
		c.Error(http.StatusBadRequest, "Invalid multipart upload")
		return
	}
	defer c.R.MultipartForm.RemoveAll() //nolint:errcheck

	images, err := pc.images.Save(c.Context(), c.R.MultipartForm.File["images"])
	if err != nil {
		fail(c, err)
		return
	}
	c.Message("Images uploaded successfully", images)
}
