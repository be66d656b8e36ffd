package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/inkwell-cms/inkwell/internal/pkg/response"
	"gorm.io/gorm"
)

const (
	DefaultPage = 1
	DefaultSize = 10
	MaxSize     = 100
)

// Query holds parsed pagination parameters.
type Query struct {
	Page int
	Size int
}

// New clamps page and size into the accepted range.
func New(page, size int) Query {
	if page < 1 {
		page = DefaultPage
	}
	if size < 1 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}
	return Query{Page: page, Size: size}
}

// FromContext extracts and validates pagination params from the request.
func FromContext(c *gin.Context) Query {
	return New(
		parseIntOr(c.DefaultQuery("page", "1"), DefaultPage),
		parseIntOr(c.DefaultQuery("size", strconv.Itoa(DefaultSize)), DefaultSize),
	)
}

// Offset returns the row offset for the page.
func (q Query) Offset() int {
	return (q.Page - 1) * q.Size
}

// Paginate applies limit/offset to a GORM query and returns the pagination metadata.
// Scopes (preloads, ordering) apply to the page fetch only, not to the count.
func Paginate[T any](db *gorm.DB, q Query, dest *[]T, scopes ...func(*gorm.DB) *gorm.DB) (response.Pagination, error) {
	var total int64
	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return response.Pagination{}, err
	}

	if err := db.Scopes(scopes...).Offset(q.Offset()).Limit(q.Size).Find(dest).Error; err != nil {
		return response.Pagination{}, err
	}
	return Meta(total, q), nil
}

// Meta builds pagination metadata from a total row count.
func Meta(total int64, q Query) response.Pagination {
	totalPage := int((total + int64(q.Size) - 1) / int64(q.Size))
	return response.Pagination{
		Total:       total,
		CurrentPage: q.Page,
		TotalPage:   totalPage,
		Size:        q.Size,
		HasNextPage: q.Page < totalPage,
	}
}

func parseIntOr(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
