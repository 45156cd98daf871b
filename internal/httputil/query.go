package httputil

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// DefaultPageLimit is the page size of key and ledger listings when none is given.
	DefaultPageLimit = 50
	// MaxPageLimit caps the page size of key and ledger listings.
	MaxPageLimit = 100
)

// ParsePagination reads the offset and limit query parameters of a listing.
func ParsePagination(c *gin.Context) (offset, limit int, err error) {
	offset, err = intQuery(c, "offset", 0)
	if err != nil || offset < 0 {
		return 0, 0, fmt.Errorf("invalid offset parameter: must be a non-negative integer")
	}

	limit, err = intQuery(c, "limit", DefaultPageLimit)
	if err != nil || limit < 1 || limit > MaxPageLimit {
		return 0, 0, fmt.Errorf("invalid limit parameter: must be between 1 and %d", MaxPageLimit)
	}
	return offset, limit, nil
}

func intQuery(c *gin.Context, name string, fallback int) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

// ParseOptionalBool parses a boolean query parameter. A missing parameter yields nil.
func ParseOptionalBool(c *gin.Context, name string) (*bool, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s parameter: must be a boolean", name)
	}
	return &v, nil
}

// ParseOptionalTime parses an RFC3339 query parameter. A missing parameter yields nil.
func ParseOptionalTime(c *gin.Context, name string) (*time.Time, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil, nil
	}
	v, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s parameter: must be an RFC3339 timestamp", name)
	}
	return &v, nil
}

// ParseOptionalUUID parses a UUID query parameter. A missing parameter yields nil.
func ParseOptionalUUID(c *gin.Context, name string) (*uuid.UUID, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil, nil
	}
	v, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s parameter: must be a valid UUID", name)
	}
	return &v, nil
}
