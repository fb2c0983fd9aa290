package http

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/raffle-service/internal/api/dto"
	apperrors "github.com/spec-kit/raffle-service/pkg/util"
)

// ParseParams merges the request body (urlencoded form or flat JSON object)
// under the query string, query winning on duplicate keys. A JSON body that
// is not a flat object fails with INVALID_JSON.
func ParseParams(c *fiber.Ctx) (dto.Params, error) {
	params := dto.Params{}

	if body := c.Body(); len(body) > 0 {
		contentType := string(c.Request().Header.ContentType())
		switch {
		case strings.HasPrefix(contentType, fiber.MIMEApplicationJSON):
			var raw map[string]json.RawMessage
			if err := json.Unmarshal(body, &raw); err != nil {
				return nil, apperrors.NewInvalidJSON("request body must be a flat JSON object")
			}
			for key, value := range raw {
				params[key] = flattenJSONValue(value)
			}
		case strings.HasPrefix(contentType, fiber.MIMEApplicationForm):
			c.Request().PostArgs().VisitAll(func(key, value []byte) {
				params[string(key)] = string(value)
			})
		}
	}

	c.Request().URI().QueryArgs().VisitAll(func(key, value []byte) {
		params[string(key)] = string(value)
	})

	return params, nil
}

// flattenJSONValue renders a scalar JSON value as its parameter string.
// Non-string scalars and composites keep their literal JSON text.
func flattenJSONValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
