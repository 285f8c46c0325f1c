package handlers

import (
	"encoding/json"
	"strconv"
	"strings"

	"batball/internal/apperr"
	"batball/internal/service"

	"github.com/gin-gonic/gin"
)

// intQuery читает целый query-параметр, пустое значение дает def
func intQuery(c *gin.Context, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.InvalidArgument("%s must be an integer", name)
	}
	return value, nil
}

// wantsRefresh reports whether the client asked to bypass a fresh cache hit.
func wantsRefresh(c *gin.Context) bool {
	if c.Query("_t") != "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.GetHeader("Cache-Control")), "no-cache")
}

// withMeta adds _meta to a passthrough payload. Objects get the field
// merged in; anything else is wrapped as {data, _meta}.
func withMeta(data json.RawMessage, meta *service.Meta) (json.RawMessage, error) {
	if meta == nil {
		return data, nil
	}

	encodedMeta, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}

	var object map[string]json.RawMessage
	if err := json.Unmarshal(data, &object); err == nil && object != nil {
		object["_meta"] = encodedMeta
		return json.Marshal(object)
	}

	return json.Marshal(map[string]json.RawMessage{"data": data, "_meta": encodedMeta})
}
