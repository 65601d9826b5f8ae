package http

import (
	"net/url"
	"strconv"
	"strings"

	"finsheet/internal/core"
)

// queryParams are the optional query parameters shared by the finance routes.
type queryParams struct {
	Sheet    string
	Currency core.Currency // empty means all currencies
	Skip     int
	Take     int
}

// parseQuery validates currency strictly. skip and take fall back to zero
// when malformed and are normalized later by the history query.
func parseQuery(q url.Values) (queryParams, error) {
	p := queryParams{
		Sheet: sanitizeInput(q.Get("sheet")),
		Skip:  intParam(q, "skip"),
		Take:  intParam(q, "take"),
	}
	if v := strings.TrimSpace(q.Get("currency")); v != "" {
		c, err := core.ParseCurrency(v)
		if err != nil {
			return queryParams{}, err
		}
		p.Currency = c
	}
	return p, nil
}

func intParam(q url.Values, name string) int {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' {
			return -1
		}
		return r
	}, s)
}
