package http

import (
	"errors"
	"strconv"
	"strings"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

func validateAuthorizeRequest(req AuthorizeRequest) error {
	if req.Type != "" && !strings.EqualFold(req.Type, tokenType) {
		return errors.New("unsupported authorizer type")
	}
	if strings.TrimSpace(req.MethodArn) == "" {
		return errors.New("methodArn is required")
	}
	return nil
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultListLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	return min(limit, maxListLimit), nil
}
