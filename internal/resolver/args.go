package resolver

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tidwall/gjson"
)

// parseArgs accepts the args argument either as a JSON object or as a
// string holding one.
func parseArgs(raw json.RawMessage) (gjson.Result, error) {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return gjson.Result{}, fmt.Errorf("args is missing or not valid JSON")
	}

	args := gjson.ParseBytes(raw)
	if args.Type == gjson.String {
		inner := args.String()
		if !gjson.Valid(inner) {
			return gjson.Result{}, fmt.Errorf("args string is not valid JSON")
		}
		args = gjson.Parse(inner)
	}
	if !args.IsObject() {
		return gjson.Result{}, fmt.Errorf("args must be a JSON object")
	}
	return args, nil
}

// header looks up an AppSync request header case-insensitively
func header(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// callerFromToken returns the subject of a Cognito token. AppSync has
// already verified the token, so the signature is not checked again.
func callerFromToken(token string) (string, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return "", fmt.Errorf("no token")
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("failed to parse caller token: %w", err)
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return "", fmt.Errorf("failed to read token subject: %w", err)
	}
	return sub, nil
}

// documentTitles lists the titles of attached documents
func documentTitles(args gjson.Result) []string {
	var titles []string
	args.Get("documents").ForEach(func(_, doc gjson.Result) bool {
		if title := doc.Get("title").String(); title != "" {
			titles = append(titles, title)
		}
		return true
	})
	return titles
}

// valueOr returns the decoded value at path, or def when it is absent
func valueOr(args gjson.Result, path string, def any) any {
	v := args.Get(path)
	if !v.Exists() {
		return def
	}
	return v.Value()
}
