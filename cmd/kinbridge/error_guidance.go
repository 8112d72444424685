package main

import (
	"context"
	"errors"
	"net"

	"kinbridge/internal/api"
	"kinbridge/internal/config"
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	var missing *config.MissingError
	if errors.As(err, &missing) {
		for _, key := range missing.Keys {
			lines = append(lines, "hint: set it with: kinbridge config set --global "+key+" <value>")
		}
		return uniqueLines(lines)
	}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case "unauthorized":
			lines = append(lines, "hint: verify KINBRIDGE_API_TOKEN matches the server's api_token_hash.")
		case "configuration_missing":
			lines = append(lines, "hint: the server is missing settings; check its config with: kinbridge config get <key>")
		case "upload_failed", "attach_failed":
			// Error codes double as journal state names.
			lines = append(lines, "hint: inspect failed attempts with: kinbridge journal list --state "+apiErr.Code)
		case "upstream_unavailable":
			lines = append(lines, "hint: the record store or a webhook did not answer; check kintone.base_url and the webhook settings.")
		}
		if apiErr.Code == "" {
			lines = append(lines, "hint: verify KINBRIDGE_API_URL points to a kinbridge server.")
		}
		if apiErr.Status >= 500 {
			lines = append(lines, "hint: server returned an error; check server logs for details.")
		}
		return uniqueLines(lines)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		lines = append(lines, "hint: request timed out; check server health or increase KINBRIDGE_CLIENT_TIMEOUT.")
		return uniqueLines(lines)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		lines = append(lines,
			"hint: ensure a kinbridge server is running at KINBRIDGE_API_URL.",
			"hint: start a local server with: kinbridge serve",
		)
		return uniqueLines(lines)
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
