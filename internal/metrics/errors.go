package metrics

import (
	"fmt"
	"strings"
)

// errorLabels covers the error types a vuload iteration can fail with.
var errorLabels = map[string]string{
	"runner.NetworkError":           "Network error",
	"net.OpError":                   "Connection error",
	"net.DNSError":                  "DNS lookup failed",
	"context.Canceled":              "Iteration cancelled",
	"context.deadlineExceededError": "Context deadline exceeded",
}

// FriendlyErrorName returns a display label for an error type recorded by the
// collector. Unknown types render as "name (package)".
func FriendlyErrorName(typeName string) string {
	name := strings.TrimPrefix(strings.TrimSpace(typeName), "*")
	switch {
	case name == "":
		return "Unknown error"
	case strings.HasPrefix(name, "HTTP "):
		return name
	}
	if label, ok := errorLabels[name]; ok {
		return label
	}

	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	pkg, typ, ok := strings.Cut(name, ".")
	switch {
	case !ok:
		return name
	case pkg == "main":
		return typ
	}
	return fmt.Sprintf("%s (%s)", typ, pkg)
}
