package health

import (
	"context"
	"fmt"

	"github.com/fitnessuom/ephit-mental-health/internal/catalog"
)

// CatalogChecker reports ready once the video catalog is loaded and
// non-empty. An empty catalog means the quiz and the response linker have
// nothing to work with.
func CatalogChecker(cat *catalog.Catalog) Checker {
	return Checker{
		Name: "catalog",
		Check: func(context.Context) error {
			if cat == nil || cat.Len() == 0 {
				return fmt.Errorf("catalog is empty")
			}
			return nil
		},
	}
}

// GatewayChecker reports ready when the AI gateway client could be
// constructed. It does not probe the network; a misconfigured key always
// fails, a reachable-but-slow gateway never blocks readiness.
func GatewayChecker(configured bool) Checker {
	return Checker{
		Name: "gateway",
		Check: func(context.Context) error {
			if !configured {
				return fmt.Errorf("gateway client is not configured")
			}
			return nil
		},
	}
}
