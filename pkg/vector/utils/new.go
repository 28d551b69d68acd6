// Package vectorutils constructs vector drivers from configuration.
package vectorutils

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/vector"
	"github.com/papercomputeco/engram/pkg/vector/chromem"
	"github.com/papercomputeco/engram/pkg/vector/qdrant"
	"github.com/papercomputeco/engram/pkg/vector/sqlitevec"
)

type NewVectorDriverOpts struct {
	ProviderType string

	// Path is the on-disk location for embedded providers
	// (sqlitevec, chromem).
	Path string

	// TargetURL is the server address for remote providers (qdrant).
	TargetURL string

	Dimensions uint
	Logger     *zap.Logger
}

func NewVectorDriver(ctx context.Context, o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case "sqlitevec":
		return sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{
			DBPath:     o.Path,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case "chromem":
		return chromem.NewChromemDriver(chromem.Config{
			Path: o.Path,
		}, o.Logger)
	case "qdrant":
		host, port, useTLS, err := parseQdrantTarget(o.TargetURL)
		if err != nil {
			return nil, err
		}
		return qdrant.NewQdrantDriver(ctx, qdrant.Config{
			Host:       host,
			Port:       port,
			UseTLS:     useTLS,
			Dimensions: o.Dimensions,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}

// parseQdrantTarget splits a target like "qdrant.local:6334" or
// "https://qdrant.local:6334" into gRPC client fields.
func parseQdrantTarget(target string) (host string, port int, useTLS bool, err error) {
	if target == "" {
		return "", 0, false, fmt.Errorf("qdrant target URL is required")
	}

	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		// Bare host:port form.
		u = &url.URL{Host: target}
	}

	host = u.Hostname()
	if host == "" {
		return "", 0, false, fmt.Errorf("invalid qdrant target %q", target)
	}

	port = 6334
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return "", 0, false, fmt.Errorf("invalid qdrant port in %q: %w", target, err)
		}
	}

	return host, port, u.Scheme == "https", nil
}
