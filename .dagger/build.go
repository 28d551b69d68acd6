package main

import (
	"fmt"
	"strings"
	"time"

	"context"

	"dagger/engram/internal/dagger"
)

// archCC maps target architectures to their cross-compiler packages and
// binaries. CGO is mandatory for the sqlite drivers, so each target needs a
// working C toolchain.
var archCC = map[string]string{
	"amd64": "x86_64-linux-gnu-gcc",
	"arm64": "aarch64-linux-gnu-gcc",
}

// Build and return directory of go binaries
func (e *Engram) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	goarches := []string{"amd64", "arm64"}

	// create empty directory to put build artifacts
	outputs := dag.Directory()

	golang := dag.Container().
		From("golang:1.25-bookworm").
		WithExec([]string{"apt-get", "update"}).
		WithExec([]string{"apt-get", "install", "-y", "gcc", "gcc-aarch64-linux-gnu", "libsqlite3-dev"}).
		WithEnvVariable("CGO_ENABLED", "1").
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build")).
		WithDirectory("/src", e.Source).
		WithWorkdir("/src")

	for _, goarch := range goarches {
		// create directory for each architecture
		path := fmt.Sprintf("linux/%s/", goarch)

		// build artifact
		build := golang.
			WithEnvVariable("GOOS", "linux").
			WithEnvVariable("GOARCH", goarch).
			WithEnvVariable("CC", archCC[goarch]).
			WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", path, "./cli/engram"})

		// add build to outputs
		outputs = outputs.WithDirectory(path, build.Directory(path))
	}

	// return build directory
	return outputs
}

// BuildRelease compiles versioned release binaries with embedded version info
func (e *Engram) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	buildtime := time.Now()

	ldflags := []string{
		"-s",
		"-w",
		fmt.Sprintf("-X 'github.com/papercomputeco/engram/pkg/utils.Version=%s'", version),
		fmt.Sprintf("-X 'github.com/papercomputeco/engram/pkg/utils.Sha=%s'", commit),
		fmt.Sprintf("-X 'github.com/papercomputeco/engram/pkg/utils.Buildtime=%s'", buildtime),
	}

	return e.Build(ctx, strings.Join(ldflags, " "))
}
