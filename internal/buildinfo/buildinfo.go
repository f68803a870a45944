// Package buildinfo carries version stamps set with -ldflags at build time:
//
//	go build -ldflags "-X carpsolver/internal/buildinfo.Version=v1.2.0" ./cmd/api
package buildinfo

var (
	Version = "dev"
	Commit  = ""
	BuiltAt = ""
)

// Info returns the stamps keyed for JSON output.
func Info() map[string]string {
	return map[string]string{
		"version": Version,
		"commit":  Commit,
		"builtAt": BuiltAt,
	}
}
