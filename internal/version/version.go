package version

// Version is set at build time via -ldflags "-X github.com/stacksift/api/internal/version.Version=...".
var Version = "dev"
