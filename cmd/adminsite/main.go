// adminsite serves a demo admin site assembled from config.
package main

// Set with -ldflags "-X main.version=v1.0.0 -X main.commit=abc1234".
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	Execute()
}
