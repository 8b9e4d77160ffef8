package infra

import (
	"fmt"
	"strings"
)

// ANSI color codes
const (
	ColorReset  = "\033[0m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
)

// PrintBanner displays the startup banner with the active feed target.
func PrintBanner(cfg *Config) {
	symbol := strings.ToUpper(cfg.Feed.Symbol)
	version := cfg.App.Version
	if version == "" {
		version = "dev"
	}

	color := ColorCyan
	publish := "disabled"
	if cfg.Publish.Enabled {
		color = ColorGreen
		publish = cfg.Publish.RedisAddr
	}

	fmt.Println()
	fmt.Printf("%s###########################################################%s\n", color, ColorReset)
	fmt.Printf("%s#                                                         #%s\n", color, ColorReset)
	fmt.Printf("%s#              📊 Order Book Visualizer                   #%s\n", color, ColorReset)
	fmt.Printf("%s#                                                         #%s\n", color, ColorReset)
	fmt.Printf("%s#   SYMBOL:  %-36s #%s\n", color, symbol, ColorReset)
	fmt.Printf("%s#   PUBLISH: %-36s #%s\n", color, publish, ColorReset)
	fmt.Printf("%s#   VERSION: %-36s #%s\n", color, version, ColorReset)
	fmt.Printf("%s#                                                         #%s\n", color, ColorReset)
	fmt.Printf("%s###########################################################%s\n", color, ColorReset)
	fmt.Println()
}
