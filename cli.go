package trafficlight

import "github.com/alecthomas/kong"

var Version = "dev"

type CLI struct {
	Config  string           `help:"config file path or URL (defaults are used if empty)" short:"c" env:"TRAFFICLIGHT_CONFIG"`
	Debug   bool             `help:"debug mode" short:"d" default:"false"`
	Version kong.VersionFlag `help:"show version"`
}
