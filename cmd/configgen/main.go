package main

import (
	"flag"
	"log"

	"github.com/danmuck/bridgectl/internal/config"
)

func main() {
	kind := flag.String("kind", "host", "config kind: host|seat")
	output := flag.String("output", "", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "", "config path for validation (defaults to per-kind cmd path)")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *validate {
		path := *input
		if path == "" {
			switch *kind {
			case "host":
				path = "cmd/hostctl/config.toml"
			case "seat":
				path = "cmd/seatctl/config.toml"
			default:
				log.Fatalf("unknown kind: %s", *kind)
			}
		}

		switch *kind {
		case "host":
			if _, err := config.LoadHostConfig(path); err != nil {
				log.Fatal(err)
			}
		case "seat":
			if _, err := config.LoadSeatConfig(path); err != nil {
				log.Fatal(err)
			}
		default:
			log.Fatalf("unknown kind: %s", *kind)
		}
		log.Printf("Validated %s config at %s", *kind, path)
		return
	}

	target := *output
	if target == "" {
		switch *kind {
		case "host":
			target = "cmd/hostctl/config.toml"
		case "seat":
			target = "cmd/seatctl/config.toml"
		default:
			log.Fatalf("unknown kind: %s", *kind)
		}
	}

	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %s config template to %s", *kind, target)
}
