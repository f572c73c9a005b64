package main

import (
	"log"

	"github.com/hopecommon/cs3611-email-sub000/cmd/maild"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	maild.RegisterFlags()

	if err := maild.Execute(Version); err != nil {
		log.Fatalf("%v", err)
	}
}
