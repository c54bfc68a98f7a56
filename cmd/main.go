package main

import (
	"os"

	"github.com/calermo/seo-manager/internal/cli"
	"github.com/calermo/seo-manager/pkg/log"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
}
