package main

import (
	"os"

	"github.com/huynd2174/Social-Network-Analyst--sub000/cmd/analyst"
)

func main() {
	if err := analyst.Execute(); err != nil {
		os.Exit(1)
	}
}
