package main

import (
	"fmt"
	"os"

	"github.com/Scilence2022/CodeXomics-sub009/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
