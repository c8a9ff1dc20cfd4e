package main

import (
	"os"

	"github.com/KaidenAngle/TomKingTrading-sub001/cmd/riskgate/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
