package main

import (
	_ "embed"

	"github.com/Q-mercy-Q/backups-S3-replication/cmd"
)

//go:embed config/config.yaml
var c string

func main() {
	cmd.Execute(c)
}
