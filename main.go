package main

import (
	"github.com/cohorttools/curator/internal/cmd"
)

func main() {
	cmd.Execute()
}
