package main

import (
	"github.com/Starlink/ORAC-DR-sub008/cmd"
)

func main() {
	cmd.Execute()
}
